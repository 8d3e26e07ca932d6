package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// DeleteRecordsParams are the query parameters of DELETE /api/records.
type DeleteRecordsParams struct {
	Row   []int `form:"row" json:"row"`
	Force *bool `form:"force,omitempty" json:"force,omitempty"`
}

// GetSuggestionsParams are the query parameters of GET /api/suggestions/{list}.
type GetSuggestionsParams struct {
	Prefix *string `form:"prefix,omitempty" json:"prefix,omitempty"`
}

// ServerInterface is implemented by Server; one method per operation of
// openapi.yaml.
type ServerInterface interface {
	GetHealthz(w http.ResponseWriter, r *http.Request)
	GetReadyz(w http.ResponseWriter, r *http.Request)
	ListFields(w http.ResponseWriter, r *http.Request)
	ListRecords(w http.ResponseWriter, r *http.Request)
	GetRecord(w http.ResponseWriter, r *http.Request, row int)
	ImportRecord(w http.ResponseWriter, r *http.Request)
	DeleteRecords(w http.ResponseWriter, r *http.Request, params DeleteRecordsParams)
	EditField(w http.ResponseWriter, r *http.Request)
	StageEdit(w http.ResponseWriter, r *http.Request)
	FlushEdits(w http.ResponseWriter, r *http.Request)
	ConvertCharset(w http.ResponseWriter, r *http.Request)
	ImportDir(w http.ResponseWriter, r *http.Request)
	ApplyToFolder(w http.ResponseWriter, r *http.Request)
	CopyRecord(w http.ResponseWriter, r *http.Request)
	PasteRecord(w http.ResponseWriter, r *http.Request)
	CommitPending(w http.ResponseWriter, r *http.Request)
	ListPending(w http.ResponseWriter, r *http.Request)
	DiscardPending(w http.ResponseWriter, r *http.Request, name string)
	Snapshot(w http.ResponseWriter, r *http.Request)
	Reload(w http.ResponseWriter, r *http.Request)
	GetSuggestions(w http.ResponseWriter, r *http.Request, list string, params GetSuggestionsParams)
	RebuildSuggestions(w http.ResponseWriter, r *http.Request)
	ListReferences(w http.ResponseWriter, r *http.Request)
	MissingReferences(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.ParamName, e.Err)
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds path and query parameters before calling the
// handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) GetRecord(w http.ResponseWriter, r *http.Request) {
	var row int
	err := runtime.BindStyledParameterWithOptions("simple", "row", chi.URLParam(r, "row"), &row,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "row", Err: err})
		return
	}
	siw.Handler.GetRecord(w, r, row)
}

func (siw *ServerInterfaceWrapper) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	var params DeleteRecordsParams
	if err := runtime.BindQueryParameter("form", true, true, "row", r.URL.Query(), &params.Row); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "row", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "force", r.URL.Query(), &params.Force); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "force", Err: err})
		return
	}
	siw.Handler.DeleteRecords(w, r, params)
}

func (siw *ServerInterfaceWrapper) DiscardPending(w http.ResponseWriter, r *http.Request) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", chi.URLParam(r, "name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "name", Err: err})
		return
	}
	siw.Handler.DiscardPending(w, r, name)
}

func (siw *ServerInterfaceWrapper) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	var list string
	err := runtime.BindStyledParameterWithOptions("simple", "list", chi.URLParam(r, "list"), &list,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "list", Err: err})
		return
	}
	var params GetSuggestionsParams
	if err := runtime.BindQueryParameter("form", true, false, "prefix", r.URL.Query(), &params.Prefix); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "prefix", Err: err})
		return
	}
	siw.Handler.GetSuggestions(w, r, list, params)
}
