package httpapi

import "github.com/cebimar/veliger/internal/catalog"

type Health struct {
	Status string `json:"status"`
}

const statusOK = "ok"

type Error struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details *map[string]any `json:"details,omitempty"`
}

type ImportRequest struct {
	Path string `json:"path"`
}

type ImportDirRequest struct {
	Root string `json:"root"`
}

type EditFieldRequest struct {
	Rows  []int  `json:"rows"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type EditFieldResponse struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type RowsRequest struct {
	Rows []int `json:"rows"`
}

type RowRequest struct {
	Row *int `json:"row"`
}

type ConvertCharsetRequest struct {
	Rows  []int `json:"rows"`
	Force bool  `json:"force,omitempty"`
}

type ApplyToFolderRequest struct {
	Row   *int   `json:"row"`
	Root  string `json:"root"`
	Force bool   `json:"force,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type FieldInfo struct {
	Name     string `json:"name"`
	Editable bool   `json:"editable"`
}

type FieldsResponse struct {
	Fields []FieldInfo `json:"fields"`
	Sizes  []string    `json:"sizes"`
}

type ReloadResponse struct {
	Missing []string `json:"missing"`
	Corrupt []string `json:"corrupt"`
}

func fieldsResponse() FieldsResponse {
	resp := FieldsResponse{Sizes: catalog.SizeClasses()}
	for _, f := range catalog.Fields() {
		resp.Fields = append(resp.Fields, FieldInfo{Name: f.String(), Editable: f.Editable()})
	}
	return resp
}
