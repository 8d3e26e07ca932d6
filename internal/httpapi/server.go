// Package httpapi serves the local editing surface over the catalog engine.
package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/cache"
	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/config"
	"github.com/cebimar/veliger/internal/engine"
	"github.com/cebimar/veliger/internal/geo"
	"github.com/cebimar/veliger/internal/journal"
	"github.com/cebimar/veliger/internal/match"
	"github.com/cebimar/veliger/internal/media"
	"github.com/cebimar/veliger/internal/refs"
	"github.com/cebimar/veliger/internal/swaggerui"
)

//go:embed openapi.yaml
var openapiSpec []byte

const maxBodyBytes = 1 << 20

// Catalog is the engine surface the handlers use.
type Catalog interface {
	Entries() []engine.Entry
	Entry(row int) (engine.Entry, error)
	ImportAsset(ctx context.Context, path string) (catalog.Record, error)
	ImportDir(ctx context.Context, root string) (engine.ImportSummary, error)
	EditField(ctx context.Context, rows []int, field catalog.Field, value string) (string, error)
	DeleteRows(ctx context.Context, rows []int, force bool) (int, error)
	ConvertCharset(ctx context.Context, rows []int, force bool) (int, error)
	ApplyToFolder(ctx context.Context, row int, root string, force bool) (engine.FolderSummary, error)
	Copy(row int) error
	Paste(ctx context.Context, rows []int) error
	CommitPending(ctx context.Context) (engine.CommitSummary, error)
	Pending() []string
	Discard(ctx context.Context, name string) bool
	Snapshot(ctx context.Context) error
	Reload(ctx context.Context) cache.LoadReport
	Suggestions(list string) ([]string, error)
	Complete(list, prefix string) ([]string, error)
	RebuildSuggestions(ctx context.Context)
	References() []refs.Reference
	MissingReferences() []engine.MissingReference
}

// Stager coalesces keystroke-level edits before they reach the catalog.
type Stager interface {
	Stage(rows []int, field catalog.Field, value string)
	Flush()
	Pending() int
}

// Pinger reports whether the snapshot store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Config   *config.Config
	Catalog  Catalog
	Stager   Stager
	Ready    Pinger
	APIKeys  *APIKeyStore
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

var _ ServerInterface = (*Server)(nil)

type Server struct {
	cfg      *config.Config
	catalog  Catalog
	stager   Stager
	ready    Pinger
	apiKeys  *APIKeyStore
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{AuthMode: config.AuthNone, SwaggerUIPath: "/swagger", OpenAPIPath: "/openapi.yaml"}
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{cfg: cfg, catalog: opts.Catalog, stager: opts.Stager, ready: opts.Ready, apiKeys: opts.APIKeys, gatherer: gatherer, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(loggingMiddleware(logger))

	if len(cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"X-Api-Key", "Content-Type", "Accept"},
		})
		r.Use(c.Handler)
	}

	r.Get("/healthz", s.GetHealthz)
	r.Get("/readyz", s.GetReadyz)
	r.Get(cfg.OpenAPIPath, s.serveOpenAPI)
	r.Mount(cfg.SwaggerUIPath, swaggerui.Handler(cfg.OpenAPIPath, cfg.SwaggerUIPath))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	wrapper := ServerInterfaceWrapper{Handler: s, ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	}}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware())

		r.Group(func(r chi.Router) {
			r.Use(s.requirePermissions(PermCanRead))
			r.Get("/fields", s.ListFields)
			r.Get("/records", s.ListRecords)
			r.Get("/records/{row}", wrapper.GetRecord)
			r.Get("/pending", s.ListPending)
			r.Get("/suggestions/{list}", wrapper.GetSuggestions)
			r.Get("/references", s.ListReferences)
			r.Get("/references/missing", s.MissingReferences)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermissions(PermCanImport))
			r.Post("/records", s.ImportRecord)
			r.Post("/imports", s.ImportDir)
			r.Post("/reload", s.Reload)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermissions(PermCanEdit))
			r.Patch("/records/fields", s.EditField)
			r.Post("/records/fields/stage", s.StageEdit)
			r.Post("/records/fields/flush", s.FlushEdits)
			r.Post("/clipboard/copy", s.CopyRecord)
			r.Post("/clipboard/paste", s.PasteRecord)
			r.Post("/snapshot", s.Snapshot)
			r.Post("/suggestions/rebuild", s.RebuildSuggestions)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermissions(PermCanDelete))
			r.Delete("/records", wrapper.DeleteRecords)
			r.Delete("/pending/{name}", wrapper.DiscardPending)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermissions(PermCanCommit))
			r.Post("/commit", s.CommitPending)
			r.Post("/records/charset", s.ConvertCharset)
			r.Post("/folders/apply", s.ApplyToFolder)
		})
	})

	return r
}

func (s *Server) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}

func (s *Server) GetHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{Status: statusOK})
}

func (s *Server) GetReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_ready", "snapshot store unreachable", map[string]any{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, Health{Status: statusOK})
}

func (s *Server) ListFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fieldsResponse())
}

func (s *Server) ListRecords(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Entries())
}

func (s *Server) GetRecord(w http.ResponseWriter, _ *http.Request, row int) {
	entry, err := s.catalog.Entry(row)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) ImportRecord(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "path is required", nil)
		return
	}
	rec, err := s.catalog.ImportAsset(r.Context(), req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) ImportDir(w http.ResponseWriter, r *http.Request) {
	var req ImportDirRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Root == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "root is required", nil)
		return
	}
	sum, err := s.catalog.ImportDir(r.Context(), req.Root)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) EditField(w http.ResponseWriter, r *http.Request) {
	var req EditFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	field, err := catalog.ParseField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		return
	}
	committed, err := s.catalog.EditField(r.Context(), req.Rows, field, req.Value)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EditFieldResponse{Field: field.String(), Value: committed})
}

func (s *Server) StageEdit(w http.ResponseWriter, r *http.Request) {
	if s.stager == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "live editing is not enabled", nil)
		return
	}
	var req EditFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	field, err := catalog.ParseField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", engine.ErrNoRows.Error(), nil)
		return
	}
	s.stager.Stage(req.Rows, field, req.Value)
	writeJSON(w, http.StatusAccepted, CountResponse{Count: s.stager.Pending()})
}

func (s *Server) FlushEdits(w http.ResponseWriter, _ *http.Request) {
	if s.stager == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "live editing is not enabled", nil)
		return
	}
	s.stager.Flush()
	writeJSON(w, http.StatusOK, CountResponse{Count: s.stager.Pending()})
}

func (s *Server) DeleteRecords(w http.ResponseWriter, r *http.Request, params DeleteRecordsParams) {
	force := params.Force != nil && *params.Force
	n, err := s.catalog.DeleteRows(r.Context(), params.Row, force)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (s *Server) ConvertCharset(w http.ResponseWriter, r *http.Request) {
	var req ConvertCharsetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.catalog.ConvertCharset(r.Context(), req.Rows, req.Force)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (s *Server) ApplyToFolder(w http.ResponseWriter, r *http.Request) {
	var req ApplyToFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Row == nil || req.Root == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "row and root are required", nil)
		return
	}
	sum, err := s.catalog.ApplyToFolder(r.Context(), *req.Row, req.Root, req.Force)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) CopyRecord(w http.ResponseWriter, r *http.Request) {
	var req RowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Row == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "row is required", nil)
		return
	}
	if err := s.catalog.Copy(*req.Row); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) PasteRecord(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.catalog.Paste(r.Context(), req.Rows); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) CommitPending(w http.ResponseWriter, r *http.Request) {
	sum, err := s.catalog.CommitPending(r.Context())
	if err != nil {
		var ce *journal.CommitError
		if errors.As(err, &ce) {
			writeError(w, http.StatusInternalServerError, errorCode(err), ce.Err.Error(), map[string]any{
				"filename": ce.Filename,
				"written":  sum.Written,
				"pending":  s.catalog.Pending(),
			})
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) ListPending(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Pending())
}

func (s *Server) DiscardPending(w http.ResponseWriter, r *http.Request, name string) {
	if !s.catalog.Discard(r.Context(), name) {
		writeError(w, http.StatusNotFound, "not_found", "file has no pending edits", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Snapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Snapshot(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	report := s.catalog.Reload(r.Context())
	resp := ReloadResponse{Missing: []string{}, Corrupt: []string{}}
	for _, u := range report.Missing {
		resp.Missing = append(resp.Missing, string(u))
	}
	for _, u := range report.Corrupt {
		resp.Corrupt = append(resp.Corrupt, string(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetSuggestions(w http.ResponseWriter, _ *http.Request, list string, params GetSuggestionsParams) {
	var (
		values []string
		err    error
	)
	if params.Prefix != nil {
		values, err = s.catalog.Complete(list, *params.Prefix)
	} else {
		values, err = s.catalog.Suggestions(list)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, errorCode(err), err.Error(), nil)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, values)
}

func (s *Server) RebuildSuggestions(w http.ResponseWriter, r *http.Request) {
	s.catalog.RebuildSuggestions(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListReferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.References())
}

func (s *Server) MissingReferences(w http.ResponseWriter, _ *http.Request) {
	missing := s.catalog.MissingReferences()
	if missing == nil {
		missing = []engine.MissingReference{}
	}
	writeJSON(w, http.StatusOK, missing)
}

// fail maps an engine error to a status and writes it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		dup *engine.DuplicateError
		amb *match.AmbiguousMatchError
		pw  *engine.PendingWritesError
		pe  *geo.ParseError
	)
	code := errorCode(err)
	switch {
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, code, err.Error(), map[string]any{"existing": dup.Existing, "row": dup.Row})
	case errors.As(err, &amb):
		writeError(w, http.StatusConflict, code, err.Error(), map[string]any{"rows": amb.Rows})
	case errors.As(err, &pw):
		writeError(w, http.StatusConflict, code, err.Error(), map[string]any{"filenames": pw.Filenames})
	case errors.Is(err, engine.ErrClipboardEmpty):
		writeError(w, http.StatusConflict, code, err.Error(), nil)
	case errors.Is(err, media.ErrUnsupported):
		writeError(w, http.StatusUnsupportedMediaType, code, err.Error(), nil)
	case errors.As(err, &pe),
		errors.Is(err, catalog.ErrInvalidSize),
		errors.Is(err, catalog.ErrInvalidDate),
		errors.Is(err, catalog.ErrImmutableField),
		errors.Is(err, catalog.ErrUnknownField):
		writeError(w, http.StatusUnprocessableEntity, code, err.Error(), nil)
	case errors.Is(err, catalog.ErrRowOutOfRange):
		writeError(w, http.StatusNotFound, code, err.Error(), nil)
	case errors.Is(err, engine.ErrNoRows):
		writeError(w, http.StatusBadRequest, code, err.Error(), nil)
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, code, err.Error(), nil)
	}
}

func errorCode(err error) string {
	var se *engine.ServiceError
	if errors.As(err, &se) {
		return se.Code()
	}
	return "internal"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	e := Error{Code: code, Message: message}
	if details != nil {
		e.Details = &details
	}
	writeJSON(w, status, e)
}
