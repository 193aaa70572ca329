// internal/api/api.go
//
// HTTP surface for the schema registry and the document store.
//
// Context
// -------
// The handler never validates anything itself.  It decodes a JSON object,
// resolves the URL collection to a record type through the registry, hands
// both to Registry.Validate, and translates the outcome:
//
//	Record            → 200 (dry run) or 201 after Insert
//	*ValidationError  → 422 with every field error
//	store.ErrDuplicate → 409
//
// Routes (mounted under /api by cmd/web)
// --------------------------------------
//
//	GET  /schemas                  all record types
//	GET  /schemas/{type}           one record type
//	POST /{collection}/validate    validate only
//	POST /{collection}             validate and store
//	GET  /{collection}             list (limit, offset)
//	GET  /{collection}/{id}        fetch one
//
// Notes
// -----
// • Bodies are decoded with UseNumber so integers larger than 2^53 survive.
// • Oxford commas, two spaces after periods.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/docschema/internal/metrics"
	"github.com/yanizio/docschema/internal/schema"
	"github.com/yanizio/docschema/internal/store"
)

const (
	maxBodyBytes = 1 << 20
	defaultLimit = 20
	maxLimit     = 100
)

// Documents is the persistence contract the handlers rely on.  *store.Store
// satisfies it.
type Documents interface {
	Insert(ctx context.Context, collection string, rec schema.Record) (uint64, error)
	Get(ctx context.Context, collection string, id uint64) (store.Document, error)
	List(ctx context.Context, collection string, limit, offset int) ([]store.Document, error)
}

// Handler serves the API.  Safe for concurrent use.
type Handler struct {
	reg  *schema.Registry
	docs Documents
	log  *zap.SugaredLogger
}

// New wires a handler.  A nil log falls back to the global zap logger.
func New(reg *schema.Registry, docs Documents, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.S()
	}
	return &Handler{reg: reg, docs: docs, log: log.With("component", "api")}
}

// Routes returns the router to mount under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Static routes win over {collection}; schema.NewRegistry rejects a
	// collection named "schemas".
	r.Get("/schemas", h.listSchemas)
	r.Get("/schemas/{type}", h.getSchema)

	r.Route("/{collection}", func(r chi.Router) {
		r.Use(h.resolveCollection)
		r.Get("/", h.listDocuments)
		r.Post("/", h.createDocument)
		r.Post("/validate", h.validateDocument)
		r.Get("/{id}", h.getDocument)
	})
	return r
}

/*──────────────────────────── schemas ───────────────────────────────────────*/

func (h *Handler) listSchemas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"types": h.reg.Types()})
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "type")
	rt, ok := h.reg.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("unknown record type %q", name))
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

/*──────────────────────────── collection scope ──────────────────────────────*/

type rtKey struct{}

// resolveCollection maps {collection} onto its record type or answers 404.
func (h *Handler) resolveCollection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := chi.URLParam(r, "collection")
		rt, ok := h.reg.TypeForCollection(c)
		if !ok {
			writeError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("unknown collection %q", c))
			return
		}
		ctx := context.WithValue(r.Context(), rtKey{}, rt)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recordType(r *http.Request) *schema.RecordType {
	rt, _ := r.Context().Value(rtKey{}).(*schema.RecordType)
	return rt
}

/*──────────────────────────── documents ─────────────────────────────────────*/

func (h *Handler) validateDocument(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}

	c := rec.Collection()
	id, err := h.docs.Insert(r.Context(), c, rec)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		metrics.StoreErrorsTotal.WithLabelValues(c, "insert").Inc()
		writeError(w, http.StatusConflict, CodeConflict, "a document with the same unique field already exists")
		return
	case err != nil:
		metrics.StoreErrorsTotal.WithLabelValues(c, "insert").Inc()
		h.log.Errorw("insert failed", "collection", c, "err", err)
		writeError(w, http.StatusInternalServerError, CodeUnknown, CodeUnknown)
		return
	}

	metrics.DocumentsStoredTotal.WithLabelValues(c).Inc()
	h.log.Infow("document stored", "collection", c, "id", id)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "record": rec})
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	rt := recordType(r)

	var fields []schema.FieldError
	limit, msg := queryInt(r, "limit", defaultLimit, 1)
	if msg != "" {
		fields = append(fields, schema.FieldError{Field: "limit", Reason: msg})
	}
	offset, msg := queryInt(r, "offset", 0, 0)
	if msg != "" {
		fields = append(fields, schema.FieldError{Field: "offset", Reason: msg})
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, newValidationResponse(LocationQuery, fields))
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	docs, err := h.docs.List(r.Context(), rt.Collection, limit, offset)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(rt.Collection, "list").Inc()
		h.log.Errorw("list failed", "collection", rt.Collection, "err", err)
		writeError(w, http.StatusInternalServerError, CodeUnknown, CodeUnknown)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collection": rt.Collection,
		"limit":      limit,
		"offset":     offset,
		"documents":  docs,
	})
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	rt := recordType(r)

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, newValidationResponse(LocationParams,
			[]schema.FieldError{{Field: "id", Reason: "must be a positive integer"}}))
		return
	}

	doc, err := h.docs.Get(r.Context(), rt.Collection, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s %d not found", rt.Collection, id))
		return
	case err != nil:
		metrics.StoreErrorsTotal.WithLabelValues(rt.Collection, "get").Inc()
		h.log.Errorw("get failed", "collection", rt.Collection, "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, CodeUnknown, CodeUnknown)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

/*──────────────────────────── helpers ───────────────────────────────────────*/

// decodeAndValidate reads the body and runs it through the registry.  On
// failure it has already written the response.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request) (schema.Record, bool) {
	rt := recordType(r)

	raw, err := decodeObject(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return schema.Record{}, false
	}

	rec, err := h.reg.Validate(rt.Name, raw)
	observe(rt, err)

	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, newValidationResponse(LocationBody, ve.Fields))
		return schema.Record{}, false
	case err != nil:
		h.log.Errorw("validate failed", "type", rt.Name, "err", err)
		writeError(w, http.StatusInternalServerError, CodeUnknown, CodeUnknown)
		return schema.Record{}, false
	}
	return rec, true
}

// decodeObject requires exactly one JSON object in body.
func decodeObject(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON body: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("request body must be a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("request body must contain a single JSON object")
	}
	return obj, nil
}

// observe records the validation outcome.  Undeclared field names come from
// clients, so they share one label value.
func observe(rt *schema.RecordType, err error) {
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		if err == nil {
			metrics.ValidationsTotal.WithLabelValues(rt.Name, metrics.OutcomeValid).Inc()
		}
		return
	}
	metrics.ValidationsTotal.WithLabelValues(rt.Name, metrics.OutcomeInvalid).Inc()
	for _, fe := range ve.Fields {
		field := fe.Field
		if _, ok := rt.Field(field); !ok {
			field = "_unknown"
		}
		metrics.FieldErrorsTotal.WithLabelValues(rt.Name, field).Inc()
	}
}

// queryInt parses an optional integer query parameter with a lower bound.
func queryInt(r *http.Request, key string, def, min int) (int, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, ""
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, "must be an integer"
	}
	if n < min {
		return 0, fmt.Sprintf("must be ≥ %d", min)
	}
	return n, ""
}
