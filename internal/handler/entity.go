package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippetbase/internal/apperror"
	"github.com/sakif/snippetbase/internal/auth"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/query"
	"github.com/sakif/snippetbase/internal/transfer"
)

// Request body limits. Imports carry a whole collection.
const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 32 << 20
)

// Collections looks up the live collection for a domain.
type Collections interface {
	Collection(d model.Domain) *collection.Collection
}

// EntityHandler serves one REST resource per domain under /api/{domain}.
// Reads wait until the collection has applied its persisted value so a
// client never sees the empty pre-load state.
type EntityHandler struct {
	collections Collections
	facade      *query.Facade
	logger      *slog.Logger
	now         func() time.Time
}

func NewEntityHandler(collections Collections, facade *query.Facade, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{
		collections: collections,
		facade:      facade,
		logger:      logger,
		now:         time.Now,
	}
}

// collection resolves {domain} and waits for it to be ready. On failure the
// error response has already been written.
func (h *EntityHandler) collection(w http.ResponseWriter, r *http.Request) (*collection.Collection, bool) {
	raw := chi.URLParam(r, "domain")
	d, err := model.ParseDomain(raw)
	if err != nil {
		writeError(w, apperror.NotFound("collection", raw))
		return nil, false
	}
	c := h.collections.Collection(d)
	if c == nil {
		writeError(w, apperror.NotFound("collection", raw))
		return nil, false
	}
	if err := c.WaitReady(r.Context()); err != nil {
		writeError(w, err)
		return nil, false
	}
	return c, true
}

// HandleList runs the view pipeline.
//
// HTTP: GET /api/{domain}?q=&category=&collection=&sort=&page=&perPage=
func (h *EntityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		writeError(w, err)
		return
	}
	perPage, err := intParam(q.Get("perPage"), "perPage")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.facade.Apply(c.Snapshot(), query.Options{
		Text:       q.Get("q"),
		Category:   q.Get("category"),
		Collection: q.Get("collection"),
		Sort:       query.Sort(q.Get("sort")),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleStats returns whole-collection counts.
//
// HTTP: GET /api/{domain}/stats
func (h *EntityHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.facade.Stats(c.Snapshot()))
}

// HandleCollections lists the curated tag collections with match counts.
//
// HTTP: GET /api/{domain}/collections
func (h *EntityHandler) HandleCollections(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.facade.Collections(c.Snapshot()))
}

// StatusResponse reports where a collection is in its load lifecycle.
type StatusResponse struct {
	Domain   model.Domain         `json:"domain"`
	State    collection.SyncState `json:"state"`
	Version  uint64               `json:"version"`
	Entities int                  `json:"entities"`
}

// HandleStatus does not wait for the collection, so it can be polled while
// it loads.
//
// HTTP: GET /api/{domain}/status
func (h *EntityHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "domain")
	d, err := model.ParseDomain(raw)
	if err != nil || h.collections.Collection(d) == nil {
		writeError(w, apperror.NotFound("collection", raw))
		return
	}
	snap := h.collections.Collection(d).Snapshot()
	writeJSON(w, http.StatusOK, StatusResponse{
		Domain:   snap.Domain,
		State:    snap.State,
		Version:  snap.Version,
		Entities: len(snap.Entities),
	})
}

// HandleGet returns one entity. Seed entities not yet merged are found too.
//
// HTTP: GET /api/{domain}/{id}
func (h *EntityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	e, found := c.Get(id)
	if !found {
		writeError(w, apperror.NotFound(string(c.Domain())+" entity", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleCreate adds a user entity.
//
// HTTP: POST /api/{domain}
// REQUEST BODY: {"title": "...", "content": "...", "category": "...", "tags": [...]}
func (h *EntityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	var in model.NewEntity
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	e, err := c.Add(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, c, "entity created", slog.String("id", e.ID))
	writeJSON(w, http.StatusCreated, e)
}

// HandleUpdate applies a partial update. Absent fields are left unchanged.
//
// HTTP: PATCH /api/{domain}/{id}
func (h *EntityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	var patch model.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	e, found, err := c.Update(r.Context(), id, patch)
	switch {
	case err != nil:
		writeError(w, err)
	case !found:
		h.notFound(w, r, c, id)
	default:
		h.audit(r, c, "entity updated", slog.String("id", id))
		writeJSON(w, http.StatusOK, e)
	}
}

// HandleDelete removes an entity.
//
// HTTP: DELETE /api/{domain}/{id}
func (h *EntityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if !c.Delete(r.Context(), id) {
		h.notFound(w, r, c, id)
		return
	}
	h.audit(r, c, "entity deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorite flips isFavorite.
//
// HTTP: POST /api/{domain}/{id}/favorite
func (h *EntityHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	h.entityAction(w, r, (*collection.Collection).ToggleFavorite)
}

// HandleUse records a copy of the entity's content.
//
// HTTP: POST /api/{domain}/{id}/use
func (h *EntityHandler) HandleUse(w http.ResponseWriter, r *http.Request) {
	h.entityAction(w, r, (*collection.Collection).IncrementUseCount)
}

// HandleView records that the entity was opened.
//
// HTTP: POST /api/{domain}/{id}/view
func (h *EntityHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	h.entityAction(w, r, (*collection.Collection).IncrementViewCount)
}

type entityOp func(c *collection.Collection, ctx context.Context, id string) (model.Entity, bool)

func (h *EntityHandler) entityAction(w http.ResponseWriter, r *http.Request, op entityOp) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	e, found := op(c, r.Context(), id)
	if !found {
		h.notFound(w, r, c, id)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// notFound distinguishes a cancelled request from a genuinely missing id;
// both make a mutation report "not applied".
func (h *EntityHandler) notFound(w http.ResponseWriter, r *http.Request, c *collection.Collection, id string) {
	if err := r.Context().Err(); err != nil {
		writeError(w, err)
		return
	}
	writeError(w, apperror.NotFound(string(c.Domain())+" entity", id))
}

// HandleExport downloads the collection as a transfer document.
//
// HTTP: GET /api/{domain}/export
func (h *EntityHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	doc := c.Export()
	name := fmt.Sprintf("%s-export-%s.json", c.Domain(), h.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeJSON(w, http.StatusOK, doc)
}

// ImportResponse summarizes an applied import.
type ImportResponse struct {
	Policy   transfer.Policy `json:"policy"`
	Imported int             `json:"imported"`
	Total    int             `json:"total"`
}

// HandleImport applies a transfer document. An invalid document changes
// nothing.
//
// HTTP: POST /api/{domain}/import?policy=merge|replace
func (h *EntityHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	policy, err := transfer.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := transfer.Decode(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := c.Import(r.Context(), doc, policy)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, c, "import applied",
		slog.String("policy", string(policy)),
		slog.Int("total", total),
	)
	writeJSON(w, http.StatusOK, ImportResponse{
		Policy:   policy,
		Imported: len(doc.Entities),
		Total:    total,
	})
}

// audit logs a write together with the token subject that made it, when the
// route is guarded.
func (h *EntityHandler) audit(r *http.Request, c *collection.Collection, msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("domain", string(c.Domain())))
	if subject, ok := auth.SubjectFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("subject", subject))
	}
	h.logger.LogAttrs(r.Context(), slog.LevelInfo, msg, attrs...)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

func intParam(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperror.ValidationFailed(field, fmt.Sprintf("%s must be a number", field))
	}
	return n, nil
}
