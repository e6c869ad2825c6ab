// Package http provides the local HTTP API over the catalog engine.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/models"
)

// maxUpload bounds a multipart request, image included.
const maxUpload = 32 << 20

// Catalog is the part of the catalog engine the record endpoints use.
type Catalog interface {
	Search(keyword string) []models.Record
	SearchTag(tag string) []models.Record
	Get(id string) (models.Record, bool)
	Image(ctx context.Context, id string) (string, bool)
	Add(ctx context.Context, f models.Fields, image io.Reader) (models.Record, error)
	Update(ctx context.Context, id string, f models.Fields, image io.Reader) (models.Record, error)
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	ExportOne(ctx context.Context, id string) (models.ExportItem, error)
	ExportAll(ctx context.Context) []models.ExportItem
	ImportAll(ctx context.Context, items []models.ExportItem) ([]models.Record, error)
}

// RecordHandler serves the /api/records, /api/export and /api/import endpoints.
type RecordHandler struct {
	Catalog Catalog
}

// List handles GET /api/records. ?tag= searches by exact tag, ?q= by keyword.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if tag := q.Get("tag"); tag != "" {
		writeJSON(w, http.StatusOK, h.Catalog.SearchTag(tag))
		return
	}
	writeJSON(w, http.StatusOK, h.Catalog.Search(q.Get("q")))
}

// Get handles GET /api/records/{id}.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.Catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, catalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Create handles POST /api/records with a multipart form.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, image, closeFn, err := readForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	defer closeFn()

	rec, err := h.Catalog.Add(r.Context(), f, image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Update handles PUT /api/records/{id} with a multipart form. Without an
// image part the current image is kept.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, image, closeFn, err := readForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	defer closeFn()

	rec, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), f, image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/records/{id}.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/records.
func (h *RecordHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.ClearAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Image handles GET /api/records/{id}/image.
func (h *RecordHandler) Image(w http.ResponseWriter, r *http.Request) {
	uri, ok := h.Catalog.Image(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, catalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": uri})
}

// ExportOne handles GET /api/records/{id}/export.
func (h *RecordHandler) ExportOne(w http.ResponseWriter, r *http.Request) {
	item, err := h.Catalog.ExportOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, item.Name+".json", item)
}

// ExportAll handles GET /api/export.
func (h *RecordHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	writeAttachment(w, "art-record-export.json", h.Catalog.ExportAll(r.Context()))
}

// Import handles POST /api/import with a JSON array of exported items.
func (h *RecordHandler) Import(w http.ResponseWriter, r *http.Request) {
	var items []models.ExportItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	added, err := h.Catalog.ImportAll(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// readForm reads the record fields and the optional image part. The returned
// image is nil when no file was sent.
func readForm(r *http.Request) (models.Fields, io.Reader, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return models.Fields{}, nil, noop, err
	}
	f := models.Fields{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Tags:     catalog.ParseTags(r.FormValue("tags")),
		Note:     r.FormValue("note"),
	}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return f, nil, noop, nil
	}
	if err != nil {
		return models.Fields{}, nil, noop, err
	}
	return f, file, func() { _ = file.Close() }, nil
}
