package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/imaging"
	"github.com/atinyakov/artrecord/internal/models"
)

// Swatch size in pixels.
const (
	swatchWidth  = 250
	swatchHeight = 60
)

// PaletteService is the palette operations the palette endpoints use.
type PaletteService interface {
	Search(keyword string) (site, user []models.Palette)
	Find(id string) (models.Palette, bool)
	Create(ctx context.Context, f models.PaletteFields) (models.Palette, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (models.Palette, error)
	Export(id string) (models.Palette, error)
}

// PaletteHandler serves the /api/palettes endpoints.
type PaletteHandler struct {
	Palettes PaletteService
}

// List handles GET /api/palettes?q=.
func (h *PaletteHandler) List(w http.ResponseWriter, r *http.Request) {
	site, user := h.Palettes.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string][]models.Palette{"site": site, "user": user})
}

// Create handles POST /api/palettes.
func (h *PaletteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var f models.PaletteFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	pal, err := h.Palettes.Create(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pal)
}

// Delete handles DELETE /api/palettes/{id}.
func (h *PaletteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Palettes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Favorite handles POST /api/palettes/{id}/favorite.
func (h *PaletteHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	pal, err := h.Palettes.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pal)
}

// Export handles GET /api/palettes/{id}/export.
func (h *PaletteHandler) Export(w http.ResponseWriter, r *http.Request) {
	pal, err := h.Palettes.Export(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, catalog.ExportFileName(pal), pal)
}

// Swatch handles GET /api/palettes/{id}/swatch.png.
func (h *PaletteHandler) Swatch(w http.ResponseWriter, r *http.Request) {
	pal, ok := h.Palettes.Find(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, catalog.ErrNotFound)
		return
	}
	png, err := imaging.RenderSwatch(pal.Colors, swatchWidth, swatchHeight)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
