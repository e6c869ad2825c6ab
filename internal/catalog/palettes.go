package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/models"
	"github.com/atinyakov/artrecord/internal/store"
)

// Palettes manages the bundled site palettes and the user's own palettes.
// Only user palettes can be created, deleted, favorited or exported.
type Palettes struct {
	mu    sync.Mutex
	store *store.PaletteStore
	log   *zap.Logger
	newID func() string

	site []models.Palette
	user []models.Palette
}

// NewPalettes loads user palettes from st. site is the read-only bundled list.
func NewPalettes(ctx context.Context, st *store.PaletteStore, site []models.Palette, log *zap.Logger) *Palettes {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Palettes{
		store: st,
		log:   log,
		newID: uuid.NewString,
		site:  clonePalettes(site),
		user:  st.Load(ctx),
	}
	// Palettes saved before ids existed get one now.
	assigned := false
	for i := range p.user {
		if p.user[i].ID == "" {
			p.user[i].ID = p.newID()
			assigned = true
		}
	}
	if assigned {
		if err := st.Save(ctx, p.user); err != nil {
			log.Warn("failed to save assigned palette ids", zap.Error(err))
		}
	}
	return p
}

// LoadSitePalettes reads the bundled palettes file. A missing or corrupt file
// yields no site palettes.
func LoadSitePalettes(path string, log *zap.Logger) []models.Palette {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("site palettes unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	var site []models.Palette
	if err := json.Unmarshal(data, &site); err != nil {
		log.Warn("site palettes corrupt", zap.String("path", path), zap.Error(err))
		return nil
	}
	for i := range site {
		if site[i].ID == "" {
			site[i].ID = "site-" + strconv.Itoa(i)
		}
	}
	return site
}

// Create validates f and appends a new user palette.
func (p *Palettes) Create(ctx context.Context, f models.PaletteFields) (models.Palette, error) {
	f, err := normalizePalette(f)
	if err != nil {
		return models.Palette{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pal := models.Palette{
		ID:          p.newID(),
		Name:        f.Name,
		Author:      f.Author,
		Description: f.Description,
		Colors:      f.Colors,
	}
	next := append(clonePalettes(p.user), pal)
	if err := p.save(ctx, next); err != nil {
		return models.Palette{}, err
	}
	return clonePalette(pal), nil
}

// Delete removes user palette id.
func (p *Palettes) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.userIndex(id)
	if i < 0 {
		return fmt.Errorf("palette %s: %w", id, ErrNotFound)
	}
	next := append(clonePalettes(p.user[:i]), clonePalettes(p.user[i+1:])...)
	return p.save(ctx, next)
}

// ToggleFavorite flips the favorite flag of user palette id.
func (p *Palettes) ToggleFavorite(ctx context.Context, id string) (models.Palette, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.userIndex(id)
	if i < 0 {
		return models.Palette{}, fmt.Errorf("palette %s: %w", id, ErrNotFound)
	}
	next := clonePalettes(p.user)
	next[i].Favorite = !next[i].Favorite
	if err := p.save(ctx, next); err != nil {
		return models.Palette{}, err
	}
	return clonePalette(next[i]), nil
}

// Search filters site and user palettes by keyword against name, author,
// description and colors, ignoring case. Favorites come first; the order is
// otherwise preserved.
func (p *Palettes) Search(keyword string) (site, user []models.Palette) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kw := strings.ToLower(strings.TrimSpace(keyword))
	return filterPalettes(p.site, kw), filterPalettes(p.user, kw)
}

// Find returns the site or user palette with the given id.
func (p *Palettes) Find(id string) (models.Palette, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range [][]models.Palette{p.user, p.site} {
		for _, pal := range list {
			if pal.ID == id {
				return clonePalette(pal), true
			}
		}
	}
	return models.Palette{}, false
}

// Export returns user palette id for saving as a standalone JSON file.
func (p *Palettes) Export(id string) (models.Palette, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.userIndex(id)
	if i < 0 {
		return models.Palette{}, fmt.Errorf("palette %s: %w", id, ErrNotFound)
	}
	return clonePalette(p.user[i]), nil
}

// ExportFileName is the file name a palette is exported under.
func ExportFileName(pal models.Palette) string {
	return strings.Join(strings.Fields(pal.Name), "_") + ".json"
}

func (p *Palettes) save(ctx context.Context, next []models.Palette) error {
	if err := p.store.Save(ctx, next); err != nil {
		return storageErr(err)
	}
	p.user = next
	return nil
}

func (p *Palettes) userIndex(id string) int {
	for i := range p.user {
		if p.user[i].ID == id {
			return i
		}
	}
	return -1
}

func filterPalettes(in []models.Palette, kw string) []models.Palette {
	out := make([]models.Palette, 0, len(in))
	for _, pal := range in {
		if kw == "" || paletteMatches(pal, kw) {
			out = append(out, clonePalette(pal))
		}
	}
	slices.SortStableFunc(out, func(a, b models.Palette) int {
		switch {
		case a.Favorite == b.Favorite:
			return 0
		case a.Favorite:
			return -1
		default:
			return 1
		}
	})
	return out
}

func paletteMatches(pal models.Palette, kw string) bool {
	if strings.Contains(strings.ToLower(pal.Name), kw) ||
		strings.Contains(strings.ToLower(pal.Author), kw) ||
		strings.Contains(strings.ToLower(pal.Description), kw) {
		return true
	}
	for _, c := range pal.Colors {
		if strings.Contains(strings.ToLower(c), kw) {
			return true
		}
	}
	return false
}

func clonePalette(p models.Palette) models.Palette {
	p.Colors = append([]string(nil), p.Colors...)
	return p
}

func clonePalettes(in []models.Palette) []models.Palette {
	out := make([]models.Palette, len(in))
	for i := range in {
		out[i] = clonePalette(in[i])
	}
	return out
}
