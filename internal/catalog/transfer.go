package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/imaging"
	"github.com/atinyakov/artrecord/internal/models"
)

// ExportAll returns every record with its image inlined. Store state is not
// touched; an unreadable image exports as null.
func (e *Engine) ExportAll(ctx context.Context) []models.ExportItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.ExportItem, 0, len(e.data))
	for _, r := range e.data {
		out = append(out, e.exportItem(ctx, r))
	}
	return out
}

// ExportOne returns a single record with its image inlined.
func (e *Engine) ExportOne(ctx context.Context, id string) (models.ExportItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return models.ExportItem{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return e.exportItem(ctx, e.data[i]), nil
}

func (e *Engine) exportItem(ctx context.Context, r models.Record) models.ExportItem {
	r = r.Clone()
	item := models.ExportItem{
		ID:       r.ID,
		Name:     r.Name,
		Category: r.Category,
		Tags:     r.Tags,
		Note:     r.Note,
		ImageID:  r.ImageID,
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if r.HasImage() {
		if uri, ok := e.blobs.Get(ctx, *r.ImageID); ok {
			item.Image = &uri
		}
	}
	return item
}

// ImportAll appends items to the catalog. Each item gets a fresh record id;
// inline images are stored under fresh blob ids. The batch is checked before
// anything is written and saved once at the end, so a failure leaves the
// catalog unchanged.
func (e *Engine) ImportAll(ctx context.Context, items []models.ExportItem) ([]models.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for n, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: item %d: name is required", ErrValidation, n)
		}
		if hasInlineImage(item) {
			if _, err := imaging.DecodeDataURI(*item.Image); err != nil {
				return nil, fmt.Errorf("%w: item %d: %w", ErrCodec, n, err)
			}
		}
	}

	var written []string
	rollback := func() {
		for _, id := range written {
			e.discardBlob(ctx, id)
		}
	}

	added := make([]models.Record, 0, len(items))
	for _, item := range items {
		rec := models.Record{
			ID:       e.newID(),
			Name:     strings.TrimSpace(item.Name),
			Category: item.Category,
			Tags:     normalizeTags(item.Tags),
			Note:     item.Note,
		}
		if hasInlineImage(item) {
			blobID := e.newID()
			if err := e.blobs.PutEncoded(ctx, blobID, *item.Image); err != nil {
				rollback()
				return nil, blobErr(err)
			}
			written = append(written, blobID)
			rec.ImageID = &blobID
		}
		added = append(added, rec)
	}

	next := append(cloneAll(e.data), added...)
	if err := e.persist(ctx, next); err != nil {
		rollback()
		return nil, err
	}
	e.log.Info("records imported", zap.Int("count", len(added)), zap.Int("images", len(written)))
	return cloneAll(added), nil
}

func hasInlineImage(item models.ExportItem) bool {
	return item.Image != nil && *item.Image != ""
}
