package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/models"
)

const (
	// RecordsKey is the well-known key of the record collection.
	RecordsKey = "artTools"
	// PalettesKey is the well-known key of the user palette collection.
	PalettesKey = "userPalettes"
)

// Container keeps an ordered list of T serialized as one JSON array under a
// single key. Every Save rewrites the whole list.
type Container[T any] struct {
	kv  KV
	key string
	log *zap.Logger
}

// ErrCorrupt marks a container that is not a valid JSON list.
var ErrCorrupt = errors.New("container corrupt")

// RecordStore persists the catalog record collection.
type RecordStore = Container[models.Record]

// PaletteStore persists user-made palettes.
type PaletteStore = Container[models.Palette]

// NewContainer returns a container stored under key in kv.
func NewContainer[T any](kv KV, key string, log *zap.Logger) *Container[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Container[T]{kv: kv, key: key, log: log}
}

// NewRecordStore returns the record store kept under RecordsKey.
func NewRecordStore(kv KV, log *zap.Logger) *RecordStore {
	return NewContainer[models.Record](kv, RecordsKey, log)
}

// NewPaletteStore returns the palette store kept under PalettesKey.
func NewPaletteStore(kv KV, log *zap.Logger) *PaletteStore {
	return NewContainer[models.Palette](kv, PalettesKey, log)
}

// Load returns the stored list. A missing, unreadable or corrupt container
// yields an empty list; the failure is logged, not returned.
func (c *Container[T]) Load(ctx context.Context) []T {
	items, err := c.Read(ctx)
	if err != nil {
		c.log.Warn("container unusable, starting empty", zap.String("key", c.key), zap.Error(err))
		return []T{}
	}
	return items
}

// Read returns the stored list. A missing container is an empty list; read
// and decode failures are returned.
func (c *Container[T]) Read(ctx context.Context) ([]T, error) {
	data, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save overwrites the stored list.
func (c *Container[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.key, err)
	}
	if err := c.kv.Put(ctx, c.key, data); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}
