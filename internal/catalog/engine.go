// Package catalog implements the catalog engine: the only reader and writer
// of the record store and the blob store.
//
// Every operation runs to completion under the engine lock before the next
// one starts, so callers on several goroutines (HTTP handlers, the janitor)
// still observe one operation at a time.
package catalog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/models"
	"github.com/atinyakov/artrecord/internal/store"
)

// Engine orchestrates the record store and the blob store.
type Engine struct {
	mu      sync.Mutex
	records *store.RecordStore
	blobs   *store.BlobStore
	log     *zap.Logger
	newID   func() string

	data   []models.Record
	editID string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithIDGenerator replaces uuid.NewString as the source of record and blob ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New creates an Engine and loads the record collection once.
func New(ctx context.Context, records *store.RecordStore, blobs *store.BlobStore, opts ...Option) *Engine {
	e := &Engine{
		records: records,
		blobs:   blobs,
		log:     zap.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.data = records.Load(ctx)
	e.repairIDs()
	e.log.Debug("catalog loaded", zap.Int("records", len(e.data)))
	return e
}

// repairIDs gives a fresh id to every record whose id is empty or already
// taken by an earlier record. The fix reaches storage with the next save.
func (e *Engine) repairIDs() {
	seen := make(map[string]struct{}, len(e.data))
	for i := range e.data {
		id := e.data[i].ID
		if _, dup := seen[id]; dup || id == "" {
			e.data[i].ID = e.newID()
			e.log.Warn("duplicate record id replaced", zap.String("old", id), zap.String("new", e.data[i].ID))
		}
		seen[e.data[i].ID] = struct{}{}
	}
}

// Records returns a copy of the current collection in stored order.
func (e *Engine) Records() []models.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.data)
}

// Get returns the record with the given id.
func (e *Engine) Get(id string) (models.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(id); i >= 0 {
		return e.data[i].Clone(), true
	}
	return models.Record{}, false
}

// Image returns the data URI of the record's image, if it has one.
func (e *Engine) Image(ctx context.Context, id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.index(id)
	if i < 0 || !e.data[i].HasImage() {
		return "", false
	}
	return e.blobs.Get(ctx, *e.data[i].ImageID)
}

// Add validates fields, stores the optional image under a fresh blob id and
// appends a new record. An undecodable image aborts the whole add.
func (e *Engine) Add(ctx context.Context, f models.Fields, image io.Reader) (models.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(ctx, f, image)
}

func (e *Engine) add(ctx context.Context, f models.Fields, image io.Reader) (models.Record, error) {
	f, err := normalizeFields(f)
	if err != nil {
		return models.Record{}, err
	}
	rec := models.Record{
		ID:       e.newID(),
		Name:     f.Name,
		Category: f.Category,
		Tags:     f.Tags,
		Note:     f.Note,
	}
	if image != nil {
		blobID := e.newID()
		if err := e.blobs.PutImage(ctx, blobID, image); err != nil {
			return models.Record{}, blobErr(err)
		}
		rec.ImageID = &blobID
	}

	next := append(cloneAll(e.data), rec)
	if err := e.persist(ctx, next); err != nil {
		if rec.HasImage() {
			e.discardBlob(ctx, *rec.ImageID)
		}
		return models.Record{}, err
	}
	e.log.Info("record added", zap.String("id", rec.ID), zap.Bool("image", rec.HasImage()))
	return rec.Clone(), nil
}

// Update overwrites the fields of record id. When image is non-nil the old
// blob is deleted before the new one is written under a fresh blob id.
func (e *Engine) Update(ctx context.Context, id string, f models.Fields, image io.Reader) (models.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.update(ctx, id, f, image)
}

func (e *Engine) update(ctx context.Context, id string, f models.Fields, image io.Reader) (models.Record, error) {
	i := e.index(id)
	if i < 0 {
		return models.Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	f, err := normalizeFields(f)
	if err != nil {
		return models.Record{}, err
	}

	// Decode before touching storage so a bad file leaves the old image alone.
	var encoded string
	if image != nil {
		if encoded, err = e.blobs.Encode(image); err != nil {
			return models.Record{}, blobErr(err)
		}
	}

	rec := e.data[i].Clone()
	rec.Name, rec.Category, rec.Tags, rec.Note = f.Name, f.Category, f.Tags, f.Note

	if image != nil {
		if rec.HasImage() {
			if err := e.blobs.Delete(ctx, *rec.ImageID); err != nil {
				return models.Record{}, storageErr(err)
			}
			// The old blob is gone; whatever happens next must not leave
			// the record pointing at it.
			e.data[i].ImageID = nil
			rec.ImageID = nil
		}
		blobID := e.newID()
		if err := e.blobs.PutEncoded(ctx, blobID, encoded); err != nil {
			e.saveDetached(ctx)
			return models.Record{}, storageErr(err)
		}
		rec.ImageID = &blobID
	}

	next := cloneAll(e.data)
	next[i] = rec
	if err := e.persist(ctx, next); err != nil {
		if image != nil {
			e.discardBlob(ctx, *rec.ImageID)
		}
		return models.Record{}, err
	}
	e.log.Info("record updated", zap.String("id", id), zap.Bool("new_image", image != nil))
	return rec.Clone(), nil
}

// Delete removes record id and its blob. Deleting a missing id is a no-op.
// The collection is saved before the blob goes, so a failed save leaves the
// record and its image intact; a blob whose delete fails is left for
// CollectGarbage.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return nil
	}
	rec := e.data[i]
	next := append(cloneAll(e.data[:i]), cloneAll(e.data[i+1:])...)
	if err := e.persist(ctx, next); err != nil {
		return err
	}
	if rec.HasImage() {
		e.discardBlob(ctx, *rec.ImageID)
	}
	if e.editID == id {
		e.editID = ""
	}
	e.log.Info("record deleted", zap.String("id", id))
	return nil
}

// ClearAll deletes every blob, then empties the collection.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.data {
		if !e.data[i].HasImage() {
			continue
		}
		if err := e.blobs.Delete(ctx, *e.data[i].ImageID); err != nil {
			e.saveDetached(ctx)
			return storageErr(err)
		}
		e.data[i].ImageID = nil
	}
	if err := e.persist(ctx, []models.Record{}); err != nil {
		return err
	}
	e.editID = ""
	e.log.Info("catalog cleared")
	return nil
}

// CollectGarbage deletes blobs that no record references and returns how many
// were removed. Such blobs are left behind when the process dies between a
// blob write and the collection save.
//
// References are taken from memory and from the saved collection, so blobs
// of records saved by another engine over the same storage are kept. When the
// saved collection cannot be read nothing is deleted.
func (e *Engine) CollectGarbage(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stored, err := e.records.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("collect garbage: %w", err)
	}
	keep := make(map[string]struct{}, len(e.data)+len(stored))
	for _, list := range [][]models.Record{e.data, stored} {
		for _, r := range list {
			if r.HasImage() {
				keep[*r.ImageID] = struct{}{}
			}
		}
	}
	return e.blobs.Prune(ctx, keep)
}

// persist saves next and makes it the current collection. On failure the
// current collection is left as it was.
func (e *Engine) persist(ctx context.Context, next []models.Record) error {
	if err := e.records.Save(ctx, next); err != nil {
		return storageErr(err)
	}
	e.data = next
	return nil
}

// saveDetached persists the in-memory collection after blobs were removed
// from under some records. Failure is only logged: the caller is already
// returning a storage error.
func (e *Engine) saveDetached(ctx context.Context) {
	if err := e.records.Save(ctx, e.data); err != nil {
		e.log.Error("failed to save records with detached images", zap.Error(err))
	}
}

func (e *Engine) discardBlob(ctx context.Context, id string) {
	if err := e.blobs.Delete(ctx, id); err != nil {
		e.log.Warn("failed to discard unreferenced blob", zap.String("blob", id), zap.Error(err))
	}
}

func (e *Engine) index(id string) int {
	for i := range e.data {
		if e.data[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(in []models.Record) []models.Record {
	out := make([]models.Record, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
