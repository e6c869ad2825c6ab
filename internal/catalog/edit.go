package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/atinyakov/artrecord/internal/models"
)

// BeginEdit marks record id as the target of the next Submit.
func (e *Engine) BeginEdit(id string) (models.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.index(id)
	if i < 0 {
		return models.Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	e.editID = id
	return e.data[i].Clone(), nil
}

// EditTarget returns the id being edited, if any.
func (e *Engine) EditTarget() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editID, e.editID != ""
}

// CancelEdit clears the edit target; the next Submit creates a record.
func (e *Engine) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editID = ""
}

// Submit updates the edit target when one is set and creates a new record
// otherwise. The edit target is cleared only when the call succeeds.
func (e *Engine) Submit(ctx context.Context, f models.Fields, image io.Reader) (models.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editID == "" {
		return e.add(ctx, f, image)
	}
	rec, err := e.update(ctx, e.editID, f, image)
	if err != nil {
		return rec, err
	}
	e.editID = ""
	return rec, nil
}
