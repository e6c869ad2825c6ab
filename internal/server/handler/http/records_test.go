package http_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/models"
	handler "github.com/atinyakov/artrecord/internal/server/handler/http"
)

// fakeCatalog fails every write with err.
type fakeCatalog struct {
	err error
}

func (f *fakeCatalog) Search(string) []models.Record                { return nil }
func (f *fakeCatalog) SearchTag(string) []models.Record             { return nil }
func (f *fakeCatalog) Get(string) (models.Record, bool)             { return models.Record{}, false }
func (f *fakeCatalog) Image(context.Context, string) (string, bool) { return "", false }
func (f *fakeCatalog) Add(context.Context, models.Fields, io.Reader) (models.Record, error) {
	return models.Record{}, f.err
}
func (f *fakeCatalog) Update(context.Context, string, models.Fields, io.Reader) (models.Record, error) {
	return models.Record{}, f.err
}
func (f *fakeCatalog) Delete(context.Context, string) error { return f.err }
func (f *fakeCatalog) ClearAll(context.Context) error       { return f.err }
func (f *fakeCatalog) ExportOne(context.Context, string) (models.ExportItem, error) {
	return models.ExportItem{}, f.err
}
func (f *fakeCatalog) ExportAll(context.Context) []models.ExportItem { return nil }
func (f *fakeCatalog) ImportAll(context.Context, []models.ExportItem) ([]models.Record, error) {
	return nil, f.err
}

func TestRecordHandler_ErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: name is required", catalog.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("record x: %w", catalog.ErrNotFound), http.StatusNotFound},
		{"codec", fmt.Errorf("%w: bad png", catalog.ErrCodec), http.StatusUnprocessableEntity},
		{"storage", fmt.Errorf("%w: quota", catalog.ErrStorageWrite), http.StatusInsufficientStorage},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &handler.RecordHandler{Catalog: &fakeCatalog{err: tc.err}}
			req := httptest.NewRequest(http.MethodDelete, "/api/records", nil)
			w := httptest.NewRecorder()

			h.Clear(w, req)

			if w.Code != tc.want {
				t.Errorf("status = %d; want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRecordHandler_StorageErrorMentionsDivergence(t *testing.T) {
	h := &handler.RecordHandler{Catalog: &fakeCatalog{err: fmt.Errorf("%w: quota", catalog.ErrStorageWrite)}}
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`[]`))
	w := httptest.NewRecorder()

	h.Import(w, req)

	if !strings.Contains(w.Body.String(), "may differ from what is saved") {
		t.Errorf("body = %q; want divergence note", w.Body.String())
	}
}

func TestRecordHandler_BadJSON(t *testing.T) {
	h := &handler.RecordHandler{Catalog: &fakeCatalog{}}
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("not-a-json"))
	w := httptest.NewRecorder()

	h.Import(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", w.Code, http.StatusBadRequest)
	}
	if body := w.Body.String(); body != "invalid body\n" {
		t.Errorf("body = %q; want %q", body, "invalid body\n")
	}
}
