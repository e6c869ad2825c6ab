package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/imaging"
	"github.com/atinyakov/artrecord/internal/models"
	"github.com/atinyakov/artrecord/internal/store"
)

// flakyKV fails Put while failPut is set.
type flakyKV struct {
	store.KV
	failPut bool
}

func (f *flakyKV) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("quota exceeded")
	}
	return f.KV.Put(ctx, key, value)
}

type fixture struct {
	engine  *catalog.Engine
	records *flakyKV
	blobs   *flakyKV
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFixture(t *testing.T, opts ...catalog.Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	rkv, err := store.NewFileKV(filepath.Join(dir, "containers"))
	require.NoError(t, err)
	bkv, err := store.NewFileKV(filepath.Join(dir, "images"))
	require.NoError(t, err)
	f := &fixture{records: &flakyKV{KV: rkv}, blobs: &flakyKV{KV: bkv}}
	f.engine = f.open(t, opts...)
	return f
}

// open builds a fresh engine over the fixture's storage.
func (f *fixture) open(t *testing.T, opts ...catalog.Option) *catalog.Engine {
	t.Helper()
	return catalog.New(context.Background(),
		store.NewRecordStore(f.records, nil),
		store.NewBlobStore(f.blobs, nil),
		opts...)
}

func (f *fixture) blobKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.blobs.Keys(context.Background())
	require.NoError(t, err)
	return keys
}

func (f *fixture) container(t *testing.T) []byte {
	t.Helper()
	raw, err := f.records.Get(context.Background(), store.RecordsKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return raw
}

func pngFile(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return bytes.NewReader(buf.Bytes())
}

func imageSize(t *testing.T, uri string) (int, int) {
	t.Helper()
	_, data, err := imaging.ParseDataURI(uri)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestAdd_WithoutImage(t *testing.T) {
	f := newFixture(t)
	rec, err := f.engine.Add(context.Background(), models.Fields{
		Name: "Brush A", Category: "Tool", Tags: []string{"red", "fine"}, Note: "test",
	}, nil)
	require.NoError(t, err)

	all := f.engine.Records()
	require.Len(t, all, 1)
	assert.Equal(t, rec, all[0])
	assert.Nil(t, all[0].ImageID)
	assert.Equal(t, []string{"red", "fine"}, all[0].Tags)
	assert.Empty(t, f.blobKeys(t))
}

func TestAdd_NormalizesInput(t *testing.T) {
	f := newFixture(t)
	rec, err := f.engine.Add(context.Background(), models.Fields{
		Name: "  Pencil  ", Tags: []string{" hb ", "", "  ", "soft"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Pencil", rec.Name)
	assert.Equal(t, []string{"hb", "soft"}, rec.Tags)
}

func TestAdd_EmptyNameChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Add(ctx, models.Fields{Name: "Existing"}, pngFile(t, 10, 10))
	require.NoError(t, err)
	before, blobsBefore := f.container(t), f.blobKeys(t)

	for _, name := range []string{"", "   "} {
		_, err := f.engine.Add(ctx, models.Fields{Name: name, Tags: []string{"x"}}, pngFile(t, 10, 10))
		require.ErrorIs(t, err, catalog.ErrValidation)
		assert.Contains(t, err.Error(), "name is required")
	}
	assert.Equal(t, before, f.container(t))
	assert.ElementsMatch(t, blobsBefore, f.blobKeys(t))
	assert.Len(t, f.engine.Records(), 1)
}

func TestAdd_IDsAreUnique(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		rec, err := f.engine.Add(context.Background(), models.Fields{Name: fmt.Sprintf("item %d", i)}, nil)
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestAdd_ImageIsDownscaled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "Tall"}, pngFile(t, 1000, 2000))
	require.NoError(t, err)
	require.NotNil(t, rec.ImageID)
	assert.NotEqual(t, rec.ID, *rec.ImageID)

	uri, ok := f.engine.Image(ctx, rec.ID)
	require.True(t, ok)
	w, h := imageSize(t, uri)
	assert.Equal(t, 200, w)
	assert.Equal(t, 400, h)
	assert.Equal(t, []string{*rec.ImageID}, f.blobKeys(t))
}

func TestAdd_UndecodableImageAborts(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Add(context.Background(), models.Fields{Name: "Bad"}, strings.NewReader("not an image"))
	require.ErrorIs(t, err, catalog.ErrCodec)
	assert.Empty(t, f.engine.Records())
	assert.Empty(t, f.blobKeys(t))
	assert.Nil(t, f.container(t))
}

func TestAdd_StorageWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.records.failPut = true
	_, err := f.engine.Add(context.Background(), models.Fields{Name: "Lost"}, pngFile(t, 5, 5))
	require.ErrorIs(t, err, catalog.ErrStorageWrite)
	assert.NotErrorIs(t, err, catalog.ErrValidation)
	assert.Empty(t, f.engine.Records())
	assert.Empty(t, f.blobKeys(t), "blob written for the failed add must be discarded")
}

func TestUpdate_ReplacesImage(t *testing.T) {
	f := newFixture(t, catalog.WithIDGenerator(seqIDs()))
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "Brush"}, pngFile(t, 20, 20))
	require.NoError(t, err)
	oldBlob := *rec.ImageID

	up, err := f.engine.Update(ctx, rec.ID, models.Fields{Name: "Brush v2", Tags: []string{"new"}}, pngFile(t, 30, 10))
	require.NoError(t, err)
	require.NotNil(t, up.ImageID)
	assert.NotEqual(t, oldBlob, *up.ImageID)
	assert.Equal(t, rec.ID, up.ID)
	assert.Equal(t, "Brush v2", up.Name)
	assert.Equal(t, []string{*up.ImageID}, f.blobKeys(t))

	uri, ok := f.engine.Image(ctx, rec.ID)
	require.True(t, ok)
	w, h := imageSize(t, uri)
	assert.Equal(t, 30, w)
	assert.Equal(t, 10, h)
}

func TestUpdate_KeepsImageWithoutFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "Ink"}, pngFile(t, 4, 4))
	require.NoError(t, err)

	up, err := f.engine.Update(ctx, rec.ID, models.Fields{Name: "Ink", Note: "black"}, nil)
	require.NoError(t, err)
	assert.Equal(t, *rec.ImageID, *up.ImageID)
	assert.Equal(t, "black", up.Note)
	assert.Len(t, f.blobKeys(t), 1)
}

func TestUpdate_MissingTargetChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Add(ctx, models.Fields{Name: "A"}, pngFile(t, 4, 4))
	require.NoError(t, err)
	before, blobsBefore := f.container(t), f.blobKeys(t)

	_, err = f.engine.Update(ctx, "nope", models.Fields{Name: "B"}, pngFile(t, 4, 4))
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.ErrorIs(t, err, catalog.ErrValidation)
	assert.Equal(t, before, f.container(t))
	assert.ElementsMatch(t, blobsBefore, f.blobKeys(t))
}

func TestUpdate_EmptyNameChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "A"}, nil)
	require.NoError(t, err)

	_, err = f.engine.Update(ctx, rec.ID, models.Fields{Name: " "}, nil)
	require.ErrorIs(t, err, catalog.ErrValidation)
	got, _ := f.engine.Get(rec.ID)
	assert.Equal(t, "A", got.Name)
}

func TestUpdate_UndecodableImageKeepsOldImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "A"}, pngFile(t, 4, 4))
	require.NoError(t, err)

	_, err = f.engine.Update(ctx, rec.ID, models.Fields{Name: "A2"}, strings.NewReader("garbage"))
	require.ErrorIs(t, err, catalog.ErrCodec)

	got, _ := f.engine.Get(rec.ID)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, *rec.ImageID, *got.ImageID)
	assert.Equal(t, []string{*rec.ImageID}, f.blobKeys(t))
}

func TestUpdate_StorageFailureDetachesDeletedImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "A"}, pngFile(t, 4, 4))
	require.NoError(t, err)

	f.records.failPut = true
	_, err = f.engine.Update(ctx, rec.ID, models.Fields{Name: "A2"}, pngFile(t, 8, 8))
	require.ErrorIs(t, err, catalog.ErrStorageWrite)

	got, ok := f.engine.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Name)
	assert.Nil(t, got.ImageID, "record must not point at the deleted blob")
	assert.Empty(t, f.blobKeys(t))
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "Only"}, pngFile(t, 4, 4))
	require.NoError(t, err)

	require.NoError(t, f.engine.Delete(ctx, rec.ID))
	assert.Empty(t, f.engine.Records())
	assert.Empty(t, f.blobKeys(t))
	assert.Equal(t, "[]", string(f.container(t)))
}

func TestDelete_MissingIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Add(ctx, models.Fields{Name: "Keep"}, nil)
	require.NoError(t, err)
	before := f.container(t)

	require.NoError(t, f.engine.Delete(ctx, "ghost"))
	assert.Equal(t, before, f.container(t))
	assert.Len(t, f.engine.Records(), 1)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		var img *bytes.Reader
		if i%2 == 0 {
			img = pngFile(t, 4, 4)
		}
		var err error
		if img != nil {
			_, err = f.engine.Add(ctx, models.Fields{Name: fmt.Sprint(i)}, img)
		} else {
			_, err = f.engine.Add(ctx, models.Fields{Name: fmt.Sprint(i)}, nil)
		}
		require.NoError(t, err)
	}
	require.Len(t, f.blobKeys(t), 2)

	require.NoError(t, f.engine.ClearAll(ctx))
	assert.Empty(t, f.engine.Records())
	assert.Empty(t, f.blobKeys(t))
	assert.Empty(t, f.open(t).Records())
}

func TestReloadSeesPersistedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "Persisted", Tags: []string{"a"}}, pngFile(t, 4, 4))
	require.NoError(t, err)

	again := f.open(t)
	got, ok := again.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec, got)
	_, ok = again.Image(ctx, rec.ID)
	assert.True(t, ok)
}

func TestCollectGarbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "A"}, pngFile(t, 4, 4))
	require.NoError(t, err)
	require.NoError(t, f.blobs.Put(ctx, "orphan", []byte(imaging.DataURI("image/png", []byte{1}))))

	removed, err := f.engine.CollectGarbage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{*rec.ImageID}, f.blobKeys(t))
}

func TestCollectGarbage_KeepsImagesSavedByAnotherEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.open(t)

	rec, err := f.engine.Add(ctx, models.Fields{Name: "From shell"}, pngFile(t, 4, 4))
	require.NoError(t, err)

	removed, err := other.CollectGarbage(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, []string{*rec.ImageID}, f.blobKeys(t))

	// The other direction: a record only the second engine knows about.
	rec2, err := other.Add(ctx, models.Fields{Name: "From server"}, pngFile(t, 4, 4))
	require.NoError(t, err)
	removed, err = f.engine.CollectGarbage(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
	_, ok := f.open(t).Image(ctx, rec2.ID)
	assert.True(t, ok)
}

func TestCollectGarbage_UnreadableCollectionDeletesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.blobs.Put(ctx, "orphan", []byte("x")))
	require.NoError(t, f.records.Put(ctx, store.RecordsKey, []byte("{broken")))

	_, err := f.engine.CollectGarbage(ctx)
	require.ErrorIs(t, err, store.ErrCorrupt)
	assert.Equal(t, []string{"orphan"}, f.blobKeys(t))
}

func TestDelete_StorageFailureKeepsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.engine.Add(ctx, models.Fields{Name: "Stays"}, pngFile(t, 4, 4))
	require.NoError(t, err)

	f.records.failPut = true
	err = f.engine.Delete(ctx, rec.ID)
	require.ErrorIs(t, err, catalog.ErrStorageWrite)

	got, ok := f.engine.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.ImageID, got.ImageID)
	assert.Equal(t, []string{*rec.ImageID}, f.blobKeys(t))

	f.records.failPut = false
	_, ok = f.open(t).Image(ctx, rec.ID)
	assert.True(t, ok, "saved record must still find its image")
}
