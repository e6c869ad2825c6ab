package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/imaging"
)

// ErrCodec marks a payload that could not be decoded or encoded as an image.
var ErrCodec = errors.New("image codec")

// BlobStore keeps downscaled images, one JPEG data URI per id.
type BlobStore struct {
	kv  KV
	log *zap.Logger
}

// NewBlobStore returns a blob store over kv.
func NewBlobStore(kv KV, log *zap.Logger) *BlobStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &BlobStore{kv: kv, log: log}
}

// Encode decodes an image file and returns it downscaled and re-encoded as a
// JPEG data URI, without storing anything.
func (s *BlobStore) Encode(r io.Reader) (string, error) {
	uri, err := imaging.Thumbnail(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return uri, nil
}

// PutImage decodes an image file, downscales it and stores the result under
// id, replacing any previous entry. Nothing is written when decoding fails.
func (s *BlobStore) PutImage(ctx context.Context, id string, r io.Reader) error {
	uri, err := s.Encode(r)
	if err != nil {
		return err
	}
	return s.put(ctx, id, uri)
}

// PutEncoded stores an already encoded image data URI under id as is. The
// payload must decode as an image.
func (s *BlobStore) PutEncoded(ctx context.Context, id, dataURI string) error {
	if _, err := imaging.DecodeDataURI(dataURI); err != nil {
		return fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return s.put(ctx, id, dataURI)
}

func (s *BlobStore) put(ctx context.Context, id, dataURI string) error {
	if err := s.kv.Put(ctx, id, []byte(dataURI)); err != nil {
		return fmt.Errorf("put blob %s: %w", id, err)
	}
	return nil
}

// Get returns the data URI stored under id. Missing entries and read errors
// both report false.
func (s *BlobStore) Get(ctx context.Context, id string) (string, bool) {
	data, err := s.kv.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("blob unreadable", zap.String("id", id), zap.Error(err))
		}
		return "", false
	}
	return string(data), true
}

// Delete removes the entry under id; a missing entry is not an error.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// Keys lists every stored blob id.
func (s *BlobStore) Keys(ctx context.Context) ([]string, error) {
	return s.kv.Keys(ctx)
}

// Prune deletes every blob whose id is not in keep and returns how many were
// removed.
func (s *BlobStore) Prune(ctx context.Context, keep map[string]struct{}) (int, error) {
	if p, ok := s.kv.(Pruner); ok {
		ids := make([]string, 0, len(keep))
		for id := range keep {
			ids = append(ids, id)
		}
		n, err := p.DeleteExcept(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("prune blobs: %w", err)
		}
		return int(n), nil
	}

	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}
	removed := 0
	var errs []error
	for _, k := range keys {
		if _, ok := keep[k]; ok {
			continue
		}
		if err := s.kv.Delete(ctx, k); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
