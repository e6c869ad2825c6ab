// Package store persists catalog state on the local device.
//
// Two cooperating stores sit on top of a small key-value abstraction: the
// record store keeps the whole ordered record collection under one well-known
// key, and the blob store keeps one encoded image per key.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// KV is a flat key-value bucket.
type KV interface {
	// Get returns the value under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key in the bucket, in no particular order.
	Keys(ctx context.Context) ([]string, error)
}

// Pruner is implemented by backends that can drop every key outside keep in
// one step.
type Pruner interface {
	DeleteExcept(ctx context.Context, keep []string) (int64, error)
}

// ValidateKey rejects keys that cannot be used as file names.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	if strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
