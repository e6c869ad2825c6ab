// Package repository provides a PostgreSQL implementation of the catalog
// key-value storage.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/artrecord/internal/store"
)

// Buckets used by the catalog.
const (
	BucketContainers = "containers"
	BucketImages     = "images"
)

// PostgresKV keeps one bucket of the kv table.
type PostgresKV struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Bucket scopes every key.
	Bucket string
}

// NewPostgresKV returns the bucket named bucket in db.
func NewPostgresKV(db *sql.DB, bucket string) *PostgresKV {
	return &PostgresKV{DB: db, Bucket: bucket}
}

// Get fetches the value stored under key, or store.ErrNotFound.
func (s *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT value FROM kv WHERE bucket = $1 AND key = $2
	`, s.Bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", s.Bucket, key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.Bucket, key, err)
	}
	return value, nil
}

// Put inserts or replaces the value under key.
func (s *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv (bucket, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (bucket, key) DO UPDATE SET value = EXCLUDED.value
	`, s.Bucket, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *PostgresKV) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv WHERE bucket = $1 AND key = $2`, s.Bucket, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// Keys lists the keys of the bucket.
func (s *PostgresKV) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM kv WHERE bucket = $1`, s.Bucket)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", s.Bucket, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys %s: %w", s.Bucket, err)
	}
	return keys, nil
}

// DeleteExcept removes every key of the bucket not listed in keep and
// reports how many rows went.
func (s *PostgresKV) DeleteExcept(ctx context.Context, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM kv WHERE bucket = $1 AND NOT (key = ANY($2))
	`, s.Bucket, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", s.Bucket, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", s.Bucket, err)
	}
	return n, nil
}

var (
	_ store.KV     = (*PostgresKV)(nil)
	_ store.Pruner = (*PostgresKV)(nil)
)
