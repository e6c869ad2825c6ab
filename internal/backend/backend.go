// Package backend opens the key-value buckets selected by configuration.
package backend

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/config"
	"github.com/atinyakov/artrecord/internal/db"
	"github.com/atinyakov/artrecord/internal/repository"
	"github.com/atinyakov/artrecord/internal/store"
)

// Buckets holds the two catalog buckets.
type Buckets struct {
	// Containers keeps the record and palette collections.
	Containers store.KV
	// Images keeps one encoded image per key.
	Images store.KV

	close func() error
}

// Close releases the backend.
func (b *Buckets) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open returns the buckets of the configured backend.
func Open(opts *config.Options, log *zap.Logger) (*Buckets, error) {
	switch opts.Backend {
	case config.BackendPostgres:
		conn, err := db.InitPostgres(opts.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres backend")
		return &Buckets{
			Containers: repository.NewPostgresKV(conn, repository.BucketContainers),
			Images:     repository.NewPostgresKV(conn, repository.BucketImages),
			close:      conn.Close,
		}, nil
	case config.BackendFile, "":
		containers, err := store.NewFileKV(filepath.Join(opts.DataDir, repository.BucketContainers))
		if err != nil {
			return nil, err
		}
		images, err := store.NewFileKV(filepath.Join(opts.DataDir, repository.BucketImages))
		if err != nil {
			return nil, err
		}
		log.Info("using file backend", zap.String("dir", opts.DataDir))
		return &Buckets{Containers: containers, Images: images}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}
