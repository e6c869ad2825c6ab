package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/artrecord/internal/models"
)

// ExportFile writes the whole catalog to path and returns the record count.
func ExportFile(ctx context.Context, cat Catalog, path string) (int, error) {
	items := cat.ExportAll(ctx)
	if err := writeJSONFile(path, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// SaveOne writes record id to <name>.json in dir and returns the file path.
func SaveOne(ctx context.Context, cat Catalog, id, dir string) (string, error) {
	item, err := cat.ExportOne(ctx, id)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(item.Name+".json"))
	if err := writeJSONFile(path, item); err != nil {
		return "", err
	}
	return path, nil
}

// ImportFile reads an export file and appends its records to the catalog.
func ImportFile(ctx context.Context, cat Catalog, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var items []models.ExportItem
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	added, err := cat.ImportAll(ctx, items)
	if err != nil {
		return 0, err
	}
	return len(added), nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
