// Package main is the artrecord command-line client: an interactive shell
// over the local catalog plus one-shot export and import.
package main

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/backend"
	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/client/shell"
	"github.com/atinyakov/artrecord/internal/config"
	"github.com/atinyakov/artrecord/internal/logger"
	"github.com/atinyakov/artrecord/internal/store"
)

var (
	version   string
	buildDate string
)

// main parses flags and dispatches to the shell, export or import commands.
func main() {
	options := config.Parse()

	lg := logger.New()
	// The shell talks to the terminal; keep library logs quiet unless asked.
	level := options.LogLevel
	if level == "info" {
		level = "warn"
	}
	if err := lg.Init(level); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Log.Sync() }()

	buckets, err := backend.Open(options, lg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = buckets.Close() }()

	ctx := context.Background()
	engine := catalog.New(ctx,
		store.NewRecordStore(buckets.Containers, lg.Log),
		store.NewBlobStore(buckets.Images, lg.Log),
		catalog.WithLogger(lg.Log),
	)

	switch options.Cmd {
	case "shell":
		fmt.Printf("artrecord %s (%s). Type 'help' for commands.\n", cmp.Or(version, "dev"), cmp.Or(buildDate, "N/A"))
		shell.New(engine, os.Stdin, os.Stdout, lg.Log).Run(ctx)
	case "export":
		if options.File == "" {
			log.Fatal("please provide -file=path")
		}
		n, err := shell.ExportFile(ctx, engine, options.File)
		if err != nil {
			lg.Log.Fatal("export failed", zap.Error(err))
		}
		fmt.Printf("Exported %d records to %s\n", n, options.File)
	case "import":
		if options.File == "" {
			log.Fatal("please provide -file=path")
		}
		n, err := shell.ImportFile(ctx, engine, options.File)
		if err != nil {
			lg.Log.Fatal("import failed", zap.Error(err))
		}
		fmt.Printf("Imported %d records\n", n)
	default:
		log.Fatalf("unknown command: %s", options.Cmd)
	}
}
