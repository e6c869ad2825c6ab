// Package shell is the interactive command-line front end of the catalog.
package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/models"
)

// Catalog is the engine surface the shell drives.
type Catalog interface {
	Records() []models.Record
	Get(id string) (models.Record, bool)
	Search(keyword string) []models.Record
	SearchTag(tag string) []models.Record
	Add(ctx context.Context, f models.Fields, image io.Reader) (models.Record, error)
	BeginEdit(id string) (models.Record, error)
	EditTarget() (string, bool)
	CancelEdit()
	Submit(ctx context.Context, f models.Fields, image io.Reader) (models.Record, error)
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	ExportOne(ctx context.Context, id string) (models.ExportItem, error)
	ExportAll(ctx context.Context) []models.ExportItem
	ImportAll(ctx context.Context, items []models.ExportItem) ([]models.Record, error)
	CollectGarbage(ctx context.Context) (int, error)
}

const helpText = `Available commands:
  help               show this help
  add                fill in the form; updates the record being edited, if any
  edit <id>          load a record into the form
  cancel             leave edit mode
  list               list all records
  search <keyword>   search name, note and tags
  tag <tag>          list records with this tag
  delete <id>        delete a record
  clear              delete every record
  export <file>      export the whole catalog
  save <id>          export one record to <name>.json
  import <file>      import records from an export file
  gc                 remove images no record uses
  exit               quit`

// Shell runs catalog commands read from a Prompter.
type Shell struct {
	cat    Catalog
	prompt *Prompter
	out    io.Writer
	log    *zap.Logger
}

// New creates a shell over cat reading from in and writing to out.
func New(cat Catalog, in io.Reader, out io.Writer, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{cat: cat, prompt: NewPrompter(in, out), out: out, log: log}
}

// Run reads commands until "exit" or end of input.
func (s *Shell) Run(ctx context.Context) {
	for {
		fmt.Fprint(s.out, s.promptLabel())
		line, ok := s.prompt.Line()
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		s.Exec(ctx, args[0], strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), args[0])))
	}
}

func (s *Shell) promptLabel() string {
	if id, ok := s.cat.EditTarget(); ok {
		return fmt.Sprintf("artrecord (editing %s)> ", id)
	}
	return "artrecord> "
}

// Exec runs a single command. arg is the rest of the line.
func (s *Shell) Exec(ctx context.Context, cmd, arg string) {
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "add":
		s.submit(ctx)
	case "edit":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: edit <id>")
			return
		}
		rec, err := s.cat.BeginEdit(arg)
		if err != nil {
			s.fail(err)
			return
		}
		s.printRecord(rec)
		fmt.Fprintln(s.out, "Editing. Type 'add' to change it or 'cancel' to stop.")
	case "cancel":
		s.cat.CancelEdit()
		fmt.Fprintln(s.out, "Edit cancelled")
	case "list":
		s.printRecords(s.cat.Records())
	case "search":
		s.printRecords(s.cat.Search(arg))
	case "tag":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: tag <tag>")
			return
		}
		s.printRecords(s.cat.SearchTag(arg))
	case "delete":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: delete <id>")
			return
		}
		if _, ok := s.cat.Get(arg); !ok {
			fmt.Fprintln(s.out, "Record not found")
			return
		}
		if err := s.cat.Delete(ctx, arg); err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintln(s.out, "Record deleted")
	case "clear":
		if !s.prompt.Confirm("Delete every record?") {
			fmt.Fprintln(s.out, "Nothing deleted")
			return
		}
		if err := s.cat.ClearAll(ctx); err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintln(s.out, "Catalog cleared")
	case "export":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: export <file>")
			return
		}
		n, err := ExportFile(ctx, s.cat, arg)
		if err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintf(s.out, "Exported %d records to %s\n", n, arg)
	case "save":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: save <id>")
			return
		}
		path, err := SaveOne(ctx, s.cat, arg, ".")
		if err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintf(s.out, "Saved %s\n", path)
	case "import":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: import <file>")
			return
		}
		n, err := ImportFile(ctx, s.cat, arg)
		if err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintf(s.out, "Imported %d records\n", n)
	case "gc":
		n, err := s.cat.CollectGarbage(ctx)
		if err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintf(s.out, "Removed %d unused images\n", n)
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
}

func (s *Shell) submit(ctx context.Context) {
	var cur *models.Record
	if id, ok := s.cat.EditTarget(); ok {
		if rec, found := s.cat.Get(id); found {
			cur = &rec
		}
	}
	f, imagePath := s.prompt.PromptFields(cur)

	var image io.Reader
	if imagePath != "" {
		file, err := os.Open(imagePath)
		if err != nil {
			fmt.Fprintf(s.out, "Failed to read file %q: %v\n", imagePath, err)
			return
		}
		defer file.Close()
		image = file
	}

	rec, err := s.cat.Submit(ctx, f, image)
	if err != nil {
		s.fail(err)
		return
	}
	if cur != nil {
		fmt.Fprintln(s.out, "Record updated")
	} else {
		fmt.Fprintln(s.out, "Record added")
	}
	s.printRecord(rec)
}

func (s *Shell) fail(err error) {
	s.log.Debug("command failed", zap.Error(err))
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

func (s *Shell) printRecords(recs []models.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(s.out, "No records")
		return
	}
	for _, r := range recs {
		line := fmt.Sprintf("%s  %s", r.ID, r.Name)
		if r.Category != "" {
			line += "  [" + r.Category + "]"
		}
		if len(r.Tags) > 0 {
			line += "  #" + strings.Join(r.Tags, " #")
		}
		if r.HasImage() {
			line += "  (image)"
		}
		fmt.Fprintln(s.out, line)
	}
}

func (s *Shell) printRecord(r models.Record) {
	b, _ := json.MarshalIndent(r, "", "  ")
	fmt.Fprintln(s.out, string(b))
}
