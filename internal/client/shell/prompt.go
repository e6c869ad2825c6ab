package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/models"
)

// Prompter reads answers line by line.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads from in and prints questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Line returns the next input line, or false at end of input.
func (p *Prompter) Line() (string, bool) {
	if !p.in.Scan() {
		return "", false
	}
	return p.in.Text(), true
}

func (p *Prompter) ask(label string) string {
	fmt.Fprint(p.out, label)
	line, _ := p.Line()
	return strings.TrimSpace(line)
}

// askDefault shows def and keeps it when the answer is blank.
func (p *Prompter) askDefault(label, def string) string {
	if def == "" {
		return p.ask(label + ": ")
	}
	if v := p.ask(fmt.Sprintf("%s [%s]: ", label, def)); v != "" {
		return v
	}
	return def
}

// PromptFields asks for record fields and an optional image path. With cur
// set, blank answers keep the current values.
func (p *Prompter) PromptFields(cur *models.Record) (models.Fields, string) {
	var def models.Record
	if cur != nil {
		def = *cur
	}
	f := models.Fields{
		Name:     p.askDefault("Name", def.Name),
		Category: p.askDefault("Category", def.Category),
		Tags:     catalog.ParseTags(p.askDefault("Tags (comma separated)", strings.Join(def.Tags, ", "))),
		Note:     p.askDefault("Note", def.Note),
	}
	imagePath := p.ask("Image file (leave empty to skip): ")
	return f, imagePath
}

// Confirm asks a yes/no question; only "y" or "yes" confirms.
func (p *Prompter) Confirm(question string) bool {
	switch strings.ToLower(p.ask(question + " [y/N]: ")) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
