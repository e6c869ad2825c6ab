package catalog

import (
	"strings"

	"github.com/atinyakov/artrecord/internal/models"
)

// Search returns the records whose name, note and tags, joined by spaces,
// contain keyword, ignoring case, in collection order. A keyword may span
// fields ("red fine" matches tags red and fine). A blank keyword returns
// every record.
func (e *Engine) Search(keyword string) []models.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	kw := strings.ToLower(strings.TrimSpace(keyword))
	return e.filter(func(r models.Record) bool {
		return kw == "" || strings.Contains(searchText(r), kw)
	})
}

// searchText is the lowercased text a keyword is matched against.
func searchText(r models.Record) string {
	parts := append([]string{r.Name, r.Note}, r.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// SearchTag returns the records carrying tag exactly, ignoring case. This is
// what clicking a tag does.
func (e *Engine) SearchTag(tag string) []models.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	tag = strings.TrimSpace(tag)
	return e.filter(func(r models.Record) bool {
		for _, t := range r.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

func (e *Engine) filter(match func(models.Record) bool) []models.Record {
	out := make([]models.Record, 0, len(e.data))
	for _, r := range e.data {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
