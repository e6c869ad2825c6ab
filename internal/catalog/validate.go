package catalog

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/artrecord/internal/models"
)

var hexColor = regexp.MustCompile(`^#([0-9A-Fa-f]{3}){1,2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		return hexColor.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseTags splits comma separated tag input, trimming each tag and dropping
// empty ones.
func ParseTags(s string) []string {
	return normalizeTags(strings.Split(s, ","))
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeFields(f models.Fields) (models.Fields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Tags = normalizeTags(f.Tags)
	if err := validate.Struct(f); err != nil {
		return f, validationErr(err)
	}
	return f, nil
}

// normalizePalette trims text fields and keeps only well-formed colors.
func normalizePalette(f models.PaletteFields) (models.PaletteFields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Author = strings.TrimSpace(f.Author)
	f.Description = strings.TrimSpace(f.Description)
	colors := make([]string, 0, len(f.Colors))
	for _, c := range f.Colors {
		if c = strings.TrimSpace(c); hexColor.MatchString(c) {
			colors = append(colors, c)
		}
	}
	f.Colors = colors
	if err := validate.Struct(f); err != nil {
		return f, validationErr(err)
	}
	return f, nil
}
