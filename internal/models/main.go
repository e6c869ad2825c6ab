// Package models defines the core data structures for catalog records and palettes.
package models

// Record is one catalog entry. It holds metadata only; the image bytes live in
// the blob store and are referenced by ImageID.
type Record struct {
	// ID is the unique identifier for the record.
	ID string `json:"id"`
	// Name is the display name of the art supply.
	Name string `json:"name"`
	// Category is an optional classification ("Brush", "Paint", ...).
	Category string `json:"category"`
	// Tags are trimmed, non-empty labels used for search.
	Tags []string `json:"tags"`
	// Note holds free text.
	Note string `json:"note"`
	// ImageID references a blob store entry, nil when no image is attached.
	ImageID *string `json:"imageId"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.ImageID != nil {
		id := *r.ImageID
		out.ImageID = &id
	}
	return out
}

// HasImage reports whether the record references a blob.
func (r Record) HasImage() bool {
	return r.ImageID != nil && *r.ImageID != ""
}

// Fields are the user-editable parts of a record.
type Fields struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags" validate:"dive,required"`
	Note     string   `json:"note"`
}

// ExportItem is the portable form of a record: its fields plus the image
// payload inlined as a data URI.
type ExportItem struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Note     string   `json:"note"`
	ImageID  *string  `json:"imageId,omitempty"`
	// Image is a data URI ("data:image/jpeg;base64,...") or nil.
	Image *string `json:"image"`
}

// Palette is a named set of colors.
type Palette struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Favorite    bool     `json:"favorite"`
}

// PaletteFields are the user-supplied parts of a palette.
type PaletteFields struct {
	Name        string   `json:"name" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Colors      []string `json:"colors" validate:"min=1,max=5,dive,rgbhex"`
}
