package imaging

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fogleman/gg"
)

// RenderSwatch draws colors as equal-width vertical bands and returns a PNG.
// Colors are "#RGB" or "#RRGGBB".
func RenderSwatch(colors []string, w, h int) ([]byte, error) {
	if len(colors) == 0 {
		return nil, errors.New("no colors")
	}
	if w < len(colors) || h <= 0 {
		return nil, fmt.Errorf("swatch size %dx%d too small for %d colors", w, h, len(colors))
	}
	dc := gg.NewContext(w, h)
	n := len(colors)
	for i, c := range colors {
		x0 := i * w / n
		x1 := (i + 1) * w / n
		dc.SetHexColor(c)
		dc.DrawRectangle(float64(x0), 0, float64(x1-x0), float64(h))
		dc.Fill()
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
