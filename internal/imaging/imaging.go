// Package imaging turns user-supplied image files into the small, self-contained
// JPEG data URIs kept in the blob store, and renders palette swatches.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	// Registered decoders for image.Decode.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
)

const (
	// MaxEdge is the longest edge, in pixels, of a stored image.
	MaxEdge = 400
	// Quality is the JPEG quality used when re-encoding (0.8 on a 0..1 scale).
	Quality = 80
	// OutputMIME is the MIME type of every stored image.
	OutputMIME = "image/jpeg"

	sniffLen = 261
)

var (
	// ErrUnsupported is returned for input that is not a recognizable image.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrDataURI is returned when a payload is not a base64 image data URI.
	ErrDataURI = errors.New("invalid image data URI")
)

// Sniff reports whether header looks like an image file.
func Sniff(header []byte) error {
	if len(header) == 0 {
		return ErrUnsupported
	}
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}
	kind, err := filetype.Match(header)
	if err != nil {
		return fmt.Errorf("sniff: %w", err)
	}
	if kind == filetype.Unknown || kind.MIME.Type != "image" {
		return ErrUnsupported
	}
	return nil
}

// Decode reads a whole image file and decodes it.
func Decode(r io.Reader) (image.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := Sniff(raw); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", errors.Join(ErrUnsupported, err))
	}
	return img, nil
}

// FitWithin returns the size of a w×h image scaled so that its longer edge is
// at most maxEdge, keeping the aspect ratio. Images already small enough keep
// their size.
func FitWithin(w, h, maxEdge int) (int, int) {
	longer := max(w, h)
	if longer <= maxEdge || longer == 0 {
		return w, h
	}
	s := float64(maxEdge) / float64(longer)
	nw := max(int(float64(w)*s), 1)
	nh := max(int(float64(h)*s), 1)
	return nw, nh
}

// Downscale shrinks img so that its longer edge is at most maxEdge.
func Downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxEdge)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality (1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail decodes an image file, downscales it to MaxEdge and returns it as
// a JPEG data URI.
func Thumbnail(r io.Reader) (string, error) {
	img, err := Decode(r)
	if err != nil {
		return "", err
	}
	data, err := EncodeJPEG(Downscale(img, MaxEdge), Quality)
	if err != nil {
		return "", err
	}
	return DataURI(OutputMIME, data), nil
}

// DataURI builds a base64 data URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI splits a base64 image data URI into its MIME type and bytes.
func ParseDataURI(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrDataURI
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mime, "image/") {
		return "", nil, ErrDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrDataURI, err)
	}
	return mime, data, nil
}

// DecodeDataURI parses a base64 image data URI and decodes the image in it.
func DecodeDataURI(s string) (image.Image, error) {
	_, data, err := ParseDataURI(s)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}
