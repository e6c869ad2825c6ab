package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/artrecord/internal/store"
)

var (
	// ErrValidation reports bad input. Nothing was changed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports a missing update/delete target. It is a validation
	// failure: nothing was changed.
	ErrNotFound = fmt.Errorf("%w: not found", ErrValidation)
	// ErrCodec reports an image that could not be decoded or encoded. The
	// whole operation is aborted.
	ErrCodec = errors.New("image could not be processed")
	// ErrStorageWrite reports a failed write to the device storage. The
	// visible state and the saved state may have diverged.
	ErrStorageWrite = errors.New("storage write failed")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageWrite, err)
}

// blobErr sorts a blob store failure into ErrCodec or ErrStorageWrite.
func blobErr(err error) error {
	if errors.Is(err, store.ErrCodec) {
		return fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return storageErr(err)
}

// validationErr turns validator output into a readable ErrValidation.
func validationErr(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s entries", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s allows at most %s entries", field, fe.Param()))
		case "rgbhex":
			msgs = append(msgs, fmt.Sprintf("%s: %v is not a #RGB or #RRGGBB color", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s fails %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
