package model

import (
	"errors"
	"fmt"
)

// Failure kinds. Only ValidationError rejects a submission; the others mark a
// degraded stage and are wrapped with context by the component that hit them.
var (
	ErrExtractionFailure      = errors.New("extraction failure")
	ErrGraphWriteFailure      = errors.New("graph write failure")
	ErrRelationalWriteFailure = errors.New("relational write failure")
	ErrAnalysisFailure        = errors.New("analysis failure")
	ErrRenderFailure          = errors.New("render failure")

	// ErrSequenceConflict means a store already holds a different exchange
	// under the same session and sequence number, typically because the
	// transcript was reset while the store kept its data.
	ErrSequenceConflict = errors.New("sequence already recorded with different content")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
