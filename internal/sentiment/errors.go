package sentiment

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
)

// InferenceError reports a batch item the pipeline could not classify. It
// matches apperrors.ErrInference with errors.Is.
type InferenceError struct {
	Index  int
	Reason string
	Cause  error
}

func (e *InferenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: item %d: %s: %v", apperrors.ErrInference, e.Index, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: item %d: %s", apperrors.ErrInference, e.Index, e.Reason)
}

func (e *InferenceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{apperrors.ErrInference, e.Cause}
	}
	return []error{apperrors.ErrInference}
}
