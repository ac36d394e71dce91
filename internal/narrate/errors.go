package narrate

import (
	"errors"
	"fmt"
)

// Validation errors. These abort a run before any provider is called.
var (
	// ErrEmptyText reports input that is empty or whitespace-only.
	ErrEmptyText = errors.New("narrate: text must not be empty")

	// ErrInvalidTone reports a tone outside the supported set.
	ErrInvalidTone = errors.New("narrate: unsupported tone")

	// ErrInvalidAccent reports an accent outside the supported set.
	ErrInvalidAccent = errors.New("narrate: unsupported accent")
)

// RewriteError reports a failure in the tone-rewrite stage. The run aborts
// and synthesis is never attempted.
type RewriteError struct {
	Err error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("narrate: rewrite stage: %v", e.Err)
}

func (e *RewriteError) Unwrap() error { return e.Err }

// SynthesisError reports a failure in the audio-synthesis stage. The run
// aborts and no record is stored; the rewritten text is discarded with it.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("narrate: synthesis stage: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
