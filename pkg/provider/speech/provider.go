// Package speech defines the Provider interface for text-to-speech backends.
//
// A speech provider wraps a synthesis service (the Google Translate TTS
// endpoint, OpenAI's audio API, or any compatible server) and exposes a
// single batch call: text plus a speech locale in, a complete MP3 buffer out.
// Narrations are short enough that the service delivers whole files rather
// than streams; anything incremental is out of scope.
//
// Implementations must be safe for concurrent use and must report failures as
// returned errors; synthesis is attempted exactly once per call, with no
// internal retries.
package speech

import (
	"context"

	"github.com/echoverse/echoverse/pkg/types"
)

// Provider is the abstraction over any text-to-speech backend.
type Provider interface {
	// Synthesize renders text as spoken English audio in the accent selected
	// by locale and returns the MP3-encoded bytes. The language is always
	// English at normal speaking rate; locale only selects the accent.
	//
	// An empty audio result is reported as an error rather than returned.
	// Implementations must propagate context cancellation promptly and must
	// not retry on failure.
	Synthesize(ctx context.Context, text string, locale types.Locale) ([]byte, error)
}
