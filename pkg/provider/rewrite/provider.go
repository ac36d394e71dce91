// Package rewrite defines the Provider interface for tone-rewriting backends.
//
// A rewrite provider wraps a generative language model (e.g., an OpenAI chat
// model, a local Ollama instance, or anything reachable through any-llm-go)
// and exposes a single call: take user text, return the same content restyled
// in a requested tone. Prompting, decoding limits, and output trimming live
// inside the implementation so callers only ever see text in, text out.
//
// Implementations must be safe for concurrent use and must report failures as
// returned errors; a rewrite is attempted exactly once per call, with no
// internal retries.
package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/echoverse/echoverse/pkg/types"
)

// DefaultMaxTokens bounds the length of a rewritten text. It mirrors the
// generation cap the service was tuned with.
const DefaultMaxTokens = 300

// Provider is the abstraction over any tone-rewriting backend.
type Provider interface {
	// Rewrite restyles text in the given tone and returns the result with
	// surrounding whitespace trimmed. An empty result is reported as an
	// error rather than returned, so callers can rely on a successful call
	// producing usable text.
	//
	// Implementations must propagate context cancellation promptly and must
	// not retry on failure.
	Rewrite(ctx context.Context, text string, tone types.Tone) (string, error)
}

// Prompt builds the rewrite instruction sent to the language model. The tone
// name is lower-cased, matching the instruction style the models were
// evaluated with: "Rewrite the following text in a suspenseful tone: ...".
func Prompt(text string, tone types.Tone) string {
	return fmt.Sprintf("Rewrite the following text in a %s tone: %s",
		strings.ToLower(string(tone)), text)
}
