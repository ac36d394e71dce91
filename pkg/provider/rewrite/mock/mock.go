// Package mock provides a test double for the rewrite.Provider interface.
//
// Use Provider to return canned rewritten text and to verify what text and
// tone reached the backend:
//
//	p := &mock.Provider{Result: "rewritten"}
//	out, err := p.Rewrite(ctx, "original", types.ToneNeutral)
package mock

import (
	"context"
	"sync"

	"github.com/echoverse/echoverse/pkg/provider/rewrite"
	"github.com/echoverse/echoverse/pkg/types"
)

// RewriteCall records a single invocation of Rewrite.
type RewriteCall struct {
	// Ctx is the context passed to Rewrite.
	Ctx context.Context
	// Text is the input text passed to Rewrite.
	Text string
	// Tone is the tone passed to Rewrite.
	Tone types.Tone
}

// Provider is a mock implementation of rewrite.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Rewrite when Err is nil.
	Result string

	// Err, if non-nil, is returned by Rewrite instead of Result.
	Err error

	// RewriteFunc, if non-nil, overrides Result/Err entirely.
	RewriteFunc func(ctx context.Context, text string, tone types.Tone) (string, error)

	// RewriteCalls records every call to Rewrite in order.
	RewriteCalls []RewriteCall
}

// Rewrite records the call and returns the configured response.
func (p *Provider) Rewrite(ctx context.Context, text string, tone types.Tone) (string, error) {
	p.mu.Lock()
	p.RewriteCalls = append(p.RewriteCalls, RewriteCall{Ctx: ctx, Text: text, Tone: tone})
	fn := p.RewriteFunc
	result, err := p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, tone)
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

// CallCount returns the number of recorded Rewrite calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.RewriteCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RewriteCalls = nil
}

var _ rewrite.Provider = (*Provider)(nil)
