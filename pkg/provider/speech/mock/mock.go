// Package mock provides a test double for the speech.Provider interface.
//
// Use Provider to return canned audio bytes and to verify what text and
// locale reached the backend:
//
//	p := &mock.Provider{Audio: []byte("mp3")}
//	out, err := p.Synthesize(ctx, "text", types.LocaleUS)
package mock

import (
	"context"
	"sync"

	"github.com/echoverse/echoverse/pkg/provider/speech"
	"github.com/echoverse/echoverse/pkg/types"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the input text passed to Synthesize.
	Text string
	// Locale is the speech locale passed to Synthesize.
	Locale types.Locale
}

// Provider is a mock implementation of speech.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when Err is nil.
	Audio []byte

	// Err, if non-nil, is returned by Synthesize instead of Audio.
	Err error

	// SynthesizeFunc, if non-nil, overrides Audio/Err entirely.
	SynthesizeFunc func(ctx context.Context, text string, locale types.Locale) ([]byte, error)

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns the configured response.
func (p *Provider) Synthesize(ctx context.Context, text string, locale types.Locale) ([]byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text, Locale: locale})
	fn := p.SynthesizeFunc
	audio, err := p.Audio, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, locale)
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(audio))
	copy(out, audio)
	return out, nil
}

// CallCount returns the number of recorded Synthesize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

var _ speech.Provider = (*Provider)(nil)
