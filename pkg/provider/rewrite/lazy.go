package rewrite

import (
	"context"
	"sync"

	"github.com/echoverse/echoverse/pkg/types"
)

// Lazy defers construction of an expensive Provider until its first use and
// guarantees the constructor runs at most once, even when the first calls
// arrive concurrently. A construction failure is sticky: every subsequent
// call returns the same error without re-running the constructor.
//
// Use this for backends whose setup cost (model load, client handshake) is
// high relative to a single rewrite call.
type Lazy struct {
	construct func() (Provider, error)

	once     sync.Once
	delegate Provider
	err      error
}

// NewLazy wraps construct in a Lazy provider.
func NewLazy(construct func() (Provider, error)) *Lazy {
	return &Lazy{construct: construct}
}

// Rewrite constructs the delegate on first call, then forwards to it.
func (l *Lazy) Rewrite(ctx context.Context, text string, tone types.Tone) (string, error) {
	l.once.Do(func() {
		l.delegate, l.err = l.construct()
	})
	if l.err != nil {
		return "", l.err
	}
	return l.delegate.Rewrite(ctx, text, tone)
}

var _ Provider = (*Lazy)(nil)
