// Package narrate runs the narration pipeline: validate the request, rewrite
// the text in the requested tone, synthesize audio in the requested accent,
// and prepend the finished record to the session history.
//
// A run either completes fully, leaving exactly one new record at the head
// of the history, or aborts leaving the history untouched. Stages execute
// strictly in order and each provider is called at most once per run; there
// are no retries.
package narrate

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/echoverse/echoverse/internal/observe"
	"github.com/echoverse/echoverse/internal/session"
	"github.com/echoverse/echoverse/pkg/provider/rewrite"
	"github.com/echoverse/echoverse/pkg/provider/speech"
	"github.com/echoverse/echoverse/pkg/types"
)

// State is a phase of the narration pipeline.
type State string

// Pipeline states, in execution order. Aborted is terminal for any failed
// run; Completed for a successful one.
const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateRewriting    State = "rewriting"
	StateSynthesizing State = "synthesizing"
	StateCompleted    State = "completed"
	StateAborted      State = "aborted"
)

// Request is one narration request.
type Request struct {
	// Text is the source text to narrate.
	Text string

	// Tone selects the rewriting style.
	Tone types.Tone

	// Accent selects the speech accent.
	Accent types.Accent
}

// Observer receives pipeline state transitions for one session. Calls are
// sequential per run; implementations must not block for long.
type Observer func(sessionID string, state State)

// Option is a functional option for Pipeline.
type Option func(*Pipeline)

// WithObserver registers a state-transition observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, o)
	}
}

// WithMetrics overrides the metrics instance. Defaults to
// observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline orchestrates narration runs. It is safe for concurrent use across
// sessions; runs within one session are serialized by the session itself.
type Pipeline struct {
	rewriter  rewrite.Provider
	speaker   speech.Provider
	metrics   *observe.Metrics
	observers []Observer
}

// New creates a Pipeline over the given providers.
func New(rewriter rewrite.Provider, speaker speech.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		rewriter: rewriter,
		speaker:  speaker,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Run executes one narration for the session. On success the finished record
// is prepended to the session history and returned. On failure the history
// is left untouched and the error identifies the failed stage.
func (p *Pipeline) Run(ctx context.Context, sess *session.Session, req Request) (*types.NarrationRecord, error) {
	if err := sess.TryAcquire(); err != nil {
		return nil, err
	}
	defer sess.Release()

	ctx, span := observe.StartSpan(ctx, "narrate.Run")
	defer span.End()
	log := observe.Logger(ctx).With("session_id", sess.ID)

	start := time.Now()
	p.emit(sess.ID, StateValidating)

	// Validate. Nothing reaches a provider unless the whole request is good.
	// The record keeps req.Text verbatim, so only a copy is trimmed here.
	if strings.TrimSpace(req.Text) == "" {
		return nil, p.abort(ctx, sess.ID, req, ErrEmptyText)
	}
	if !req.Tone.IsValid() {
		return nil, p.abort(ctx, sess.ID, req, ErrInvalidTone)
	}
	locale, err := req.Accent.Locale()
	if err != nil {
		return nil, p.abort(ctx, sess.ID, req, ErrInvalidAccent)
	}

	// Rewrite.
	p.emit(sess.ID, StateRewriting)
	rewriteStart := time.Now()
	rewritten, err := p.rewriter.Rewrite(ctx, req.Text, req.Tone)
	p.metrics.RewriteDuration.Record(ctx, time.Since(rewriteStart).Seconds(),
		metric.WithAttributes(attribute.String("tone", string(req.Tone))))
	if err != nil {
		p.metrics.RecordProviderError(ctx, "rewrite", "rewriting")
		log.Error("rewrite stage failed", "tone", req.Tone, "err", err)
		return nil, p.abort(ctx, sess.ID, req, &RewriteError{Err: err})
	}

	// Synthesize.
	p.emit(sess.ID, StateSynthesizing)
	synthStart := time.Now()
	audio, err := p.speaker.Synthesize(ctx, rewritten, locale)
	p.metrics.SynthesisDuration.Record(ctx, time.Since(synthStart).Seconds(),
		metric.WithAttributes(attribute.String("accent", string(req.Accent))))
	if err != nil {
		p.metrics.RecordProviderError(ctx, "speech", "synthesizing")
		log.Error("synthesis stage failed", "accent", req.Accent, "err", err)
		return nil, p.abort(ctx, sess.ID, req, &SynthesisError{Err: err})
	}

	// Record. The record only exists once both stages have succeeded.
	rec := &types.NarrationRecord{
		OriginalText:  req.Text,
		RewrittenText: rewritten,
		Tone:          req.Tone,
		Accent:        req.Accent,
		Audio:         audio,
		CreatedAt:     time.Now().UTC(),
	}
	sess.History.Prepend(rec)

	p.metrics.NarrationDuration.Record(ctx, time.Since(start).Seconds())
	p.metrics.RecordNarration(ctx, string(req.Tone), string(req.Accent), "ok")
	p.emit(sess.ID, StateCompleted)

	log.Info("narration completed",
		"tone", req.Tone,
		"accent", req.Accent,
		"text_len", len(req.Text),
		"audio_bytes", len(audio),
		"duration", time.Since(start),
	)
	return rec, nil
}

// abort emits the Aborted state, records the failure, and passes err through.
func (p *Pipeline) abort(ctx context.Context, sessionID string, req Request, err error) error {
	p.metrics.RecordNarration(ctx, string(req.Tone), string(req.Accent), "error")
	p.emit(sessionID, StateAborted)
	return err
}

// emit notifies all observers of a state transition.
func (p *Pipeline) emit(sessionID string, state State) {
	for _, o := range p.observers {
		o(sessionID, state)
	}
}
