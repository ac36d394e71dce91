package narrate_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/echoverse/echoverse/internal/narrate"
	"github.com/echoverse/echoverse/internal/observe"
	"github.com/echoverse/echoverse/internal/session"
	rewritemock "github.com/echoverse/echoverse/pkg/provider/rewrite/mock"
	speechmock "github.com/echoverse/echoverse/pkg/provider/speech/mock"
	"github.com/echoverse/echoverse/pkg/types"
)

// testMetrics builds an isolated Metrics instance so tests do not share the
// global meter provider.
func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics() error: %v", err)
	}
	return m
}

func newPipeline(t *testing.T, rw *rewritemock.Provider, sp *speechmock.Provider, opts ...narrate.Option) *narrate.Pipeline {
	t.Helper()
	opts = append(opts, narrate.WithMetrics(testMetrics(t)))
	return narrate.New(rw, sp, opts...)
}

func TestRun_SuccessPrependsRecord(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{Result: "A quiet hello to the world."}
	sp := &speechmock.Provider{Audio: []byte("mp3-bytes")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	rec, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "Hello world",
		Tone:   types.ToneNeutral,
		Accent: types.AccentUSEnglish,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if rec.OriginalText != "Hello world" {
		t.Errorf("OriginalText = %q, want %q", rec.OriginalText, "Hello world")
	}
	if rec.RewrittenText != "A quiet hello to the world." {
		t.Errorf("RewrittenText = %q", rec.RewrittenText)
	}
	if string(rec.Audio) != "mp3-bytes" {
		t.Errorf("Audio = %q, want mp3-bytes", rec.Audio)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
	if got := rec.Filename(); got != "EchoVerse_Neutral_US English.mp3" {
		t.Errorf("Filename() = %q, want %q", got, "EchoVerse_Neutral_US English.mp3")
	}

	if sess.History.Len() != 1 {
		t.Fatalf("history Len() = %d, want 1", sess.History.Len())
	}
	if sess.History.Latest() != rec {
		t.Error("Latest() is not the returned record")
	}

	// The rewrite provider sees the original text; the speech provider sees
	// the rewritten text and the locale mapped from the accent.
	if rw.CallCount() != 1 || sp.CallCount() != 1 {
		t.Fatalf("provider calls = %d/%d, want 1/1", rw.CallCount(), sp.CallCount())
	}
	if got := rw.RewriteCalls[0].Text; got != "Hello world" {
		t.Errorf("rewrite input = %q, want original text", got)
	}
	if got := sp.SynthesizeCalls[0].Text; got != "A quiet hello to the world." {
		t.Errorf("synthesize input = %q, want rewritten text", got)
	}
	if got := sp.SynthesizeCalls[0].Locale; got != types.LocaleUS {
		t.Errorf("synthesize locale = %q, want %q", got, types.LocaleUS)
	}
}

func TestRun_KeepsOriginalTextVerbatim(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{Result: "rewritten"}
	sp := &speechmock.Provider{Audio: []byte("mp3")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	const padded = "  Hello world \n"
	rec, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   padded,
		Tone:   types.ToneNeutral,
		Accent: types.AccentUSEnglish,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Whitespace is only trimmed for the emptiness check; the record and the
	// rewrite provider both see the input as the user supplied it.
	if rec.OriginalText != padded {
		t.Errorf("OriginalText = %q, want %q", rec.OriginalText, padded)
	}
	if got := rw.RewriteCalls[0].Text; got != padded {
		t.Errorf("rewrite input = %q, want %q", got, padded)
	}
}

func TestRun_EmptyTextCallsNoProviders(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{Result: "unused"}
	sp := &speechmock.Provider{Audio: []byte("unused")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := p.Run(context.Background(), sess, narrate.Request{
			Text:   text,
			Tone:   types.ToneNeutral,
			Accent: types.AccentUSEnglish,
		})
		if !errors.Is(err, narrate.ErrEmptyText) {
			t.Errorf("Run(%q) error = %v, want ErrEmptyText", text, err)
		}
	}

	if rw.CallCount() != 0 {
		t.Errorf("rewrite calls = %d, want 0", rw.CallCount())
	}
	if sp.CallCount() != 0 {
		t.Errorf("synthesize calls = %d, want 0", sp.CallCount())
	}
	if sess.History.Len() != 0 {
		t.Errorf("history Len() = %d, want 0", sess.History.Len())
	}
}

func TestRun_InvalidToneAndAccent(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{Result: "unused"}
	sp := &speechmock.Provider{Audio: []byte("unused")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	_, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "hello",
		Tone:   types.Tone("Sarcastic"),
		Accent: types.AccentUSEnglish,
	})
	if !errors.Is(err, narrate.ErrInvalidTone) {
		t.Errorf("Run() error = %v, want ErrInvalidTone", err)
	}

	_, err = p.Run(context.Background(), sess, narrate.Request{
		Text:   "hello",
		Tone:   types.ToneNeutral,
		Accent: types.Accent("Irish English"),
	})
	if !errors.Is(err, narrate.ErrInvalidAccent) {
		t.Errorf("Run() error = %v, want ErrInvalidAccent", err)
	}

	if rw.CallCount() != 0 || sp.CallCount() != 0 {
		t.Errorf("provider calls = %d/%d, want 0/0", rw.CallCount(), sp.CallCount())
	}
}

func TestRun_RewriteFailureSkipsSynthesis(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{Err: errors.New("model unavailable")}
	sp := &speechmock.Provider{Audio: []byte("unused")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	_, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "hello",
		Tone:   types.ToneSuspenseful,
		Accent: types.AccentUKEnglish,
	})

	var rwErr *narrate.RewriteError
	if !errors.As(err, &rwErr) {
		t.Fatalf("Run() error = %v, want *RewriteError", err)
	}
	if sp.CallCount() != 0 {
		t.Errorf("synthesize calls = %d, want 0 after rewrite failure", sp.CallCount())
	}
	if sess.History.Len() != 0 {
		t.Errorf("history Len() = %d, want 0", sess.History.Len())
	}
}

func TestRun_SynthesisFailureStoresNothing(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{Result: "rewritten"}
	sp := &speechmock.Provider{Err: errors.New("endpoint down")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	_, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "hello",
		Tone:   types.ToneInspiring,
		Accent: types.AccentAustralianEnglish,
	})

	var spErr *narrate.SynthesisError
	if !errors.As(err, &spErr) {
		t.Fatalf("Run() error = %v, want *SynthesisError", err)
	}
	if rw.CallCount() != 1 {
		t.Errorf("rewrite calls = %d, want 1", rw.CallCount())
	}
	if sess.History.Len() != 0 {
		t.Errorf("history Len() = %d, want 0; the rewritten text must be discarded", sess.History.Len())
	}
}

func TestRun_HistoryIsNewestFirstOverManyRuns(t *testing.T) {
	t.Parallel()

	rw := &rewritemock.Provider{RewriteFunc: func(_ context.Context, text string, _ types.Tone) (string, error) {
		return "rw: " + text, nil
	}}
	sp := &speechmock.Provider{Audio: []byte("mp3")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	for i := range 5 {
		_, err := p.Run(context.Background(), sess, narrate.Request{
			Text:   fmt.Sprintf("text %d", i),
			Tone:   types.ToneNeutral,
			Accent: types.AccentUSEnglish,
		})
		if err != nil {
			t.Fatalf("Run(%d) error: %v", i, err)
		}
	}

	all := sess.History.All()
	if len(all) != 5 {
		t.Fatalf("history Len() = %d, want 5", len(all))
	}
	for i, rec := range all {
		want := fmt.Sprintf("text %d", 4-i)
		if rec.OriginalText != want {
			t.Errorf("history[%d] = %q, want %q", i, rec.OriginalText, want)
		}
	}
}

func TestRun_ObserverSeesStateSequence(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var states []narrate.State
	observer := func(_ string, s narrate.State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}

	rw := &rewritemock.Provider{Result: "rewritten"}
	sp := &speechmock.Provider{Audio: []byte("mp3")}
	p := newPipeline(t, rw, sp, narrate.WithObserver(observer))
	sess := session.NewManager().Create()

	if _, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "hello",
		Tone:   types.ToneNeutral,
		Accent: types.AccentUSEnglish,
	}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []narrate.State{
		narrate.StateValidating,
		narrate.StateRewriting,
		narrate.StateSynthesizing,
		narrate.StateCompleted,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, states[i], want[i])
		}
	}
}

func TestRun_ObserverSeesAbortedOnFailure(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var last narrate.State
	observer := func(_ string, s narrate.State) {
		mu.Lock()
		last = s
		mu.Unlock()
	}

	rw := &rewritemock.Provider{Err: errors.New("boom")}
	sp := &speechmock.Provider{}
	p := newPipeline(t, rw, sp, narrate.WithObserver(observer))
	sess := session.NewManager().Create()

	if _, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "hello",
		Tone:   types.ToneNeutral,
		Accent: types.AccentUSEnglish,
	}); err == nil {
		t.Fatal("Run() should fail")
	}

	mu.Lock()
	defer mu.Unlock()
	if last != narrate.StateAborted {
		t.Errorf("last state = %q, want %q", last, narrate.StateAborted)
	}
}

func TestRun_RejectsConcurrentRunsInOneSession(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	rw := &rewritemock.Provider{RewriteFunc: func(_ context.Context, text string, _ types.Tone) (string, error) {
		close(started)
		<-release
		return "rw: " + text, nil
	}}
	sp := &speechmock.Provider{Audio: []byte("mp3")}
	p := newPipeline(t, rw, sp)
	sess := session.NewManager().Create()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), sess, narrate.Request{
			Text:   "first",
			Tone:   types.ToneNeutral,
			Accent: types.AccentUSEnglish,
		})
		done <- err
	}()

	<-started
	if _, err := p.Run(context.Background(), sess, narrate.Request{
		Text:   "second",
		Tone:   types.ToneNeutral,
		Accent: types.AccentUSEnglish,
	}); err == nil {
		t.Error("second Run() should fail while the first is in flight")
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if sess.History.Len() != 1 {
		t.Errorf("history Len() = %d, want 1", sess.History.Len())
	}
}
