package history_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/echoverse/echoverse/internal/history"
	"github.com/echoverse/echoverse/pkg/types"
)

func rec(text string) *types.NarrationRecord {
	return &types.NarrationRecord{
		OriginalText:  text,
		RewrittenText: text + " (rewritten)",
		Tone:          types.ToneNeutral,
		Accent:        types.AccentUSEnglish,
		Audio:         []byte("mp3"),
	}
}

func TestStore_PrependIsNewestFirst(t *testing.T) {
	t.Parallel()

	s := history.New()
	for i := range 5 {
		s.Prepend(rec(fmt.Sprintf("text %d", i)))
	}

	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
	if got := s.Latest().OriginalText; got != "text 4" {
		t.Errorf("Latest() = %q, want %q", got, "text 4")
	}

	all := s.All()
	for i, r := range all {
		want := fmt.Sprintf("text %d", 4-i)
		if r.OriginalText != want {
			t.Errorf("All()[%d] = %q, want %q", i, r.OriginalText, want)
		}
	}
}

func TestStore_At(t *testing.T) {
	t.Parallel()

	s := history.New()
	s.Prepend(rec("first"))
	s.Prepend(rec("second"))

	r, err := s.At(0)
	if err != nil {
		t.Fatalf("At(0) error: %v", err)
	}
	if r.OriginalText != "second" {
		t.Errorf("At(0) = %q, want %q", r.OriginalText, "second")
	}
	r, err = s.At(1)
	if err != nil {
		t.Fatalf("At(1) error: %v", err)
	}
	if r.OriginalText != "first" {
		t.Errorf("At(1) = %q, want %q", r.OriginalText, "first")
	}

	if _, err := s.At(2); err == nil {
		t.Error("At(2) should fail on a 2-element history")
	}
	if _, err := s.At(-1); err == nil {
		t.Error("At(-1) should fail")
	}
}

func TestStore_EmptyLatestIsNil(t *testing.T) {
	t.Parallel()

	s := history.New()
	if s.Latest() != nil {
		t.Error("Latest() on empty store should be nil")
	}
	if len(s.All()) != 0 {
		t.Error("All() on empty store should be empty")
	}
}

func TestStore_CapEvictsOldest(t *testing.T) {
	t.Parallel()

	s := history.New(history.WithCap(3))
	for i := range 5 {
		s.Prepend(rec(fmt.Sprintf("text %d", i)))
	}

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	all := s.All()
	want := []string{"text 4", "text 3", "text 2"}
	for i, r := range all {
		if r.OriginalText != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, r.OriginalText, want[i])
		}
	}
}

func TestStore_AllReturnsSnapshot(t *testing.T) {
	t.Parallel()

	s := history.New()
	s.Prepend(rec("only"))

	all := s.All()
	all[0] = rec("tampered")

	if got := s.Latest().OriginalText; got != "only" {
		t.Errorf("Latest() = %q after mutating snapshot, want %q", got, "only")
	}
}

func TestStore_ConcurrentPrepend(t *testing.T) {
	t.Parallel()

	s := history.New()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Prepend(rec(fmt.Sprintf("text %d", i)))
		}()
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Errorf("Len() = %d, want 20", s.Len())
	}
}
