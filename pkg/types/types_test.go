package types

import "testing"

func TestToneIsValid(t *testing.T) {
	t.Parallel()

	for _, tone := range Tones {
		if !tone.IsValid() {
			t.Errorf("Tone(%q).IsValid() = false, want true", tone)
		}
	}
	if Tone("Sarcastic").IsValid() {
		t.Error("unknown tone reported valid")
	}
	if Tone("").IsValid() {
		t.Error("empty tone reported valid")
	}
}

func TestAccentLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		accent Accent
		want   Locale
	}{
		{AccentUSEnglish, "com"},
		{AccentUKEnglish, "co.uk"},
		{AccentAustralianEnglish, "com.au"},
	}
	for _, tt := range tests {
		got, err := tt.accent.Locale()
		if err != nil {
			t.Errorf("Locale(%q) error: %v", tt.accent, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Locale(%q) = %q, want %q", tt.accent, got, tt.want)
		}
	}

	if _, err := Accent("Irish English").Locale(); err == nil {
		t.Error("Locale() for unknown accent should return error")
	}
}

func TestNarrationRecordFilename(t *testing.T) {
	t.Parallel()

	r := &NarrationRecord{Tone: ToneSuspenseful, Accent: AccentUKEnglish}
	if got, want := r.Filename(), "EchoVerse_Suspenseful_UK English.mp3"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}

	r = &NarrationRecord{Tone: ToneNeutral, Accent: AccentUSEnglish}
	if got, want := r.Filename(), "EchoVerse_Neutral_US English.mp3"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
