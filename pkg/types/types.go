// Package types defines the shared domain types of the EchoVerse narration
// service: tones, accents and their speech locales, and the narration record
// that one successful pipeline run produces.
//
// The types here are imported by both the provider packages under
// pkg/provider and the orchestration packages under internal, so they carry
// no dependencies beyond the standard library.
package types

import (
	"fmt"
	"time"
)

// Tone is the stylistic register the rewrite stage is instructed to apply.
type Tone string

const (
	ToneNeutral     Tone = "Neutral"
	ToneSuspenseful Tone = "Suspenseful"
	ToneInspiring   Tone = "Inspiring"
)

// Tones lists every selectable tone in display order.
var Tones = []Tone{ToneNeutral, ToneSuspenseful, ToneInspiring}

// IsValid reports whether t is a recognised tone.
func (t Tone) IsValid() bool {
	switch t {
	case ToneNeutral, ToneSuspenseful, ToneInspiring:
		return true
	}
	return false
}

// Accent is the narration accent selected by the user. Each accent maps to a
// fixed speech locale consumed by the speech provider.
type Accent string

const (
	AccentUSEnglish         Accent = "US English"
	AccentUKEnglish         Accent = "UK English"
	AccentAustralianEnglish Accent = "Australian English"
)

// Accents lists every selectable accent in display order.
var Accents = []Accent{AccentUSEnglish, AccentUKEnglish, AccentAustralianEnglish}

// IsValid reports whether a is a recognised accent.
func (a Accent) IsValid() bool {
	switch a {
	case AccentUSEnglish, AccentUKEnglish, AccentAustralianEnglish:
		return true
	}
	return false
}

// Locale is the speech-synthesis locale code an accent resolves to. The
// values are the Google Translate TTS top-level domains the service was
// designed around ("com", "co.uk", "com.au").
type Locale string

const (
	LocaleUS Locale = "com"
	LocaleUK Locale = "co.uk"
	LocaleAU Locale = "com.au"
)

// Locale returns the speech locale for a. Unrecognised accents return an
// error rather than a zero locale; the selectable set is fixed, so hitting
// that path indicates a programming error upstream, not bad user input.
func (a Accent) Locale() (Locale, error) {
	switch a {
	case AccentUSEnglish:
		return LocaleUS, nil
	case AccentUKEnglish:
		return LocaleUK, nil
	case AccentAustralianEnglish:
		return LocaleAU, nil
	}
	return "", fmt.Errorf("types: no locale for accent %q", a)
}

// NarrationRecord is the complete result of one successful narration run.
// A record is only ever constructed once both the rewrite and the synthesis
// stage have succeeded; no field is optional.
type NarrationRecord struct {
	// OriginalText is the user's input, verbatim (pasted or uploaded).
	OriginalText string

	// RewrittenText is the rewrite provider's output for OriginalText under Tone.
	RewrittenText string

	// Tone is the register the text was rewritten in.
	Tone Tone

	// Accent is the narration accent the audio was synthesised with.
	Accent Accent

	// Audio is the MP3-encoded narration of RewrittenText.
	Audio []byte

	// CreatedAt is when the pipeline completed this record.
	CreatedAt time.Time
}

// Filename returns the suggested download filename for the record's audio,
// EchoVerse_<tone>_<accent>.mp3. The accent label is used verbatim, spaces
// included.
func (r *NarrationRecord) Filename() string {
	return fmt.Sprintf("EchoVerse_%s_%s.mp3", r.Tone, r.Accent)
}
