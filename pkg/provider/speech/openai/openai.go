// Package openai provides a speech provider backed by the OpenAI audio API.
//
// The API picks voices by name rather than by locale, so each supported
// locale is mapped to a voice whose delivery reads naturally for that
// audience. The mapping is fixed; override individual entries with WithVoice.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/echoverse/echoverse/pkg/provider/speech"
	"github.com/echoverse/echoverse/pkg/types"
)

// defaultVoices maps each supported locale to an OpenAI voice.
var defaultVoices = map[types.Locale]oai.AudioSpeechNewParamsVoice{
	types.LocaleUS: oai.AudioSpeechNewParamsVoiceAlloy,
	// The fable and nova voices are still accepted by the API, but their
	// named constants were dropped from openai-go in v1.11.0.
	types.LocaleUK: oai.AudioSpeechNewParamsVoice("fable"),
	types.LocaleAU: oai.AudioSpeechNewParamsVoice("nova"),
}

// Provider implements speech.Provider using the OpenAI audio API.
type Provider struct {
	client oai.Client
	model  string
	voices map[types.Locale]oai.AudioSpeechNewParamsVoice
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	voices  map[types.Locale]string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithVoice overrides the voice used for a locale.
func WithVoice(locale types.Locale, voice string) Option {
	return func(c *config) {
		if c.voices == nil {
			c.voices = make(map[types.Locale]string)
		}
		c.voices[locale] = voice
	}
}

// New constructs an OpenAI speech Provider. model may be empty, in which
// case tts-1 is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = string(oai.SpeechModelTTS1)
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	voices := make(map[types.Locale]oai.AudioSpeechNewParamsVoice, len(defaultVoices))
	for locale, voice := range defaultVoices {
		voices[locale] = voice
	}
	for locale, voice := range cfg.voices {
		voices[locale] = oai.AudioSpeechNewParamsVoice(voice)
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
		voices: voices,
	}, nil
}

// Synthesize implements speech.Provider. It requests a complete MP3 file
// from the audio endpoint using the voice mapped to the locale.
func (p *Provider) Synthesize(ctx context.Context, text string, locale types.Locale) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("openai: text must not be empty")
	}
	voice, ok := p.voices[locale]
	if !ok {
		return nil, fmt.Errorf("openai: no voice mapped for locale %q", locale)
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          voice,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: speech synthesis: %w", err)
	}
	defer resp.Body.Close()

	mp3, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read audio response: %w", err)
	}
	if len(mp3) == 0 {
		return nil, fmt.Errorf("openai: endpoint returned no audio")
	}
	return mp3, nil
}

var _ speech.Provider = (*Provider)(nil)
