// Package gtrans provides a speech provider backed by the Google Translate
// text-to-speech endpoint. It implements the speech.Provider interface.
//
// The endpoint serves complete MP3 files via GET requests and selects the
// English accent through the top-level domain it is reached on:
// translate.google.com speaks US English, translate.google.co.uk UK English,
// and translate.google.com.au Australian English. Those TLDs are exactly the
// types.Locale values, so the accent mapping costs nothing here.
//
// A single request is limited to maxChunkLen characters of text; longer
// inputs are split on whitespace and the per-chunk MP3 responses are
// concatenated. MPEG audio frames are self-delimiting, so concatenated
// segments play back as one continuous file.
package gtrans

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/echoverse/echoverse/pkg/provider/speech"
	"github.com/echoverse/echoverse/pkg/types"
)

const (
	// endpointFmt is the synthesis URL; the verb is filled with the locale TLD.
	endpointFmt = "https://translate.google.%s/translate_tts"

	// maxChunkLen is the maximum text length the endpoint accepts per request.
	maxChunkLen = 100

	defaultTimeout = 30 * time.Second

	// clientParam identifies the caller; the endpoint rejects requests
	// without it.
	clientParam = "tw-ob"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithBaseURL overrides the synthesis endpoint entirely, ignoring the
// locale-derived host. Intended for tests and for self-hosted proxies; the
// locale is still sent so the far end can honour it.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements speech.Provider against the Google Translate TTS
// endpoint. It is safe for concurrent use.
type Provider struct {
	httpClient *http.Client
	baseURL    string // empty = derive host from locale
}

// New creates a gtrans Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize implements speech.Provider. Text is split into chunks of at
// most maxChunkLen characters, one GET request is issued per chunk against
// the locale's host, and the MP3 responses are concatenated in order.
func (p *Provider) Synthesize(ctx context.Context, text string, locale types.Locale) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("gtrans: text must not be empty")
	}
	if locale != types.LocaleUS && locale != types.LocaleUK && locale != types.LocaleAU {
		return nil, fmt.Errorf("gtrans: unknown locale %q", locale)
	}

	chunks := splitText(text, maxChunkLen)

	var buf bytes.Buffer
	for i, chunk := range chunks {
		mp3, err := p.fetchChunk(ctx, chunk, locale, i, len(chunks))
		if err != nil {
			return nil, err
		}
		buf.Write(mp3)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("gtrans: endpoint returned no audio")
	}
	return buf.Bytes(), nil
}

// fetchChunk issues one synthesis request and returns the MP3 bytes.
func (p *Provider) fetchChunk(ctx context.Context, chunk string, locale types.Locale, idx, total int) ([]byte, error) {
	reqURL := p.buildURL(chunk, locale, idx, total)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("gtrans: create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtrans: GET translate_tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtrans: GET translate_tts returned status %d", resp.StatusCode)
	}

	mp3, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gtrans: read audio response: %w", err)
	}
	return mp3, nil
}

// buildURL constructs the synthesis URL for one chunk. Exposed to tests via
// gtrans_test.go.
func (p *Provider) buildURL(chunk string, locale types.Locale, idx, total int) string {
	base := p.baseURL
	if base == "" {
		base = fmt.Sprintf(endpointFmt, locale)
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", chunk)
	params.Set("tl", "en")
	params.Set("client", clientParam)
	params.Set("ttsspeed", "1") // normal, non-slow rate
	params.Set("idx", strconv.Itoa(idx))
	params.Set("total", strconv.Itoa(total))
	params.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	return base + "?" + params.Encode()
}

// splitText breaks text into chunks of at most limit characters, preferring
// whitespace boundaries. A single token longer than limit is hard-split. The
// limit counts runes, not bytes, so multibyte input is never cut mid-rune.
func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		// Hard-split oversized tokens.
		for len(runes) > limit {
			if len(cur) > 0 {
				chunks = append(chunks, string(cur))
				cur = cur[:0]
			}
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(cur) > 0 && len(cur)+1+len(runes) > limit {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, runes...)
	}
	if len(cur) > 0 {
		chunks = append(chunks, string(cur))
	}
	return chunks
}

var _ speech.Provider = (*Provider)(nil)
