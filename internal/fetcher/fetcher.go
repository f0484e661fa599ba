// Package fetcher implements HTTP GET with a timeout, a body size cap,
// bounded retries with exponential backoff and redirect following, yielding
// normalized page records (§4.4 of the spec). Responses are not filtered by
// Content-Type: any 2xx body within the size cap is handed to the parser.
package fetcher

import (
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// PageRecord is the normalized result of a successful fetch.
type PageRecord struct {
	URL      string
	FinalURL string
	Title    string
	Text     string
	HTML     string
	Links    []string
}

// Fetcher issues HTTP GET requests with the spec's retry/backoff/size-cap
// policy. A single instance is safe for concurrent use by any number of
// worker goroutines.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	parser       Parser
	logger       *zerolog.Logger
}

// Option configures a Fetcher at construction.
type Option func(*Fetcher)

// WithLogger attaches a logger used to report rejected fetches (non-2xx,
// oversize body) at debug level. Without one, rejects are silent.
func WithLogger(l *zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New builds a Fetcher. maxContentMB bounds response bodies; exceeding it
// is a non-fatal reject (§4.4), not an error. Retries total 2 attempts with
// exponential backoff (multiplier 0.5s, cap 4s), matching §4.4 exactly.
func New(userAgent string, timeout time.Duration, maxContentMB int, opts ...Option) *Fetcher {
	transport := rehttp.NewTransport(
		http.DefaultTransport,
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(1),
			rehttp.RetryAny(
				rehttp.RetryTemporaryErr(),
				rehttp.RetryStatuses(http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError),
			),
		),
		rehttp.ExpJitterDelay(500*time.Millisecond, 4*time.Second),
	)
	f := &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent:    userAgent,
		maxBodyBytes: int64(maxContentMB) * 1 << 20,
		parser:       NewGoqueryParser(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithParser overrides the HTML parser, primarily for tests.
func WithParser(p Parser) Option {
	return func(f *Fetcher) { f.parser = p }
}

// get performs the shared GET-and-size-cap-and-status-check dance for both
// fetch variants. It reports ok=false, with a nil body, for any condition
// treated as a non-fatal reject rather than a hard error; it never returns an
// error value.
func (f *Fetcher) get(url string) (*http.Response, []byte, bool) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, false
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logReject(url, "request failed after retries", 0, 0)
		return nil, nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logReject(url, "non-2xx response", resp.StatusCode, 0)
		return nil, nil, false
	}

	limited := io.LimitReader(resp.Body, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		f.logReject(url, "body read failed", resp.StatusCode, 0)
		return nil, nil, false
	}
	if int64(len(body)) > f.maxBodyBytes {
		f.logReject(url, "oversize content", resp.StatusCode, len(body))
		return resp, nil, false
	}
	return resp, body, true
}

func (f *Fetcher) logReject(url, reason string, status, bodyLen int) {
	if f.logger == nil {
		return
	}
	f.logger.Debug().
		Str("url", url).
		Str("reason", reason).
		Int("status", status).
		Str("size", humanizeSize(int64(bodyLen))).
		Str("cap", humanizeSize(f.maxBodyBytes)).
		Msg("fetch rejected")
}

// FetchLinks is the link-discovery variant: fetches url and returns its
// title and outbound links, without the full text/html.
func (f *Fetcher) FetchLinks(url string) (*PageRecord, error) {
	resp, body, ok := f.get(url)
	if !ok {
		return nil, nil
	}
	title, _, links, err := f.parser.Parse(resp.Request.URL.String(), body)
	if err != nil {
		return nil, nil
	}
	return &PageRecord{
		URL:      url,
		FinalURL: finalURL(url, resp),
		Title:    title,
		Links:    links,
	}, nil
}

// FetchContent is the content variant: fetches url and returns its title,
// visible text and raw html.
func (f *Fetcher) FetchContent(url string) (*PageRecord, error) {
	resp, body, ok := f.get(url)
	if !ok {
		return nil, nil
	}
	title, text, _, err := f.parser.Parse(resp.Request.URL.String(), body)
	if err != nil {
		return nil, nil
	}
	return &PageRecord{
		URL:      url,
		FinalURL: finalURL(url, resp),
		Title:    title,
		Text:     text,
		HTML:     string(body),
	}, nil
}

func finalURL(requestedURL string, resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	final := resp.Request.URL.String()
	if final == requestedURL {
		return ""
	}
	return final
}

// humanizeSize formats a byte count for log messages.
func humanizeSize(n int64) string {
	return humanize.Bytes(uint64(n))
}
