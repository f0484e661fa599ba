// Package pagejsonl encodes and decodes the ContentFetcher output sink: one
// JSON object per line, schema {url, final_url, title, text, html?} (§4.6).
package pagejsonl

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/codepr/searchengine/internal/fetcher"
)

// Record is a single line of the output sink.
type Record struct {
	URL      string `json:"url"`
	FinalURL string `json:"final_url"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	HTML     string `json:"html,omitempty"`
}

// FromPageRecord builds a Record from a fetched page. html is included only
// when includeHTML is set, per §4.6 ("html only if requested").
func FromPageRecord(p fetcher.PageRecord, includeHTML bool) Record {
	rec := Record{
		URL:      p.URL,
		FinalURL: p.FinalURL,
		Title:    p.Title,
		Text:     p.Text,
	}
	if includeHTML {
		rec.HTML = p.HTML
	}
	return rec
}

// Writer appends one JSON object per line to an underlying io.Writer.
// Writes are serialized, so a single Writer may be shared by multiple
// producer goroutines as the sole sink of a pipeline.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter wraps w. Output is not HTML-escaped, matching json.Encoder's
// SetEscapeHTML(false) so text with `&`, `<`, `>` round-trips unmangled.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Write appends rec as a single JSON line.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(rec)
}

// Decode reads every JSONL record from r, for tests and the reindex path.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
