// Package textpipeline implements the deterministic tokenize/stopword/stem
// normalization shared by the indexer and the searcher. The same
// *TextPipeline instance, constructed once and treated as immutable, must be
// used at index time and query time or retrieval becomes unsound.
package textpipeline

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

// wordPattern extracts maximal runs of letters, hyphens and apostrophes
// starting with a letter, matching the spec's [A-Za-z][A-Za-z\-']+.
var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z\-']+`)

// Normalized is the result of running TextPipeline.Normalize over a string.
type Normalized struct {
	// Tokens is the ordered sequence of stemmed, filtered tokens.
	Tokens []string
	// Joined is Tokens space-separated, preserving order.
	Joined string
}

// TextPipeline is a pure, deterministic, thread-safe text normalizer. It
// holds no mutable state after construction so a single shared instance can
// be used concurrently by any number of indexing or querying goroutines.
type TextPipeline struct {
	stopwords map[string]struct{}
}

// New builds a TextPipeline using the built-in fallback stopword list. A
// non-empty overridePath naming an existing newline-delimited file replaces
// that list; a path that does not exist leaves the built-in list in place.
func New(overridePath string) (*TextPipeline, error) {
	words := defaultStopwords
	if overridePath != "" {
		if _, err := os.Stat(overridePath); err == nil {
			loaded, err := loadStopwordsFile(overridePath)
			if err != nil {
				return nil, err
			}
			words = loaded
		}
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &TextPipeline{stopwords: set}, nil
}

func loadStopwordsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Tokenize lowercases s and returns the ordered sequence of word matches.
// Positions downstream are indices into this sequence.
func Tokenize(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// Normalize runs the full pipeline: tokenize, drop stopwords and
// single-character tokens, stem with Porter's algorithm. The same code path
// backs both indexing and querying, per the TextPipeline contract.
func (p *TextPipeline) Normalize(s string) Normalized {
	raw := Tokenize(s)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) <= 1 {
			continue
		}
		if _, stop := p.stopwords[t]; stop {
			continue
		}
		tokens = append(tokens, english.Stem(t, false))
	}
	return Normalized{Tokens: tokens, Joined: strings.Join(tokens, " ")}
}

// IsStopword reports whether t (already lowercased) is in the stopword set.
func (p *TextPipeline) IsStopword(t string) bool {
	_, ok := p.stopwords[t]
	return ok
}

// Summarize collapses whitespace in text, trims it, and truncates to
// maxChars-1 runes with a trailing "…" when the collapsed text overflows.
func Summarize(text string, maxChars int) string {
	clean := strings.Join(strings.Fields(text), " ")
	runes := []rune(clean)
	if len(runes) <= maxChars {
		return clean
	}
	if maxChars <= 0 {
		return ""
	}
	return string(runes[:maxChars-1]) + "…"
}
