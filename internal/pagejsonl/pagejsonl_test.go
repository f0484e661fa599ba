package pagejsonl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepr/searchengine/internal/fetcher"
)

func TestWriteThenDecodeRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write(FromPageRecord(fetcher.PageRecord{
		URL:   "https://ex.com/a",
		Title: "A & B <tags>",
		Text:  "some text",
	}, false)))
	require.NoError(t, w.Write(FromPageRecord(fetcher.PageRecord{
		URL:      "https://ex.com/b",
		FinalURL: "https://ex.com/b2",
		Title:    "B",
		Text:     "more text",
		HTML:     "<html></html>",
	}, true)))

	require.Equal(t, 2, strings.Count(buf.String(), "\n"))
	require.True(t, strings.Contains(buf.String(), "A & B <tags>"), "expected unescaped HTML entities")

	records, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "https://ex.com/a", records[0].URL)
	require.Empty(t, records[0].HTML)
	require.Equal(t, "https://ex.com/b2", records[1].FinalURL)
	require.Equal(t, "<html></html>", records[1].HTML)
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	records, err := Decode(strings.NewReader("\n\n"))
	require.NoError(t, err)
	require.Empty(t, records)
}
