package fetcher

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serverMock() *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/page", pageMock)
	handler.HandleFunc("/oversize", oversizeMock)
	handler.HandleFunc("/broken", brokenMock)
	return httptest.NewServer(handler)
}

func pageMock(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(`<html>
		<head><title>  Foxes   and   Dogs  </title></head>
		<body>
			<script>var x = 1;</script>
			<p>The quick brown fox jumps over the lazy dog.</p>
			<a href="/relative">relative</a>
			<a href="https://other.example.com/abs">absolute</a>
			<a href="#frag">fragment only</a>
			<a href="ftp://nope.example.com/x">non-http</a>
		</body>
	</html>`))
}

func oversizeMock(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(strings.Repeat("x", 64)))
}

func brokenMock(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
}

func TestFetchContentParsesTitleAndText(t *testing.T) {
	server := serverMock()
	defer server.Close()

	f := New("test-agent", 5*time.Second, 1)
	rec, err := f.FetchContent(fmt.Sprintf("%s/page", server.URL))
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	if rec == nil {
		t.Fatal("FetchContent returned nil record for a valid page")
	}
	if rec.Title != "Foxes and Dogs" {
		t.Errorf("expected collapsed title, got %q", rec.Title)
	}
	if strings.Contains(rec.Text, "var x = 1") {
		t.Errorf("expected <script> content stripped, got %q", rec.Text)
	}
	if !strings.Contains(rec.Text, "quick brown fox") {
		t.Errorf("expected visible text preserved, got %q", rec.Text)
	}
}

func TestFetchLinksExtractsAbsoluteHTTPLinksOnly(t *testing.T) {
	server := serverMock()
	defer server.Close()

	f := New("test-agent", 5*time.Second, 1)
	rec, err := f.FetchLinks(fmt.Sprintf("%s/page", server.URL))
	if err != nil {
		t.Fatalf("FetchLinks failed: %v", err)
	}
	if rec == nil {
		t.Fatal("FetchLinks returned nil record for a valid page")
	}

	want := []string{server.URL + "/relative", "https://other.example.com/abs"}
	if len(rec.Links) != len(want) {
		t.Fatalf("expected links %v, got %v", want, rec.Links)
	}
	for i, w := range want {
		if rec.Links[i] != w {
			t.Errorf("link[%d]: expected %q, got %q", i, w, rec.Links[i])
		}
	}
}

func TestFetchContentRejectsOversizeBody(t *testing.T) {
	server := serverMock()
	defer server.Close()

	f := New("test-agent", 5*time.Second, 0)
	rec, err := f.FetchContent(fmt.Sprintf("%s/oversize", server.URL))
	if err != nil {
		t.Fatalf("expected nil error for oversize reject, got %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for oversize content, got %+v", rec)
	}
}

func TestFetchContentRejectsNon2xx(t *testing.T) {
	server := serverMock()
	defer server.Close()

	f := New("test-agent", 5*time.Second, 1)
	rec, err := f.FetchContent(fmt.Sprintf("%s/broken", server.URL))
	if err != nil {
		t.Fatalf("expected nil error for non-2xx reject, got %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for a 5xx response, got %+v", rec)
	}
}

func TestSameDomainIsCaseInsensitiveExactMatch(t *testing.T) {
	if !SameDomain("https://Example.com/a", "https://example.COM/b") {
		t.Error("expected same-domain match to be case-insensitive")
	}
	if SameDomain("https://example.com/a", "https://sub.example.com/b") {
		t.Error("expected subdomain to not match exactly")
	}
}
