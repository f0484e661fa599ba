package fetcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser extracts a title, visible text and outbound links from an HTML
// document, given the URL it was fetched from (for resolving relative
// links).
type Parser interface {
	Parse(pageURL string, body []byte) (title, text string, links []string, err error)
}

// GoqueryParser is the Parser backed by github.com/PuerkitoBio/goquery,
// generalized from the teacher's link-only GoqueryParser to also extract
// title and visible text (§4.4).
type GoqueryParser struct{}

// NewGoqueryParser builds a GoqueryParser.
func NewGoqueryParser() GoqueryParser {
	return GoqueryParser{}
}

var whitespaceRun = regexp.MustCompile(`\s+`)
var hrefScheme = regexp.MustCompile(`^https?://`)

// Parse implements Parser.
func (p GoqueryParser) Parse(pageURL string, body []byte) (string, string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", "", nil, err
	}

	title := collapseWhitespace(doc.Find("title").First().Text())

	doc.Find("script,style,noscript").Remove()
	text := collapseWhitespace(doc.Find("body").Text())
	if text == "" {
		text = collapseWhitespace(doc.Text())
	}

	links := extractLinks(doc, pageURL)
	return title, text, links, nil
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// extractLinks implements the §4.4 link-extraction rule exactly: strip,
// skip fragment-only, resolve a leading "/" against scheme://host of
// pageURL, accept only hrefs matching ^https?://. Duplicates are preserved;
// the caller deduplicates.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	origin := fmt.Sprintf("%s://%s", base.Scheme, base.Host)

	var links []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = origin + href
		}
		if hrefScheme.MatchString(href) {
			links = append(links, href)
		}
	})
	return links
}

// SameDomain implements the §4.4 same-domain filter: case-insensitive exact
// host match, no public-suffix logic.
func SameDomain(fetchURL, linkURL string) bool {
	a, err := url.Parse(fetchURL)
	if err != nil {
		return false
	}
	b, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}
