package store

import "time"

// URLRecord tracks the crawl lifecycle of a single canonical URL.
type URLRecord struct {
	URL       string
	FinalURL  string
	Crawled   bool
	CrawledAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToFields marshals a URLRecord into the loosely-typed storage shape.
func (u URLRecord) ToFields() Fields {
	f := Fields{
		"url":        u.URL,
		"crawled":    u.Crawled,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
	if u.FinalURL != "" {
		f["final_url"] = u.FinalURL
	}
	if !u.CrawledAt.IsZero() {
		f["crawled_at"] = u.CrawledAt
	}
	return f
}

// URLRecordFromFields unmarshals a URLRecord from storage fields.
func URLRecordFromFields(f Fields) URLRecord {
	return URLRecord{
		URL:       getString(f, "url"),
		FinalURL:  getString(f, "final_url"),
		Crawled:   getBool(f, "crawled"),
		CrawledAt: getTime(f, "crawled_at"),
		CreatedAt: getTime(f, "created_at"),
		UpdatedAt: getTime(f, "updated_at"),
	}
}

// Document is a fetched, normalized, indexed page.
type Document struct {
	URL           string
	FinalURL      string
	Title         string
	RawText       string
	TextExcerpt   string
	IndexText     string
	ContentLength int
	Source        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToFields marshals a Document into the loosely-typed storage shape.
func (d Document) ToFields() Fields {
	return Fields{
		"url":            d.URL,
		"final_url":      d.FinalURL,
		"title":          d.Title,
		"raw_text":       d.RawText,
		"text_excerpt":   d.TextExcerpt,
		"index_text":     d.IndexText,
		"content_length": d.ContentLength,
		"source":         d.Source,
		"created_at":     d.CreatedAt,
		"updated_at":     d.UpdatedAt,
	}
}

// DocumentFromFields unmarshals a Document from storage fields.
func DocumentFromFields(f Fields) Document {
	return Document{
		URL:           getString(f, "url"),
		FinalURL:      getString(f, "final_url"),
		Title:         getString(f, "title"),
		RawText:       getString(f, "raw_text"),
		TextExcerpt:   getString(f, "text_excerpt"),
		IndexText:     getString(f, "index_text"),
		ContentLength: getInt(f, "content_length"),
		Source:        getString(f, "source"),
		CreatedAt:     getTime(f, "created_at"),
		UpdatedAt:     getTime(f, "updated_at"),
	}
}

// Posting is a per-(term, document) inverted-index record.
type Posting struct {
	Term      string
	DocURL    string
	TF        int
	Positions []int
	CreatedAt time.Time
}

// ToFields marshals a Posting into the loosely-typed storage shape.
func (p Posting) ToFields() Fields {
	return Fields{
		"term":       p.Term,
		"doc_url":    p.DocURL,
		"tf":         p.TF,
		"positions":  p.Positions,
		"created_at": p.CreatedAt,
	}
}

// PostingFromFields unmarshals a Posting from storage fields.
func PostingFromFields(f Fields) Posting {
	return Posting{
		Term:      getString(f, "term"),
		DocURL:    getString(f, "doc_url"),
		TF:        getInt(f, "tf"),
		Positions: getIntSlice(f, "positions"),
		CreatedAt: getTime(f, "created_at"),
	}
}

// Term is a dictionary marker; document frequency is derived by counting
// postings, so Term carries no correctness-relevant data.
type Term struct {
	Term      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToFields marshals a Term into the loosely-typed storage shape.
func (t Term) ToFields() Fields {
	return Fields{
		"term":       t.Term,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}

// TermFromFields unmarshals a Term from storage fields.
func TermFromFields(f Fields) Term {
	return Term{
		Term:      getString(f, "term"),
		CreatedAt: getTime(f, "created_at"),
		UpdatedAt: getTime(f, "updated_at"),
	}
}

func getString(f Fields, key string) string {
	if v, ok := f[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(f Fields, key string) bool {
	if v, ok := f[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getInt(f Fields, key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func getTime(f Fields, key string) time.Time {
	v, ok := f[key]
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if t == "" {
			return time.Time{}
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	}
	return time.Time{}
}

func getIntSlice(f Fields, key string) []int {
	v, ok := f[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []int:
		return s
	case []any:
		out := make([]int, 0, len(s))
		for _, e := range s {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return nil
}
