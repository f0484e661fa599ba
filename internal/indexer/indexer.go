// Package indexer implements Indexer: converting page records into
// documents and positional postings and bulk-upserting both (§4.7).
package indexer

import (
	"time"

	"github.com/codepr/searchengine/internal/pagejsonl"
	"github.com/codepr/searchengine/internal/store"
	"github.com/codepr/searchengine/internal/textpipeline"
)

// defaultExcerptMaxChars bounds Document.text_excerpt; overridable via
// WithExcerptMaxChars.
const defaultExcerptMaxChars = 400

// Indexer is the Indexer component.
type Indexer struct {
	store           store.Store
	pipeline        *textpipeline.TextPipeline
	excerptMaxChars int
}

// Option configures an Indexer at construction.
type Option func(*Indexer)

// WithExcerptMaxChars overrides INDEX_EXCERPT_MAX_CHARS.
func WithExcerptMaxChars(n int) Option {
	return func(ix *Indexer) { ix.excerptMaxChars = n }
}

// New builds an Indexer over s, normalizing text with pipeline.
func New(s store.Store, pipeline *textpipeline.TextPipeline, opts ...Option) (*Indexer, error) {
	if err := s.CreateUniqueIndex(store.Documents, "url"); err != nil {
		return nil, err
	}
	if err := s.CreateIndex(store.Postings, "term"); err != nil {
		return nil, err
	}
	if err := s.CreateUniqueIndex(store.Postings, "term", "doc_url"); err != nil {
		return nil, err
	}
	if err := s.CreateUniqueIndex(store.Terms, "term"); err != nil {
		return nil, err
	}
	ix := &Indexer{store: s, pipeline: pipeline, excerptMaxChars: defaultExcerptMaxChars}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// termPosting accumulates the tf/positions for one term within a document.
type termPosting struct {
	tf        int
	positions []int
}

// BuildDocument produces the Document record for a fetched page.
func (ix *Indexer) BuildDocument(page pagejsonl.Record, source string) store.Document {
	normalized := ix.pipeline.Normalize(page.Text)
	return store.Document{
		URL:           page.URL,
		FinalURL:      page.FinalURL,
		Title:         page.Title,
		RawText:       page.Text,
		TextExcerpt:   textpipeline.Summarize(page.Text, ix.excerptMaxChars),
		IndexText:     normalized.Joined,
		ContentLength: len(page.Text),
		Source:        source,
	}
}

// BuildPostings produces {term → (tf, positions)} from page.Text, assigning
// positions in the pre-stopword-removal coordinate system: position i is
// the raw token's index in tokenize(text.lower()), not the index into the
// filtered/stemmed output.
func (ix *Indexer) BuildPostings(text string) map[string]termPosting {
	raw := textpipeline.Tokenize(text)
	postings := make(map[string]termPosting)
	for i, t := range raw {
		normalized := ix.pipeline.Normalize(t)
		if len(normalized.Tokens) == 0 {
			continue
		}
		term := normalized.Tokens[0]
		tp := postings[term]
		tp.tf++
		tp.positions = append(tp.positions, i)
		postings[term] = tp
	}
	return postings
}

// UpsertDocument bulk-updates documents by url, setting created_at only on
// insert.
func (ix *Indexer) UpsertDocument(doc store.Document) error {
	now := time.Now().UTC()
	fields := doc.ToFields()
	delete(fields, "url")
	delete(fields, "created_at")
	fields["updated_at"] = now
	_, err := ix.store.Upsert(store.Documents, doc.URL, fields, store.Fields{"created_at": now})
	return err
}

// UpsertPostings writes term → (tf, positions) upserts keyed by
// (term, url), full-replacement semantics, plus a companion terms-dictionary
// upsert per term.
func (ix *Indexer) UpsertPostings(url string, terms map[string]termPosting) error {
	now := time.Now().UTC()
	postingOps := make([]store.UpsertOp, 0, len(terms))
	termOps := make([]store.UpsertOp, 0, len(terms))
	for term, tp := range terms {
		postingOps = append(postingOps, store.UpsertOp{
			Key: store.PostingKey(term, url),
			Set: store.Fields{
				"term":      term,
				"doc_url":   url,
				"tf":        tp.tf,
				"positions": tp.positions,
			},
			OnInsert: store.Fields{"created_at": now},
		})
		termOps = append(termOps, store.UpsertOp{
			Key:      term,
			Set:      store.Fields{"term": term, "updated_at": now},
			OnInsert: store.Fields{"created_at": now},
		})
	}
	if len(postingOps) > 0 {
		if _, err := ix.store.BulkUpsert(store.Postings, postingOps); err != nil {
			return err
		}
	}
	if len(termOps) > 0 {
		if _, err := ix.store.BulkUpsert(store.Terms, termOps); err != nil {
			return err
		}
	}
	return nil
}

// IndexPage builds and upserts the document and postings for a single page.
// If reindex is true, existing postings for url are deleted first (required
// so terms dropped from a re-indexed document don't linger, per §4.7).
func (ix *Indexer) IndexPage(page pagejsonl.Record, source string, reindex bool) error {
	doc := ix.BuildDocument(page, source)
	postings := ix.BuildPostings(page.Text)
	return ix.writeOne(doc, page.URL, postings, reindex)
}

func (ix *Indexer) writeOne(doc store.Document, url string, postings map[string]termPosting, reindex bool) error {
	if reindex {
		if err := ix.deletePostingsFor(url); err != nil {
			return err
		}
	}
	if err := ix.UpsertDocument(doc); err != nil {
		return err
	}
	return ix.UpsertPostings(url, postings)
}

func (ix *Indexer) deletePostingsFor(url string) error {
	_, err := ix.store.Delete(store.Postings, func(f store.Fields) bool {
		u, _ := f["doc_url"].(string)
		return u == url
	})
	return err
}

// built is a page's computed document + postings, ready to write.
type built struct {
	url      string
	doc      store.Document
	postings map[string]termPosting
}

// IndexPages is the serial batch pipeline: builds every page's document and
// postings, flushing documents in batches of batchSize before flushing each
// batch's postings.
func (ix *Indexer) IndexPages(pages []pagejsonl.Record, source string, reindex bool, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(pages)
		if batchSize == 0 {
			batchSize = 1
		}
	}
	count := 0
	for start := 0; start < len(pages); start += batchSize {
		end := start + batchSize
		if end > len(pages) {
			end = len(pages)
		}
		batch := make([]built, 0, end-start)
		for _, page := range pages[start:end] {
			batch = append(batch, built{
				url:      page.URL,
				doc:      ix.BuildDocument(page, source),
				postings: ix.BuildPostings(page.Text),
			})
		}
		if err := ix.flushBatch(batch, reindex); err != nil {
			return count, err
		}
		count += len(batch)
	}
	return count, nil
}

// IndexPagesParallel builds documents/postings for each page concurrently
// across a pool of size workers, then serializes every write on the calling
// goroutine to avoid store write contention.
func (ix *Indexer) IndexPagesParallel(pages []pagejsonl.Record, source string, reindex bool, workers int) (int, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]built, len(pages))
	semaphore := make(chan struct{}, workers)
	done := make(chan int, len(pages))
	for i, page := range pages {
		go func(i int, page pagejsonl.Record) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			results[i] = built{
				url:      page.URL,
				doc:      ix.BuildDocument(page, source),
				postings: ix.BuildPostings(page.Text),
			}
			done <- i
		}(i, page)
	}
	for range pages {
		<-done
	}

	if err := ix.flushBatch(results, reindex); err != nil {
		return 0, err
	}
	return len(results), nil
}

// flushBatch bulk-upserts every document in the batch, then writes each
// document's postings in turn.
func (ix *Indexer) flushBatch(batch []built, reindex bool) error {
	if len(batch) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ops := make([]store.UpsertOp, 0, len(batch))
	for _, b := range batch {
		fields := b.doc.ToFields()
		delete(fields, "url")
		delete(fields, "created_at")
		fields["updated_at"] = now
		ops = append(ops, store.UpsertOp{Key: b.url, Set: fields, OnInsert: store.Fields{"created_at": now}})
	}
	if _, err := ix.store.BulkUpsert(store.Documents, ops); err != nil {
		return err
	}
	for _, b := range batch {
		if reindex {
			if err := ix.deletePostingsFor(b.url); err != nil {
				return err
			}
		}
		if err := ix.UpsertPostings(b.url, b.postings); err != nil {
			return err
		}
	}
	return nil
}

// Reindex streams existing documents matching filter, recomputing
// index_text and text_excerpt from their stored raw_text and bulk-updating
// in place. Posting rebuild from raw_text is left to the caller (via
// IndexPages over re-fetched pages), per §4.7's "permitted extension but
// not required" note.
func (ix *Indexer) Reindex(filter store.Filter) (int, error) {
	if filter == nil {
		filter = store.MatchAll
	}
	cur, err := ix.store.Find(store.Documents, filter)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	now := time.Now().UTC()
	count := 0
	for cur.Next() {
		doc := store.DocumentFromFields(cur.Fields())
		normalized := ix.pipeline.Normalize(doc.RawText)
		_, err := ix.store.Upsert(store.Documents, doc.URL, store.Fields{
			"index_text":   normalized.Joined,
			"text_excerpt": textpipeline.Summarize(doc.RawText, ix.excerptMaxChars),
			"updated_at":   now,
		}, nil)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, cur.Err()
}
