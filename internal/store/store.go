// Package store defines the narrow storage abstraction the rest of the core
// is built on: four logical collections (urls, documents, postings, terms)
// reached through unique-key upserts, bulk writes and simple streaming
// queries. The persistence technology behind it is an external collaborator
// (see internal/store/boltstore for the one this repo ships); callers never
// depend on anything beyond this interface.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by FindOne when no record matches the filter.
var ErrNotFound = errors.New("store: not found")

// Collection names, matching the four logical collections of the data model.
const (
	URLs      = "urls"
	Documents = "documents"
	Postings  = "postings"
	Terms     = "terms"
)

// postingKeySeparator joins the (term, doc_url) composite key components.
// A NUL byte can't occur in either a term (tokenize only emits letters,
// hyphens and apostrophes) or a URL, so it's an unambiguous separator.
const postingKeySeparator = "\x00"

// PostingKey builds the composite key for a (term, doc_url) posting, the
// unique key required by §4.2. Backing Store implementations are free to
// use it directly as their physical key.
func PostingKey(term, docURL string) string {
	return term + postingKeySeparator + docURL
}

// Fields is a loosely-typed record, the unit of storage. Domain types
// (URLRecord, Document, Posting, Term) marshal to and from Fields via
// explicit ToFields/FromFields methods rather than being passed around
// directly, per the "dynamic document shape" design note.
type Fields map[string]any

// Filter selects records within a Find/FindOne/Count call. A nil Filter
// matches every record in the collection.
type Filter func(Fields) bool

// MatchAll is the Filter that accepts every record.
func MatchAll(Fields) bool { return true }

// UpsertOp describes one upsert within a BulkUpsert call: Set fields are
// applied unconditionally, OnInsert fields only when the key does not yet
// exist.
type UpsertOp struct {
	Key      string
	Set      Fields
	OnInsert Fields
}

// UpsertResult reports how many records an upsert touched.
type UpsertResult struct {
	Matched  int
	Modified int
	Upserted int
}

// Cursor streams records from a Find call. Callers must call Close when
// done, whether or not they exhausted the cursor.
type Cursor interface {
	Next() bool
	Fields() Fields
	Err() error
	Close() error
}

// Store is the narrow persistence interface every other core component is
// built against.
type Store interface {
	Upsert(collection, key string, set, onInsert Fields) (UpsertResult, error)
	BulkUpsert(collection string, ops []UpsertOp) (UpsertResult, error)
	FindOne(collection string, filter Filter) (Fields, error)
	Find(collection string, filter Filter) (Cursor, error)
	// FindByKeyPrefix streams every record whose key starts with prefix.
	// Searcher uses it with PostingKey(term, "") to retrieve a term's
	// postings via the key's sort order instead of a full-collection scan.
	FindByKeyPrefix(collection, prefix string) (Cursor, error)
	Count(collection string, filter Filter) (int, error)
	AggregateAvg(collection, field string) (float64, error)
	Delete(collection string, filter Filter) (int, error)
	CreateUniqueIndex(collection string, keys ...string) error
	CreateIndex(collection string, keys ...string) error
	Close() error
}

// KeyConflictError describes an upsert that would violate a unique-index
// constraint. boltstore never returns it: each collection is keyed on its
// unique field, so an upsert of an existing key updates that record.
type KeyConflictError struct {
	Collection string
	Key        string
}

func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("store: unique key conflict in %s for key %q", e.Collection, e.Key)
}
