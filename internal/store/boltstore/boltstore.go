// Package boltstore implements store.Store on top of go.etcd.io/bbolt, an
// embedded transactional key/value store. It is the one concrete backing
// this repo ships for the Store abstraction (§4.2 of the spec); the
// persistence technology itself remains an external collaborator behind the
// store.Store interface, so any other compliant backend can be substituted
// without touching urltracker, indexer or searcher.
package boltstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/codepr/searchengine/internal/store"
)

// metaBucket holds index descriptors so CreateIndex/CreateUniqueIndex are
// idempotent across process restarts.
const metaBucket = "__meta_indexes__"

// keySeparator joins composite-key components (used for postings, whose
// natural key is (term, doc_url)); bbolt's sorted B+tree keys then give a
// prefix scan for "all postings with this term" for free.
const keySeparator = "\x00"

// Store is a store.Store backed by a single bbolt database file.
type Store struct {
	db *bbolt.DB

	mu      sync.Mutex
	indexes map[string]indexDescriptor
}

type indexDescriptor struct {
	Collection string   `json:"collection"`
	Keys       []string `json:"keys"`
	Unique     bool     `json:"unique"`
}

// Open opens (creating if absent) a bbolt database at path and ensures the
// four logical collection buckets exist. Open declares no indexes:
// urltracker.New and indexer.New declare the ones their collections use.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: opening %s: %w", path, err)
	}

	s := &Store{db: db, indexes: make(map[string]indexDescriptor)}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{store.URLs, store.Documents, store.Postings, store.Terms, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("boltstore: creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.loadIndexes(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadIndexes() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		return b.ForEach(func(k, v []byte) error {
			var desc indexDescriptor
			if err := json.Unmarshal(v, &desc); err != nil {
				return fmt.Errorf("boltstore: decoding index descriptor %s: %w", k, err)
			}
			s.indexes[string(k)] = desc
			return nil
		})
	})
}

// Close closes the underlying bbolt database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeFields(f store.Fields) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFields(b []byte) (store.Fields, error) {
	var f store.Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Upsert sets fields on the record identified by key within collection,
// applying onInsert fields only when the record is newly created. The whole
// operation runs inside a single bbolt read-modify-write transaction, which
// makes the "retry once without on_insert" conflict-recovery rule from the
// spec structurally unnecessary: there is no independent writer to race
// against an embedded, transactional store.
func (s *Store) Upsert(collection, key string, set, onInsert store.Fields) (store.UpsertResult, error) {
	ops := []store.UpsertOp{{Key: key, Set: set, OnInsert: onInsert}}
	return s.BulkUpsert(collection, ops)
}

// BulkUpsert applies an unordered batch of upserts within a single
// transaction. Partial success is not modeled (bbolt transactions are
// all-or-nothing), which only strengthens the spec's "partial success
// allowed" contract.
func (s *Store) BulkUpsert(collection string, ops []store.UpsertOp) (store.UpsertResult, error) {
	var result store.UpsertResult
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("boltstore: unknown collection %q", collection)
		}
		for _, op := range ops {
			existing := b.Get([]byte(op.Key))
			var fields store.Fields
			if existing != nil {
				decoded, err := decodeFields(existing)
				if err != nil {
					return fmt.Errorf("boltstore: decoding existing %s/%s: %w", collection, op.Key, err)
				}
				fields = decoded
				result.Matched++
			} else {
				fields = store.Fields{}
				for k, v := range op.OnInsert {
					fields[k] = v
				}
				result.Upserted++
			}
			for k, v := range op.Set {
				fields[k] = v
			}
			encoded, err := encodeFields(fields)
			if err != nil {
				return fmt.Errorf("boltstore: encoding %s/%s: %w", collection, op.Key, err)
			}
			if existing != nil {
				result.Modified++
			}
			if err := b.Put([]byte(op.Key), encoded); err != nil {
				return fmt.Errorf("boltstore: writing %s/%s: %w", collection, op.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return store.UpsertResult{}, err
	}
	return result, nil
}

// FindOne returns the first record in collection matching filter, or
// store.ErrNotFound if none does.
func (s *Store) FindOne(collection string, filter store.Filter) (store.Fields, error) {
	if filter == nil {
		filter = store.MatchAll
	}
	var found store.Fields
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("boltstore: unknown collection %q", collection)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			fields, err := decodeFields(v)
			if err != nil {
				return fmt.Errorf("boltstore: decoding %s/%s: %w", collection, k, err)
			}
			if filter(fields) {
				found = fields
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

// cursor is a snapshot-backed store.Cursor: Find reads the whole matching
// set into memory inside one view transaction, matching the spec's
// "streaming cursor" contract from the caller's point of view (iterated
// with Next/Fields) without holding a bbolt transaction open across calls.
type cursor struct {
	items []store.Fields
	pos   int
}

func (c *cursor) Next() bool {
	if c.pos >= len(c.items) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Fields() store.Fields {
	if c.pos == 0 || c.pos > len(c.items) {
		return nil
	}
	return c.items[c.pos-1]
}

func (c *cursor) Err() error   { return nil }
func (c *cursor) Close() error { return nil }

// Find streams every record in collection matching filter.
func (s *Store) Find(collection string, filter store.Filter) (store.Cursor, error) {
	if filter == nil {
		filter = store.MatchAll
	}
	var items []store.Fields
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("boltstore: unknown collection %q", collection)
		}
		return b.ForEach(func(k, v []byte) error {
			fields, err := decodeFields(v)
			if err != nil {
				return fmt.Errorf("boltstore: decoding %s/%s: %w", collection, k, err)
			}
			if filter(fields) {
				items = append(items, fields)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &cursor{items: items}, nil
}

// FindByKeyPrefix streams every record in collection whose bbolt key starts
// with prefix, relying on bbolt's sorted keys for an ordered range scan.
// Used by Searcher for "all postings with this term"
// without a secondary index structure.
func (s *Store) FindByKeyPrefix(collection, prefix string) (store.Cursor, error) {
	var items []store.Fields
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("boltstore: unknown collection %q", collection)
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			fields, err := decodeFields(v)
			if err != nil {
				return fmt.Errorf("boltstore: decoding %s/%s: %w", collection, k, err)
			}
			items = append(items, fields)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cursor{items: items}, nil
}

// Count returns the number of records in collection matching filter.
func (s *Store) Count(collection string, filter store.Filter) (int, error) {
	cur, err := s.Find(collection, filter)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	n := 0
	for cur.Next() {
		n++
	}
	return n, cur.Err()
}

// AggregateAvg returns the arithmetic mean of field across every record in
// collection, or 0 if the collection is empty.
func (s *Store) AggregateAvg(collection, field string) (float64, error) {
	cur, err := s.Find(collection, nil)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	var sum float64
	var n int
	for cur.Next() {
		f := cur.Fields()
		switch v := f[field].(type) {
		case float64:
			sum += v
		case int:
			sum += float64(v)
		case int64:
			sum += float64(v)
		}
		n++
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// Delete removes every record in collection matching filter, returning the
// number of records removed.
func (s *Store) Delete(collection string, filter store.Filter) (int, error) {
	if filter == nil {
		filter = store.MatchAll
	}
	var removed int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("boltstore: unknown collection %q", collection)
		}
		var toDelete [][]byte
		err := b.ForEach(func(k, v []byte) error {
			fields, err := decodeFields(v)
			if err != nil {
				return fmt.Errorf("boltstore: decoding %s/%s: %w", collection, k, err)
			}
			if filter(fields) {
				key := make([]byte, len(k))
				copy(key, k)
				toDelete = append(toDelete, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// CreateUniqueIndex declares a uniqueness constraint for collection over
// keys. For every collection in this repo the declared unique key is also
// the bbolt primary key (e.g. postings are keyed "term\x00doc_url"), so
// uniqueness is enforced structurally by Upsert/BulkUpsert; this call
// records the declaration so it is idempotent and so a conflicting
// redeclaration can be recovered by dropping and rebuilding, per §4.2/§7.
func (s *Store) CreateUniqueIndex(collection string, keys ...string) error {
	return s.declareIndex(collection, keys, true)
}

// CreateIndex declares a non-unique index for collection over keys. Lookups
// against it fall back to a predicate scan (Find/FindByKeyPrefix) rather
// than a dedicated secondary structure, which is acceptable at the scale
// this spec targets.
func (s *Store) CreateIndex(collection string, keys ...string) error {
	return s.declareIndex(collection, keys, false)
}

func (s *Store) declareIndex(collection string, keys []string, unique bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := indexName(collection, keys, unique)
	desc := indexDescriptor{Collection: collection, Keys: keys, Unique: unique}

	if existing, ok := s.indexes[name]; ok && !sameDescriptor(existing, desc) {
		if err := s.dropIndex(name); err != nil {
			return fmt.Errorf("boltstore: recovering conflicting index %s: %w", name, err)
		}
	}

	encoded, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		return b.Put([]byte(name), encoded)
	})
	if err != nil {
		return err
	}
	s.indexes[name] = desc
	return nil
}

func (s *Store) dropIndex(name string) error {
	delete(s.indexes, name)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Delete([]byte(name))
	})
}

func indexName(collection string, keys []string, unique bool) string {
	kind := "idx"
	if unique {
		kind = "unique_idx"
	}
	name := collection + "_" + kind
	for _, k := range keys {
		name += "_" + k
	}
	return name
}

func sameDescriptor(a, b indexDescriptor) bool {
	if a.Collection != b.Collection || a.Unique != b.Unique || len(a.Keys) != len(b.Keys) {
		return false
	}
	for i := range a.Keys {
		if a.Keys[i] != b.Keys[i] {
			return false
		}
	}
	return true
}

// PostingKey builds the composite bbolt key for a (term, doc_url) posting,
// delegating to store.PostingKey so callers outside boltstore compose keys
// identically without depending on this package.
func PostingKey(term, docURL string) string {
	return store.PostingKey(term, docURL)
}
