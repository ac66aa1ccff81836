// Package memory provides an in-process document store, used by tests and
// the demo seed path. It implements the same batch commit semantics as the
// SQLite store and can be told to fail specific operations so failure
// handling in the layers above can be exercised.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/harlowe/clientdesk/internal/store"
)

// Store is an in-memory implementation of store.Store.
// The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any // collection -> id -> fields

	// Fault injection. When a counter is > 0 the next matching operation
	// fails and the counter decrements.
	failQueries    int
	failGets       int
	failWrites     int
	failCommits    int
	failCollWrites map[string]int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string]map[string]map[string]any),
	}
}

// FailNextQuery makes the next n Query calls fail.
func (s *Store) FailNextQuery(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failQueries = n
}

// FailNextGet makes the next n Get calls fail.
func (s *Store) FailNextGet(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGets = n
}

// FailNextWrite makes the next n Set/Update/Delete calls fail.
func (s *Store) FailNextWrite(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = n
}

// FailNextCommit makes the next n batch commits fail with no documents
// written.
func (s *Store) FailNextCommit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommits = n
}

// FailWritesTo makes the next n Set/Update/Delete calls against one
// collection fail, leaving other collections untouched. Used to break
// the second phase of a two-phase operation.
func (s *Store) FailWritesTo(collection string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCollWrites == nil {
		s.failCollWrites = make(map[string]int)
	}
	s.failCollWrites[collection] = n
}

// writeFault assumes the caller holds the write lock.
func (s *Store) writeFault(collection, op, id string) error {
	if s.failCollWrites[collection] > 0 {
		s.failCollWrites[collection]--
		return fmt.Errorf("%s %s/%s: injected store failure", op, collection, id)
	}
	if s.failWrites > 0 {
		s.failWrites--
		return fmt.Errorf("%s %s/%s: injected store failure", op, collection, id)
	}
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

// Query implements store.Store.
func (s *Store) Query(ctx context.Context, collection string, filters ...store.Where) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.failQueries > 0 {
		s.failQueries--
		s.mu.Unlock()
		return nil, fmt.Errorf("query %s: injected store failure", collection)
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []store.Document
	for id, fields := range s.data[collection] {
		if !matches(fields, filters) {
			continue
		}
		docs = append(docs, store.Document{
			Collection: collection,
			ID:         id,
			Fields:     copyFields(fields),
		})
	}
	return docs, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	s.mu.Lock()
	if s.failGets > 0 {
		s.failGets--
		s.mu.Unlock()
		return store.Document{}, fmt.Errorf("get %s/%s: injected store failure", collection, id)
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.data[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{Collection: collection, ID: id, Fields: copyFields(fields)}, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFault(collection, "set", id); err != nil {
		return err
	}
	s.set(collection, id, fields, merge)
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFault(collection, "update", id); err != nil {
		return err
	}
	if _, ok := s.data[collection][id]; !ok {
		return store.ErrNotFound
	}
	s.set(collection, id, fields, true)
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFault(collection, "delete", id); err != nil {
		return err
	}
	delete(s.data[collection], id)
	return nil
}

// Batch implements store.Store.
func (s *Store) Batch() store.Batch {
	return &batch{store: s}
}

// set assumes the caller holds the write lock.
func (s *Store) set(collection, id string, fields map[string]any, merge bool) {
	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.data[collection] = coll
	}
	if merge {
		if existing, ok := coll[id]; ok {
			merged := copyFields(existing)
			for k, v := range fields {
				merged[k] = v
			}
			coll[id] = merged
			return
		}
	}
	coll[id] = copyFields(fields)
}

type batchOp struct {
	del        bool
	collection string
	id         string
	fields     map[string]any
}

type batch struct {
	store *Store
	ops   []batchOp
}

func (b *batch) Set(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, fields: copyFields(fields)})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{del: true, collection: collection, id: id})
}

// Commit applies every queued operation under one lock so the batch is
// all-or-nothing with respect to readers.
func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if b.store.failCommits > 0 {
		b.store.failCommits--
		return fmt.Errorf("batch commit: injected store failure")
	}
	for _, op := range b.ops {
		if op.del {
			delete(b.store.data[op.collection], op.id)
			continue
		}
		b.store.set(op.collection, op.id, op.fields, false)
	}
	return nil
}

func matches(fields map[string]any, filters []store.Where) bool {
	for _, f := range filters {
		if fields[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
