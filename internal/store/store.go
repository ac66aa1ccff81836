// Package store defines the document store contract the synchronization
// layer writes through: flat collections of id-keyed documents, equality
// filters, and all-or-nothing multi-document batches.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document with the requested id
// exists in the collection.
var ErrNotFound = errors.New("document not found")

// SchemaError reports a document whose fields do not decode into the
// expected entity shape. It is distinguishable from a missing document
// and from a store failure.
type SchemaError struct {
	Collection string
	ID         string
	Err        error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("document %s/%s does not match expected schema: %v", e.Collection, e.ID, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Where is an equality predicate on a top-level document field.
type Where struct {
	Field string
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Where {
	return Where{Field: field, Value: value}
}

// Document is a raw record read from a collection.
type Document struct {
	Collection string
	ID         string
	Fields     map[string]any
}

// Decode maps the document's fields onto a typed entity struct.
// A field set that does not fit the target shape yields a SchemaError.
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return &SchemaError{Collection: d.Collection, ID: d.ID, Err: err}
	}
	// Unknown fields written by a newer client are tolerated; type-level
	// mismatches are schema errors.
	if err := json.Unmarshal(raw, v); err != nil {
		return &SchemaError{Collection: d.Collection, ID: d.ID, Err: err}
	}
	return nil
}

// Fields flattens a typed entity into the field map persisted for it.
// Fields tagged `json:"-"` (and the derived task list, tagged omitempty on
// a nil slice) drop out of the map.
func Fields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten entity: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to flatten entity: %w", err)
	}
	return m, nil
}

// Store is the entity store client. All operations are keyed by collection
// name and document id; none of them imply any cross-collection integrity.
type Store interface {
	// Query returns every document in the collection matching all filters.
	Query(ctx context.Context, collection string, filters ...Where) ([]Document, error)

	// Get returns a single document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes the full field map for a document, creating it if absent.
	// With merge set, existing fields not present in the map are kept.
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error

	// Update overwrites only the given fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch starts a multi-document write that commits atomically.
	Batch() Batch
}

// Batch accumulates writes that Commit applies as a unit: either every
// queued operation is persisted or none of them are.
type Batch interface {
	Set(collection, id string, fields map[string]any)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}
