// Package docstore is the document-database substrate the persistence layer is
// written against.
//
// The contract is deliberately narrow: single-document atomicity, compound
// queries limited to equality/range/array-contains filters with ordering and
// cursors, bounded batch writes, and optional short optimistic transactions.
// Anything richer (unique secondary keys, cascades, counters, text search) is
// emulated by the callers in internal/database.
//
// Two backends implement Store:
//
//	store := docstore.NewMemoryStore()                 // tests, local development
//	store, err := docstore.NewSQLiteStore("./wp.db")   // JSON documents in SQLite via gorm
//
// Both normalize values through JSON on write, so numbers read back as float64
// and structs read back as map[string]any. Use Document.DataTo to hydrate typed
// values.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxBatchWrites is the largest number of writes a single Batch may commit.
const MaxBatchWrites = 500

var (
	ErrNotFound                = errors.New("document not found")
	ErrAlreadyExists           = errors.New("document already exists")
	ErrConflict                = errors.New("transaction conflict")
	ErrTransactionsUnsupported = errors.New("transactions are not supported by this store")
	ErrAggregationUnsupported  = errors.New("aggregation queries are not supported by this store")
	ErrBatchTooLarge           = errors.New("batch exceeds maximum write count")
	ErrInvalidField            = errors.New("invalid field path")
)

// Document is a snapshot of a stored document.
type Document struct {
	Collection string
	ID         string
	Data       map[string]any
}

// DataTo decodes the document into v (a pointer to a struct or map).
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Value returns the value at a dotted field path.
func (d *Document) Value(path string) (any, bool) {
	return getPath(d.Data, path)
}

// Querier runs read queries.
type Querier interface {
	Query(ctx context.Context, q Query) ([]*Document, error)
}

// Store is a document database handle. Implementations are safe for concurrent use.
type Store interface {
	Querier

	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, collection, id string, data any) error
	Set(ctx context.Context, collection, id string, data any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error

	// Count returns the number of documents matching q, ignoring its cursor and limit.
	Count(ctx context.Context, q Query) (int64, error)

	Batch() Batch
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is a transaction handle. Reads must precede writes. Writes become
// visible to other readers only when the transaction commits.
type Tx interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(collection, id string, data any) error
	Set(collection, id string, data any) error
	Update(collection, id string, fields map[string]any) error
	Delete(collection, id string) error
}

// Batch buffers writes and commits them atomically.
type Batch interface {
	Set(collection, id string, data any) error
	Update(collection, id string, fields map[string]any) error
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// IsRetryable reports whether err is transient contention worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	return isSQLiteBusy(err)
}

type writeKind int

const (
	writeCreate writeKind = iota
	writeSet
	writeUpdate
	writeDelete
)

// write is a buffered mutation shared by batches and transactions.
type write struct {
	kind       writeKind
	collection string
	id         string
	data       map[string]any
}

func newWrite(kind writeKind, collection, id string, data any) (write, error) {
	w := write{kind: kind, collection: collection, id: id}
	if collection == "" || id == "" {
		return w, fmt.Errorf("%w: empty collection or id", ErrInvalidField)
	}
	switch kind {
	case writeCreate, writeSet:
		m, err := toMap(data)
		if err != nil {
			return w, err
		}
		w.data = m
	}
	return w, nil
}

func newUpdateWrite(collection, id string, fields map[string]any) (write, error) {
	w := write{kind: writeUpdate, collection: collection, id: id}
	if collection == "" || id == "" {
		return w, fmt.Errorf("%w: empty collection or id", ErrInvalidField)
	}
	normalized, err := normalizeFields(fields)
	if err != nil {
		return w, err
	}
	w.data = normalized
	return w, nil
}

// apply returns the document state after w, given the current state (nil if absent).
func (w write) apply(current map[string]any) (map[string]any, error) {
	switch w.kind {
	case writeCreate:
		if current != nil {
			return nil, fmt.Errorf("%s/%s: %w", w.collection, w.id, ErrAlreadyExists)
		}
		return cloneMap(w.data), nil
	case writeSet:
		return cloneMap(w.data), nil
	case writeUpdate:
		if current == nil {
			return nil, fmt.Errorf("%s/%s: %w", w.collection, w.id, ErrNotFound)
		}
		next := cloneMap(current)
		for path, v := range w.data {
			setPath(next, path, cloneValue(v))
		}
		return next, nil
	default:
		return nil, nil
	}
}
