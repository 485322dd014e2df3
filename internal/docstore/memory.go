package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithoutTransactions makes RunTransaction report ErrTransactionsUnsupported.
func WithoutTransactions() MemoryOption {
	return func(s *MemoryStore) { s.noTx = true }
}

// WithoutAggregation makes Count report ErrAggregationUnsupported.
func WithoutAggregation() MemoryOption {
	return func(s *MemoryStore) { s.noAgg = true }
}

type memDoc struct {
	data    map[string]any
	version uint64
}

type docKey struct {
	collection string
	id         string
}

// MemoryStore is an in-process Store with optimistic transactions.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memDoc
	seq         uint64

	noTx  bool
	noAgg bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{collections: make(map[string]map[string]*memDoc)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// lookup must be called with s.mu held.
func (s *MemoryStore) lookup(collection, id string) *memDoc {
	coll, ok := s.collections[collection]
	if !ok {
		return nil
	}
	return coll[id]
}

// put must be called with s.mu held. A nil data deletes the document.
func (s *MemoryStore) put(collection, id string, data map[string]any) {
	if data == nil {
		if coll, ok := s.collections[collection]; ok {
			delete(coll, id)
		}
		return
	}
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*memDoc)
		s.collections[collection] = coll
	}
	s.seq++
	coll[id] = &memDoc{data: data, version: s.seq}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := s.lookup(collection, id)
	if doc == nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{Collection: collection, ID: id, Data: cloneMap(doc.data)}, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data any) error {
	w, err := newWrite(writeCreate, collection, id, data)
	if err != nil {
		return err
	}
	return s.applyWrites(ctx, []write{w})
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	w, err := newWrite(writeSet, collection, id, data)
	if err != nil {
		return err
	}
	return s.applyWrites(ctx, []write{w})
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	w, err := newUpdateWrite(collection, id, fields)
	if err != nil {
		return err
	}
	return s.applyWrites(ctx, []write{w})
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	w, err := newWrite(writeDelete, collection, id, nil)
	if err != nil {
		return err
	}
	return s.applyWrites(ctx, []write{w})
}

// applyWrites applies writes all-or-nothing.
func (s *MemoryStore) applyWrites(ctx context.Context, writes []write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(writes)
}

func (s *MemoryStore) applyLocked(writes []write) error {
	staged := make(map[docKey]map[string]any)
	var order []docKey
	for _, w := range writes {
		key := docKey{w.collection, w.id}
		current, seen := staged[key]
		if !seen {
			if doc := s.lookup(w.collection, w.id); doc != nil {
				current = doc.data
			}
			order = append(order, key)
		}
		next, err := w.apply(current)
		if err != nil {
			return err
		}
		staged[key] = next
	}
	for _, key := range order {
		s.put(key.collection, key.id, staged[key])
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cursor, err := q.cursorValues()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	type hit struct {
		id   string
		data map[string]any
	}
	var hits []hit
	for id, doc := range s.collections[q.collection] {
		if q.matches(doc.data) {
			hits = append(hits, hit{id: id, data: doc.data})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		return q.compareDocs(hits[i].id, hits[i].data, hits[j].id, hits[j].data) < 0
	})

	var cursorData map[string]any
	if q.startAfter != nil {
		cursorData = make(map[string]any, len(q.orders))
		for i, o := range q.orders {
			setPath(cursorData, o.Field, cursor[i])
		}
	}

	var out []*Document
	for _, h := range hits {
		if cursorData != nil && q.compareDocs(h.id, h.data, q.startAfter.ID, cursorData) <= 0 {
			continue
		}
		out = append(out, &Document{Collection: q.collection, ID: h.id, Data: cloneMap(h.data)})
		if q.limit > 0 && len(out) >= q.limit {
			break
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, q Query) (int64, error) {
	if s.noAgg {
		return 0, ErrAggregationUnsupported
	}
	if err := q.Err(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, doc := range s.collections[q.collection] {
		if q.matches(doc.data) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Batch() Batch {
	return &memBatch{store: s}
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if s.noTx {
		return ErrTransactionsUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		store:   s,
		reads:   make(map[docKey]uint64),
		overlay: make(map[docKey]map[string]any),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

func (s *MemoryStore) commit(ctx context.Context, tx *memTx) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range tx.reads {
		var current uint64
		if doc := s.lookup(key.collection, key.id); doc != nil {
			current = doc.version
		}
		if current != version {
			return fmt.Errorf("%s/%s changed during transaction: %w", key.collection, key.id, ErrConflict)
		}
	}
	return s.applyLocked(tx.writes)
}

type memBatch struct {
	store  *MemoryStore
	writes []write
}

func (b *memBatch) Set(collection, id string, data any) error {
	w, err := newWrite(writeSet, collection, id, data)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, w)
	return nil
}

func (b *memBatch) Update(collection, id string, fields map[string]any) error {
	w, err := newUpdateWrite(collection, id, fields)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, w)
	return nil
}

func (b *memBatch) Delete(collection, id string) {
	b.writes = append(b.writes, write{kind: writeDelete, collection: collection, id: id})
}

func (b *memBatch) Len() int {
	return len(b.writes)
}

func (b *memBatch) Commit(ctx context.Context) error {
	if len(b.writes) > MaxBatchWrites {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(b.writes), MaxBatchWrites)
	}
	if len(b.writes) == 0 {
		return nil
	}
	return b.store.applyWrites(ctx, b.writes)
}

// memTx records read versions and buffers writes until commit.
type memTx struct {
	store   *MemoryStore
	reads   map[docKey]uint64
	writes  []write
	overlay map[docKey]map[string]any
	touched map[docKey]bool
}

func (t *memTx) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := docKey{collection, id}
	if t.touched[key] {
		data := t.overlay[key]
		if data == nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return &Document{Collection: collection, ID: id, Data: cloneMap(data)}, nil
	}

	t.store.mu.RLock()
	doc := t.store.lookup(collection, id)
	var version uint64
	var data map[string]any
	if doc != nil {
		version = doc.version
		data = cloneMap(doc.data)
	}
	t.store.mu.RUnlock()

	if _, seen := t.reads[key]; !seen {
		t.reads[key] = version
	}
	if data == nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{Collection: collection, ID: id, Data: data}, nil
}

func (t *memTx) stage(w write) error {
	key := docKey{w.collection, w.id}
	var current map[string]any
	if t.touched[key] {
		current = t.overlay[key]
	} else {
		t.store.mu.RLock()
		if doc := t.store.lookup(w.collection, w.id); doc != nil {
			current = doc.data
		}
		t.store.mu.RUnlock()
	}
	next, err := w.apply(current)
	if err != nil {
		return err
	}
	if t.touched == nil {
		t.touched = make(map[docKey]bool)
	}
	t.touched[key] = true
	t.overlay[key] = next
	t.writes = append(t.writes, w)
	return nil
}

func (t *memTx) Create(collection, id string, data any) error {
	w, err := newWrite(writeCreate, collection, id, data)
	if err != nil {
		return err
	}
	return t.stage(w)
}

func (t *memTx) Set(collection, id string, data any) error {
	w, err := newWrite(writeSet, collection, id, data)
	if err != nil {
		return err
	}
	return t.stage(w)
}

func (t *memTx) Update(collection, id string, fields map[string]any) error {
	w, err := newUpdateWrite(collection, id, fields)
	if err != nil {
		return err
	}
	return t.stage(w)
}

func (t *memTx) Delete(collection, id string) error {
	w, err := newWrite(writeDelete, collection, id, nil)
	if err != nil {
		return err
	}
	return t.stage(w)
}
