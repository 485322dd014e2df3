package counters

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mrlokans/wordpack/internal/database/txpolicy"
	"github.com/mrlokans/wordpack/internal/docstore"
)

const (
	Collection = "counters"
	ExamplesID = "examples"
)

// Allocator hands out increasing integer ids from a singleton counter document.
type Allocator struct {
	store  docstore.Store
	policy txpolicy.Policy
	id     string
}

// NewAllocator returns an allocator over the counters/examples document.
func NewAllocator(store docstore.Store, policy txpolicy.Policy) *Allocator {
	return &Allocator{store: store, policy: policy, id: ExamplesID}
}

// Reserve returns n distinct increasing ids that were never handed out before.
func (a *Allocator) Reserve(ctx context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}
	first, err := txpolicy.Run(ctx, a.store, a.policy, "reserve example ids", txpolicy.Strategy[int64]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (int64, error) {
			doc, err := tx.Get(ctx, Collection, a.id)
			next, err := nextID(doc, err)
			if err != nil {
				return 0, err
			}
			return next, tx.Set(Collection, a.id, map[string]any{"next_id": next + int64(n)})
		},
		Fallback: func(ctx context.Context, store docstore.Store) (int64, error) {
			doc, err := store.Get(ctx, Collection, a.id)
			next, err := nextID(doc, err)
			if err != nil {
				return 0, err
			}
			return next, store.Set(ctx, Collection, a.id, map[string]any{"next_id": next + int64(n)})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reserve %d ids: %w", n, err)
	}

	ids := make([]int64, n)
	for i := range ids {
		ids[i] = first + int64(i)
	}
	return ids, nil
}

// nextID reads next_id from a counter lookup, defaulting to 1.
func nextID(doc *docstore.Document, err error) (int64, error) {
	if errors.Is(err, docstore.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	v, _ := doc.Value("next_id")
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			return int64(t), nil
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil && n >= 1 {
			return n, nil
		}
	}
	return 1, nil
}
