package counters

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordpack/internal/database/txpolicy"
	"github.com/mrlokans/wordpack/internal/docstore"
)

func TestReserve_ContinuesFromStoredCounter(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, Collection, ExamplesID, map[string]any{"next_id": 5}))

	alloc := NewAllocator(store, txpolicy.DefaultPolicy())

	ids, err := alloc.Reserve(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7}, ids)

	ids, err = alloc.Reserve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, ids)
}

func TestReserve_DefaultsToOne(t *testing.T) {
	alloc := NewAllocator(docstore.NewMemoryStore(), txpolicy.DefaultPolicy())

	ids, err := alloc.Reserve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	ids, err = alloc.Reserve(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReserve_FallbackWithoutTransactions(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore(docstore.WithoutTransactions())
	alloc := NewAllocator(store, txpolicy.DefaultPolicy())

	first, err := alloc.Reserve(ctx, 2)
	require.NoError(t, err)
	second, err := alloc.Reserve(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, first)
	assert.Equal(t, []int64{3, 4}, second)
}

func TestReserve_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	// Enough attempts that contention never reaches the racy fallback.
	alloc := NewAllocator(store, txpolicy.Policy{Attempts: 1000})

	const workers = 10
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := alloc.Reserve(ctx, 5)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(t, seen[id], "id %d handed out twice", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*5)
}
