package txpolicy

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordpack/internal/docstore"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRun_TransactionalSuccess(t *testing.T) {
	buf := captureLog(t)
	store := docstore.NewMemoryStore()
	fallbacks := 0

	got, err := Run(context.Background(), store, DefaultPolicy(), "test", Strategy[string]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (string, error) {
			return "tx", tx.Set("c", "1", map[string]any{"v": 1})
		},
		Fallback: func(ctx context.Context, store docstore.Store) (string, error) {
			fallbacks++
			return "fallback", nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "tx", got)
	assert.Zero(t, fallbacks)
	assert.Empty(t, buf.String())
}

func TestRun_FallsBackWhenTransactionsUnsupported(t *testing.T) {
	buf := captureLog(t)
	store := docstore.NewMemoryStore(docstore.WithoutTransactions())

	got, err := Run(context.Background(), store, DefaultPolicy(), "reserve ids", Strategy[int]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (int, error) {
			t.Fatal("transactional phase must not run")
			return 0, nil
		},
		Fallback: func(ctx context.Context, store docstore.Store) (int, error) {
			return 7, nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Contains(t, buf.String(), "WARNING: reserve ids: transactional path failed at init")
}

func TestRun_RetriesConflictsThenFallsBack(t *testing.T) {
	buf := captureLog(t)
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "c", "x", map[string]any{"n": 0}))

	attempts := 0
	got, err := Run(ctx, store, Policy{Attempts: 3}, "contended", Strategy[string]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (string, error) {
			attempts++
			if _, err := tx.Get(ctx, "c", "x"); err != nil {
				return "", err
			}
			// A concurrent writer invalidates the read on every attempt.
			if err := store.Set(ctx, "c", "x", map[string]any{"n": attempts}); err != nil {
				return "", err
			}
			return "tx", tx.Set("c", "x", map[string]any{"n": -1})
		},
		Fallback: func(ctx context.Context, store docstore.Store) (string, error) {
			return "fallback", nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, buf.String(), "WARNING: contended: transactional path failed at body")
}

func TestRun_ReturnsNonRetryableBodyErrors(t *testing.T) {
	captureLog(t)
	invalid := errors.New("invalid input")
	fallbacks := 0

	_, err := Run(context.Background(), docstore.NewMemoryStore(), DefaultPolicy(), "validate", Strategy[int]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (int, error) {
			return 0, invalid
		},
		Fallback: func(ctx context.Context, store docstore.Store) (int, error) {
			fallbacks++
			return 0, nil
		},
	})

	assert.ErrorIs(t, err, invalid)
	assert.Zero(t, fallbacks)
}

func TestRun_CanceledContext(t *testing.T) {
	captureLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, docstore.NewMemoryStore(), DefaultPolicy(), "canceled", Strategy[int]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (int, error) { return 1, nil },
		Fallback: func(ctx context.Context, store docstore.Store) (int, error) {
			t.Fatal("fallback must not run after cancellation")
			return 0, nil
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
}
