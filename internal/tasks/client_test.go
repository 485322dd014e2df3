package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/importers"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "wordpack-tasks.db"), TasksDBPath(filepath.Join("data", "wordpack.db")))
	assert.Equal(t, "store-tasks", TasksDBPath("store"))
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type fakeReconciler struct {
	packs chan string
	all   chan struct{}
}

func (f *fakeReconciler) ReconcilePack(_ context.Context, id string) (bool, error) {
	f.packs <- id
	return true, nil
}

func (f *fakeReconciler) ReconcileAll(context.Context) (int, error) {
	f.all <- struct{}{}
	return 3, nil
}

func TestReconcileQueues(t *testing.T) {
	client := newTestClient(t)
	r := &fakeReconciler{packs: make(chan string, 1), all: make(chan struct{}, 1)}
	client.Register(NewReconcilePackQueue(r), NewReconcileAllPacksQueue(r))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.Enqueue(ReconcilePackTask{PackID: "wp-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = client.Enqueue(ReconcileAllPacksTask{})
	require.NoError(t, err)

	select {
	case got := <-r.packs:
		assert.Equal(t, "wp-1", got)
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile_pack was not executed within timeout")
	}
	select {
	case <-r.all:
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile_all_packs was not executed within timeout")
	}
}

type fakeImporter struct {
	err error
}

func (f fakeImporter) Import(_ context.Context, rawURL string) (*importers.ArticleResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &importers.ArticleResult{ArticleID: "a1", Title: rawURL}, nil
}

func TestImportArticleProcessor(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ImportArticleProcessor(fakeImporter{})(ctx, ImportArticleTask{URL: "https://example.com"}))

	err := ImportArticleProcessor(fakeImporter{err: errors.New("boom")})(ctx, ImportArticleTask{URL: "https://example.com"})
	assert.ErrorContains(t, err, "boom")

	assert.Error(t, ImportArticleProcessor(nil)(ctx, ImportArticleTask{}))
}

func TestBuild(t *testing.T) {
	task, err := Build("reconcile_pack", Params{PackID: " wp-1 "})
	require.NoError(t, err)
	assert.Equal(t, ReconcilePackTask{PackID: "wp-1"}, task)

	_, err = Build("reconcile_pack", Params{})
	assert.ErrorIs(t, err, ErrMissingParam)

	_, err = Build("import_article", Params{})
	assert.ErrorIs(t, err, ErrMissingParam)

	_, err = Build("enrich_book", Params{})
	assert.ErrorIs(t, err, ErrUnknownTaskType)

	for _, info := range Types() {
		assert.Equal(t, info.Type, info.Queue)
	}
}

func TestTaskConfigs(t *testing.T) {
	cfg := ReconcileAllPacksTask{}.Config()
	assert.Equal(t, "reconcile_all_packs", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 60*time.Minute, cfg.Timeout)

	cfg = ImportArticleTask{}.Config()
	assert.Equal(t, "import_article", cfg.Name)
	assert.NotNil(t, cfg.Retention)

	assert.Equal(t, "success", StatusString(backlite.TaskStatusSuccess))
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.Tasks{Workers: 4})
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}
