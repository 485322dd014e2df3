package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/database"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/entrypoint"
)

const seedJSONC = `{
  // hand-written seed
  "version": 1,
  "packs": [
    {
      "id": "wp-1",
      "label": "bottleneck",
      "payload": {
        "sense_title": "narrow point",
        "examples": {
          "Dev": [
            {"en": "Find the bottleneck first.", "ja": "まずボトルネックを見つける。"},
          ],
        },
      },
    },
    {"id": "wp-2", "label": "queue", "payload": {}},
  ],
}`

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Queues</title></head>
<body>
<article>
<h1>Queues</h1>
<p>Every system has a bottleneck somewhere, and the first job of a performance engineer is to find it before changing anything else in the pipeline.</p>
<p>When a queue keeps growing, producers are outrunning consumers. Measuring the depth of the queue over time tells you whether the consumers will ever catch up.</p>
<p>Latency numbers alone rarely tell the whole story. Throughput and saturation have to be read together to understand where the time actually goes.</p>
<p>Once the slowest stage is known, it can be scaled out, made cheaper, or simply given more room. Everything else is noise until that stage improves.</p>
</article>
</body>
</html>`

// testEnv keeps every command on one memory store persisted to a snapshot.
type testEnv struct {
	dir      string
	snapshot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{dir: dir, snapshot: filepath.Join(dir, "store.json")}
}

func (e *testEnv) config() *config.Config {
	cfg := config.NewConfig()
	cfg.Store.Backend = config.StoreBackendMemory
	cfg.Store.SnapshotPath = e.snapshot
	cfg.Search.JapaneseTokens = false
	return cfg
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) open(t *testing.T) *database.Database {
	t.Helper()
	db, closeDB, err := entrypoint.OpenDatabase(e.config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeDB() })
	return db
}

func (e *testEnv) importSeed(t *testing.T) {
	t.Helper()
	cmd := &ImportPacksCommand{cfg: e.config()}
	require.NoError(t, cmd.ParseFlags([]string{"-f", e.writeFile(t, "seed.jsonc", seedJSONC)}))
	require.NoError(t, cmd.Run())
}

func TestImportPacksCommand(t *testing.T) {
	env := newTestEnv(t)
	env.importSeed(t)

	db := env.open(t)
	pack, err := db.GetPack(context.Background(), "wp-1")
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.Equal(t, "bottleneck", pack.Label)
	assert.Equal(t, "narrow point", pack.Payload.SenseTitle)
	assert.Len(t, pack.Payload.Examples[entities.CategoryDev], 1)

	n, err := db.CountPacks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImportPacksCommand_DryRun(t *testing.T) {
	env := newTestEnv(t)
	cmd := &ImportPacksCommand{cfg: env.config()}
	require.NoError(t, cmd.ParseFlags([]string{"--file", env.writeFile(t, "seed.jsonc", seedJSONC), "--dry-run", "-v"}))
	require.NoError(t, cmd.Run())

	assert.NoFileExists(t, env.snapshot)
}

func TestImportPacksCommand_Flags(t *testing.T) {
	cmd := NewImportPacksCommand()
	assert.ErrorContains(t, cmd.ParseFlags(nil), "file is required")

	cmd = NewImportPacksCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-f", "x.json", "--db", "/tmp/other.db", "--backend", "memory"}))
	assert.Equal(t, "x.json", cmd.File)
	assert.Equal(t, "/tmp/other.db", cmd.store.DatabasePath)
	assert.Equal(t, "memory", cmd.store.Backend)
}

func TestImportPacksCommand_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	cmd := &ImportPacksCommand{cfg: env.config(), File: filepath.Join(env.dir, "missing.json")}
	assert.Error(t, cmd.Run())
}

func TestExportCommand_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.importSeed(t)

	out := filepath.Join(env.dir, "export.json")
	export := &ExportCommand{cfg: env.config()}
	require.NoError(t, export.ParseFlags([]string{"-o", out}))
	require.NoError(t, export.Run())

	other := newTestEnv(t)
	imp := &ImportPacksCommand{cfg: other.config()}
	require.NoError(t, imp.ParseFlags([]string{"-f", out}))
	require.NoError(t, imp.Run())

	pack, err := other.open(t).GetPack(context.Background(), "wp-1")
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.Equal(t, "Find the bottleneck first.", pack.Payload.Examples[entities.CategoryDev][0].En)
}

func TestExportCommand_Markdown(t *testing.T) {
	env := newTestEnv(t)
	env.importSeed(t)

	out := filepath.Join(env.dir, "export.md")
	cmd := &ExportCommand{cfg: env.config()}
	require.NoError(t, cmd.ParseFlags([]string{"--out", out, "--format", "markdown"}))
	require.NoError(t, cmd.Run())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# bottleneck")
	assert.Contains(t, string(data), "- Find the bottleneck first.")
}

func TestExportCommand_MarkdownSplit(t *testing.T) {
	env := newTestEnv(t)
	env.importSeed(t)

	out := filepath.Join(env.dir, "vault")
	cmd := &ExportCommand{cfg: env.config()}
	require.NoError(t, cmd.ParseFlags([]string{"-o", out, "--format", "markdown", "--split"}))
	require.NoError(t, cmd.Run())

	assert.FileExists(t, filepath.Join(out, "bottleneck (wp-1).md"))
	assert.FileExists(t, filepath.Join(out, "queue (wp-2).md"))
}

func TestExportCommand_Flags(t *testing.T) {
	assert.ErrorContains(t, NewExportCommand().ParseFlags(nil), "out is required")
	assert.ErrorContains(t, NewExportCommand().ParseFlags([]string{"-o", "x", "--split"}), "--split requires")
	assert.ErrorContains(t, NewExportCommand().ParseFlags([]string{"-o", "x", "--format", "xml"}), "unknown format")
}

func TestReconcileCommand(t *testing.T) {
	env := newTestEnv(t)
	env.importSeed(t)

	all := &ReconcileCommand{cfg: env.config()}
	require.NoError(t, all.ParseFlags(nil))
	require.NoError(t, all.Run())

	one := &ReconcileCommand{cfg: env.config()}
	require.NoError(t, one.ParseFlags([]string{"--pack", "wp-1"}))
	require.NoError(t, one.Run())

	missing := &ReconcileCommand{cfg: env.config()}
	require.NoError(t, missing.ParseFlags([]string{"-p", "nope"}))
	assert.ErrorContains(t, missing.Run(), "not found")
}

func TestImportArticleCommand_FromHTMLFile(t *testing.T) {
	env := newTestEnv(t)
	env.importSeed(t)

	cmd := &ImportArticleCommand{cfg: env.config()}
	require.NoError(t, cmd.ParseFlags([]string{
		"--url", "https://blog.example.com/queues",
		"--html", env.writeFile(t, "page.html", articleHTML),
	}))
	require.NoError(t, cmd.Run())

	db := env.open(t)
	list, err := db.ListArticles(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://blog.example.com/queues", list[0].SourceURL)

	detail, err := db.GetArticle(context.Background(), list[0].ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Len(t, detail.RelatedPacks, 2)
}

func TestImportArticleCommand_Flags(t *testing.T) {
	assert.ErrorContains(t, NewImportArticleCommand().ParseFlags(nil), "url is required")
}
