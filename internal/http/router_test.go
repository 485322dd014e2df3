package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/database"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/importers"
	"github.com/mrlokans/wordpack/internal/tasks"
)

func newTestDatabase(t *testing.T, opts ...docstore.MemoryOption) *database.Database {
	t.Helper()
	dbOpts := database.DefaultOptions()
	dbOpts.Hasher = auth.NewHasher(bcrypt.MinCost)
	db := database.New(docstore.NewMemoryStore(opts...), dbOpts)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeQueue struct {
	tasks  []backlite.Task
	status backlite.TaskStatus
}

func (q *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func (q *fakeQueue) Status(context.Context, string) (backlite.TaskStatus, error) {
	return q.status, nil
}

type fakeArticleImporter struct {
	err error
}

func (f fakeArticleImporter) Import(_ context.Context, rawURL string) (*importers.ArticleResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &importers.ArticleResult{ArticleID: "art-1", Title: "Imported"}, nil
}

type testServer struct {
	router *gin.Engine
	db     *database.Database
	queue  *fakeQueue
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	if cfg.Database == nil {
		cfg.Database = newTestDatabase(t)
	}
	q := &fakeQueue{status: backlite.TaskStatusSuccess}
	if cfg.TaskQueue == nil {
		cfg.TaskQueue = q
	}
	return &testServer{router: NewRouter(cfg), db: cfg.Database, queue: q}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func samplePack() SavePackRequest {
	return SavePackRequest{
		Label: "bottleneck",
		Payload: entities.PackPayload{
			SenseTitle: "narrow point",
			Examples: map[entities.Category][]entities.ExampleItem{
				entities.CategoryDev: {
					{En: "Resolve the bottleneck.", Ja: "ボトルネックを解消する。"},
					{En: "The database is the bottleneck.", Ja: "データベースがボトルネックだ。"},
				},
			},
			Core: json.RawMessage(`{"pronunciation":"ˈbɒt.əl.nek"}`),
		},
	}
}

func TestPacksAPI(t *testing.T) {
	s := newTestServer(t, RouterConfig{Version: "test"})

	w := s.do(t, "PUT", "/api/packs/wp-1", samplePack())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pack := decode[entities.PackDetail](t, w)
	assert.Equal(t, "bottleneck", pack.Label)
	assert.Len(t, pack.Payload.Examples[entities.CategoryDev], 2)
	assert.Equal(t, entities.Count(2), pack.CategoryCounts[entities.CategoryDev])
	assert.JSONEq(t, `{"pronunciation":"ˈbɒt.əl.nek"}`, string(pack.Payload.Core))

	w = s.do(t, "GET", "/api/packs/wp-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/api/packs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "PUT", "/api/packs/wp-2", SavePackRequest{Label: "x", Payload: entities.PackPayload{
		Examples: map[entities.Category][]entities.ExampleItem{"Poetry": {{En: "a"}}},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "PUT", "/api/packs/wp-2", map[string]any{"payload": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "label is required")

	w = s.do(t, "GET", "/api/packs?flags=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Data  []entities.PackSummary `json:"data"`
		Total int64                  `json:"total"`
	}](t, w)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Data, 1)
	assert.False(t, page.Data[0].IsEmpty)

	w = s.do(t, "GET", "/api/packs/lookup?label=BOTTLENECK", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "wp-1", decode[entities.PackSummary](t, w).ID)

	w = s.do(t, "GET", "/api/packs/lookup?label=BOTTLENECK&id_only=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"wp-1"}`, w.Body.String())

	w = s.do(t, "GET", "/api/packs/lookup?label=throughput&id_only=true", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "GET", "/api/packs/lookup?label=throughput", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "GET", "/api/packs/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/packs/wp-1/progress", StudyProgressRequest{CheckedDelta: 2, LearnedDelta: -1})
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[entities.StudyProgress](t, w)
	assert.Equal(t, entities.Count(2), progress.CheckedCount)
	assert.Equal(t, entities.Count(0), progress.LearnedCount)

	w = s.do(t, "POST", "/api/packs/missing/progress", StudyProgressRequest{CheckedDelta: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "DELETE", "/api/packs/wp-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "DELETE", "/api/packs/wp-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "DELETE", "/api/lemmas/bottleneck", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "DELETE", "/api/lemmas/bottleneck", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPackExamplesAPI(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	require.Equal(t, http.StatusOK, s.do(t, "PUT", "/api/packs/wp-1", samplePack()).Code)

	w := s.do(t, "POST", "/api/packs/wp-1/examples/Common", AppendExamplesRequest{
		Examples: []entities.ExampleItem{{En: "Traffic hit a bottleneck."}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"added":1,"category":"Common"}`, w.Body.String())

	w = s.do(t, "POST", "/api/packs/wp-1/examples/Common", AppendExamplesRequest{
		Examples: []entities.ExampleItem{{En: "  "}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/packs/wp-1/examples/Nope", AppendExamplesRequest{
		Examples: []entities.ExampleItem{{En: "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/packs/missing/examples/Common", AppendExamplesRequest{
		Examples: []entities.ExampleItem{{En: "x"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "DELETE", "/api/packs/wp-1/examples/Dev/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"remaining":1,"category":"Dev"}`, w.Body.String())

	w = s.do(t, "DELETE", "/api/packs/wp-1/examples/Dev/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "DELETE", "/api/packs/wp-1/examples/Dev/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pack, err := s.db.GetPack(context.Background(), "wp-1")
	require.NoError(t, err)
	assert.Equal(t, entities.Count(1), pack.CategoryCounts[entities.CategoryDev])
	assert.Equal(t, entities.Count(1), pack.CategoryCounts[entities.CategoryCommon])
}

func TestExamplesAPI(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	require.Equal(t, http.StatusOK, s.do(t, "PUT", "/api/packs/wp-1", samplePack()).Code)

	type listResponse struct {
		Examples []entities.ExampleView `json:"examples"`
	}

	w := s.do(t, "GET", "/api/examples?search=Resol&mode=prefix", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[listResponse](t, w)
	require.Len(t, list.Examples, 1)
	assert.Equal(t, "Resolve the bottleneck.", list.Examples[0].En)
	assert.Equal(t, "bottleneck", list.Examples[0].PackLabel)
	id := list.Examples[0].ID

	w = s.do(t, "GET", "/api/examples?order_by=position&order_dir=asc&category=Dev", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[listResponse](t, w)
	require.Len(t, list.Examples, 2)
	assert.Equal(t, 0, list.Examples[0].Position)

	for _, bad := range []string{"?mode=fuzzy", "?category=dev", "?order_by=ja", "?order_dir=sideways"} {
		w = s.do(t, "GET", "/api/examples"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w = s.do(t, "GET", "/api/examples/count?category=Dev", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":2}`, w.Body.String())

	w = s.do(t, "POST", "/api/examples/"+strconv.FormatInt(id, 10)+"/progress", StudyProgressRequest{LearnedDelta: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.Count(1), decode[entities.StudyProgress](t, w).LearnedCount)

	w = s.do(t, "POST", "/api/examples/999999/progress", StudyProgressRequest{LearnedDelta: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "POST", "/api/examples/"+strconv.FormatInt(id, 10)+"/typing", TypingPracticeRequest{InputLength: 22})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"typing_practice_chars":22}`, w.Body.String())

	w = s.do(t, "POST", "/api/examples/"+strconv.FormatInt(id, 10)+"/typing", TypingPracticeRequest{InputLength: 40})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/examples/delete", DeleteExamplesRequest{IDs: []int64{id, 424242}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1,"not_found":[424242]}`, w.Body.String())
}

func TestCountExamples_WithoutAggregation(t *testing.T) {
	s := newTestServer(t, RouterConfig{Database: newTestDatabase(t, docstore.WithoutAggregation())})

	w := s.do(t, "GET", "/api/examples/count", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestArticlesAPI(t *testing.T) {
	s := newTestServer(t, RouterConfig{ArticleImporter: fakeArticleImporter{}})
	require.Equal(t, http.StatusOK, s.do(t, "PUT", "/api/packs/wp-1", samplePack()).Code)

	w := s.do(t, "POST", "/api/articles", SaveArticleRequest{
		Article:      entities.Article{Title: "Queues", BodySource: "Every queue has a bottleneck."},
		RelatedPacks: []entities.RelatedPack{{PackID: "wp-1", Label: "bottleneck", Status: entities.LinkStatusExisting}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]string](t, w)["id"]
	require.NotEmpty(t, id)

	w = s.do(t, "GET", "/api/articles/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[entities.ArticleDetail](t, w)
	assert.Equal(t, "Queues", detail.Title)
	require.Len(t, detail.RelatedPacks, 1)
	assert.Equal(t, "wp-1", detail.RelatedPacks[0].PackID)

	w = s.do(t, "GET", "/api/articles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Articles []entities.Article `json:"articles"`
	}](t, w).Articles, 1)

	w = s.do(t, "POST", "/api/articles", SaveArticleRequest{Article: entities.Article{Title: "Empty"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/articles", SaveArticleRequest{
		Article:      entities.Article{BodySource: "text"},
		RelatedPacks: []entities.RelatedPack{{PackID: "wp-1", Status: "maybe"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "DELETE", "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "GET", "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, "DELETE", "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportArticleAPI(t *testing.T) {
	t.Run("synchronous", func(t *testing.T) {
		s := newTestServer(t, RouterConfig{ArticleImporter: fakeArticleImporter{}})

		w := s.do(t, "POST", "/api/articles/import", ImportArticleRequest{URL: "https://example.com/post"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "art-1", decode[importers.ArticleResult](t, w).ArticleID)
	})

	t.Run("asynchronous", func(t *testing.T) {
		s := newTestServer(t, RouterConfig{})

		w := s.do(t, "POST", "/api/articles/import", ImportArticleRequest{URL: "https://example.com/post", Async: true})
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, s.queue.tasks, 1)
		assert.Equal(t, tasks.ImportArticleTask{URL: "https://example.com/post"}, s.queue.tasks[0])
	})

	t.Run("errors", func(t *testing.T) {
		s := newTestServer(t, RouterConfig{ArticleImporter: fakeArticleImporter{err: importers.ErrInvalidURL}})
		w := s.do(t, "POST", "/api/articles/import", ImportArticleRequest{URL: "ftp://x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		s = newTestServer(t, RouterConfig{ArticleImporter: fakeArticleImporter{err: importers.ErrEmptyArticle}})
		w = s.do(t, "POST", "/api/articles/import", ImportArticleRequest{URL: "https://example.com"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		s = newTestServer(t, RouterConfig{ArticleImporter: fakeArticleImporter{err: errors.New("unexpected status: 500")}})
		w = s.do(t, "POST", "/api/articles/import", ImportArticleRequest{URL: "https://example.com"})
		assert.Equal(t, http.StatusBadGateway, w.Code)

		s = newTestServer(t, RouterConfig{})
		w = s.do(t, "POST", "/api/articles/import", ImportArticleRequest{URL: "https://example.com"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		w = s.do(t, "POST", "/api/articles/import", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUsersAPI(t *testing.T) {
	throttle := auth.NewLoginThrottle(auth.ThrottleConfig{MaxFailures: 2})
	s := newTestServer(t, RouterConfig{LoginThrottle: throttle})

	w := s.do(t, "POST", "/api/users", CreateUserRequest{Username: "Alice", Email: "alice@example.com", Password: "correct horse battery"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, "POST", "/api/users", CreateUserRequest{Username: "alice", Password: "correct horse battery"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, "POST", "/api/users", CreateUserRequest{Username: "bob", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", "/api/users/ALICE", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", decode[entities.PublicUser](t, w).Username)

	w = s.do(t, "POST", "/api/users/authenticate", LoginRequest{Username: "alice", Password: "correct horse battery"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "POST", "/api/users/authenticate", LoginRequest{Username: "alice", Password: "wrong horse battery"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, "POST", "/api/users/authenticate", LoginRequest{Username: "alice", Password: "wrong horse battery"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "POST", "/api/users/authenticate", LoginRequest{Username: "alice", Password: "correct horse battery"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// The lockout follows the account, however the username is spelled.
	w = s.do(t, "POST", "/api/users/authenticate", LoginRequest{Username: "  ALICE ", Password: "correct horse battery"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do(t, "DELETE", "/api/users/alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "GET", "/api/users/alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, "DELETE", "/api/users/alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasksAPI(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	w := s.do(t, "GET", "/api/tasks/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	types := decode[struct {
		TaskTypes []tasks.TypeInfo `json:"task_types"`
	}](t, w).TaskTypes
	assert.Len(t, types, len(tasks.Types()))

	w = s.do(t, "POST", "/api/tasks/reconcile_pack/run", tasks.Params{PackID: "wp-1"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"task_id":"task-1"`)
	assert.Equal(t, tasks.ReconcilePackTask{PackID: "wp-1"}, s.queue.tasks[0])

	w = s.do(t, "POST", "/api/tasks/reconcile_all_packs/run", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, tasks.ReconcileAllPacksTask{}, s.queue.tasks[1])

	req := httptest.NewRequest("POST", "/api/tasks/import_article/run", bytes.NewBufferString("url=https%3A%2F%2Fexample.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, tasks.ImportArticleTask{URL: "https://example.com"}, s.queue.tasks[2])

	w = s.do(t, "POST", "/api/tasks/reconcile_pack/run", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/tasks/enrich_book/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "GET", "/api/tasks/task-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"task-1","status":"success"}`, w.Body.String())
}

func TestRouter_WithoutTaskQueue(t *testing.T) {
	router := NewRouter(RouterConfig{Database: newTestDatabase(t)})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/tasks/types", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
