package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/wordpack/internal/database/users"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/tasks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	id, ok := parseIDParam(c, "id")

	assert.True(t, ok)
	assert.Equal(t, int64(123), id)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseIDParam_Invalid(t *testing.T) {
	for _, value := range []string{"abc", "-1", "0", ""} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: value}}

		id, ok := parseIDParam(c, "id")

		assert.False(t, ok, value)
		assert.Zero(t, id)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid id")
	}
}

func TestParseCategoryParam(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "category", Value: "LLM"}}

	category, ok := parseCategoryParam(c)
	assert.True(t, ok)
	assert.Equal(t, entities.CategoryLLM, category)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "category", Value: "llm"}}

	_, ok = parseCategoryParam(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", defaultPageSize, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=0&offset=-5", defaultPageSize, 0},
		{"?limit=100000", defaultPageSize, 0},
		{"?limit=abc&offset=xyz", defaultPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/"+tt.query, nil)

			limit, offset := parsePagination(c)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := newPaginatedResponse([]int{1, 2}, 5, 2, 2)
	assert.True(t, resp.HasMore)
	assert.Equal(t, 3, resp.TotalPages)

	resp = newPaginatedResponse(nil, 4, 2, 2)
	assert.False(t, resp.HasMore)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestRespondStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: %q", entities.ErrInvalidCategory, "x"), http.StatusBadRequest},
		{"missing task param", tasks.ErrMissingParam, http.StatusBadRequest},
		{"unknown task", tasks.ErrUnknownTaskType, http.StatusNotFound},
		{"conflict", users.ErrUsernameTaken, http.StatusConflict},
		{"aggregation", fmt.Errorf("count: %w", docstore.ErrAggregationUnsupported), http.StatusNotImplemented},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondStoreError(c, tt.err, "test")

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "disk on fire")
			}
		})
	}
}

func TestRespondHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondNotFound(c, "pack")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"pack not found"`)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondAccepted(c, "queued", gin.H{"task_id": "t1"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"task_id":"t1"`)
}
