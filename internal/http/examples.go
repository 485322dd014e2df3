package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/database/examples"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/search"
)

type ExamplesController struct {
	store ExampleStore
}

func NewExamplesController(store ExampleStore) *ExamplesController {
	return &ExamplesController{store: store}
}

// DeleteExamplesRequest lists example ids to delete.
type DeleteExamplesRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// TypingPracticeRequest records one typing attempt.
type TypingPracticeRequest struct {
	InputLength int `json:"input_length"`
}

// parseListOptions reads listing filters from the query string. On failure
// it has already responded.
func parseListOptions(c *gin.Context, paged bool) (examples.ListOptions, bool) {
	var opts examples.ListOptions
	if paged {
		opts.Limit, opts.Offset = parsePagination(c)
	}

	mode, err := search.ParseMode(c.Query("mode"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return opts, false
	}
	opts.Mode = mode
	opts.Search = c.Query("search")

	if raw := c.Query("category"); raw != "" {
		category, err := entities.ParseCategory(raw)
		if err != nil {
			respondBadRequest(c, err.Error())
			return opts, false
		}
		opts.Category = category
	}

	opts.OrderBy = c.Query("order_by")
	switch strings.ToLower(c.DefaultQuery("order_dir", "desc")) {
	case "asc":
		opts.OrderDir = docstore.Asc
	case "desc":
		opts.OrderDir = docstore.Desc
	default:
		respondBadRequest(c, "order_dir must be asc or desc")
		return opts, false
	}
	return opts, true
}

// ListExamples returns a page of examples across packs.
// GET /api/examples?limit=&offset=&search=&mode=&category=&order_by=&order_dir=
func (ec *ExamplesController) ListExamples(c *gin.Context) {
	opts, ok := parseListOptions(c, true)
	if !ok {
		return
	}

	list, err := ec.store.ListExamples(c.Request.Context(), opts)
	if err != nil {
		respondStoreError(c, err, "list examples")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"examples": list,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// CountExamples counts examples matching the same filters as ListExamples.
// Stores without aggregation support answer 501.
// GET /api/examples/count
func (ec *ExamplesController) CountExamples(c *gin.Context) {
	opts, ok := parseListOptions(c, false)
	if !ok {
		return
	}

	total, err := ec.store.CountExamples(c.Request.Context(), opts)
	if err != nil {
		respondStoreError(c, err, "count examples")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

// DeleteExamples deletes examples by id.
// POST /api/examples/delete
func (ec *ExamplesController) DeleteExamples(c *gin.Context) {
	var req DeleteExamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	deleted, notFound, err := ec.store.DeleteExamplesByIDs(c.Request.Context(), req.IDs)
	if err != nil {
		respondStoreError(c, err, "delete examples")
		return
	}
	if notFound == nil {
		notFound = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted":   deleted,
		"not_found": notFound,
	})
}

// UpdateStudyProgress applies counter deltas to an example.
// POST /api/examples/:id/progress
func (ec *ExamplesController) UpdateStudyProgress(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req StudyProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	progress, err := ec.store.UpdateExampleStudyProgress(c.Request.Context(), id, req.CheckedDelta, req.LearnedDelta)
	if err != nil {
		respondStoreError(c, err, "update example progress")
		return
	}
	if progress == nil {
		respondNotFound(c, "example")
		return
	}
	c.JSON(http.StatusOK, progress)
}

// RecordTyping adds a typing attempt to an example's practice total.
// POST /api/examples/:id/typing
func (ec *ExamplesController) RecordTyping(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req TypingPracticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	total, found, err := ec.store.UpdateExampleTypingPractice(c.Request.Context(), id, req.InputLength)
	if err != nil {
		respondStoreError(c, err, "record typing practice")
		return
	}
	if !found {
		respondNotFound(c, "example")
		return
	}
	c.JSON(http.StatusOK, gin.H{"typing_practice_chars": total})
}
