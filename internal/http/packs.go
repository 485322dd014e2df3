package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/entities"
)

type PacksController struct {
	store PackStore
}

func NewPacksController(store PackStore) *PacksController {
	return &PacksController{store: store}
}

// SavePackRequest is the request body for saving a pack.
type SavePackRequest struct {
	Label   string               `json:"label" binding:"required"`
	Payload entities.PackPayload `json:"payload"`
}

// StudyProgressRequest carries counter deltas. Omitted deltas are zero.
type StudyProgressRequest struct {
	CheckedDelta int `json:"checked_delta"`
	LearnedDelta int `json:"learned_delta"`
}

// AppendExamplesRequest is the request body for appending examples.
type AppendExamplesRequest struct {
	Examples []entities.ExampleItem `json:"examples" binding:"required"`
}

// ListPacks returns packs, most recently updated first.
// GET /api/packs?limit=&offset=&flags=true
func (pc *PacksController) ListPacks(c *gin.Context) {
	limit, offset := parsePagination(c)
	ctx := c.Request.Context()

	var (
		list []entities.PackSummary
		err  error
	)
	if c.Query("flags") == "true" {
		list, err = pc.store.ListPacksWithFlags(ctx, limit, offset)
	} else {
		list, err = pc.store.ListPacks(ctx, limit, offset)
	}
	if err != nil {
		respondStoreError(c, err, "list packs")
		return
	}

	total, err := pc.store.CountPacks(ctx)
	if err != nil {
		respondStoreError(c, err, "count packs")
		return
	}

	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// GetPack returns one pack with its examples.
// GET /api/packs/:id
func (pc *PacksController) GetPack(c *gin.Context) {
	pack, err := pc.store.GetPack(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "get pack")
		return
	}
	if pack == nil {
		respondNotFound(c, "pack")
		return
	}
	c.JSON(http.StatusOK, pack)
}

// SavePack creates or replaces a pack and returns the stored result.
// PUT /api/packs/:id
func (pc *PacksController) SavePack(c *gin.Context) {
	var req SavePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := pc.store.UpsertPack(ctx, id, req.Label, req.Payload); err != nil {
		respondStoreError(c, err, "save pack")
		return
	}

	pack, err := pc.store.GetPack(ctx, strings.TrimSpace(id))
	if err != nil {
		respondStoreError(c, err, "get pack")
		return
	}
	c.JSON(http.StatusOK, pack)
}

// DeletePack deletes a pack and its examples.
// DELETE /api/packs/:id
func (pc *PacksController) DeletePack(c *gin.Context) {
	found, err := pc.store.DeletePack(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "delete pack")
		return
	}
	if !found {
		respondNotFound(c, "pack")
		return
	}
	respondSuccess(c, "pack deleted")
}

// LookupPack finds a pack by label, ignoring case. With id_only=true only
// the id is returned and an exact label match is preferred.
// GET /api/packs/lookup?label=&id_only=
func (pc *PacksController) LookupPack(c *gin.Context) {
	label := strings.TrimSpace(c.Query("label"))
	if label == "" {
		respondBadRequest(c, "label is required")
		return
	}
	ctx := c.Request.Context()

	if c.Query("id_only") == "true" {
		id, err := pc.store.FindPackIDByLabel(ctx, label)
		if err != nil {
			respondStoreError(c, err, "find pack by label")
			return
		}
		if id == "" {
			respondNotFound(c, "pack")
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
		return
	}

	pack, err := pc.store.FindPackByLabelCaseInsensitive(ctx, label)
	if err != nil {
		respondStoreError(c, err, "find pack by label")
		return
	}
	if pack == nil {
		respondNotFound(c, "pack")
		return
	}
	c.JSON(http.StatusOK, pack)
}

// UpdateStudyProgress applies counter deltas to a pack.
// POST /api/packs/:id/progress
func (pc *PacksController) UpdateStudyProgress(c *gin.Context) {
	var req StudyProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	progress, err := pc.store.UpdatePackStudyProgress(c.Request.Context(), c.Param("id"), req.CheckedDelta, req.LearnedDelta)
	if err != nil {
		respondStoreError(c, err, "update pack progress")
		return
	}
	if progress == nil {
		respondNotFound(c, "pack")
		return
	}
	c.JSON(http.StatusOK, progress)
}

// AppendExamples adds examples to the end of a category.
// POST /api/packs/:id/examples/:category
func (pc *PacksController) AppendExamples(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	var req AppendExamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	added, found, err := pc.store.AppendExamples(c.Request.Context(), c.Param("id"), category, req.Examples)
	if err != nil {
		respondStoreError(c, err, "append examples")
		return
	}
	if !found {
		respondNotFound(c, "pack")
		return
	}
	respondCreated(c, gin.H{"added": added, "category": category})
}

// DeleteExample removes the example at index within a category.
// DELETE /api/packs/:id/examples/:category/:index
func (pc *PacksController) DeleteExample(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondBadRequest(c, "invalid index")
		return
	}

	remaining, found, err := pc.store.DeleteExample(c.Request.Context(), c.Param("id"), category, index)
	if err != nil {
		respondStoreError(c, err, "delete example")
		return
	}
	if !found {
		respondNotFound(c, "example")
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining": remaining, "category": category})
}

// DeleteLemma removes a lemma record. Packs referencing it are kept.
// DELETE /api/lemmas/:key
func (pc *PacksController) DeleteLemma(c *gin.Context) {
	found, err := pc.store.DeleteLemma(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondStoreError(c, err, "delete lemma")
		return
	}
	if !found {
		respondNotFound(c, "lemma")
		return
	}
	respondSuccess(c, "lemma deleted")
}
