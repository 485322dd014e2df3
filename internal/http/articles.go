package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/importers"
	"github.com/mrlokans/wordpack/internal/tasks"
)

type ArticlesController struct {
	store    ArticleStore
	importer ArticleImporter
	queue    TaskQueue
}

// NewArticlesController creates the controller. importer and queue may be
// nil, which disables synchronous and queued imports respectively.
func NewArticlesController(store ArticleStore, importer ArticleImporter, queue TaskQueue) *ArticlesController {
	return &ArticlesController{
		store:    store,
		importer: importer,
		queue:    queue,
	}
}

// SaveArticleRequest is the request body for saving an article.
type SaveArticleRequest struct {
	entities.Article
	RelatedPacks []entities.RelatedPack `json:"related_packs"`
}

// ImportArticleRequest is the request body for importing a web page.
type ImportArticleRequest struct {
	URL   string `json:"url" binding:"required"`
	Async bool   `json:"async"`
}

// ListArticles returns articles, newest first.
// GET /api/articles
func (ac *ArticlesController) ListArticles(c *gin.Context) {
	limit, offset := parsePagination(c)

	list, err := ac.store.ListArticles(c.Request.Context(), limit, offset)
	if err != nil {
		respondStoreError(c, err, "list articles")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles": list,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetArticle returns an article with its related packs.
// GET /api/articles/:id
func (ac *ArticlesController) GetArticle(c *gin.Context) {
	article, err := ac.store.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "get article")
		return
	}
	if article == nil {
		respondNotFound(c, "article")
		return
	}
	c.JSON(http.StatusOK, article)
}

// SaveArticle stores an article. An empty id creates a new one.
// POST /api/articles
func (ac *ArticlesController) SaveArticle(c *gin.Context) {
	var req SaveArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.BodySource) == "" {
		respondBadRequest(c, "body_source is required")
		return
	}

	id, err := ac.store.SaveArticle(c.Request.Context(), req.Article, req.RelatedPacks)
	if err != nil {
		respondStoreError(c, err, "save article")
		return
	}
	respondCreated(c, gin.H{"id": id})
}

// DeleteArticle deletes an article and its links.
// DELETE /api/articles/:id
func (ac *ArticlesController) DeleteArticle(c *gin.Context) {
	found, err := ac.store.DeleteArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "delete article")
		return
	}
	if !found {
		respondNotFound(c, "article")
		return
	}
	respondSuccess(c, "article deleted")
}

// ImportArticle fetches a web page and stores its readable text. With
// async=true the import runs as a background task.
// POST /api/articles/import
func (ac *ArticlesController) ImportArticle(c *gin.Context) {
	var req ImportArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if req.Async {
		if ac.queue == nil {
			respondError(c, http.StatusServiceUnavailable, "task queue is not enabled")
			return
		}
		task, err := tasks.Build("import_article", tasks.Params{URL: req.URL})
		if err != nil {
			respondStoreError(c, err, "build import task")
			return
		}
		id, err := ac.queue.Enqueue(task)
		if err != nil {
			respondInternalError(c, err, "enqueue article import")
			return
		}
		respondAccepted(c, "article import enqueued", gin.H{"task_id": id})
		return
	}

	if ac.importer == nil {
		respondError(c, http.StatusServiceUnavailable, "article import is not configured")
		return
	}
	res, err := ac.importer.Import(c.Request.Context(), req.URL)
	switch {
	case errors.Is(err, importers.ErrInvalidURL):
		respondBadRequest(c, err.Error())
	case errors.Is(err, importers.ErrEmptyArticle):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		respondError(c, http.StatusBadGateway, err.Error())
	default:
		respondCreated(c, res)
	}
}
