package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureHeaders {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	var health *HealthController
	if cfg.Database != nil {
		health = NewHealthController(cfg.Database, cfg.Version)
	} else {
		health = NewHealthController(nil, cfg.Version)
	}

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.Database != nil {
		packsController := NewPacksController(cfg.Database)
		examplesController := NewExamplesController(cfg.Database)
		articlesController := NewArticlesController(cfg.Database, cfg.ArticleImporter, cfg.TaskQueue)
		usersController := NewUsersController(cfg.Database, cfg.LoginThrottle)

		// Packs
		router.GET("/api/packs", packsController.ListPacks)
		router.GET("/api/packs/lookup", packsController.LookupPack)
		router.GET("/api/packs/:id", packsController.GetPack)
		router.PUT("/api/packs/:id", packsController.SavePack)
		router.DELETE("/api/packs/:id", packsController.DeletePack)
		router.POST("/api/packs/:id/progress", packsController.UpdateStudyProgress)
		router.POST("/api/packs/:id/examples/:category", packsController.AppendExamples)
		router.DELETE("/api/packs/:id/examples/:category/:index", packsController.DeleteExample)
		router.DELETE("/api/lemmas/:key", packsController.DeleteLemma)

		// Examples
		router.GET("/api/examples", examplesController.ListExamples)
		router.GET("/api/examples/count", examplesController.CountExamples)
		router.POST("/api/examples/delete", examplesController.DeleteExamples)
		router.POST("/api/examples/:id/progress", examplesController.UpdateStudyProgress)
		router.POST("/api/examples/:id/typing", examplesController.RecordTyping)

		// Articles
		router.GET("/api/articles", articlesController.ListArticles)
		router.POST("/api/articles", articlesController.SaveArticle)
		router.POST("/api/articles/import", articlesController.ImportArticle)
		router.GET("/api/articles/:id", articlesController.GetArticle)
		router.DELETE("/api/articles/:id", articlesController.DeleteArticle)

		// Users
		router.POST("/api/users", usersController.CreateUser)
		router.POST("/api/users/authenticate", usersController.Authenticate)
		router.GET("/api/users/:username", usersController.GetUser)
		router.DELETE("/api/users/:username", usersController.DeleteUser)
	}

	// Task management endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
