package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/config"
	http_controllers "github.com/mrlokans/wordpack/internal/http"
	"github.com/mrlokans/wordpack/internal/importers"
	"github.com/mrlokans/wordpack/internal/scheduler"
	"github.com/mrlokans/wordpack/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// SIGKILL cannot be caught, so only SIGINT and SIGTERM trigger a graceful stop.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Background work stops only after the listener has closed.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Wordpack v%s", version)
	log.Printf("Store backend: %s", cfg.Store.Backend)

	db, closeDB, err := OpenDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := closeDB(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	articleImporter := importers.NewArticleImporter(
		importers.NewFetcher(cfg.Articles.FetchTimeout),
		db,
		db.Packs,
	)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(TasksPath(cfg), tasks.FromConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewReconcilePackQueue(db),
			tasks.NewReconcileAllPacksQueue(db),
			tasks.NewImportArticleQueue(articleImporter),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Printf("Task queue disabled, task endpoints will not be registered")
	}

	var reconcileScheduler *scheduler.ReconcileScheduler
	if cfg.Reconcile.Enabled {
		var queue scheduler.Enqueuer
		if taskClient != nil {
			queue = taskClient
		}
		reconcileScheduler = scheduler.NewReconcileScheduler(cfg.Reconcile.Schedule, queue, db)
		if err := reconcileScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start reconcile scheduler: %v", err)
		}
	}

	loginThrottle := auth.NewLoginThrottle(auth.ThrottleConfig{
		MaxFailures: cfg.Auth.LoginMaxFailures,
		Window:      cfg.Auth.LoginWindow,
		Lockout:     cfg.Auth.LoginLockout,
	})

	routerCfg := http_controllers.RouterConfig{
		Database:        db,
		ArticleImporter: articleImporter,
		LoginThrottle:   loginThrottle,
		SecureHeaders:   cfg.HTTP.SecureHeaders,
		Version:         version,
	}
	// Leave TaskQueue as a nil interface when the queue is disabled.
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if reconcileScheduler != nil {
			reconcileScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
