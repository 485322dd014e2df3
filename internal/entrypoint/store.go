package entrypoint

import (
	"fmt"
	"log"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/database"
	"github.com/mrlokans/wordpack/internal/database/txpolicy"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/search"
)

// CloseFunc releases a database opened by OpenDatabase.
type CloseFunc func() error

// OpenDatabase opens the configured store backend and wraps it in a Database.
// For the memory backend the snapshot is loaded now and written back on close.
func OpenDatabase(cfg *config.Config) (*database.Database, CloseFunc, error) {
	opts := database.DefaultOptions()
	if cfg.Store.TxMaxAttempts > 0 {
		opts.Policy = txpolicy.Policy{Attempts: cfg.Store.TxMaxAttempts}
	}
	opts.DeleteBatchSize = cfg.Store.DeleteBatchSize
	opts.Hasher = auth.NewHasher(cfg.Auth.BcryptCost)
	if cfg.Search.JapaneseTokens {
		analyzer, err := search.NewJapaneseAnalyzer()
		if err != nil {
			log.Printf("WARNING: Japanese tokenizer unavailable, search terms will use character grams only: %v", err)
		} else {
			opts.Analyzer = analyzer
		}
	}

	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		store := docstore.NewMemoryStore()
		snapshot := cfg.Store.SnapshotPath
		if snapshot != "" {
			if err := store.LoadSnapshot(snapshot); err != nil {
				return nil, nil, fmt.Errorf("load snapshot: %w", err)
			}
			log.Printf("Memory store loaded from %s", snapshot)
		}
		db := database.New(store, opts)
		closeFn := func() error {
			if snapshot != "" {
				if err := store.SaveSnapshot(snapshot); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				log.Printf("Memory store saved to %s", snapshot)
			}
			return db.Close()
		}
		return db, closeFn, nil

	case config.StoreBackendSQLite, "":
		level := logger.Warn
		if cfg.Store.SQLLogLevelDebug {
			level = logger.Info
		}
		store, err := docstore.NewSQLiteStore(cfg.Store.DatabasePath, docstore.WithSQLLogLevel(level))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		db := database.New(store, opts)
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// TasksPath returns the main database path the task queue sits next to, or
// "" to keep the queue in memory.
func TasksPath(cfg *config.Config) string {
	if cfg.Store.Backend == config.StoreBackendMemory {
		return ""
	}
	return cfg.Store.DatabasePath
}
