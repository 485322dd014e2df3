package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type StoreBackend string

const (
	StoreBackendSQLite StoreBackend = "sqlite" // Durable SQLite-backed document store (default)
	StoreBackendMemory StoreBackend = "memory" // In-process store, optionally snapshotted to disk
)

type (
	Config struct {
		HTTP
		Global
		Store
		Search
		Tasks
		Reconcile
		Auth
		Articles
	}

	HTTP struct {
		Port          int32
		Host          string
		SecureHeaders bool // Send HSTS when served over TLS or behind a TLS proxy
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Store struct {
		Backend          StoreBackend
		DatabasePath     string
		SnapshotPath     string // Memory backend only; empty disables snapshots
		TxMaxAttempts    int
		DeleteBatchSize  int
		SQLLogLevelDebug bool
	}
	Search struct {
		JapaneseTokens bool // Add kagome morphemes to example search terms
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Reconcile struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Auth struct {
		BcryptCost       int
		LoginMaxFailures int
		LoginWindow      time.Duration
		LoginLockout     time.Duration
	}
	Articles struct {
		FetchTimeout time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("secure_headers", false)

	// Store defaults
	v.SetDefault("store_backend", string(StoreBackendSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("memory_snapshot_path", "")
	v.SetDefault("tx_max_attempts", 3)
	v.SetDefault("delete_batch_size", 450)
	v.SetDefault("store_sql_debug", false)

	v.SetDefault("search_japanese_tokens", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("reconcile_enabled", false)
	v.SetDefault("reconcile_schedule", "30 3 * * *")

	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_login_max_failures", 5)
	v.SetDefault("auth_login_window", "15m")
	v.SetDefault("auth_login_lockout", "30m")
	v.SetDefault("article_fetch_timeout", "20s")

	return &Config{
		HTTP: HTTP{
			Port:          v.GetInt32("PORT"),
			Host:          v.GetString("HOST"),
			SecureHeaders: v.GetBool("SECURE_HEADERS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Store: Store{
			Backend:          StoreBackend(strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND")))),
			DatabasePath:     v.GetString("DATABASE_PATH"),
			SnapshotPath:     v.GetString("MEMORY_SNAPSHOT_PATH"),
			TxMaxAttempts:    v.GetInt("TX_MAX_ATTEMPTS"),
			DeleteBatchSize:  v.GetInt("DELETE_BATCH_SIZE"),
			SQLLogLevelDebug: v.GetBool("STORE_SQL_DEBUG"),
		},
		Search: Search{
			JapaneseTokens: v.GetBool("SEARCH_JAPANESE_TOKENS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Reconcile: Reconcile{
			Enabled:  v.GetBool("RECONCILE_ENABLED"),
			Schedule: v.GetString("RECONCILE_SCHEDULE"),
		},
		Auth: Auth{
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			LoginMaxFailures: v.GetInt("AUTH_LOGIN_MAX_FAILURES"),
			LoginWindow:      v.GetDuration("AUTH_LOGIN_WINDOW"),
			LoginLockout:     v.GetDuration("AUTH_LOGIN_LOCKOUT"),
		},
		Articles: Articles{
			FetchTimeout: v.GetDuration("ARTICLE_FETCH_TIMEOUT"),
		},
	}
}
