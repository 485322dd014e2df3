package http

import (
	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	// Article import (optional). Without it only queued imports work.
	ArticleImporter ArticleImporter

	// Task queue (optional). Task endpoints are only registered when set.
	TaskQueue TaskQueue

	// Login throttling (optional)
	LoginThrottle *auth.LoginThrottle

	// Serve HSTS headers
	SecureHeaders bool

	// Application info
	Version string
}
