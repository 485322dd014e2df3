package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/wordpack/internal/database"
	"github.com/mrlokans/wordpack/internal/database/packs"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/exporters"
	"github.com/mrlokans/wordpack/internal/http"
	"github.com/mrlokans/wordpack/internal/importers"
	"github.com/mrlokans/wordpack/internal/mentions"
	"github.com/mrlokans/wordpack/internal/scheduler"
	"github.com/mrlokans/wordpack/internal/search"
	"github.com/mrlokans/wordpack/internal/tasks"
)

// =============================================================================
// Document Store
// =============================================================================

var _ docstore.Store = (*docstore.MemoryStore)(nil)
var _ docstore.Store = (*docstore.SQLiteStore)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

// HTTP store implementations
var _ http.PackStore = (*database.Database)(nil)
var _ http.ExampleStore = (*database.Database)(nil)
var _ http.ArticleStore = (*database.Database)(nil)
var _ http.UserStore = (*database.Database)(nil)
var _ http.PackCounter = (*database.Database)(nil)

// Export source
var _ exporters.PackReader = (*database.Database)(nil)

// Label source for mention detection
var _ mentions.LabelSource = (*packs.Repository)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

// Converter implementations
var _ importers.Converter = (*importers.SeedConverter)(nil)

// Writers
var _ importers.PackWriter = (*database.Database)(nil)
var _ importers.ArticleWriter = (*database.Database)(nil)

// Article importer, used directly by handlers and through the queue
var _ http.ArticleImporter = (*importers.ArticleImporter)(nil)
var _ tasks.ArticleImporter = (*importers.ArticleImporter)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.Reconciler = (*database.Database)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)

// =============================================================================
// Search
// =============================================================================

var _ search.Analyzer = (*search.JapaneseAnalyzer)(nil)
