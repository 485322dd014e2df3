// Package database provides the record store for packs, examples, articles
// and users on top of a document store.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Database façade construction
//	├── txpolicy/        # Transaction-then-fallback strategy runner
//	├── counters/        # Sequential example id allocation
//	├── lemmas/          # Canonical lemma records (one per normalized label)
//	├── packs/           # Pack records and cached category counts
//	├── examples/        # Example sentences, positions and search fields
//	├── articles/        # Articles and their pack links
//	└── users/           # User accounts
//
// The document store only guarantees single-document atomicity, so the
// façade emulates what a relational engine would provide: unique lemma keys,
// cascading example deletes, auto-increment ids, per-category counters and
// approximate text search.
//
// # Usage
//
//	store, err := docstore.NewSQLiteStore("./wordpack.db")
//	db := database.New(store, database.DefaultOptions())
//
//	err = db.UpsertPack(ctx, "wp-1", "bottleneck", payload)
//	detail, err := db.GetPack(ctx, "wp-1")
//
// # Errors
//
// Lookups report not-found as a nil result or found=false, never as an error.
// Validation failures are sentinel errors checked with errors.Is:
// lemmas.ErrEmptyLabel, entities.ErrInvalidCategory, ErrEmptyPackID,
// ErrEmptyExample, examples.ErrInvalidTypingInput, examples.ErrInvalidOrderField
// and search.ErrInvalidMode. CountExamples wraps
// docstore.ErrAggregationUnsupported when the store cannot count.
//
// # Consistency
//
// Category counts are recomputed from the stored examples after every
// mutation rather than adjusted incrementally. Lemma creation and id
// allocation run in a short transaction when the store supports one and fall
// back to a non-transactional path otherwise; see package txpolicy.
package database
