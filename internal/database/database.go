package database

import (
	"log"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/database/articles"
	"github.com/mrlokans/wordpack/internal/database/counters"
	"github.com/mrlokans/wordpack/internal/database/examples"
	"github.com/mrlokans/wordpack/internal/database/lemmas"
	"github.com/mrlokans/wordpack/internal/database/packs"
	"github.com/mrlokans/wordpack/internal/database/txpolicy"
	"github.com/mrlokans/wordpack/internal/database/users"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/search"
)

// Options configures a Database.
type Options struct {
	// Policy bounds the transactional phase of lemma upserts and id allocation.
	Policy txpolicy.Policy

	// DeleteBatchSize caps each batched delete. Default: 450
	DeleteBatchSize int

	// Analyzer adds Japanese morphemes to example search terms. Optional.
	Analyzer search.Analyzer

	// Hasher hashes user passwords.
	Hasher auth.Hasher
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Policy:          txpolicy.DefaultPolicy(),
		DeleteBatchSize: examples.DefaultBatchSize,
		Hasher:          auth.NewHasher(0),
	}
}

// Database is the record store used by handlers, tasks and commands.
type Database struct {
	store docstore.Store

	Lemmas   *lemmas.Repository
	Packs    *packs.Repository
	Examples *examples.Repository
	Articles *articles.Repository
	Users    *users.Repository
}

// New builds a Database over store.
func New(store docstore.Store, opts Options) *Database {
	if opts.DeleteBatchSize <= 0 || opts.DeleteBatchSize > docstore.MaxBatchWrites {
		opts.DeleteBatchSize = examples.DefaultBatchSize
	}
	ids := counters.NewAllocator(store, opts.Policy)
	indexer := search.NewIndexer(opts.Analyzer)

	log.Printf("Database initialized (tx attempts: %d, delete batch: %d)", opts.Policy.Attempts, opts.DeleteBatchSize)

	return &Database{
		store:    store,
		Lemmas:   lemmas.NewRepository(store, opts.Policy),
		Packs:    packs.NewRepository(store),
		Examples: examples.NewRepository(store, ids, indexer, opts.DeleteBatchSize),
		Articles: articles.NewRepository(store, opts.DeleteBatchSize),
		Users:    users.NewRepository(store, opts.Hasher),
	}
}

// Store returns the underlying document store.
func (d *Database) Store() docstore.Store {
	return d.store
}

// Close closes the underlying store.
func (d *Database) Close() error {
	return d.store.Close()
}
