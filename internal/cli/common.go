package cli

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/database"
	"github.com/mrlokans/wordpack/internal/entrypoint"
)

// storeFlags are the store overrides shared by every command. Unset flags keep
// the environment configuration.
type storeFlags struct {
	DatabasePath string
	Backend      string
	SnapshotPath string
}

func (s *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.DatabasePath, "db", "", "Path to the SQLite store (default from DATABASE_PATH)")
	fs.StringVar(&s.Backend, "backend", "", "Store backend: sqlite or memory (default from STORE_BACKEND)")
	fs.StringVar(&s.SnapshotPath, "snapshot", "", "Snapshot file for the memory backend (default from MEMORY_SNAPSHOT_PATH)")
}

func (s *storeFlags) apply(cfg *config.Config) {
	if s.DatabasePath != "" {
		cfg.Store.DatabasePath = s.DatabasePath
	}
	if s.Backend != "" {
		cfg.Store.Backend = config.StoreBackend(s.Backend)
	}
	if s.SnapshotPath != "" {
		cfg.Store.SnapshotPath = s.SnapshotPath
	}
}

// openDatabase opens the configured store. The returned func must be called
// to flush and release it.
func openDatabase(cfg *config.Config, s storeFlags) (*database.Database, func(), error) {
	s.apply(cfg)
	db, closeDB, err := entrypoint.OpenDatabase(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, func() {
		if err := closeDB(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing database: %v\n", err)
		}
	}, nil
}

func newFlagSet(name, summary string, examples ...string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n", os.Args[0], name)
		fmt.Fprintf(os.Stderr, "%s\n\n", summary)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		if len(examples) > 0 {
			fmt.Fprintf(os.Stderr, "\nExamples:\n")
			for _, ex := range examples {
				fmt.Fprintf(os.Stderr, "  %s %s\n", os.Args[0], ex)
			}
		}
	}
	return fs
}
