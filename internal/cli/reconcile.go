package cli

import (
	"context"
	"fmt"

	"github.com/mrlokans/wordpack/internal/config"
)

type ReconcileCommand struct {
	PackID string
	store  storeFlags
	cfg    *config.Config
}

func NewReconcileCommand() *ReconcileCommand {
	return &ReconcileCommand{cfg: config.NewConfig()}
}

func (cmd *ReconcileCommand) ParseFlags(args []string) error {
	fs := newFlagSet("reconcile",
		"Recompute cached per-category example counts from the stored examples.",
		"reconcile",
		"reconcile --pack wp-123",
	)

	fs.StringVarP(&cmd.PackID, "pack", "p", "", "Reconcile a single pack (default: all packs)")
	cmd.store.register(fs)

	return fs.Parse(args)
}

func (cmd *ReconcileCommand) Run() error {
	db, closeDB, err := openDatabase(cmd.cfg, cmd.store)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	if cmd.PackID != "" {
		found, err := db.ReconcilePack(ctx, cmd.PackID)
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}
		if !found {
			return fmt.Errorf("pack %s not found", cmd.PackID)
		}
		fmt.Printf("Reconciled pack %s\n", cmd.PackID)
		return nil
	}

	n, err := db.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("reconcile failed after %d packs: %w", n, err)
	}
	fmt.Printf("Reconciled %d packs\n", n)
	return nil
}
