package database

import (
	"context"
	"log"

	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
)

// ReconcilePack re-contiguates positions in every category of a pack and
// recomputes its category counts. It reports false when the pack does not exist.
func (d *Database) ReconcilePack(ctx context.Context, id string) (bool, error) {
	pack, err := d.Packs.Get(ctx, id)
	if err != nil || pack == nil {
		return false, err
	}
	for _, c := range entities.Categories {
		if _, err := d.Examples.Reindex(ctx, id, c); err != nil {
			return true, err
		}
	}
	return true, d.refreshCounts(ctx, id)
}

// ReconcileAll reconciles every pack and returns how many were processed.
func (d *Database) ReconcileAll(ctx context.Context) (int, error) {
	var ids []string
	err := d.Packs.Each(ctx, func(docs []*docstore.Document) error {
		for _, doc := range docs {
			ids = append(ids, doc.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		ok, err := d.ReconcilePack(ctx, id)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	log.Printf("Reconciled %d packs", n)
	return n, nil
}
