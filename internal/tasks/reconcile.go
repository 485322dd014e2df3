package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// Reconciler repairs cached pack aggregates and example positions.
type Reconciler interface {
	ReconcilePack(ctx context.Context, id string) (bool, error)
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcilePackTask recomputes one pack's category counts and positions.
type ReconcilePackTask struct {
	PackID string `json:"pack_id"`
}

// Config returns the queue configuration for single-pack reconciliation.
func (t ReconcilePackTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_pack",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcilePackProcessor creates a processor function for ReconcilePackTask.
func ReconcilePackProcessor(r Reconciler) backlite.QueueProcessor[ReconcilePackTask] {
	return func(ctx context.Context, task ReconcilePackTask) error {
		if r == nil {
			return fmt.Errorf("reconciler not configured")
		}
		found, err := r.ReconcilePack(ctx, task.PackID)
		if err != nil {
			return fmt.Errorf("reconcile pack %s: %w", task.PackID, err)
		}
		if !found {
			log.Printf("[TASK] Pack %s no longer exists, nothing to reconcile", task.PackID)
			return nil
		}
		log.Printf("[TASK] Reconciled pack %s", task.PackID)
		return nil
	}
}

// NewReconcilePackQueue creates a backlite queue for single-pack reconciliation.
func NewReconcilePackQueue(r Reconciler) backlite.Queue {
	return backlite.NewQueue(ReconcilePackProcessor(r))
}

// ReconcileAllPacksTask reconciles every pack.
type ReconcileAllPacksTask struct{}

// Config returns the queue configuration for full reconciliation.
func (t ReconcileAllPacksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_all_packs",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileAllPacksProcessor creates a processor function for ReconcileAllPacksTask.
func ReconcileAllPacksProcessor(r Reconciler) backlite.QueueProcessor[ReconcileAllPacksTask] {
	return func(ctx context.Context, task ReconcileAllPacksTask) error {
		if r == nil {
			return fmt.Errorf("reconciler not configured")
		}
		n, err := r.ReconcileAll(ctx)
		if err != nil {
			return fmt.Errorf("reconcile all packs (after %d): %w", n, err)
		}
		log.Printf("[TASK] Reconciliation complete: %d packs", n)
		return nil
	}
}

// NewReconcileAllPacksQueue creates a backlite queue for full reconciliation.
func NewReconcileAllPacksQueue(r Reconciler) backlite.Queue {
	return backlite.NewQueue(ReconcileAllPacksProcessor(r))
}
