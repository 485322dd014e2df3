package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/wordpack/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// NextRun returns the first activation of schedule after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	s, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(from), nil
}

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// ReconcileScheduler periodically reconciles every pack. With a queue the
// work is enqueued as a reconcile_all_packs task; without one it runs inline.
type ReconcileScheduler struct {
	schedule   string
	queue      Enqueuer
	reconciler tasks.Reconciler

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	runCtx     context.Context
	cancelFunc context.CancelFunc
}

// NewReconcileScheduler creates a scheduler. queue may be nil.
func NewReconcileScheduler(schedule string, queue Enqueuer, reconciler tasks.Reconciler) *ReconcileScheduler {
	return &ReconcileScheduler{
		schedule:   schedule,
		queue:      queue,
		reconciler: reconciler,
		cron:       cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.RunNow)
	if err != nil {
		return fmt.Errorf("failed to schedule reconcile job: %w", err)
	}
	s.entryID = entryID
	s.runCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRun(s.schedule, time.Now())
	log.Printf("Reconcile scheduler: started with schedule '%s'. Next run: %v", s.schedule, next)

	runCtx := s.runCtx
	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *ReconcileScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancelFunc()
	s.cancelFunc = nil
	s.mu.Unlock()

	// A running job may take the read lock, so wait outside it.
	<-s.cron.Stop().Done()
	log.Printf("Reconcile scheduler: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *ReconcileScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next reconciliation will occur, or nil.
func (s *ReconcileScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunNow performs one reconciliation pass synchronously.
func (s *ReconcileScheduler) RunNow() {
	if s.queue != nil {
		id, err := s.queue.Enqueue(tasks.ReconcileAllPacksTask{})
		if err != nil {
			log.Printf("Reconcile scheduler: failed to enqueue: %v", err)
			return
		}
		log.Printf("Reconcile scheduler: enqueued task %s", id)
		return
	}

	s.mu.RLock()
	ctx := s.runCtx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	n, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.Printf("Reconcile scheduler: failed after %d packs: %v", n, err)
		return
	}
	log.Printf("Reconcile scheduler: reconciled %d packs in %v", n, time.Since(start).Round(time.Millisecond))
}
