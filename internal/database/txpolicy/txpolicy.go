// Package txpolicy runs read-modify-write operations that prefer a short
// transaction but may degrade to a non-transactional path.
//
// An operation supplies both phases as a Strategy; Run attempts the
// transactional phase a bounded number of times and then runs the fallback
// once, logging a warning naming the operation and the stage that failed.
package txpolicy

import (
	"context"
	"errors"
	"log"

	"github.com/mrlokans/wordpack/internal/docstore"
)

// DefaultAttempts is the number of transactional attempts before falling back.
const DefaultAttempts = 3

// Stage identifies where the transactional phase gave up.
type Stage string

const (
	StageInit  Stage = "init"
	StageBegin Stage = "begin"
	StageBody  Stage = "body"
)

// Strategy is the two phases of an operation.
//
// Transactional must only touch the store through tx. An error it returns
// that is not retryable is treated as a caller error and returned from Run
// without falling back.
type Strategy[T any] struct {
	Transactional func(ctx context.Context, tx docstore.Tx) (T, error)
	Fallback      func(ctx context.Context, store docstore.Store) (T, error)
}

// Policy bounds the transactional phase.
type Policy struct {
	Attempts int
}

// DefaultPolicy returns a Policy with DefaultAttempts.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts}
}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Run executes s against store under policy p. op names the operation in logs.
func Run[T any](ctx context.Context, store docstore.Store, p Policy, op string, s Strategy[T]) (T, error) {
	var zero T
	var stage Stage
	var lastErr error

	for attempt := 1; attempt <= p.attempts(); attempt++ {
		var (
			result  T
			entered bool
			bodyErr error
		)
		err := store.RunTransaction(ctx, func(tx docstore.Tx) error {
			entered = true
			r, err := s.Transactional(ctx, tx)
			if err != nil {
				bodyErr = err
				return err
			}
			result = r
			return nil
		})
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(err, docstore.ErrTransactionsUnsupported) {
			stage, lastErr = StageInit, err
			break
		}
		if bodyErr != nil && !docstore.IsRetryable(bodyErr) {
			return zero, bodyErr
		}

		stage, lastErr = StageBody, err
		if !entered {
			stage = StageBegin
		}
		if !docstore.IsRetryable(err) {
			break
		}
	}

	log.Printf("WARNING: %s: transactional path failed at %s: %v; using non-transactional fallback", op, stage, lastErr)
	return s.Fallback(ctx, store)
}
