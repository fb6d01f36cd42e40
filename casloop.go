// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"errors"
	"fmt"
)

// casOutcome tells how a CAS loop ended without error
type casOutcome int

const (
	// casApplied means the write step was accepted by the store
	casApplied casOutcome = iota

	// casAbsent means the document or path was absent: the logical empty result
	casAbsent
)

// readStep observes the current state and the CAS it was read at.
//
// Returning ErrDocumentNotFound or ErrPathNotFound ends the loop with casAbsent,
// except that ErrDocumentNotFound continues to the write step with a zero CAS when
// the loop creates documents. The returned state is kept in that case.
type readStep[T any] func(ctx context.Context) (T, uint64, error)

// writeStep submits the mutation derived from state, conditioned on cas.
// A zero cas means the document was absent and must be created with insert semantics.
type writeStep[T any] func(ctx context.Context, state T, cas uint64) error

// casEngine runs read-modify-conditional-write cycles against one document.
//
// It holds no locks: the store's CAS check is the only thing that serialises
// concurrent writers, so conflicts show up as ErrCasMismatch and are retried from
// the read step until attempts runs out. Store failures other than conflicts and
// absence are returned unchanged.
type casEngine struct {
	coll     *Collection
	attempts int
}

// runCAS executes the loop for operation op on document id.
//
// With creates set, a lost insert race (ErrDocumentExists) and a document removed
// between read and write are conflicts as well, since the next read sees the new
// document state.
func runCAS[T any](ctx context.Context, e casEngine, op, id string, creates bool, read readStep[T], write writeStep[T]) (T, casOutcome, error) {
	var zero T
	logger := e.coll.logger

	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			if err := e.coll.pause(ctx, attempt-1); err != nil {
				logger.Debug(ctx, "cas loop canceled",
					"operation", op,
					"id", id,
					"attempt", attempt,
					"error", err.Error())
				return zero, casAbsent, fmt.Errorf("%s: %w", op, err)
			}
		}

		state, cas, err := read(ctx)
		switch {
		case err == nil:
		case creates && IsDocumentNotFound(err):
			cas = 0
		case IsDocumentNotFound(err), IsPathNotFound(err):
			return zero, casAbsent, nil
		default:
			return zero, casAbsent, err
		}

		err = write(ctx, state, cas)
		switch {
		case err == nil:
			if attempt > 0 {
				logger.Debug(ctx, "cas loop applied after conflicts",
					"operation", op,
					"id", id,
					"attempts", attempt+1)
			}
			return state, casApplied, nil
		case IsCasMismatch(err):
		case creates && (errors.Is(err, ErrDocumentExists) || IsDocumentNotFound(err)):
		case IsDocumentNotFound(err), IsPathNotFound(err):
			return zero, casAbsent, nil
		default:
			return zero, casAbsent, err
		}

		logger.Warn(ctx, "cas conflict, retrying",
			"operation", op,
			"id", id,
			"attempt", attempt+1,
			"max_retries", e.attempts,
			"error", err.Error())
	}

	logger.Error(ctx, "cas retries exhausted",
		"operation", op,
		"id", id,
		"attempts", e.attempts)

	return zero, casAbsent, &OpError{
		Operation: op,
		ID:        id,
		Message: fmt.Sprintf("could not apply in %d attempts, the document is likely modified concurrently",
			e.attempts),
		Retries: e.attempts,
		Err:     ErrRetryExhausted,
	}
}
