// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package subdoc provides queue, set, map and list data structures persisted as JSON
// documents in a sub-document store.
//
// Each data structure is bound to exactly one document of a Collection and holds no
// content locally: every operation reads or mutates the document through the store's
// sub-document API (LookupIn and MutateIn). Operations that must observe a value before
// changing it (Queue.Poll, Set.Add, Map.Remove, List.RemoveAt, ...) run an optimistic
// concurrency loop: read with the document CAS, write conditioned on that CAS, and retry
// on conflict up to a bounded number of attempts.
//
// # Quick Start
//
//	coll, err := subdoc.NewCollection(subdoc.NewMemoryStore())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	q, err := subdoc.NewQueue[string](coll, "queue::jobs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	_ = q.Offer(ctx, "resize")
//	_ = q.Offer(ctx, "notify")
//
//	job, ok, err := q.Poll(ctx) // "resize", true, nil
//
// # Stores
//
// MemoryStore keeps documents in process and is meant for tests and single-process use.
// The sqlitestore package persists documents in SQLite. Any other backend can be plugged
// in by implementing Store; remote stores may report failures as gRPC status errors,
// which are mapped onto the sentinel errors of this package.
//
// # Document Layout
//
//   - Queue: a JSON array, newest element first; Offer prepends and Poll removes the last element
//   - Set: a JSON array of unique primitive values
//   - Map: a JSON object keyed by string
//   - List: a JSON array addressed by index
//
// A missing document is an empty data structure: reads return empty results and the
// first write creates the document.
//
// # Error Handling
//
// Errors are classified by sentinel and usually carried by an *OpError:
//
//	v, ok, err := q.Poll(ctx)
//	switch {
//	case errors.Is(err, subdoc.ErrRetryExhausted):
//	    // too much contention, try again later
//	case err != nil:
//	    var opErr *subdoc.OpError
//	    if errors.As(err, &opErr) {
//	        log.Printf("%s on %s: %s", opErr.Operation, opErr.ID, opErr.Message)
//	    }
//	}
//
// # Iteration
//
// Iterator walks a snapshot of the document taken when it was created and can remove
// the element it is positioned on. Removal is conditioned on the snapshot CAS, so a
// concurrent change makes it fail with ErrConcurrentModification instead of removing
// the wrong element.
//
// # Thread Safety
//
// Collections and data structures are safe for concurrent use; their correctness under
// concurrent writers relies on the store's CAS check. Iterators are not safe for
// concurrent use.
//
// # Logging
//
// Logging is disabled by default. WithLogger enables it; document content logged at
// debug level is redacted and size-capped.
package subdoc
