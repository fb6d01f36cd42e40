// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import "context"

// Queue is a FIFO queue backed by a JSON array document.
//
// Offer prepends, so the oldest element sits at the tail ([-1]) and Poll removes it
// through a CAS loop. Several Queue values, in one process or many, may share the
// same document id.
//
// Example:
//
//	q, err := subdoc.NewQueue[string](coll, "jobs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = q.Offer(ctx, "job-1")
//	job, ok, err := q.Poll(ctx)
type Queue[E any] struct {
	b binding
}

// NewQueue returns a Queue backed by document id. The document is created on the
// first Offer if it does not exist; existing content is used as is.
func NewQueue[E any](coll *Collection, id string, opts ...Option) (*Queue[E], error) {
	b, err := newBinding("queue", coll, id, opts)
	if err != nil {
		return nil, err
	}
	return &Queue[E]{b: b}, nil
}

// ID returns the id of the backing document
func (q *Queue[E]) ID() string {
	return q.b.id
}

// Offer adds v at the head of the queue, creating the document if needed.
// nil values are rejected with ErrInvalidArgument before any store call.
func (q *Queue[E]) Offer(ctx context.Context, v E, mods ...func(*Req)) error {
	data, err := q.b.encode("queue.offer", v)
	if err != nil {
		return err
	}
	req := q.b.req(mods)
	req.Cas = 0
	req.Semantics = StoreUpsert

	_, err = q.b.coll.MutateIn(ctx, q.b.id, []MutateInSpec{ArrayPrependSpec(RootPath, data)}, useReq(req))
	return err
}

// Poll removes and returns the oldest element.
//
// The boolean is false when the queue is empty or its document does not exist.
// Conflicting writers make Poll re-read the tail; after CasMismatchRetries attempts
// it fails with ErrRetryExhausted.
func (q *Queue[E]) Poll(ctx context.Context, mods ...func(*Req)) (E, bool, error) {
	req := q.b.req(mods)

	read := func(ctx context.Context) (E, uint64, error) {
		var zero E
		res, err := q.b.coll.LookupIn(ctx, q.b.id, []LookupInSpec{GetSpec(TailPath)}, useReq(req))
		if err != nil {
			return zero, 0, err
		}
		var v E
		if err := res.ContentAs(0, q.b.tc, &v); err != nil {
			return zero, 0, err
		}
		return v, res.Cas, nil
	}
	write := func(ctx context.Context, _ E, cas uint64) error {
		r := req
		r.Cas = cas
		r.Semantics = StoreReplace
		_, err := q.b.coll.MutateIn(ctx, q.b.id, []MutateInSpec{RemoveSpec(TailPath)}, useReq(r))
		return err
	}

	v, outcome, err := runCAS(ctx, q.b.engine(), "queue.poll", q.b.id, false, read, write)
	return v, outcome == casApplied, err
}

// Peek returns the oldest element without removing it.
// The boolean is false when the queue is empty or its document does not exist.
func (q *Queue[E]) Peek(ctx context.Context, mods ...func(*Req)) (E, bool, error) {
	var zero E
	res, err := q.b.coll.LookupIn(ctx, q.b.id, []LookupInSpec{GetSpec(TailPath)}, useReq(q.b.req(mods)))
	if IsDocumentNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var v E
	if err := res.ContentAs(0, q.b.tc, &v); err != nil {
		if IsPathNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return v, true, nil
}

// Size returns the number of elements; 0 when the document does not exist
func (q *Queue[E]) Size(ctx context.Context, mods ...func(*Req)) (int, error) {
	return q.b.count(ctx, q.b.req(mods))
}

// Clear removes the backing document
func (q *Queue[E]) Clear(ctx context.Context, mods ...func(*Req)) error {
	return q.b.clear(ctx, q.b.req(mods))
}

// Iterator returns an iterator over a snapshot of the queue, newest element first
func (q *Queue[E]) Iterator(ctx context.Context, mods ...func(*Req)) (*Iterator[E], error) {
	return newIterator[E](ctx, q.b, "queue", q.b.req(mods))
}
