// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"fmt"
)

// iterState is the position state of an Iterator
type iterState int

const (
	// iterFresh: snapshot taken, cursor before the first element
	iterFresh iterState = iota

	// iterPositioned: cursor on an element returned by Next
	iterPositioned

	// iterRemoved: the element under the cursor was removed
	iterRemoved
)

// String returns the string representation of an iterState
func (s iterState) String() string {
	switch s {
	case iterFresh:
		return "fresh"
	case iterPositioned:
		return "positioned"
	case iterRemoved:
		return "removed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Iterator walks a snapshot of an array-backed data structure and can remove the
// element it is positioned on.
//
// The snapshot and its CAS are taken once when the iterator is created. Remove is
// conditioned on that CAS (updated by each successful Remove) and never re-reads,
// so any write by someone else makes the next Remove fail with
// ErrConcurrentModification. An Iterator is not safe for concurrent use.
//
// Example:
//
//	it, err := q.Iterator(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for it.HasNext() {
//	    job, err := it.Next()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if job.Done {
//	        if err := it.Remove(ctx); err != nil {
//	            log.Fatal(err) // snapshot is stale, start over
//	        }
//	    }
//	}
type Iterator[E any] struct {
	b   binding
	op  string
	req Req

	snapshot []string
	cas      uint64

	// cursor is the snapshot index of the last element returned by Next
	cursor int
	state  iterState
}

// newIterator snapshots the document; an absent document yields an empty snapshot
// with CAS 0
func newIterator[E any](ctx context.Context, b binding, kind string, req Req) (*Iterator[E], error) {
	it := &Iterator[E]{
		b:      b,
		op:     kind + ".iterator",
		req:    req,
		cursor: -1,
		state:  iterFresh,
	}

	items, cas, err := b.arrayContent(ctx, req)
	if IsDocumentNotFound(err) {
		return it, nil
	}
	if err != nil {
		return nil, err
	}

	it.cas = cas
	it.snapshot = make([]string, len(items))
	for i, item := range items {
		it.snapshot[i] = item.Raw
	}
	return it, nil
}

// HasNext reports whether Next has an element to return
func (it *Iterator[E]) HasNext() bool {
	return it.cursor+1 < len(it.snapshot)
}

// Next advances to and returns the next element.
// Calling Next on an exhausted iterator fails with ErrIllegalState.
func (it *Iterator[E]) Next() (E, error) {
	var zero E
	if !it.HasNext() {
		return zero, newOpError(it.op+".next", it.b.id, ErrIllegalState, fmt.Errorf("no more elements"))
	}
	it.cursor++
	it.state = iterPositioned
	return decodeElem[E](it.b.tc, it.snapshot[it.cursor])
}

// Remove deletes the element last returned by Next from the document.
//
// Remove fails with ErrIllegalState before the first Next and when called twice
// without Next in between. If the document changed since the snapshot (or since the
// last Remove) it fails with ErrConcurrentModification and does not retry. If the
// element's index no longer exists in the document, Remove does nothing.
func (it *Iterator[E]) Remove(ctx context.Context, mods ...func(*Req)) error {
	op := it.op + ".remove"
	switch it.state {
	case iterFresh:
		return newOpError(op, it.b.id, ErrIllegalState, fmt.Errorf("cannot remove before having started iterating"))
	case iterRemoved:
		return newOpError(op, it.b.id, ErrIllegalState, fmt.Errorf("cannot remove twice in a row while iterating"))
	}

	req := buildReq(it.req, mods)
	req.Cas = it.cas
	req.Semantics = StoreReplace

	res, err := it.b.coll.MutateIn(ctx, it.b.id, []MutateInSpec{RemoveSpec(IndexPath(it.cursor))}, useReq(req))
	switch {
	case err == nil:
	case IsCasMismatch(err), IsDocumentNotFound(err):
		return newOpError(op, it.b.id, ErrConcurrentModification, err)
	case IsPathNotFound(err):
		return nil
	default:
		return err
	}

	it.cas = res.Cas
	it.snapshot = append(it.snapshot[:it.cursor], it.snapshot[it.cursor+1:]...)
	it.cursor--
	it.state = iterRemoved
	return nil
}

// Cas returns the CAS the iterator currently holds (0 for an absent document)
func (it *Iterator[E]) Cas() uint64 {
	return it.cas
}

// Remaining returns the number of elements Next has yet to return
func (it *Iterator[E]) Remaining() int {
	return len(it.snapshot) - it.cursor - 1
}
