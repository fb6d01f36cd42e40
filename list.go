// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"fmt"
	"reflect"
)

// List is an index-addressed list backed by a JSON array document.
//
// Indices are only meaningful until the next write by anyone sharing the document;
// RemoveAt therefore reads and removes the element under one CAS.
type List[E any] struct {
	b binding
}

// NewList returns a List backed by document id
func NewList[E any](coll *Collection, id string, opts ...Option) (*List[E], error) {
	b, err := newBinding("list", coll, id, opts)
	if err != nil {
		return nil, err
	}
	return &List[E]{b: b}, nil
}

// ID returns the id of the backing document
func (l *List[E]) ID() string {
	return l.b.id
}

// Append adds v at the end, creating the document if needed
func (l *List[E]) Append(ctx context.Context, v E, mods ...func(*Req)) error {
	return l.push(ctx, "list.append", v, ArrayAppendSpec, mods)
}

// Prepend adds v at the front, creating the document if needed
func (l *List[E]) Prepend(ctx context.Context, v E, mods ...func(*Req)) error {
	return l.push(ctx, "list.prepend", v, ArrayPrependSpec, mods)
}

func (l *List[E]) push(ctx context.Context, op string, v E, spec func(string, []byte) MutateInSpec, mods []func(*Req)) error {
	data, err := l.b.encode(op, v)
	if err != nil {
		return err
	}
	req := l.b.req(mods)
	req.Cas = 0
	req.Semantics = StoreUpsert

	_, err = l.b.coll.MutateIn(ctx, l.b.id, []MutateInSpec{spec(RootPath, data)}, useReq(req))
	return err
}

// Get returns the element at index i, or ErrIndexOutOfRange
func (l *List[E]) Get(ctx context.Context, i int, mods ...func(*Req)) (E, error) {
	var zero E
	if err := l.checkIndex("list.get", i); err != nil {
		return zero, err
	}
	res, err := l.b.coll.LookupIn(ctx, l.b.id, []LookupInSpec{GetSpec(IndexPath(i))}, useReq(l.b.req(mods)))
	if err != nil {
		return zero, l.outOfRange("list.get", i, err)
	}
	var v E
	if err := res.ContentAs(0, l.b.tc, &v); err != nil {
		return zero, l.outOfRange("list.get", i, err)
	}
	return v, nil
}

// Set replaces the element at index i, or fails with ErrIndexOutOfRange
func (l *List[E]) Set(ctx context.Context, i int, v E, mods ...func(*Req)) error {
	if err := l.checkIndex("list.set", i); err != nil {
		return err
	}
	data, err := l.b.encode("list.set", v)
	if err != nil {
		return err
	}
	req := l.b.req(mods)
	req.Cas = 0
	req.Semantics = StoreReplace

	_, err = l.b.coll.MutateIn(ctx, l.b.id, []MutateInSpec{ReplaceSpec(IndexPath(i), data)}, useReq(req))
	return l.outOfRange("list.set", i, err)
}

// Insert places v at index i, shifting later elements. i may equal Size to append.
func (l *List[E]) Insert(ctx context.Context, i int, v E, mods ...func(*Req)) error {
	if err := l.checkIndex("list.insert", i); err != nil {
		return err
	}
	data, err := l.b.encode("list.insert", v)
	if err != nil {
		return err
	}
	req := l.b.req(mods)
	req.Cas = 0
	req.Semantics = StoreUpsert

	_, err = l.b.coll.MutateIn(ctx, l.b.id, []MutateInSpec{ArrayInsertSpec(IndexPath(i), data)}, useReq(req))
	return l.outOfRange("list.insert", i, err)
}

// RemoveAt removes and returns the element at index i, or fails with
// ErrIndexOutOfRange
func (l *List[E]) RemoveAt(ctx context.Context, i int, mods ...func(*Req)) (E, error) {
	var zero E
	if err := l.checkIndex("list.remove_at", i); err != nil {
		return zero, err
	}
	req := l.b.req(mods)
	path := IndexPath(i)

	read := func(ctx context.Context) (E, uint64, error) {
		res, err := l.b.coll.LookupIn(ctx, l.b.id, []LookupInSpec{GetSpec(path)}, useReq(req))
		if err != nil {
			return zero, 0, err
		}
		var v E
		if err := res.ContentAs(0, l.b.tc, &v); err != nil {
			return zero, 0, err
		}
		return v, res.Cas, nil
	}
	write := func(ctx context.Context, _ E, cas uint64) error {
		r := req
		r.Cas = cas
		r.Semantics = StoreReplace
		_, err := l.b.coll.MutateIn(ctx, l.b.id, []MutateInSpec{RemoveSpec(path)}, useReq(r))
		return err
	}

	v, outcome, err := runCAS(ctx, l.b.engine(), "list.remove_at", l.b.id, false, read, write)
	if err != nil {
		return zero, err
	}
	if outcome == casAbsent {
		return zero, newOpError("list.remove_at", l.b.id, ErrIndexOutOfRange, fmt.Errorf("index %d", i))
	}
	return v, nil
}

// IndexOf returns the index of the first element deeply equal to v, or -1
func (l *List[E]) IndexOf(ctx context.Context, v E, mods ...func(*Req)) (int, error) {
	items, _, err := l.b.arrayContent(ctx, l.b.req(mods))
	if IsDocumentNotFound(err) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return indexOf(l.b.tc, items, v, func(a, b E) bool { return reflect.DeepEqual(a, b) })
}

// Contains reports whether an element deeply equal to v is present
func (l *List[E]) Contains(ctx context.Context, v E, mods ...func(*Req)) (bool, error) {
	idx, err := l.IndexOf(ctx, v, mods...)
	return idx >= 0, err
}

// Values returns all elements in order
func (l *List[E]) Values(ctx context.Context, mods ...func(*Req)) ([]E, error) {
	items, _, err := l.b.arrayContent(ctx, l.b.req(mods))
	if IsDocumentNotFound(err) {
		return []E{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeAll[E](l.b.tc, items)
}

// Size returns the number of elements; 0 when the document does not exist
func (l *List[E]) Size(ctx context.Context, mods ...func(*Req)) (int, error) {
	return l.b.count(ctx, l.b.req(mods))
}

// Clear removes the backing document
func (l *List[E]) Clear(ctx context.Context, mods ...func(*Req)) error {
	return l.b.clear(ctx, l.b.req(mods))
}

// Iterator returns an iterator over a snapshot of the list
func (l *List[E]) Iterator(ctx context.Context, mods ...func(*Req)) (*Iterator[E], error) {
	return newIterator[E](ctx, l.b, "list", l.b.req(mods))
}

func (l *List[E]) checkIndex(op string, i int) error {
	if i < 0 {
		return newOpError(op, l.b.id, ErrInvalidArgument, fmt.Errorf("negative index %d", i))
	}
	return nil
}

// outOfRange turns an absent document or path into ErrIndexOutOfRange
func (l *List[E]) outOfRange(op string, i int, err error) error {
	if IsDocumentNotFound(err) || IsPathNotFound(err) {
		return newOpError(op, l.b.id, ErrIndexOutOfRange, fmt.Errorf("index %d: %w", i, err))
	}
	return err
}
