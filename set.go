// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// Set is a set of distinct values backed by a JSON array document.
//
// Elements must encode to JSON primitives (strings, numbers, booleans). The store has
// no set-union primitive, so Add and Remove read the array and write conditioned on
// the CAS they read.
type Set[E comparable] struct {
	b binding
}

// setProbe is the state observed by the read step of Add and Remove
type setProbe struct {
	index int
}

// NewSet returns a Set backed by document id
func NewSet[E comparable](coll *Collection, id string, opts ...Option) (*Set[E], error) {
	b, err := newBinding("set", coll, id, opts)
	if err != nil {
		return nil, err
	}
	return &Set[E]{b: b}, nil
}

// ID returns the id of the backing document
func (s *Set[E]) ID() string {
	return s.b.id
}

// Add inserts v unless it is already present and reports whether it was added.
// The document is created if it does not exist.
func (s *Set[E]) Add(ctx context.Context, v E, mods ...func(*Req)) (bool, error) {
	data, err := s.encodePrimitive("set.add", v)
	if err != nil {
		return false, err
	}
	req := s.b.req(mods)

	probe, outcome, err := runCAS(ctx, s.b.engine(), "set.add", s.b.id, true,
		s.probe(req, v),
		func(ctx context.Context, p setProbe, cas uint64) error {
			if p.index >= 0 {
				return nil
			}
			r := req
			r.Cas = cas
			r.Semantics = StoreReplace
			if cas == 0 {
				r.Semantics = StoreInsert
			}
			_, err := s.b.coll.MutateIn(ctx, s.b.id, []MutateInSpec{ArrayAppendSpec(RootPath, data)}, useReq(r))
			return err
		})
	if err != nil {
		return false, err
	}
	return outcome == casApplied && probe.index < 0, nil
}

// Remove deletes v and reports whether it was present
func (s *Set[E]) Remove(ctx context.Context, v E, mods ...func(*Req)) (bool, error) {
	if isNilValue(v) {
		return false, newOpError("set.remove", s.b.id, ErrInvalidArgument, fmt.Errorf("unsupported nil value"))
	}
	req := s.b.req(mods)

	probe, outcome, err := runCAS(ctx, s.b.engine(), "set.remove", s.b.id, false,
		s.probe(req, v),
		func(ctx context.Context, p setProbe, cas uint64) error {
			if p.index < 0 {
				return nil
			}
			r := req
			r.Cas = cas
			r.Semantics = StoreReplace
			_, err := s.b.coll.MutateIn(ctx, s.b.id, []MutateInSpec{RemoveSpec(IndexPath(p.index))}, useReq(r))
			return err
		})
	if err != nil {
		return false, err
	}
	return outcome == casApplied && probe.index >= 0, nil
}

// Contains reports whether v is in the set
func (s *Set[E]) Contains(ctx context.Context, v E, mods ...func(*Req)) (bool, error) {
	items, _, err := s.b.arrayContent(ctx, s.b.req(mods))
	if IsDocumentNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	idx, err := indexOf(s.b.tc, items, v, equalComparable[E])
	return idx >= 0, err
}

// Values returns the elements in storage order
func (s *Set[E]) Values(ctx context.Context, mods ...func(*Req)) ([]E, error) {
	items, _, err := s.b.arrayContent(ctx, s.b.req(mods))
	if IsDocumentNotFound(err) {
		return []E{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeAll[E](s.b.tc, items)
}

// Size returns the number of elements; 0 when the document does not exist
func (s *Set[E]) Size(ctx context.Context, mods ...func(*Req)) (int, error) {
	return s.b.count(ctx, s.b.req(mods))
}

// Clear removes the backing document
func (s *Set[E]) Clear(ctx context.Context, mods ...func(*Req)) error {
	return s.b.clear(ctx, s.b.req(mods))
}

// Iterator returns an iterator over a snapshot of the set
func (s *Set[E]) Iterator(ctx context.Context, mods ...func(*Req)) (*Iterator[E], error) {
	return newIterator[E](ctx, s.b, "set", s.b.req(mods))
}

// probe returns the read step locating v in the array
func (s *Set[E]) probe(req Req, v E) readStep[setProbe] {
	return func(ctx context.Context) (setProbe, uint64, error) {
		items, cas, err := s.b.arrayContent(ctx, req)
		if err != nil {
			return setProbe{index: -1}, 0, err
		}
		idx, err := indexOf(s.b.tc, items, v, equalComparable[E])
		if err != nil {
			return setProbe{index: -1}, 0, err
		}
		return setProbe{index: idx}, cas, nil
	}
}

// encodePrimitive encodes v and rejects values that are not JSON primitives
func (s *Set[E]) encodePrimitive(op string, v E) ([]byte, error) {
	data, err := s.b.encode(op, v)
	if err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(data)
	if parsed.IsObject() || parsed.IsArray() {
		return nil, newOpError(op, s.b.id, ErrInvalidArgument,
			fmt.Errorf("set elements must be JSON primitives, got %s", parsed.Type))
	}
	return data, nil
}

func equalComparable[E comparable](a, b E) bool {
	return a == b
}
