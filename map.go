// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// Map is a string-keyed map backed by a JSON object document.
//
// Each key is a top-level field of the document, so single-key reads and writes
// touch only that field. PutIfAbsent and Remove use a CAS loop.
type Map[V any] struct {
	b binding
}

// NewMap returns a Map backed by document id
func NewMap[V any](coll *Collection, id string, opts ...Option) (*Map[V], error) {
	b, err := newBinding("map", coll, id, opts)
	if err != nil {
		return nil, err
	}
	return &Map[V]{b: b}, nil
}

// ID returns the id of the backing document
func (m *Map[V]) ID() string {
	return m.b.id
}

// Put sets key to v, creating the document if needed
func (m *Map[V]) Put(ctx context.Context, key string, v V, mods ...func(*Req)) error {
	if err := m.validateKey("map.put", key); err != nil {
		return err
	}
	data, err := m.b.encode("map.put", v)
	if err != nil {
		return err
	}
	req := m.b.req(mods)
	req.Cas = 0
	req.Semantics = StoreUpsert

	_, err = m.b.coll.MutateIn(ctx, m.b.id, []MutateInSpec{UpsertSpec(KeyPath(key), data)}, useReq(req))
	return err
}

// PutIfAbsent sets key to v only if key is not present and reports whether it did
func (m *Map[V]) PutIfAbsent(ctx context.Context, key string, v V, mods ...func(*Req)) (bool, error) {
	if err := m.validateKey("map.put_if_absent", key); err != nil {
		return false, err
	}
	data, err := m.b.encode("map.put_if_absent", v)
	if err != nil {
		return false, err
	}
	req := m.b.req(mods)
	path := KeyPath(key)

	read := func(ctx context.Context) (bool, uint64, error) {
		res, err := m.b.coll.LookupIn(ctx, m.b.id, []LookupInSpec{ExistsSpec(path)}, useReq(req))
		if err != nil {
			return false, 0, err
		}
		return res.Exists(0), res.Cas, nil
	}
	write := func(ctx context.Context, exists bool, cas uint64) error {
		if exists {
			return nil
		}
		r := req
		r.Cas = cas
		r.Semantics = StoreReplace
		if cas == 0 {
			r.Semantics = StoreInsert
		}
		_, err := m.b.coll.MutateIn(ctx, m.b.id, []MutateInSpec{InsertSpec(path, data)}, useReq(r))
		return err
	}

	exists, outcome, err := runCAS(ctx, m.b.engine(), "map.put_if_absent", m.b.id, true, read, write)
	if err != nil {
		return false, err
	}
	return outcome == casApplied && !exists, nil
}

// Get returns the value of key; the boolean is false when key or document is absent
func (m *Map[V]) Get(ctx context.Context, key string, mods ...func(*Req)) (V, bool, error) {
	var zero V
	if err := m.validateKey("map.get", key); err != nil {
		return zero, false, err
	}
	res, err := m.b.coll.LookupIn(ctx, m.b.id, []LookupInSpec{GetSpec(KeyPath(key))}, useReq(m.b.req(mods)))
	if IsDocumentNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var v V
	if err := res.ContentAs(0, m.b.tc, &v); err != nil {
		if IsPathNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return v, true, nil
}

// ContainsKey reports whether key is present
func (m *Map[V]) ContainsKey(ctx context.Context, key string, mods ...func(*Req)) (bool, error) {
	if err := m.validateKey("map.contains_key", key); err != nil {
		return false, err
	}
	res, err := m.b.coll.LookupIn(ctx, m.b.id, []LookupInSpec{ExistsSpec(KeyPath(key))}, useReq(m.b.req(mods)))
	if IsDocumentNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Exists(0), nil
}

// Remove deletes key and returns its previous value.
// The boolean is false when key or document was absent.
func (m *Map[V]) Remove(ctx context.Context, key string, mods ...func(*Req)) (V, bool, error) {
	var zero V
	if err := m.validateKey("map.remove", key); err != nil {
		return zero, false, err
	}
	req := m.b.req(mods)
	path := KeyPath(key)

	read := func(ctx context.Context) (V, uint64, error) {
		res, err := m.b.coll.LookupIn(ctx, m.b.id, []LookupInSpec{GetSpec(path)}, useReq(req))
		if err != nil {
			return zero, 0, err
		}
		var v V
		if err := res.ContentAs(0, m.b.tc, &v); err != nil {
			return zero, 0, err
		}
		return v, res.Cas, nil
	}
	write := func(ctx context.Context, _ V, cas uint64) error {
		r := req
		r.Cas = cas
		r.Semantics = StoreReplace
		_, err := m.b.coll.MutateIn(ctx, m.b.id, []MutateInSpec{RemoveSpec(path)}, useReq(r))
		return err
	}

	v, outcome, err := runCAS(ctx, m.b.engine(), "map.remove", m.b.id, false, read, write)
	return v, outcome == casApplied, err
}

// Size returns the number of keys; 0 when the document does not exist
func (m *Map[V]) Size(ctx context.Context, mods ...func(*Req)) (int, error) {
	return m.b.count(ctx, m.b.req(mods))
}

// Clear removes the backing document
func (m *Map[V]) Clear(ctx context.Context, mods ...func(*Req)) error {
	return m.b.clear(ctx, m.b.req(mods))
}

// Keys returns the keys in sorted order
func (m *Map[V]) Keys(ctx context.Context, mods ...func(*Req)) ([]string, error) {
	obj, err := m.object(ctx, m.b.req(mods))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	obj.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

// Entries returns a copy of the whole map
func (m *Map[V]) Entries(ctx context.Context, mods ...func(*Req)) (map[string]V, error) {
	obj, err := m.object(ctx, m.b.req(mods))
	if err != nil {
		return nil, err
	}
	entries := make(map[string]V)
	var decodeErr error
	obj.ForEach(func(k, raw gjson.Result) bool {
		v, err := decodeElem[V](m.b.tc, raw.Raw)
		if err != nil {
			decodeErr = err
			return false
		}
		entries[k.String()] = v
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// object fetches the document as a JSON object; an absent document is empty
func (m *Map[V]) object(ctx context.Context, req Req) (gjson.Result, error) {
	res, err := m.b.coll.Get(ctx, m.b.id, useReq(req))
	if IsDocumentNotFound(err) {
		return gjson.Parse("{}"), nil
	}
	if err != nil {
		return gjson.Result{}, err
	}
	obj := gjson.ParseBytes(res.Content)
	if !obj.IsObject() {
		return gjson.Result{}, newOpError("decode", m.b.id, ErrPathMismatch, fmt.Errorf("document is not a JSON object"))
	}
	return obj, nil
}

func (m *Map[V]) validateKey(op, key string) error {
	if key == "" {
		return newOpError(op, m.b.id, ErrInvalidArgument, fmt.Errorf("key cannot be empty"))
	}
	if err := checkPathSecurity(KeyPath(key)); err != nil {
		return newOpError(op, m.b.id, ErrInvalidArgument, err)
	}
	return nil
}
