// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// GetResult is the result of a whole-document Get
type GetResult struct {
	// Content is the raw JSON of the document
	Content []byte

	// Cas is the document's CAS at read time
	Cas uint64
}

// Value queries the document content using a gjson path.
//
// Example:
//
//	res, err := coll.Get(ctx, "user::1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	name := res.Value("profile.name").String()
//	first := res.Value("tags.0").String()
func (r GetResult) Value(path string) gjson.Result {
	if len(r.Content) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Content, path)
}

// ContentAs decodes the whole document into target using tc
func (r GetResult) ContentAs(tc Transcoder, target any) error {
	return decodeWith(tc, r.Content, target)
}

// LookupInField is the outcome of a single LookupInSpec
type LookupInField struct {
	// Path is the path of the originating spec
	Path string

	// Value is the raw JSON value (get), the element count (count) or nil
	Value []byte

	// Exists reports whether the path resolved
	Exists bool

	// Err is the per-path failure (ErrPathNotFound, ErrPathMismatch), if any
	Err error
}

// LookupInResult is the result of a LookupIn call
type LookupInResult struct {
	// Fields holds one entry per spec, in spec order
	Fields []LookupInField

	// Cas is the document's CAS at read time
	Cas uint64
}

// ContentAs decodes the value of the i-th field into target.
//
// Returns the field's per-path error (for example ErrPathNotFound) when the path did
// not resolve.
func (r LookupInResult) ContentAs(i int, tc Transcoder, target any) error {
	f, err := r.field(i)
	if err != nil {
		return err
	}
	if f.Err != nil {
		return f.Err
	}
	return decodeWith(tc, f.Value, target)
}

// Exists reports whether the i-th path resolved
func (r LookupInResult) Exists(i int) bool {
	f, err := r.field(i)
	if err != nil {
		return false
	}
	return f.Exists
}

// Count returns the element count of the i-th field (a CountSpec result)
func (r LookupInResult) Count(i int) (int, error) {
	f, err := r.field(i)
	if err != nil {
		return 0, err
	}
	if f.Err != nil {
		return 0, f.Err
	}
	return int(gjson.ParseBytes(f.Value).Int()), nil
}

// Value returns the i-th field parsed by gjson for ad-hoc querying
func (r LookupInResult) Value(i int) gjson.Result {
	f, err := r.field(i)
	if err != nil || f.Err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(f.Value)
}

func (r LookupInResult) field(i int) (LookupInField, error) {
	if i < 0 || i >= len(r.Fields) {
		return LookupInField{}, fmt.Errorf("%w: field index %d out of range (%d fields)", ErrInvalidArgument, i, len(r.Fields))
	}
	return r.Fields[i], nil
}

// MutateInResult is the result of a MutateIn call
type MutateInResult struct {
	// Cas is the document's new CAS
	Cas uint64
}
