// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Body provides a fluent interface for building JSON documents and element values
// using sjson for path-based manipulation.
//
// The Body builder tracks errors internally to enable method chaining while
// providing error checking through String(), Bytes() or Err().
//
// Example:
//
//	value, err := subdoc.Body{}.
//	    Set("name", "alice").
//	    Set("roles.0", "admin").
//	    Bytes()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = coll.MutateIn(ctx, "user::1",
//	    []subdoc.MutateInSpec{subdoc.UpsertSpec("profile", value)},
//	    subdoc.Semantics(subdoc.StoreUpsert))
type Body struct {
	str string
	err error
}

// NewBody starts a Body from existing JSON
func NewBody(json string) Body {
	return Body{str: json}
}

// Set sets a value at the specified sjson path and returns a new Body.
//
// Once an error occurs, all subsequent operations are no-ops that preserve it.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Set(%q): %w", path, err)}
	}
	return Body{str: result}
}

// SetRaw sets raw JSON at the specified sjson path. The empty path replaces the
// whole body.
func (b Body) SetRaw(path string, raw string) Body {
	if b.err != nil {
		return b
	}
	if path == "" {
		return Body{str: raw}
	}
	result, err := sjson.SetRaw(b.str, path, raw)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("SetRaw(%q): %w", path, err)}
	}
	return Body{str: result}
}

// Delete removes the value at the specified sjson path and returns a new Body
func (b Body) Delete(path string) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Delete(b.str, path)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Delete(%q): %w", path, err)}
	}
	return Body{str: result}
}

// String returns the JSON string and any error encountered during building
func (b Body) String() (string, error) {
	return b.str, b.err
}

// Err returns any error that occurred during building
func (b Body) Err() error {
	return b.err
}

// Bytes returns the JSON bytes and any error encountered during building
func (b Body) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte(b.str), nil
}
