// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// EvaluateLookup runs lookup specs against a JSON document.
//
// Per-path failures are reported in the returned fields, never as an error; only a
// malformed path expression fails the whole call. Store implementations use this to
// serve LookupIn.
func EvaluateLookup(doc []byte, specs []LookupInSpec) ([]LookupInField, error) {
	fields := make([]LookupInField, len(specs))
	for i, spec := range specs {
		elems, err := parsePath(spec.Path)
		if err != nil {
			return nil, fmt.Errorf("lookup spec %d: %w", i, err)
		}
		fields[i] = evaluateOne(string(doc), spec, elems)
	}
	return fields, nil
}

func evaluateOne(doc string, spec LookupInSpec, elems []pathElem) LookupInField {
	field := LookupInField{Path: spec.Path}
	_, res, err := resolve(doc, elems)

	switch spec.Op {
	case LookupExists:
		field.Exists = err == nil
		field.Value = []byte(strconv.FormatBool(field.Exists))
	case LookupCount:
		if err != nil {
			field.Err = err
			return field
		}
		n, cerr := countOf(res)
		if cerr != nil {
			field.Err = cerr
			return field
		}
		field.Exists = true
		field.Value = []byte(strconv.Itoa(n))
	default:
		if err != nil {
			field.Err = err
			return field
		}
		field.Exists = true
		field.Value = []byte(res.Raw)
	}
	return field
}

// ApplyMutations applies mutation specs in order to a JSON document and returns the
// new content.
//
// The first failing spec aborts the whole call with a *MultiMutationError; the input
// is never modified. Store implementations use this to serve MutateIn.
func ApplyMutations(doc []byte, specs []MutateInSpec) ([]byte, error) {
	cur := string(doc)
	for i, spec := range specs {
		next, err := applyOne(cur, spec)
		if err != nil {
			return nil, &MultiMutationError{Index: i, Path: spec.Path, Err: err}
		}
		cur = next
	}
	return []byte(cur), nil
}

// EmptyDocumentFor returns the initial content of a document created implicitly by
// specs: an array when the first spec addresses an array, an object otherwise.
func EmptyDocumentFor(specs []MutateInSpec) []byte {
	if len(specs) == 0 {
		return []byte("{}")
	}
	first := specs[0]
	switch first.Op {
	case MutateArrayAppend, MutateArrayPrepend:
		if first.Path == RootPath {
			return []byte("[]")
		}
	}
	if strings.HasPrefix(first.Path, "[") {
		return []byte("[]")
	}
	return []byte("{}")
}

func applyOne(doc string, spec MutateInSpec) (string, error) {
	elems, err := parsePath(spec.Path)
	if err != nil {
		return "", err
	}
	if spec.Op != MutateRemove && !gjson.ValidBytes(spec.Value) {
		return "", fmt.Errorf("%w: value is not valid JSON", ErrInvalidArgument)
	}
	value := string(spec.Value)

	switch spec.Op {
	case MutateInsert, MutateUpsert:
		return setKey(doc, elems, value, spec.Op == MutateInsert)

	case MutateReplace:
		resolved, _, err := resolve(doc, elems)
		if err != nil {
			return "", err
		}
		if len(resolved) == 0 {
			return value, nil
		}
		last := resolved[len(resolved)-1]
		if last.isIndex {
			return rewriteArray(doc, resolved[:len(resolved)-1], func(raws []string) ([]string, error) {
				raws[last.index] = value
				return raws, nil
			})
		}
		return NewBody(doc).SetRaw(gjsonPath(resolved), value).String()

	case MutateRemove:
		resolved, _, err := resolve(doc, elems)
		if err != nil {
			return "", err
		}
		if len(resolved) == 0 {
			return "", fmt.Errorf("%w: cannot remove the document root", ErrInvalidPath)
		}
		last := resolved[len(resolved)-1]
		if last.isIndex {
			return rewriteArray(doc, resolved[:len(resolved)-1], func(raws []string) ([]string, error) {
				return append(raws[:last.index], raws[last.index+1:]...), nil
			})
		}
		return NewBody(doc).Delete(gjsonPath(resolved)).String()

	case MutateArrayAppend, MutateArrayPrepend:
		resolved, _, err := resolve(doc, elems)
		if err != nil {
			return "", err
		}
		prepend := spec.Op == MutateArrayPrepend
		return rewriteArray(doc, resolved, func(raws []string) ([]string, error) {
			if prepend {
				return append([]string{value}, raws...), nil
			}
			return append(raws, value), nil
		})

	case MutateArrayInsert:
		if len(elems) == 0 || !elems[len(elems)-1].isIndex {
			return "", fmt.Errorf("%w: array insert needs an index path", ErrInvalidPath)
		}
		idx := elems[len(elems)-1].index
		resolved, _, err := resolve(doc, elems[:len(elems)-1])
		if err != nil {
			return "", err
		}
		return rewriteArray(doc, resolved, func(raws []string) ([]string, error) {
			if idx < 0 || idx > len(raws) {
				return nil, ErrPathNotFound
			}
			raws = append(raws, "")
			copy(raws[idx+1:], raws[idx:])
			raws[idx] = value
			return raws, nil
		})

	default:
		return "", fmt.Errorf("%w: unknown mutate op %q", ErrInvalidArgument, spec.Op)
	}
}

// setKey adds or replaces a dictionary key
func setKey(doc string, elems []pathElem, value string, mustBeAbsent bool) (string, error) {
	if len(elems) == 0 || elems[len(elems)-1].isIndex {
		return "", fmt.Errorf("%w: dictionary operations need a key path", ErrInvalidPath)
	}
	parent, parentRes, err := resolve(doc, elems[:len(elems)-1])
	if err != nil {
		return "", err
	}
	if !parentRes.IsObject() {
		return "", ErrPathMismatch
	}
	key := elems[len(elems)-1]
	if mustBeAbsent && parentRes.Get(gjsonEscaper.Replace(key.key)).Exists() {
		return "", ErrPathExists
	}
	full := append(append([]pathElem{}, parent...), key)
	return NewBody(doc).SetRaw(gjsonPath(full), value).String()
}

// rewriteArray rebuilds the array at the resolved path through fn
func rewriteArray(doc string, at []pathElem, fn func(raws []string) ([]string, error)) (string, error) {
	_, res, err := resolve(doc, at)
	if err != nil {
		return "", err
	}
	if !res.IsArray() {
		return "", ErrPathMismatch
	}
	items := res.Array()
	raws := make([]string, len(items))
	for i, item := range items {
		raws[i] = item.Raw
	}
	raws, err = fn(raws)
	if err != nil {
		return "", err
	}
	raw := "[" + strings.Join(raws, ",") + "]"
	return NewBody(doc).SetRaw(gjsonPath(at), raw).String()
}

// resolve walks elems through doc, turning negative indices into absolute ones.
// It returns the resolved elements and the value they address.
func resolve(doc string, elems []pathElem) ([]pathElem, gjson.Result, error) {
	cur := gjson.Parse(doc)
	resolved := make([]pathElem, 0, len(elems))
	for _, e := range elems {
		if e.isIndex {
			if !cur.IsArray() {
				return nil, gjson.Result{}, fmt.Errorf("%w: %s is not an array", ErrPathMismatch, where(resolved))
			}
			items := cur.Array()
			idx := e.index
			if idx < 0 {
				idx += len(items)
			}
			if idx < 0 || idx >= len(items) {
				return nil, gjson.Result{}, fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(append(resolved, e)))
			}
			cur = items[idx]
			resolved = append(resolved, pathElem{index: idx, isIndex: true})
			continue
		}
		if !cur.IsObject() {
			return nil, gjson.Result{}, fmt.Errorf("%w: %s is not an object", ErrPathMismatch, where(resolved))
		}
		next := cur.Get(gjsonEscaper.Replace(e.key))
		if !next.Exists() {
			return nil, gjson.Result{}, fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(append(resolved, e)))
		}
		cur = next
		resolved = append(resolved, e)
	}
	return resolved, cur, nil
}

// countOf returns the number of elements of an array or keys of an object
func countOf(res gjson.Result) (int, error) {
	switch {
	case res.IsArray():
		return len(res.Array()), nil
	case res.IsObject():
		n := 0
		res.ForEach(func(_, _ gjson.Result) bool {
			n++
			return true
		})
		return n, nil
	default:
		return 0, ErrPathMismatch
	}
}

// where names a resolved location for error messages
func where(elems []pathElem) string {
	if len(elems) == 0 {
		return "document root"
	}
	return joinPath(elems)
}
