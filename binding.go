// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// binding ties a data structure to one document of a collection together with its
// resolved options. It holds no document content.
type binding struct {
	coll     *Collection
	id       string
	tc       Transcoder
	attempts int
	defaults Req
}

func newBinding(kind string, coll *Collection, id string, opts []Option) (binding, error) {
	if coll == nil {
		return binding{}, fmt.Errorf("new %s: %w: collection cannot be nil", kind, ErrInvalidArgument)
	}
	if err := validateID(id); err != nil {
		return binding{}, fmt.Errorf("new %s: %w", kind, err)
	}

	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	b := binding{
		coll:     coll,
		id:       id,
		tc:       o.Transcoder,
		attempts: o.CasMismatchRetries,
		defaults: o.Defaults,
	}
	if b.tc == nil {
		b.tc = coll.transcoder
	}
	if b.attempts == 0 {
		b.attempts = coll.MaxRetries
	}
	if b.attempts < 1 {
		return binding{}, fmt.Errorf("new %s: %w: cas mismatch retries must be at least 1, got: %d",
			kind, ErrInvalidArgument, b.attempts)
	}
	return b, nil
}

// req merges the instance defaults with the call's modifiers
func (b binding) req(mods []func(*Req)) Req {
	return buildReq(b.defaults, mods)
}

func (b binding) engine() casEngine {
	return casEngine{coll: b.coll, attempts: b.attempts}
}

// encode rejects nil values and encodes v with the instance transcoder. Values the
// transcoder renders as JSON null are rejected as well.
func (b binding) encode(op string, v any) ([]byte, error) {
	if isNilValue(v) {
		return nil, newOpError(op, b.id, ErrInvalidArgument, fmt.Errorf("unsupported nil value"))
	}
	data, err := encodeWith(b.tc, v)
	if err != nil {
		return nil, newOpError(op, b.id, ErrDataFormat, err)
	}
	if parsed := gjson.ParseBytes(data); parsed.Type == gjson.Null && parsed.Raw != "" {
		return nil, newOpError(op, b.id, ErrInvalidArgument, fmt.Errorf("value encodes to null"))
	}
	return data, nil
}

// count returns the element count of the document root; an absent document counts 0
func (b binding) count(ctx context.Context, req Req) (int, error) {
	res, err := b.coll.LookupIn(ctx, b.id, []LookupInSpec{CountSpec(RootPath)}, useReq(req))
	if IsDocumentNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return res.Count(0)
}

// clear removes the document unconditionally; an absent document is already clear
func (b binding) clear(ctx context.Context, req Req) error {
	req.Cas = 0
	err := b.coll.Remove(ctx, b.id, useReq(req))
	if IsDocumentNotFound(err) {
		return nil
	}
	return err
}

// arrayContent fetches the document as array elements; an absent document is empty
func (b binding) arrayContent(ctx context.Context, req Req) ([]gjson.Result, uint64, error) {
	res, err := b.coll.Get(ctx, b.id, useReq(req))
	if err != nil {
		return nil, 0, err
	}
	items, err := arrayItems(b.id, res.Content)
	if err != nil {
		return nil, 0, err
	}
	return items, res.Cas, nil
}

// useReq returns a modifier replacing the request with req
func useReq(req Req) func(*Req) {
	return func(r *Req) {
		*r = req
	}
}

// arrayItems parses array-backed document content
func arrayItems(id string, content []byte) ([]gjson.Result, error) {
	doc := gjson.ParseBytes(content)
	if !doc.IsArray() {
		return nil, newOpError("decode", id, ErrPathMismatch, fmt.Errorf("document is not a JSON array"))
	}
	return doc.Array(), nil
}

// decodeElem decodes a single element
func decodeElem[E any](tc Transcoder, raw string) (E, error) {
	var v E
	if err := decodeWith(tc, []byte(raw), &v); err != nil {
		var zero E
		return zero, err
	}
	return v, nil
}

// decodeAll decodes every element of items
func decodeAll[E any](tc Transcoder, items []gjson.Result) ([]E, error) {
	out := make([]E, 0, len(items))
	for _, item := range items {
		v, err := decodeElem[E](tc, item.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// indexOf returns the position of the first element equal to v, or -1
func indexOf[E any](tc Transcoder, items []gjson.Result, v E, equal func(a, b E) bool) (int, error) {
	for i, item := range items {
		cur, err := decodeElem[E](tc, item.Raw)
		if err != nil {
			return -1, err
		}
		if equal(cur, v) {
			return i, nil
		}
	}
	return -1, nil
}
