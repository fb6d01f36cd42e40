// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Input validation constants
const (
	// MaxValueSize is the maximum size for a single encoded value in bytes (20MB)
	MaxValueSize = 20 * 1024 * 1024

	// MaxIDLength is the maximum length of a document id in bytes
	MaxIDLength = 250
)

// knownSentinels are the errors normalizeError recognises, most specific first
var knownSentinels = []error{
	ErrCasMismatch,
	ErrDocumentNotFound,
	ErrDocumentExists,
	ErrPathNotFound,
	ErrPathExists,
	ErrPathMismatch,
	ErrInvalidPath,
	ErrInvalidArgument,
	ErrIndexOutOfRange,
	ErrDataFormat,
}

// validateID validates a document id
//
// Checks:
//   - id is not empty or blank
//   - id does not exceed MaxIDLength
//   - id contains no null bytes
func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: document id cannot be empty", ErrInvalidArgument)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: document id exceeds maximum length of %d bytes", ErrInvalidArgument, MaxIDLength)
	}
	if strings.IndexByte(id, 0) >= 0 {
		return fmt.Errorf("%w: document id contains null byte", ErrInvalidArgument)
	}
	return nil
}

// checkPathSecurity checks a path for null bytes and excessive length
func checkPathSecurity(path string) error {
	if len(path) > MaxPathLength {
		return fmt.Errorf("%w: path exceeds maximum length of %d characters: %s", ErrInvalidPath, MaxPathLength, truncatePath(path))
	}
	if i := strings.IndexByte(path, 0); i >= 0 {
		return fmt.Errorf("%w: path contains null byte at position %d", ErrInvalidPath, i)
	}
	return nil
}

// validateValue validates an encoded value for a mutation
//
// Checks:
//   - Value size does not exceed MaxValueSize
//   - Value is valid JSON
func validateValue(value []byte) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%w: value size exceeds maximum of %d bytes (got %d bytes)", ErrInvalidArgument, MaxValueSize, len(value))
	}
	if !gjson.ValidBytes(value) {
		return fmt.Errorf("%w: value is not valid JSON", ErrInvalidArgument)
	}
	return nil
}

// truncatePath truncates a path for error messages
func truncatePath(path string) string {
	if len(path) <= 100 {
		return path
	}
	return path[:100] + "..."
}

// Get fetches a whole document
//
// Unlike the data structures, Get reports an absent document as ErrDocumentNotFound.
//
// Example:
//
//	res, err := coll.Get(ctx, "user::1", subdoc.Timeout(time.Second))
//	if errors.Is(err, subdoc.ErrDocumentNotFound) {
//	    // not there
//	}
//	fmt.Println(res.Value("name").String(), res.Cas)
func (c *Collection) Get(ctx context.Context, id string, mods ...func(*Req)) (GetResult, error) {
	if err := validateID(id); err != nil {
		return GetResult{}, fmt.Errorf("get: %w", err)
	}
	req := buildReq(Req{}, mods)

	attemptCtx, cancel := c.createAttemptContext(ctx, req)
	defer cancel()

	c.logger.Debug(ctx, "get request", "id", id)

	res, err := c.store.Get(attemptCtx, id, req.getOptions())
	if err != nil {
		return GetResult{}, c.normalizeError(ctx, "get", id, err)
	}

	c.logger.Debug(ctx, "get response",
		"id", id,
		"cas", res.Cas,
		"content", c.prepareJSONForLogging(res.Content))
	return res, nil
}

// Remove deletes a whole document, conditioned on WithCas when given
func (c *Collection) Remove(ctx context.Context, id string, mods ...func(*Req)) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	req := buildReq(Req{}, mods)

	attemptCtx, cancel := c.createAttemptContext(ctx, req)
	defer cancel()

	c.logger.Debug(ctx, "remove request", "id", id, "cas", req.Cas)

	if err := c.store.Remove(attemptCtx, id, req.removeOptions()); err != nil {
		return c.normalizeError(ctx, "remove", id, err)
	}
	return nil
}

// LookupIn evaluates sub-document lookups against a document
//
// Per-path failures (for example a missing path) are reported in the result fields;
// the call only fails for document-level errors.
//
// Example:
//
//	res, err := coll.LookupIn(ctx, "queue::jobs", []subdoc.LookupInSpec{
//	    subdoc.CountSpec(subdoc.RootPath),
//	    subdoc.GetSpec(subdoc.TailPath),
//	})
//	n, _ := res.Count(0)
func (c *Collection) LookupIn(ctx context.Context, id string, specs []LookupInSpec, mods ...func(*Req)) (LookupInResult, error) {
	if err := validateID(id); err != nil {
		return LookupInResult{}, fmt.Errorf("lookup_in: %w", err)
	}
	if err := validateLookupSpecs(specs); err != nil {
		return LookupInResult{}, fmt.Errorf("lookup_in: %w", err)
	}
	req := buildReq(Req{}, mods)

	attemptCtx, cancel := c.createAttemptContext(ctx, req)
	defer cancel()

	c.logger.Debug(ctx, "lookup_in request", "id", id, "specs", len(specs))
	for i, spec := range specs {
		c.logger.Debug(ctx, "lookup_in spec", "index", i, "op", spec.Op, "path", spec.Path)
	}

	res, err := c.store.LookupIn(attemptCtx, id, specs, req.lookupInOptions())
	if err != nil {
		return LookupInResult{}, c.normalizeError(ctx, "lookup_in", id, err)
	}

	c.logger.Debug(ctx, "lookup_in response", "id", id, "cas", res.Cas, "fields", len(res.Fields))
	return res, nil
}

// MutateIn atomically applies sub-document mutations to a document
//
// Either every spec applies or none does; the first failing spec is reported as a
// *MultiMutationError reachable through errors.As.
//
// Example:
//
//	_, err := coll.MutateIn(ctx, "queue::jobs",
//	    []subdoc.MutateInSpec{subdoc.ArrayPrependSpec(subdoc.RootPath, []byte(`"job-1"`))},
//	    subdoc.Semantics(subdoc.StoreUpsert))
func (c *Collection) MutateIn(ctx context.Context, id string, specs []MutateInSpec, mods ...func(*Req)) (MutateInResult, error) {
	if err := validateID(id); err != nil {
		return MutateInResult{}, fmt.Errorf("mutate_in: %w", err)
	}
	if err := validateMutateSpecs(specs); err != nil {
		return MutateInResult{}, fmt.Errorf("mutate_in: %w", err)
	}
	req := buildReq(Req{}, mods)

	attemptCtx, cancel := c.createAttemptContext(ctx, req)
	defer cancel()

	c.logger.Debug(ctx, "mutate_in request",
		"id", id,
		"specs", len(specs),
		"cas", req.Cas,
		"semantics", req.Semantics.String(),
		"durability", req.Durability.String())
	for i, spec := range specs {
		c.logger.Debug(ctx, "mutate_in spec",
			"index", i,
			"op", spec.Op,
			"path", spec.Path,
			"value", c.prepareJSONForLogging(spec.Value))
	}

	res, err := c.store.MutateIn(attemptCtx, id, specs, req.mutateInOptions())
	if err != nil {
		return MutateInResult{}, c.normalizeError(ctx, "mutate_in", id, err)
	}

	c.logger.Debug(ctx, "mutate_in response", "id", id, "cas", res.Cas)
	return res, nil
}

// normalizeError maps a store error onto an *OpError classified by sentinel.
//
// Errors the library does not know (transport failures, timeouts) are returned
// unchanged.
func (c *Collection) normalizeError(ctx context.Context, op, id string, err error) error {
	err = FromStatus(err)

	var opErr *OpError
	if errors.As(err, &opErr) {
		normalized := *opErr
		normalized.Operation = op
		normalized.ID = id
		c.logger.Debug(ctx, "store call failed", "operation", op, "id", id, "error", normalized.Error())
		return &normalized
	}

	var mm *MultiMutationError
	if errors.As(err, &mm) {
		c.logger.Debug(ctx, "store mutation rejected",
			"operation", op,
			"id", id,
			"index", mm.Index,
			"path", mm.Path,
			"error", mm.Err)
		return &OpError{
			Operation:   op,
			ID:          id,
			Message:     mm.Err.Error(),
			InternalMsg: mm.Error(),
			Err:         mm.Err,
			Cause:       mm,
		}
	}

	for _, sentinel := range knownSentinels {
		if errors.Is(err, sentinel) {
			c.logger.Debug(ctx, "store call failed", "operation", op, "id", id, "error", err.Error())
			var cause error
			if err != sentinel { //nolint:errorlint // Bare sentinel carries no extra cause
				cause = err
			}
			return newOpError(op, id, sentinel, cause)
		}
	}

	c.logger.Error(ctx, "store call failed",
		"operation", op,
		"id", id,
		"error", err.Error())
	return err
}
