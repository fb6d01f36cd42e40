// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"time"
)

// Store is the document store the library operates against.
//
// Implementations report failures with the sentinel errors of this package
// (ErrDocumentNotFound, ErrCasMismatch, ErrDocumentExists, ...) or with gRPC status
// errors, which the Collection converts through FromStatus. A failing MutateIn must
// leave the document unchanged and report the first failing spec as a
// *MultiMutationError.
//
// MemoryStore and sqlitestore.Store are the implementations shipped with the library.
type Store interface {
	// Get returns the whole document and its CAS
	Get(ctx context.Context, id string, opts GetOptions) (GetResult, error)

	// Remove deletes the document, conditioned on opts.Cas when non-zero
	Remove(ctx context.Context, id string, opts RemoveOptions) error

	// LookupIn evaluates specs against the document and returns per-path results
	LookupIn(ctx context.Context, id string, specs []LookupInSpec, opts LookupInOptions) (LookupInResult, error)

	// MutateIn atomically applies specs, conditioned on opts.Cas when non-zero
	MutateIn(ctx context.Context, id string, specs []MutateInSpec, opts MutateInOptions) (MutateInResult, error)
}

// StoreOptions are per-call options a Store may honour; the library passes them
// through without inspecting them.
type StoreOptions struct {
	// Timeout bounds the store call
	Timeout time.Duration

	// Durability is the durability requirement of a mutation
	Durability DurabilityLevel
}

// GetOptions are the options of Store.Get
type GetOptions struct {
	StoreOptions
}

// RemoveOptions are the options of Store.Remove
type RemoveOptions struct {
	StoreOptions

	// Cas is the CAS precondition (0 means none)
	Cas uint64
}

// LookupInOptions are the options of Store.LookupIn
type LookupInOptions struct {
	StoreOptions
}

// MutateInOptions are the options of Store.MutateIn
type MutateInOptions struct {
	StoreOptions

	// Cas is the CAS precondition (0 means none)
	Cas uint64

	// Semantics is the document-level precondition
	Semantics StoreSemantics

	// Expiry sets the document time-to-live when positive
	Expiry time.Duration
}
