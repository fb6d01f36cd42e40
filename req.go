// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import "time"

// Req holds the per-call options of an operation
//
// Req values are built by applying request modifiers (Timeout, Durability, Expiry,
// WithCas, Semantics) on top of defaults. Data structures merge their instance
// defaults with the call's modifiers once at call entry.
//
// Example:
//
//	// Offer with a 2s timeout and majority durability
//	err := q.Offer(ctx, job,
//	    subdoc.Timeout(2*time.Second),
//	    subdoc.Durability(subdoc.DurabilityMajority))
type Req struct {
	// Timeout is the request-specific timeout
	// Overrides the collection's OperationTimeout if set
	Timeout time.Duration

	// Durability is passed through to the store for mutations
	Durability DurabilityLevel

	// Expiry sets the document time-to-live on mutations when positive
	Expiry time.Duration

	// Cas is the CAS precondition for Remove and MutateIn (0 means none)
	Cas uint64

	// Semantics is the document-level precondition for MutateIn
	Semantics StoreSemantics
}

// buildReq applies mods on top of base
func buildReq(base Req, mods []func(*Req)) Req {
	req := base
	for _, mod := range mods {
		if mod != nil {
			mod(&req)
		}
	}
	return req
}

func (r Req) storeOptions() StoreOptions {
	return StoreOptions{Timeout: r.Timeout, Durability: r.Durability}
}

func (r Req) getOptions() GetOptions {
	return GetOptions{StoreOptions: r.storeOptions()}
}

func (r Req) lookupInOptions() LookupInOptions {
	return LookupInOptions{StoreOptions: r.storeOptions()}
}

func (r Req) removeOptions() RemoveOptions {
	return RemoveOptions{StoreOptions: r.storeOptions(), Cas: r.Cas}
}

func (r Req) mutateInOptions() MutateInOptions {
	return MutateInOptions{
		StoreOptions: r.storeOptions(),
		Cas:          r.Cas,
		Semantics:    r.Semantics,
		Expiry:       r.Expiry,
	}
}
