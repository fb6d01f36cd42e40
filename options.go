// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import "time"

// Collection configuration options using the functional options pattern

// OperationTimeout sets the default timeout of a single store call (default: 2.5s)
func OperationTimeout(duration time.Duration) func(*Collection) {
	return func(c *Collection) {
		c.OperationTimeout = duration
	}
}

// MaxRetries sets the default number of attempts of a CAS loop (default: 10)
//
// Data structures created from the collection inherit this bound unless they set
// CasMismatchRetries themselves. Must be at least 1.
func MaxRetries(retries int) func(*Collection) {
	return func(c *Collection) {
		c.MaxRetries = retries
	}
}

// BackoffMinDelay sets the pause before the second CAS attempt (default: 0, no pause)
//
// With a positive value, conflicting writers back off exponentially with jitter
// instead of retrying immediately.
func BackoffMinDelay(duration time.Duration) func(*Collection) {
	return func(c *Collection) {
		c.BackoffMinDelay = duration
	}
}

// BackoffMaxDelay caps the pause between CAS attempts (default: 100ms)
func BackoffMaxDelay(duration time.Duration) func(*Collection) {
	return func(c *Collection) {
		c.BackoffMaxDelay = duration
	}
}

// BackoffDelayFactor sets the backoff multiplication factor (default: 2.0)
func BackoffDelayFactor(factor float64) func(*Collection) {
	return func(c *Collection) {
		c.BackoffDelayFactor = factor
	}
}

// WithTranscoder sets the default element transcoder (default: JSONTranscoder)
func WithTranscoder(tc Transcoder) func(*Collection) {
	return func(c *Collection) {
		if tc != nil {
			c.transcoder = tc
		}
	}
}

// WithLogger configures a custom logger for the collection
//
// By default, the collection uses NoOpLogger which discards all log messages.
// Document content logged at Debug level is redacted (passwords, secrets, keys,
// tokens) and size-capped.
//
// Example:
//
//	logger := subdoc.NewDefaultLogger(subdoc.LogLevelInfo)
//	coll, _ := subdoc.NewCollection(store, subdoc.WithLogger(logger))
func WithLogger(logger Logger) func(*Collection) {
	return func(c *Collection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing in debug logs
//
// Default: disabled (false)
func WithPrettyPrintLogs(enabled bool) func(*Collection) {
	return func(c *Collection) {
		c.prettyPrintLogs = enabled
	}
}

// Request modifiers for individual operations

// Timeout returns a request modifier that sets a custom timeout for each store call.
//
// The timeout priority model is:
//  1. Request-specific timeout (this modifier) - highest priority
//  2. Context deadline (if already set) - medium priority
//  3. Collection.OperationTimeout - fallback default
//
// A CAS loop applies the timeout to every store call it makes, not to the loop.
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// Durability returns a request modifier setting the durability of mutations
func Durability(level DurabilityLevel) func(*Req) {
	return func(req *Req) {
		req.Durability = level
	}
}

// Expiry returns a request modifier setting the document time-to-live on mutations
func Expiry(ttl time.Duration) func(*Req) {
	return func(req *Req) {
		req.Expiry = ttl
	}
}

// WithCas returns a request modifier setting the CAS precondition of Remove and MutateIn
//
// Data structures set the CAS themselves; a WithCas passed to them is overridden.
func WithCas(cas uint64) func(*Req) {
	return func(req *Req) {
		req.Cas = cas
	}
}

// Semantics returns a request modifier setting the store semantics of MutateIn
func Semantics(s StoreSemantics) func(*Req) {
	return func(req *Req) {
		req.Semantics = s
	}
}

// Data structure options

// Options configures a Queue, Set, Map or List instance
type Options struct {
	// CasMismatchRetries bounds the attempts of every CAS loop of the instance
	// Zero inherits Collection.MaxRetries
	CasMismatchRetries int

	// Transcoder encodes and decodes elements
	// Nil inherits the collection's transcoder
	Transcoder Transcoder

	// Defaults are the per-call options applied before the call's own modifiers
	Defaults Req
}

// Option configures a data structure
type Option func(*Options)

// CasMismatchRetries sets the number of attempts of the instance's CAS loops
func CasMismatchRetries(retries int) Option {
	return func(o *Options) {
		o.CasMismatchRetries = retries
	}
}

// ElementTranscoder sets the element transcoder of the instance
func ElementTranscoder(tc Transcoder) Option {
	return func(o *Options) {
		o.Transcoder = tc
	}
}

// Defaults sets instance-wide request modifiers, applied before per-call ones
//
// Example:
//
//	q, _ := subdoc.NewQueue[string](coll, "jobs",
//	    subdoc.Defaults(subdoc.Durability(subdoc.DurabilityMajority)))
func Defaults(mods ...func(*Req)) Option {
	return func(o *Options) {
		o.Defaults = buildReq(o.Defaults, mods)
	}
}
