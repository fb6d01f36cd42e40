// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Default collection configuration values
const (
	DefaultOperationTimeout   = 2500 * time.Millisecond
	DefaultMaxRetries         = 10
	DefaultBackoffMinDelay    = 0
	DefaultBackoffMaxDelay    = 100 * time.Millisecond
	DefaultBackoffDelayFactor = 2
	DefaultPrettyPrintLogs    = false
)

// Security limits for JSON processing and logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields    = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// sensitiveFields are redacted from document content before it is logged
var sensitiveFields = []string{"password", "secret", "key", "token", "auth"}

// defaultRedactionPatterns contains one pattern per entry of sensitiveFields
var defaultRedactionPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(sensitiveFields))
	for i, field := range sensitiveFields {
		patterns[i] = regexp.MustCompile(`"` + field + `"\s*:\s*"[^"]*"`)
	}
	return patterns
}()

// Collection gives typed access to the documents of a Store and is the handle data
// structures are created from.
//
// A Collection holds no document content. It validates requests, applies per-call
// timeouts, normalises store errors onto the sentinels of this package and logs.
// It is safe for concurrent use as long as the Store is.
type Collection struct {
	store Store

	// Timeout configuration
	OperationTimeout time.Duration

	// CAS loop configuration
	MaxRetries         int
	BackoffMinDelay    time.Duration
	BackoffMaxDelay    time.Duration
	BackoffDelayFactor float64

	transcoder Transcoder

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp
}

// NewCollection creates a Collection over store with the specified options
//
// Example:
//
//	coll, err := subdoc.NewCollection(subdoc.NewMemoryStore(),
//	    subdoc.OperationTimeout(time.Second),
//	    subdoc.MaxRetries(16),
//	    subdoc.WithLogger(subdoc.NewDefaultLogger(subdoc.LogLevelInfo)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Returns a configured Collection or an error if configuration validation fails.
func NewCollection(store Store, opts ...func(*Collection)) (*Collection, error) {
	c := &Collection{
		store:              store,
		OperationTimeout:   DefaultOperationTimeout,
		MaxRetries:         DefaultMaxRetries,
		BackoffMinDelay:    DefaultBackoffMinDelay,
		BackoffMaxDelay:    DefaultBackoffMaxDelay,
		BackoffDelayFactor: DefaultBackoffDelayFactor,
		transcoder:         JSONTranscoder{},
		logger:             &NoOpLogger{},
		prettyPrintLogs:    DefaultPrettyPrintLogs,
		redactionPatterns:  defaultRedactionPatterns,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validateConfig(); err != nil {
		return nil, err
	}

	c.logger.Debug(context.Background(), "collection created",
		"operation_timeout", c.OperationTimeout.String(),
		"max_retries", c.MaxRetries)

	return c, nil
}

// Transcoder returns the collection's default element transcoder
func (c *Collection) Transcoder() Transcoder {
	return c.transcoder
}

// validateConfig validates collection configuration
//
// Validates:
//   - A store is set
//   - OperationTimeout > 0
//   - MaxRetries >= 1 (a CAS loop needs at least one attempt)
//   - BackoffMinDelay >= 0, BackoffMaxDelay >= BackoffMinDelay when backoff is enabled
//   - BackoffDelayFactor >= 1.0
func (c *Collection) validateConfig() error {
	if c.store == nil {
		return fmt.Errorf("%w: store cannot be nil", ErrInvalidArgument)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("%w: operation timeout must be positive, got: %v", ErrInvalidArgument, c.OperationTimeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1, got: %d", ErrInvalidArgument, c.MaxRetries)
	}
	if c.BackoffMinDelay < 0 {
		return fmt.Errorf("%w: backoff min delay must be non-negative, got: %v", ErrInvalidArgument, c.BackoffMinDelay)
	}
	if c.BackoffMinDelay > 0 && c.BackoffMaxDelay < c.BackoffMinDelay {
		return fmt.Errorf("%w: backoff max delay (%v) must not be less than min delay (%v)",
			ErrInvalidArgument, c.BackoffMaxDelay, c.BackoffMinDelay)
	}
	if c.BackoffDelayFactor < 1.0 {
		return fmt.Errorf("%w: backoff delay factor must be >= 1.0, got: %f", ErrInvalidArgument, c.BackoffDelayFactor)
	}
	return nil
}

// Backoff calculates the pause before CAS attempt number attempt+1 using
// exponential backoff with jitter
//
// The formula is: delay = min(minDelay * (factor ^ attempt) + jitter, maxDelay)
// where jitter is a random value in [0, delay * 0.1]. Returns 0 when backoff is
// disabled (BackoffMinDelay == 0).
func (c *Collection) Backoff(attempt int) time.Duration {
	if c.BackoffMinDelay <= 0 {
		return 0
	}

	delay := float64(c.BackoffMinDelay) * math.Pow(c.BackoffDelayFactor, float64(attempt))
	if math.IsInf(delay, 1) || delay > float64(c.BackoffMaxDelay) {
		delay = float64(c.BackoffMaxDelay)
	}

	jitterMax := int64(delay * 0.1)
	if jitterMax > 0 {
		var jitterBytes [8]byte
		if _, err := rand.Read(jitterBytes[:]); err == nil {
			//nolint:gosec // G115: masked to a positive int64
			jitter := int64(binary.BigEndian.Uint64(jitterBytes[:]) & 0x7FFFFFFFFFFFFFFF)
			delay += float64(jitter % jitterMax)
		} else {
			timestamp := time.Now().UnixNano()
			delay += float64((timestamp%jitterMax + jitterMax) % jitterMax)
		}
	}

	return time.Duration(delay)
}

// pause sleeps for Backoff(attempt), returning early with ctx's error if it is done
func (c *Collection) pause(ctx context.Context, attempt int) error {
	d := c.Backoff(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// prepareJSONForLogging redacts sensitive data and formats JSON for logging
//
//  1. Caps the size at MaxJSONSizeForLogging
//  2. Caps the number of sensitive fields at MaxSensitiveFields
//  3. Redacts password, secret, key, token and auth string fields
//  4. Pretty-prints if prettyPrintLogs is enabled
func (c *Collection) prepareJSONForLogging(jsonBytes []byte) string {
	if len(jsonBytes) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	jsonStr := string(jsonBytes)
	sensitiveCount := 0
	for _, field := range sensitiveFields {
		sensitiveCount += strings.Count(jsonStr, `"`+field+`"`)
	}
	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(jsonStr)

	if c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}

	return redacted
}

// redactSensitiveData replaces sensitive string fields with [REDACTED]
func (c *Collection) redactSensitiveData(json string) string {
	result := json
	for i, pattern := range c.redactionPatterns {
		if i >= len(sensitiveFields) {
			break
		}
		result = pattern.ReplaceAllString(result, `"`+sensitiveFields[i]+`":"[REDACTED]"`)
	}
	return result
}

// createAttemptContext derives the context of a single store call
//
// Timeout priority model:
//  1. Request-specific timeout (req.Timeout > 0) - highest priority
//  2. Existing context deadline (ctx.Deadline() set) - medium priority
//  3. Collection default timeout (c.OperationTimeout) - fallback
//
// The caller must call the returned cancel function once the call returns.
func (c *Collection) createAttemptContext(ctx context.Context, req Req) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.OperationTimeout)
}
