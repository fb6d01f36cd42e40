// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestOperationTimeoutOption tests the OperationTimeout functional option
func TestOperationTimeoutOption(t *testing.T) {
	coll := &Collection{}
	OperationTimeout(5 * time.Second)(coll)

	if coll.OperationTimeout != 5*time.Second {
		t.Errorf("OperationTimeout() set timeout to %v, want 5s", coll.OperationTimeout)
	}
}

// TestMaxRetriesOption tests the MaxRetries functional option
func TestMaxRetriesOption(t *testing.T) {
	coll := &Collection{}
	MaxRetries(25)(coll)

	if coll.MaxRetries != 25 {
		t.Errorf("MaxRetries() set retries to %d, want 25", coll.MaxRetries)
	}
}

// TestBackoffOptions tests the backoff functional options
func TestBackoffOptions(t *testing.T) {
	coll := &Collection{}
	BackoffMinDelay(2 * time.Millisecond)(coll)
	BackoffMaxDelay(time.Second)(coll)
	BackoffDelayFactor(1.5)(coll)

	if coll.BackoffMinDelay != 2*time.Millisecond {
		t.Errorf("BackoffMinDelay = %v", coll.BackoffMinDelay)
	}
	if coll.BackoffMaxDelay != time.Second {
		t.Errorf("BackoffMaxDelay = %v", coll.BackoffMaxDelay)
	}
	if coll.BackoffDelayFactor != 1.5 {
		t.Errorf("BackoffDelayFactor = %v", coll.BackoffDelayFactor)
	}
}

// TestWithLoggerOption tests the WithLogger functional option
func TestWithLoggerOption(t *testing.T) {
	customLogger := &DefaultLogger{level: LogLevelDebug}
	coll := &Collection{}
	WithLogger(customLogger)(coll)

	if coll.logger != customLogger {
		t.Error("WithLogger() did not set custom logger")
	}

	WithLogger(nil)(coll)
	if coll.logger != customLogger {
		t.Error("WithLogger(nil) replaced the logger")
	}
}

// TestWithTranscoderOption tests the WithTranscoder functional option
func TestWithTranscoderOption(t *testing.T) {
	coll := newTestCollection(t, NewMemoryStore(), WithTranscoder(RawTranscoder{}))
	if _, ok := coll.Transcoder().(RawTranscoder); !ok {
		t.Errorf("Transcoder() = %T, want RawTranscoder", coll.Transcoder())
	}

	coll = newTestCollection(t, NewMemoryStore(), WithTranscoder(nil))
	if _, ok := coll.Transcoder().(JSONTranscoder); !ok {
		t.Errorf("WithTranscoder(nil) gave %T, want the default", coll.Transcoder())
	}
}

// TestWithPrettyPrintLogsOption tests the WithPrettyPrintLogs functional option
func TestWithPrettyPrintLogsOption(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
	}{
		{
			name:    "pretty print enabled",
			enabled: true,
		},
		{
			name:    "pretty print disabled",
			enabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll := &Collection{}
			WithPrettyPrintLogs(tt.enabled)(coll)

			if coll.prettyPrintLogs != tt.enabled {
				t.Errorf("WithPrettyPrintLogs() set prettyPrintLogs to %v, want %v",
					coll.prettyPrintLogs, tt.enabled)
			}
		})
	}
}

// TestStructureOptions tests how data structure options resolve against the collection
func TestStructureOptions(t *testing.T) {
	coll := newTestCollection(t, NewMemoryStore(), MaxRetries(7), WithTranscoder(RawTranscoder{}))

	tests := []struct {
		name         string
		opts         []Option
		wantAttempts int
		wantRaw      bool
		wantDefaults Req
	}{
		{
			name:         "inherits collection",
			wantAttempts: 7,
			wantRaw:      true,
		},
		{
			name:         "own retries",
			opts:         []Option{CasMismatchRetries(3)},
			wantAttempts: 3,
			wantRaw:      true,
		},
		{
			name:         "own transcoder",
			opts:         []Option{ElementTranscoder(JSONTranscoder{})},
			wantAttempts: 7,
		},
		{
			name: "defaults accumulate",
			opts: []Option{
				Defaults(Timeout(time.Second)),
				nil,
				Defaults(Durability(DurabilityMajority), Expiry(time.Hour)),
			},
			wantAttempts: 7,
			wantRaw:      true,
			wantDefaults: Req{Timeout: time.Second, Durability: DurabilityMajority, Expiry: time.Hour},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := newBinding("queue", coll, "jobs", tt.opts)
			if err != nil {
				t.Fatalf("newBinding() error: %v", err)
			}
			if b.attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", b.attempts, tt.wantAttempts)
			}
			if _, raw := b.tc.(RawTranscoder); raw != tt.wantRaw {
				t.Errorf("transcoder = %T", b.tc)
			}
			if b.defaults != tt.wantDefaults {
				t.Errorf("defaults = %+v, want %+v", b.defaults, tt.wantDefaults)
			}
		})
	}
}

// TestStructureOptions_Validation tests constructor argument checks
func TestStructureOptions_Validation(t *testing.T) {
	coll := newTestCollection(t, NewMemoryStore())

	if _, err := NewSet[string](nil, "s"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewSet(nil collection) error = %v", err)
	}
	if _, err := NewMap[string](coll, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewMap(empty id) error = %v", err)
	}
	if _, err := NewList[string](coll, "l", CasMismatchRetries(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewList(negative retries) error = %v", err)
	}
}

// TestDefaults_CallOverrides tests that per-call modifiers win over instance defaults
func TestDefaults_CallOverrides(t *testing.T) {
	var seen []time.Duration
	store := &deadlineStore{Store: NewMemoryStore(), seen: new(time.Duration)}
	coll := newTestCollection(t, store, OperationTimeout(time.Hour))
	q, err := NewQueue[string](coll, "jobs", Defaults(Timeout(time.Minute)))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := q.Iterator(context.Background()); err != nil {
		t.Fatal(err)
	}
	seen = append(seen, *store.seen)
	if _, err := q.Iterator(context.Background(), Timeout(time.Second)); err != nil {
		t.Fatal(err)
	}
	seen = append(seen, *store.seen)

	if seen[0] <= 30*time.Second || seen[0] > time.Minute {
		t.Errorf("instance default deadline = %v, want about one minute", seen[0])
	}
	if seen[1] > time.Second {
		t.Errorf("call deadline = %v, want at most one second", seen[1])
	}
}
