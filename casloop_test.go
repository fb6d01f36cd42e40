// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRunCAS_Outcomes tests how read and write results end the loop
func TestRunCAS_Outcomes(t *testing.T) {
	casConflict := newOpError("mutate_in", "d", ErrCasMismatch, nil)
	notFound := newOpError("lookup_in", "d", ErrDocumentNotFound, nil)
	pathMissing := ErrPathNotFound
	exists := newOpError("mutate_in", "d", ErrDocumentExists, nil)
	boom := errors.New("boom")

	tests := []struct {
		name        string
		creates     bool
		readErrs    []error
		writeErrs   []error
		wantOutcome casOutcome
		wantErr     error
		wantReads   int
		wantWrites  int
		wantCas     uint64
	}{
		{
			name:        "applied first try",
			readErrs:    []error{nil},
			writeErrs:   []error{nil},
			wantOutcome: casApplied,
			wantReads:   1,
			wantWrites:  1,
			wantCas:     7,
		},
		{
			name:        "retried after conflict",
			readErrs:    []error{nil, nil},
			writeErrs:   []error{casConflict, nil},
			wantOutcome: casApplied,
			wantReads:   2,
			wantWrites:  2,
			wantCas:     7,
		},
		{
			name:        "absent document",
			readErrs:    []error{notFound},
			wantOutcome: casAbsent,
			wantReads:   1,
		},
		{
			name:        "absent path",
			readErrs:    []error{pathMissing},
			wantOutcome: casAbsent,
			wantReads:   1,
		},
		{
			name:        "absent document creates",
			creates:     true,
			readErrs:    []error{notFound},
			writeErrs:   []error{nil},
			wantOutcome: casApplied,
			wantReads:   1,
			wantWrites:  1,
			wantCas:     0,
		},
		{
			name:        "lost insert race",
			creates:     true,
			readErrs:    []error{notFound, nil},
			writeErrs:   []error{exists, nil},
			wantOutcome: casApplied,
			wantReads:   2,
			wantWrites:  2,
			wantCas:     7,
		},
		{
			name:        "document removed between read and write",
			readErrs:    []error{nil},
			writeErrs:   []error{notFound},
			wantOutcome: casAbsent,
			wantReads:   1,
			wantWrites:  1,
			wantCas:     7,
		},
		{
			name:       "read failure",
			readErrs:   []error{boom},
			wantErr:    boom,
			wantReads:  1,
			wantWrites: 0,
		},
		{
			name:       "write failure",
			readErrs:   []error{nil},
			writeErrs:  []error{boom},
			wantErr:    boom,
			wantReads:  1,
			wantWrites: 1,
			wantCas:    7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll := newTestCollection(t, NewMemoryStore())
			reads, writes := 0, 0
			var lastCas uint64

			read := func(context.Context) (string, uint64, error) {
				err := tt.readErrs[reads]
				reads++
				if err != nil {
					return "", 0, err
				}
				return "state", 7, nil
			}
			write := func(_ context.Context, state string, cas uint64) error {
				err := tt.writeErrs[writes]
				writes++
				lastCas = cas
				return err
			}

			state, outcome, err := runCAS(context.Background(), casEngine{coll: coll, attempts: 5}, "test.op", "d", tt.creates, read, write)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("runCAS() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("runCAS() error = %v", err)
			}
			if tt.wantErr == nil && outcome != tt.wantOutcome {
				t.Errorf("outcome = %v, want %v", outcome, tt.wantOutcome)
			}
			if reads != tt.wantReads || writes != tt.wantWrites {
				t.Errorf("reads/writes = %d/%d, want %d/%d", reads, writes, tt.wantReads, tt.wantWrites)
			}
			if writes > 0 && lastCas != tt.wantCas {
				t.Errorf("last write cas = %d, want %d", lastCas, tt.wantCas)
			}
			if outcome == casApplied && tt.wantErr == nil && tt.readErrs[reads-1] == nil && state != "state" {
				t.Errorf("state = %q", state)
			}
		})
	}
}

// TestRunCAS_Exhausted tests the retry bound
func TestRunCAS_Exhausted(t *testing.T) {
	logger := &recordingLogger{}
	coll := newTestCollection(t, NewMemoryStore(), WithLogger(logger))
	writes := 0

	_, _, err := runCAS(context.Background(), casEngine{coll: coll, attempts: 4}, "queue.poll", "jobs", false,
		func(context.Context) (int, uint64, error) { return 1, 1, nil },
		func(context.Context, int, uint64) error {
			writes++
			return newOpError("mutate_in", "jobs", ErrCasMismatch, nil)
		})

	var opErr *OpError
	if !errors.As(err, &opErr) || !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("error = %v, want OpError with ErrRetryExhausted", err)
	}
	if opErr.Retries != 4 || writes != 4 {
		t.Errorf("retries = %d, writes = %d, want 4", opErr.Retries, writes)
	}
	if logger.count("WARN cas conflict") != 4 {
		t.Errorf("conflict warnings = %d, want 4", logger.count("WARN cas conflict"))
	}
	if logger.count("ERROR cas retries exhausted") != 1 {
		t.Error("expected an exhaustion error log")
	}
}

// TestRunCAS_BackoffHonoursContext tests that a canceled context stops the pause between attempts
func TestRunCAS_BackoffHonoursContext(t *testing.T) {
	coll := newTestCollection(t, NewMemoryStore(),
		BackoffMinDelay(time.Hour),
		BackoffMaxDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()

	_, _, err := runCAS(ctx, casEngine{coll: coll, attempts: 3}, "set.add", "s", false,
		func(context.Context) (int, uint64, error) { return 0, 1, nil },
		func(context.Context, int, uint64) error {
			cancel()
			return newOpError("mutate_in", "s", ErrCasMismatch, nil)
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("pause did not return on cancellation")
	}
}
