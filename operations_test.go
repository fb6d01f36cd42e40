// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestValidateID tests document id validation
func TestValidateID(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		expectError bool
		errorMsg    string
	}{
		{name: "valid id", id: "queue::jobs"},
		{name: "empty id", id: "", expectError: true, errorMsg: "cannot be empty"},
		{name: "blank id", id: "   ", expectError: true, errorMsg: "cannot be empty"},
		{name: "too long", id: strings.Repeat("a", MaxIDLength+1), expectError: true, errorMsg: "exceeds maximum length"},
		{name: "max length", id: strings.Repeat("a", MaxIDLength)},
		{name: "null byte", id: "jobs\x00", expectError: true, errorMsg: "null byte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateID(tt.id)
			if !tt.expectError {
				if err != nil {
					t.Errorf("unexpected error for valid id: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got: %v", err)
			} else if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q but got: %v", tt.errorMsg, err)
			}
		})
	}
}

// TestInputValidation_PathSecurity tests path length and null byte checks
func TestInputValidation_PathSecurity(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
		errorMsg    string
	}{
		{name: "root", path: RootPath},
		{name: "nested path", path: "a.b[2].`c.d`"},
		{name: "null byte injection", path: "a\x00b", expectError: true, errorMsg: "null byte at position 1"},
		{name: "path too long", path: strings.Repeat("a", MaxPathLength+1), expectError: true, errorMsg: "exceeds maximum length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPathSecurity(tt.path)
			if tt.expectError {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath but got: %v", err)
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q but got: %v", tt.errorMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error for valid path: %v", err)
			}
		})
	}
}

// TestInputValidation_ValueSize tests value size and syntax limits
func TestInputValidation_ValueSize(t *testing.T) {
	tests := []struct {
		name        string
		value       []byte
		expectError bool
	}{
		{name: "string", value: []byte(`"x"`)},
		{name: "object", value: []byte(`{"a":[1,2]}`)},
		{name: "invalid json", value: []byte(`{"a":`), expectError: true},
		{name: "empty", value: nil, expectError: true},
		{name: "too large", value: []byte(`"` + strings.Repeat("a", MaxValueSize) + `"`), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateValue(tt.value)
			if tt.expectError != (err != nil) {
				t.Errorf("validateValue() error = %v, expectError %v", err, tt.expectError)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got: %v", err)
			}
		})
	}
}

// TestTruncatePath tests path truncation for error messages
func TestTruncatePath(t *testing.T) {
	if got := truncatePath("short"); got != "short" {
		t.Errorf("truncatePath(short) = %q", got)
	}
	got := truncatePath(strings.Repeat("x", 150))
	if len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncatePath(long) = %q", got)
	}
}

// TestOperationValidation tests that invalid requests fail before any store call
func TestOperationValidation(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(NewMemoryStore())
	coll := newTestCollection(t, store)

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name:    "get empty id",
			call:    func() error { _, err := coll.Get(ctx, ""); return err },
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "remove empty id",
			call:    func() error { return coll.Remove(ctx, " ") },
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "lookup_in no specs",
			call:    func() error { _, err := coll.LookupIn(ctx, "d", nil); return err },
			wantErr: ErrInvalidArgument,
		},
		{
			name: "lookup_in unknown op",
			call: func() error {
				_, err := coll.LookupIn(ctx, "d", []LookupInSpec{{Op: "fetch", Path: "a"}})
				return err
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "lookup_in null byte path",
			call: func() error {
				_, err := coll.LookupIn(ctx, "d", []LookupInSpec{GetSpec("a\x00")})
				return err
			},
			wantErr: ErrInvalidPath,
		},
		{
			name:    "mutate_in no specs",
			call:    func() error { _, err := coll.MutateIn(ctx, "d", nil); return err },
			wantErr: ErrInvalidArgument,
		},
		{
			name: "mutate_in remove root",
			call: func() error {
				_, err := coll.MutateIn(ctx, "d", []MutateInSpec{RemoveSpec(RootPath)})
				return err
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "mutate_in invalid value",
			call: func() error {
				_, err := coll.MutateIn(ctx, "d", []MutateInSpec{UpsertSpec("a", []byte(`{`))})
				return err
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "mutate_in unknown op",
			call: func() error {
				_, err := coll.MutateIn(ctx, "d", []MutateInSpec{{Op: "merge", Path: "a", Value: []byte(`1`)}})
				return err
			},
			wantErr: ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if n := store.total(); n != 0 {
		t.Errorf("store calls = %d, want 0", n)
	}
}

// TestNormalizeError_Sentinels tests that store sentinels become OpErrors naming the call
func TestNormalizeError_Sentinels(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cas := seed(t, store, "d", `{"a":1}`)
	coll := newTestCollection(t, store)

	_, err := coll.Get(ctx, "missing")
	var opErr *OpError
	if !errors.As(err, &opErr) || !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Get(missing) error = %v, want OpError with ErrDocumentNotFound", err)
	}
	if opErr.Operation != "get" || opErr.ID != "missing" {
		t.Errorf("OpError = %+v", opErr)
	}

	err = coll.Remove(ctx, "d", WithCas(cas+100))
	if !IsCasMismatch(err) || !errors.As(err, &opErr) || opErr.Operation != "remove" {
		t.Errorf("Remove(stale cas) error = %v", err)
	}

	_, err = coll.MutateIn(ctx, "d", []MutateInSpec{UpsertSpec("b", []byte(`2`))}, Semantics(StoreInsert))
	if !errors.Is(err, ErrDocumentExists) {
		t.Errorf("MutateIn(insert existing) error = %v", err)
	}
}

// TestNormalizeError_MultiMutation tests that a failing spec stays reachable through errors.As
func TestNormalizeError_MultiMutation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, "d", `{"a":1}`)
	coll := newTestCollection(t, store)

	_, err := coll.MutateIn(ctx, "d", []MutateInSpec{
		UpsertSpec("b", []byte(`2`)),
		ReplaceSpec("missing", []byte(`3`)),
	})

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Operation != "mutate_in" {
		t.Fatalf("error = %v, want OpError for mutate_in", err)
	}
	if !IsPathNotFound(err) {
		t.Errorf("error = %v, want ErrPathNotFound", err)
	}
	var mm *MultiMutationError
	if !errors.As(err, &mm) {
		t.Fatalf("error = %v, want a MultiMutationError cause", err)
	}
	if mm.Index != 1 || mm.Path != "missing" {
		t.Errorf("MultiMutationError = %+v, want index 1 at missing", mm)
	}
	if got := content(t, store, "d"); got != `{"a":1}` {
		t.Errorf("document = %s, want unchanged", got)
	}
}

// TestNormalizeError_Status tests the mapping of remote store gRPC statuses
func TestNormalizeError_Status(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "remote"), ErrDocumentNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "remote"), ErrDocumentExists},
		{"aborted", status.Error(codes.Aborted, "remote"), ErrCasMismatch},
		{"out of range", status.Error(codes.OutOfRange, "remote"), ErrIndexOutOfRange},
		{"path not found detail", (&OpError{Err: ErrPathNotFound}).GRPCStatus().Err(), ErrPathNotFound},
		{"path mismatch detail", (&OpError{Err: ErrPathMismatch}).GRPCStatus().Err(), ErrPathMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll := newTestCollection(t, errStore{err: tt.err})
			_, err := coll.LookupIn(context.Background(), "d", []LookupInSpec{CountSpec(RootPath)})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Operation != "lookup_in" || opErr.ID != "d" {
				t.Errorf("OpError = %+v", opErr)
			}
		})
	}
}

// TestNormalizeError_Unknown tests that unknown failures pass through and are logged
func TestNormalizeError_Unknown(t *testing.T) {
	logger := &recordingLogger{}
	boom := errors.New("disk on fire")
	coll := newTestCollection(t, errStore{err: boom}, WithLogger(logger))

	_, err := coll.Get(context.Background(), "d")
	if err != boom { //nolint:errorlint // Must be returned unchanged
		t.Errorf("error = %v, want the store error unchanged", err)
	}
	if logger.count("ERROR store call failed") != 1 {
		t.Errorf("expected one error log, got entries containing: %v", logger.contains("disk on fire"))
	}

	coll = newTestCollection(t, errStore{err: status.Error(codes.Unavailable, "down")})
	_, err = coll.Get(context.Background(), "d")
	if !IsTransient(err) {
		t.Errorf("error = %v, want a transient status", err)
	}
}

// TestOperations_ContextCanceled tests that a canceled context reaches the caller
func TestOperations_ContextCanceled(t *testing.T) {
	coll := newTestCollection(t, NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := coll.Get(ctx, "d"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if _, err := coll.MutateIn(ctx, "d", []MutateInSpec{UpsertSpec("a", []byte(`1`))}, Semantics(StoreUpsert)); !errors.Is(err, context.Canceled) {
		t.Errorf("MutateIn() error = %v, want context.Canceled", err)
	}
}

// TestOperations_DebugLogging tests that document content is redacted in debug logs
func TestOperations_DebugLogging(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	coll := newTestCollection(t, NewMemoryStore(), WithLogger(logger))

	_, err := coll.MutateIn(ctx, "users", []MutateInSpec{
		UpsertSpec("alice", []byte(`{"name":"alice","password":"hunter2"}`)),
	}, Semantics(StoreUpsert), Durability(DurabilityMajority))
	if err != nil {
		t.Fatalf("MutateIn() error: %v", err)
	}
	if _, err := coll.Get(ctx, "users"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if logger.contains("hunter2") {
		t.Error("password leaked into debug logs")
	}
	if !logger.contains("[REDACTED]") {
		t.Error("expected redacted content in debug logs")
	}
	if !logger.contains("semantics=upsert") || !logger.contains("durability=majority") {
		t.Error("expected request options in debug logs")
	}
	if logger.count("DEBUG mutate_in spec") != 1 {
		t.Errorf("mutate_in spec entries = %d, want 1", logger.count("DEBUG mutate_in spec"))
	}
}
