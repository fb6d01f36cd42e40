// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// countingStore counts the calls made to the wrapped store
type countingStore struct {
	Store

	mu    sync.Mutex
	calls map[string]int
}

func newCountingStore(inner Store) *countingStore {
	return &countingStore{Store: inner, calls: make(map[string]int)}
}

func (s *countingStore) inc(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
}

func (s *countingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *countingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *countingStore) Get(ctx context.Context, id string, opts GetOptions) (GetResult, error) {
	s.inc("get")
	return s.Store.Get(ctx, id, opts)
}

func (s *countingStore) Remove(ctx context.Context, id string, opts RemoveOptions) error {
	s.inc("remove")
	return s.Store.Remove(ctx, id, opts)
}

func (s *countingStore) LookupIn(ctx context.Context, id string, specs []LookupInSpec, opts LookupInOptions) (LookupInResult, error) {
	s.inc("lookup_in")
	return s.Store.LookupIn(ctx, id, specs, opts)
}

func (s *countingStore) MutateIn(ctx context.Context, id string, specs []MutateInSpec, opts MutateInOptions) (MutateInResult, error) {
	s.inc("mutate_in")
	return s.Store.MutateIn(ctx, id, specs, opts)
}

// racingStore lets a competing writer run right before each conditional MutateIn.
// The competitor writes to the wrapped store directly, so it never recurses.
type racingStore struct {
	Store

	mu    sync.Mutex
	races int
	race  func(ctx context.Context, inner Store, n int)
}

func (s *racingStore) MutateIn(ctx context.Context, id string, specs []MutateInSpec, opts MutateInOptions) (MutateInResult, error) {
	if opts.Cas != 0 && s.race != nil {
		s.mu.Lock()
		s.races++
		n := s.races
		s.mu.Unlock()
		s.race(ctx, s.Store, n)
	}
	return s.Store.MutateIn(ctx, id, specs, opts)
}

// prependRacer returns a race that prepends value to id for the first times races
func prependRacer(t *testing.T, id, value string, times int) func(ctx context.Context, inner Store, n int) {
	t.Helper()
	return func(ctx context.Context, inner Store, n int) {
		if n > times {
			return
		}
		_, err := inner.MutateIn(ctx, id, []MutateInSpec{ArrayPrependSpec(RootPath, []byte(value))},
			MutateInOptions{Semantics: StoreUpsert})
		if err != nil {
			t.Errorf("competing prepend failed: %v", err)
		}
	}
}

// errStore fails every call with err
type errStore struct {
	err error
}

func (s errStore) Get(context.Context, string, GetOptions) (GetResult, error) {
	return GetResult{}, s.err
}

func (s errStore) Remove(context.Context, string, RemoveOptions) error {
	return s.err
}

func (s errStore) LookupIn(context.Context, string, []LookupInSpec, LookupInOptions) (LookupInResult, error) {
	return LookupInResult{}, s.err
}

func (s errStore) MutateIn(context.Context, string, []MutateInSpec, MutateInOptions) (MutateInResult, error) {
	return MutateInResult{}, s.err
}

// statusStore reports failures of the wrapped store as gRPC status errors
type statusStore struct {
	Store
}

func (s statusStore) asStatus(err error) error {
	for _, sentinel := range knownSentinels {
		if errors.Is(err, sentinel) {
			return (&OpError{Operation: "store", Err: sentinel}).GRPCStatus().Err()
		}
	}
	return err
}

func (s statusStore) Get(ctx context.Context, id string, opts GetOptions) (GetResult, error) {
	res, err := s.Store.Get(ctx, id, opts)
	return res, s.asStatus(err)
}

func (s statusStore) Remove(ctx context.Context, id string, opts RemoveOptions) error {
	return s.asStatus(s.Store.Remove(ctx, id, opts))
}

func (s statusStore) LookupIn(ctx context.Context, id string, specs []LookupInSpec, opts LookupInOptions) (LookupInResult, error) {
	res, err := s.Store.LookupIn(ctx, id, specs, opts)
	return res, s.asStatus(err)
}

func (s statusStore) MutateIn(ctx context.Context, id string, specs []MutateInSpec, opts MutateInOptions) (MutateInResult, error) {
	res, err := s.Store.MutateIn(ctx, id, specs, opts)
	return res, s.asStatus(err)
}

// recordingLogger keeps log entries for assertions
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	b.WriteString(level + " " + msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.entries = append(l.entries, b.String())
}

func (l *recordingLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.record("DEBUG", msg, keysAndValues...)
}

func (l *recordingLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.record("INFO", msg, keysAndValues...)
}

func (l *recordingLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.record("WARN", msg, keysAndValues...)
}

func (l *recordingLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.record("ERROR", msg, keysAndValues...)
}

// count returns how many entries start with prefix
func (l *recordingLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// newTestCollection returns a Collection over store, failing the test on error
func newTestCollection(t *testing.T, store Store, opts ...func(*Collection)) *Collection {
	t.Helper()
	coll, err := NewCollection(store, opts...)
	if err != nil {
		t.Fatalf("NewCollection() error: %v", err)
	}
	return coll
}

// seed writes raw JSON content as document id
func seed(t *testing.T, store Store, id, content string) uint64 {
	t.Helper()
	res, err := store.MutateIn(context.Background(), id,
		[]MutateInSpec{ReplaceSpec(RootPath, []byte(content))},
		MutateInOptions{Semantics: StoreUpsert})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return res.Cas
}

// content returns the raw JSON of document id
func content(t *testing.T, store Store, id string) string {
	t.Helper()
	res, err := store.Get(context.Background(), id, GetOptions{})
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return string(res.Content)
}
