// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in memory. Data is lost on restart.
// Safe for concurrent use.
//
// CAS values come from a store-wide counter, so a document that is removed and
// created again never reuses a CAS an earlier reader may still hold.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memDoc
	cas  uint64
	now  func() time.Time
}

type memDoc struct {
	content   []byte
	cas       uint64
	expiresAt time.Time
}

func (d memDoc) expired(now time.Time) bool {
	return !d.expiresAt.IsZero() && !now.Before(d.expiresAt)
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]memDoc),
		now:  time.Now,
	}
}

// Get implements Store
func (m *MemoryStore) Get(ctx context.Context, id string, _ GetOptions) (GetResult, error) {
	if err := ctx.Err(); err != nil {
		return GetResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.lookup(id)
	if !ok {
		return GetResult{}, ErrDocumentNotFound
	}
	return GetResult{Content: clone(doc.content), Cas: doc.cas}, nil
}

// Remove implements Store
func (m *MemoryStore) Remove(ctx context.Context, id string, opts RemoveOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.lookup(id)
	if !ok {
		return ErrDocumentNotFound
	}
	if opts.Cas != 0 && opts.Cas != doc.cas {
		return ErrCasMismatch
	}
	delete(m.docs, id)
	return nil
}

// LookupIn implements Store
func (m *MemoryStore) LookupIn(ctx context.Context, id string, specs []LookupInSpec, _ LookupInOptions) (LookupInResult, error) {
	if err := ctx.Err(); err != nil {
		return LookupInResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.lookup(id)
	if !ok {
		return LookupInResult{}, ErrDocumentNotFound
	}
	fields, err := EvaluateLookup(doc.content, specs)
	if err != nil {
		return LookupInResult{}, err
	}
	return LookupInResult{Fields: fields, Cas: doc.cas}, nil
}

// MutateIn implements Store
func (m *MemoryStore) MutateIn(ctx context.Context, id string, specs []MutateInSpec, opts MutateInOptions) (MutateInResult, error) {
	if err := ctx.Err(); err != nil {
		return MutateInResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.lookup(id)
	switch opts.Semantics {
	case StoreInsert:
		if exists {
			return MutateInResult{}, ErrDocumentExists
		}
	case StoreUpsert:
		if !exists && opts.Cas != 0 {
			return MutateInResult{}, ErrDocumentNotFound
		}
	default:
		if !exists {
			return MutateInResult{}, ErrDocumentNotFound
		}
	}
	if exists && opts.Cas != 0 && opts.Cas != doc.cas {
		return MutateInResult{}, ErrCasMismatch
	}

	base := doc.content
	if !exists {
		base = EmptyDocumentFor(specs)
		doc = memDoc{}
	}
	content, err := ApplyMutations(base, specs)
	if err != nil {
		return MutateInResult{}, err
	}

	m.cas++
	doc.content = content
	doc.cas = m.cas
	if opts.Expiry > 0 {
		doc.expiresAt = m.now().Add(opts.Expiry)
	}
	m.docs[id] = doc
	return MutateInResult{Cas: doc.cas}, nil
}

// IDs returns the ids of all live documents, sorted
func (m *MemoryStore) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		if _, ok := m.lookup(id); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// lookup returns a live document, dropping it if it expired.
// Caller must hold m.mu.
func (m *MemoryStore) lookup(id string) (memDoc, bool) {
	doc, ok := m.docs[id]
	if !ok {
		return memDoc{}, false
	}
	if doc.expired(m.now()) {
		delete(m.docs, id)
		return memDoc{}, false
	}
	return doc, true
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
