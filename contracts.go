// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import "context"

// QueueLike is the FIFO contract implemented by Queue
type QueueLike[E any] interface {
	ID() string
	Offer(ctx context.Context, v E, mods ...func(*Req)) error
	Poll(ctx context.Context, mods ...func(*Req)) (E, bool, error)
	Peek(ctx context.Context, mods ...func(*Req)) (E, bool, error)
	Size(ctx context.Context, mods ...func(*Req)) (int, error)
	Clear(ctx context.Context, mods ...func(*Req)) error
	Iterator(ctx context.Context, mods ...func(*Req)) (*Iterator[E], error)
}

// SetLike is the unique-membership contract implemented by Set
type SetLike[E comparable] interface {
	ID() string
	Add(ctx context.Context, v E, mods ...func(*Req)) (bool, error)
	Remove(ctx context.Context, v E, mods ...func(*Req)) (bool, error)
	Contains(ctx context.Context, v E, mods ...func(*Req)) (bool, error)
	Values(ctx context.Context, mods ...func(*Req)) ([]E, error)
	Size(ctx context.Context, mods ...func(*Req)) (int, error)
	Clear(ctx context.Context, mods ...func(*Req)) error
	Iterator(ctx context.Context, mods ...func(*Req)) (*Iterator[E], error)
}

// MapLike is the keyed contract implemented by Map
type MapLike[V any] interface {
	ID() string
	Put(ctx context.Context, key string, v V, mods ...func(*Req)) error
	PutIfAbsent(ctx context.Context, key string, v V, mods ...func(*Req)) (bool, error)
	Get(ctx context.Context, key string, mods ...func(*Req)) (V, bool, error)
	ContainsKey(ctx context.Context, key string, mods ...func(*Req)) (bool, error)
	Remove(ctx context.Context, key string, mods ...func(*Req)) (V, bool, error)
	Keys(ctx context.Context, mods ...func(*Req)) ([]string, error)
	Entries(ctx context.Context, mods ...func(*Req)) (map[string]V, error)
	Size(ctx context.Context, mods ...func(*Req)) (int, error)
	Clear(ctx context.Context, mods ...func(*Req)) error
}

// ListLike is the index-addressed contract implemented by List
type ListLike[E any] interface {
	ID() string
	Append(ctx context.Context, v E, mods ...func(*Req)) error
	Prepend(ctx context.Context, v E, mods ...func(*Req)) error
	Get(ctx context.Context, i int, mods ...func(*Req)) (E, error)
	Set(ctx context.Context, i int, v E, mods ...func(*Req)) error
	Insert(ctx context.Context, i int, v E, mods ...func(*Req)) error
	RemoveAt(ctx context.Context, i int, mods ...func(*Req)) (E, error)
	IndexOf(ctx context.Context, v E, mods ...func(*Req)) (int, error)
	Contains(ctx context.Context, v E, mods ...func(*Req)) (bool, error)
	Values(ctx context.Context, mods ...func(*Req)) ([]E, error)
	Size(ctx context.Context, mods ...func(*Req)) (int, error)
	Clear(ctx context.Context, mods ...func(*Req)) error
	Iterator(ctx context.Context, mods ...func(*Req)) (*Iterator[E], error)
}

var (
	_ QueueLike[int] = (*Queue[int])(nil)
	_ SetLike[int]   = (*Set[int])(nil)
	_ MapLike[int]   = (*Map[int])(nil)
	_ ListLike[int]  = (*List[int])(nil)
)
