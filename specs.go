// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import "fmt"

// LookupOp is the kind of a sub-document lookup
type LookupOp string

const (
	// LookupGet fetches the value at a path
	LookupGet LookupOp = "get"

	// LookupExists checks whether a path resolves
	LookupExists LookupOp = "exists"

	// LookupCount counts the elements of the array or object at a path
	LookupCount LookupOp = "count"
)

// LookupInSpec is a single path lookup of a LookupIn call
type LookupInSpec struct {
	Op   LookupOp
	Path string
}

// GetSpec returns a lookup fetching the value at path
func GetSpec(path string) LookupInSpec {
	return LookupInSpec{Op: LookupGet, Path: path}
}

// ExistsSpec returns a lookup reporting whether path resolves
func ExistsSpec(path string) LookupInSpec {
	return LookupInSpec{Op: LookupExists, Path: path}
}

// CountSpec returns a lookup counting the elements at path ("" counts the root)
func CountSpec(path string) LookupInSpec {
	return LookupInSpec{Op: LookupCount, Path: path}
}

// MutateOp is the kind of a sub-document mutation
type MutateOp string

const (
	// MutateInsert adds a dictionary key, failing if it exists
	MutateInsert MutateOp = "insert"

	// MutateUpsert sets a dictionary key, creating or replacing it
	MutateUpsert MutateOp = "upsert"

	// MutateReplace replaces an existing value
	MutateReplace MutateOp = "replace"

	// MutateRemove removes an existing value
	MutateRemove MutateOp = "remove"

	// MutateArrayAppend appends to the array at path
	MutateArrayAppend MutateOp = "array_append"

	// MutateArrayPrepend prepends to the array at path
	MutateArrayPrepend MutateOp = "array_prepend"

	// MutateArrayInsert inserts at the array position addressed by path ("[i]")
	MutateArrayInsert MutateOp = "array_insert"
)

// MutateInSpec is a single path mutation of a MutateIn call.
//
// Value holds the encoded JSON of the element and is empty for MutateRemove.
type MutateInSpec struct {
	Op    MutateOp
	Path  string
	Value []byte
}

// InsertSpec returns a dictionary-add mutation
func InsertSpec(path string, value []byte) MutateInSpec {
	return MutateInSpec{Op: MutateInsert, Path: path, Value: value}
}

// UpsertSpec returns a dictionary-upsert mutation
func UpsertSpec(path string, value []byte) MutateInSpec {
	return MutateInSpec{Op: MutateUpsert, Path: path, Value: value}
}

// ReplaceSpec returns a mutation replacing the existing value at path
func ReplaceSpec(path string, value []byte) MutateInSpec {
	return MutateInSpec{Op: MutateReplace, Path: path, Value: value}
}

// RemoveSpec returns a mutation removing the value at path
func RemoveSpec(path string) MutateInSpec {
	return MutateInSpec{Op: MutateRemove, Path: path}
}

// ArrayAppendSpec returns a mutation appending value to the array at path
func ArrayAppendSpec(path string, value []byte) MutateInSpec {
	return MutateInSpec{Op: MutateArrayAppend, Path: path, Value: value}
}

// ArrayPrependSpec returns a mutation prepending value to the array at path
func ArrayPrependSpec(path string, value []byte) MutateInSpec {
	return MutateInSpec{Op: MutateArrayPrepend, Path: path, Value: value}
}

// ArrayInsertSpec returns a mutation inserting value at the array position path
func ArrayInsertSpec(path string, value []byte) MutateInSpec {
	return MutateInSpec{Op: MutateArrayInsert, Path: path, Value: value}
}

// StoreSemantics is the document-level precondition of a MutateIn call
type StoreSemantics int

const (
	// StoreReplace requires the document to exist (default)
	StoreReplace StoreSemantics = iota

	// StoreUpsert creates the document if it is absent
	StoreUpsert

	// StoreInsert requires the document to be absent
	StoreInsert
)

// String returns the string representation of StoreSemantics
func (s StoreSemantics) String() string {
	switch s {
	case StoreReplace:
		return "replace"
	case StoreUpsert:
		return "upsert"
	case StoreInsert:
		return "insert"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// DurabilityLevel is the durability requirement passed through to the store
type DurabilityLevel int

const (
	// DurabilityNone acknowledges once the active node has the mutation in memory
	DurabilityNone DurabilityLevel = iota

	// DurabilityMajority waits for a majority of replicas in memory
	DurabilityMajority

	// DurabilityMajorityAndPersistToActive additionally persists on the active node
	DurabilityMajorityAndPersistToActive

	// DurabilityPersistToMajority waits for a majority of replicas on disk
	DurabilityPersistToMajority
)

// String returns the string representation of a DurabilityLevel
func (d DurabilityLevel) String() string {
	switch d {
	case DurabilityNone:
		return "none"
	case DurabilityMajority:
		return "majority"
	case DurabilityMajorityAndPersistToActive:
		return "majority_and_persist_to_active"
	case DurabilityPersistToMajority:
		return "persist_to_majority"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// validateLookupSpecs checks lookup specs before a store call
func validateLookupSpecs(specs []LookupInSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: lookup specs cannot be empty", ErrInvalidArgument)
	}
	for i, spec := range specs {
		switch spec.Op {
		case LookupGet, LookupExists, LookupCount:
		default:
			return fmt.Errorf("%w: unknown lookup op %q at index %d", ErrInvalidArgument, spec.Op, i)
		}
		if err := checkPathSecurity(spec.Path); err != nil {
			return fmt.Errorf("spec at index %d: %w", i, err)
		}
	}
	return nil
}

// validateMutateSpecs checks mutation specs before a store call
func validateMutateSpecs(specs []MutateInSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: mutate specs cannot be empty", ErrInvalidArgument)
	}
	for i, spec := range specs {
		switch spec.Op {
		case MutateRemove:
			if spec.Path == RootPath {
				return fmt.Errorf("%w: cannot remove the document root at index %d", ErrInvalidArgument, i)
			}
		case MutateInsert, MutateUpsert, MutateReplace, MutateArrayAppend, MutateArrayPrepend, MutateArrayInsert:
			if err := validateValue(spec.Value); err != nil {
				return fmt.Errorf("spec at index %d: %w", i, err)
			}
		default:
			return fmt.Errorf("%w: unknown mutate op %q at index %d", ErrInvalidArgument, spec.Op, i)
		}
		if err := checkPathSecurity(spec.Path); err != nil {
			return fmt.Errorf("spec at index %d: %w", i, err)
		}
	}
	return nil
}
