// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors reported by stores, collections and data structures.
//
// Match them with errors.Is; the concrete error is usually an *OpError or a
// *MultiMutationError wrapping one of these.
var (
	// ErrDocumentNotFound is returned when the addressed document does not exist
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned by insert semantics when the document already exists
	ErrDocumentExists = errors.New("document already exists")

	// ErrPathNotFound is returned when a sub-document path does not resolve
	ErrPathNotFound = errors.New("path not found")

	// ErrPathExists is returned when a dictionary insert targets an existing key
	ErrPathExists = errors.New("path already exists")

	// ErrPathMismatch is returned when a path addresses the wrong container type
	ErrPathMismatch = errors.New("path mismatch")

	// ErrInvalidPath is returned for malformed path expressions
	ErrInvalidPath = errors.New("invalid path")

	// ErrCasMismatch is returned when a CAS precondition does not match the stored CAS
	ErrCasMismatch = errors.New("cas mismatch")

	// ErrRetryExhausted is returned when a CAS loop ran out of attempts
	ErrRetryExhausted = errors.New("cas retries exhausted")

	// ErrIllegalState is returned on misuse of the iterator protocol
	ErrIllegalState = errors.New("illegal state")

	// ErrConcurrentModification is returned when an iterator snapshot went stale
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrInvalidArgument is returned for arguments rejected before any store call
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndexOutOfRange is returned by List index access past the end
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDataFormat is returned when an element cannot be encoded or decoded
	ErrDataFormat = errors.New("data format error")
)

// OpError represents a failed operation with its context
type OpError struct {
	// Operation name that failed (e.g. "queue.poll", "lookup_in")
	Operation string

	// ID of the document the operation addressed
	ID string

	// Human-readable error message
	Message string

	// InternalMsg contains detailed error information for internal logging
	InternalMsg string

	// Number of attempts made by a CAS loop
	Retries int

	// Err is the sentinel classifying the failure
	Err error

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface
func (e *OpError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Retries > 0 {
		return fmt.Sprintf("subdoc: %s %q failed: %s (retries: %d)", e.Operation, e.ID, msg, e.Retries)
	}
	return fmt.Sprintf("subdoc: %s %q failed: %s", e.Operation, e.ID, msg)
}

// DetailedError returns the full error message including internal details
//
// Only use this in logging contexts where disclosing store internals is acceptable.
func (e *OpError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	if e.Retries > 0 {
		return fmt.Sprintf("subdoc: %s %q failed: %s (internal: %s, retries: %d)",
			e.Operation, e.ID, e.Message, e.InternalMsg, e.Retries)
	}
	return fmt.Sprintf("subdoc: %s %q failed: %s (internal: %s)",
		e.Operation, e.ID, e.Message, e.InternalMsg)
}

// Unwrap exposes both the classifying sentinel and the cause to errors.Is/As
func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// GRPCStatus maps the error onto a gRPC status so OpError can cross a gRPC boundary.
//
// Several sentinels share a code, so the sentinel is also attached as an
// errdetails.ErrorInfo with ErrorDomain and a reason that FromStatus decodes.
func (e *OpError) GRPCStatus() *status.Status {
	st := status.New(codeFor(e), e.Error())
	reason := reasonFor(e.Err)
	if reason == "" {
		return st
	}
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: reason,
		Domain: ErrorDomain,
	})
	if err != nil {
		return st
	}
	return detailed
}

// MultiMutationError reports the first failing spec of a MutateIn call.
// The document is left unchanged when this error is returned.
type MultiMutationError struct {
	// Index of the first failing spec
	Index int

	// Path of the first failing spec
	Path string

	// Err is the failure status (ErrPathNotFound, ErrPathExists, ...)
	Err error
}

// Error implements the error interface
func (e *MultiMutationError) Error() string {
	return fmt.Sprintf("mutation %d at path %q failed: %v", e.Index, e.Path, e.Err)
}

// Unwrap returns the failure status
func (e *MultiMutationError) Unwrap() error {
	return e.Err
}

// TransientError defines patterns for detecting transient errors
type TransientError struct {
	// Code is the gRPC status code to match
	Code uint32
}

// TransientErrors lists the gRPC status codes a caller may back off and retry on.
//
// The CAS engine never retries these itself: only CAS conflicts are retried inside a
// loop. A remote Store implementation surfaces transport trouble with these codes.
var TransientErrors = []TransientError{
	{Code: uint32(codes.Unavailable)},
	{Code: uint32(codes.ResourceExhausted)},
	{Code: uint32(codes.DeadlineExceeded)},
}

// IsTransient reports whether err carries a transient gRPC status code.
// ErrRetryExhausted is also reported as transient: contention usually passes.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRetryExhausted) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	code := uint32(st.Code())
	for _, pattern := range TransientErrors {
		if pattern.Code == code {
			return true
		}
	}
	return false
}

// ErrorDomain is the errdetails.ErrorInfo domain of statuses built by OpError.GRPCStatus
const ErrorDomain = "subdoc"

// sentinelReasons names every sentinel in ErrorInfo details
var sentinelReasons = []struct {
	reason   string
	sentinel error
}{
	{"DOCUMENT_NOT_FOUND", ErrDocumentNotFound},
	{"DOCUMENT_EXISTS", ErrDocumentExists},
	{"PATH_NOT_FOUND", ErrPathNotFound},
	{"PATH_EXISTS", ErrPathExists},
	{"PATH_MISMATCH", ErrPathMismatch},
	{"INVALID_PATH", ErrInvalidPath},
	{"CAS_MISMATCH", ErrCasMismatch},
	{"RETRY_EXHAUSTED", ErrRetryExhausted},
	{"ILLEGAL_STATE", ErrIllegalState},
	{"CONCURRENT_MODIFICATION", ErrConcurrentModification},
	{"INVALID_ARGUMENT", ErrInvalidArgument},
	{"INDEX_OUT_OF_RANGE", ErrIndexOutOfRange},
	{"DATA_FORMAT", ErrDataFormat},
}

func reasonFor(err error) string {
	for _, r := range sentinelReasons {
		if errors.Is(err, r.sentinel) {
			return r.reason
		}
	}
	return ""
}

func sentinelFor(reason string) error {
	for _, r := range sentinelReasons {
		if r.reason == reason {
			return r.sentinel
		}
	}
	return nil
}

// statusSentinels maps bare gRPC codes used by remote stores onto the sentinels.
//
// FailedPrecondition has no entry: it is shared by several path errors and only an
// ErrorInfo detail can tell ErrPathNotFound apart.
var statusSentinels = map[codes.Code]error{
	codes.NotFound:        ErrDocumentNotFound,
	codes.AlreadyExists:   ErrDocumentExists,
	codes.Aborted:         ErrCasMismatch,
	codes.InvalidArgument: ErrInvalidArgument,
	codes.OutOfRange:      ErrIndexOutOfRange,
	codes.DataLoss:        ErrDataFormat,
}

// FromStatus converts a gRPC status error returned by a remote Store into an error
// matching the sentinels, keeping the original error as cause.
//
// An ErrorInfo detail in ErrorDomain takes precedence over the status code. Errors
// that are not gRPC statuses, or whose code has no sentinel, are returned as-is.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	sentinel := statusDetailSentinel(st)
	if sentinel == nil {
		sentinel, ok = statusSentinels[st.Code()]
		if !ok {
			return err
		}
	}
	return &OpError{
		Operation:   "store",
		Message:     st.Message(),
		InternalMsg: st.String(),
		Err:         sentinel,
		Cause:       err,
	}
}

// statusDetailSentinel returns the sentinel named by an ErrorInfo detail, if any
func statusDetailSentinel(st *status.Status) error {
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		if sentinel := sentinelFor(info.GetReason()); sentinel != nil {
			return sentinel
		}
	}
	return nil
}

func codeFor(e *OpError) codes.Code {
	switch {
	case errors.Is(e.Err, ErrDocumentNotFound):
		return codes.NotFound
	case errors.Is(e.Err, ErrDocumentExists), errors.Is(e.Err, ErrPathExists):
		return codes.AlreadyExists
	case errors.Is(e.Err, ErrCasMismatch), errors.Is(e.Err, ErrConcurrentModification):
		return codes.Aborted
	case errors.Is(e.Err, ErrRetryExhausted):
		return codes.ResourceExhausted
	case errors.Is(e.Err, ErrInvalidArgument), errors.Is(e.Err, ErrInvalidPath):
		return codes.InvalidArgument
	case errors.Is(e.Err, ErrPathNotFound), errors.Is(e.Err, ErrPathMismatch), errors.Is(e.Err, ErrIllegalState):
		return codes.FailedPrecondition
	case errors.Is(e.Err, ErrIndexOutOfRange):
		return codes.OutOfRange
	case errors.Is(e.Err, ErrDataFormat):
		return codes.DataLoss
	default:
		return codes.Unknown
	}
}

// newOpError builds an OpError classified by sentinel, wrapping cause
func newOpError(op, id string, sentinel, cause error) *OpError {
	e := &OpError{
		Operation: op,
		ID:        id,
		Err:       sentinel,
		Cause:     cause,
	}
	switch {
	case cause != nil && sentinel != nil:
		e.Message = sentinel.Error()
		e.InternalMsg = cause.Error()
	case cause != nil:
		e.Message = cause.Error()
	case sentinel != nil:
		e.Message = sentinel.Error()
	}
	return e
}

// IsCasMismatch reports whether err is a CAS conflict
func IsCasMismatch(err error) bool {
	return errors.Is(err, ErrCasMismatch)
}

// IsDocumentNotFound reports whether err reports an absent document
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsPathNotFound reports whether err reports an absent sub-document path
func IsPathNotFound(err error) bool {
	return errors.Is(err, ErrPathNotFound)
}
