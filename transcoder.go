// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"encoding/json"
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Transcoder converts element values to and from the JSON stored in documents
type Transcoder interface {
	// Encode returns the JSON encoding of value
	Encode(value any) ([]byte, error)

	// Decode decodes data into target, which must be a non-nil pointer
	Decode(data []byte, target any) error
}

// JSONTranscoder encodes values with encoding/json (default)
type JSONTranscoder struct{}

// Encode implements Transcoder
func (JSONTranscoder) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode implements Transcoder
func (JSONTranscoder) Decode(data []byte, target any) error {
	return json.Unmarshal(data, target)
}

// ProtoJSONTranscoder encodes protobuf messages with protojson.
//
// Non-message values fall back to encoding/json, so a single transcoder can back a
// Map[*pb.Profile] and a Queue[string] alike.
//
// Example:
//
//	q, err := subdoc.NewQueue[*wrapperspb.StringValue](coll, "jobs",
//	    subdoc.ElementTranscoder(subdoc.ProtoJSONTranscoder{}))
type ProtoJSONTranscoder struct {
	// MarshalOptions are used for proto.Message values
	MarshalOptions protojson.MarshalOptions

	// UnmarshalOptions are used for proto.Message targets
	UnmarshalOptions protojson.UnmarshalOptions
}

// Encode implements Transcoder
func (t ProtoJSONTranscoder) Encode(value any) ([]byte, error) {
	if msg, ok := value.(proto.Message); ok {
		return t.MarshalOptions.Marshal(msg)
	}
	return json.Marshal(value)
}

// Decode implements Transcoder.
//
// target may be a message (*pb.T) or a pointer to a message pointer (**pb.T), the
// latter being what generic data structures pass for E = *pb.T.
func (t ProtoJSONTranscoder) Decode(data []byte, target any) error {
	if msg, ok := target.(proto.Message); ok {
		return t.UnmarshalOptions.Unmarshal(data, msg)
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Pointer {
		elemType := rv.Elem().Type()
		if elemType.Implements(reflect.TypeOf((*proto.Message)(nil)).Elem()) {
			fresh := reflect.New(elemType.Elem())
			if err := t.UnmarshalOptions.Unmarshal(data, fresh.Interface().(proto.Message)); err != nil {
				return err
			}
			rv.Elem().Set(fresh)
			return nil
		}
	}
	return json.Unmarshal(data, target)
}

// RawTranscoder passes json.RawMessage and []byte values through untouched
type RawTranscoder struct{}

// Encode implements Transcoder
func (RawTranscoder) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("raw transcoder cannot encode %T", value)
	}
}

// Decode implements Transcoder
func (RawTranscoder) Decode(data []byte, target any) error {
	switch t := target.(type) {
	case *json.RawMessage:
		*t = append((*t)[:0], data...)
	case *[]byte:
		*t = append((*t)[:0], data...)
	case *string:
		*t = string(data)
	default:
		return fmt.Errorf("raw transcoder cannot decode into %T", target)
	}
	return nil
}

// encodeWith encodes value, classifying failures as ErrDataFormat
func encodeWith(tc Transcoder, value any) ([]byte, error) {
	if tc == nil {
		tc = JSONTranscoder{}
	}
	data, err := tc.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %T: %w", ErrDataFormat, value, err)
	}
	return data, nil
}

// decodeWith decodes data into target, classifying failures as ErrDataFormat
func decodeWith(tc Transcoder, data []byte, target any) error {
	if tc == nil {
		tc = JSONTranscoder{}
	}
	if err := tc.Decode(data, target); err != nil {
		return fmt.Errorf("%w: decode into %T: %w", ErrDataFormat, target, err)
	}
	return nil
}

// isNilValue reports whether v is nil or a nil pointer, map, slice, interface,
// channel or func
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
