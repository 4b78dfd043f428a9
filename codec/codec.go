// Package codec converts response values to and from the byte entries
// held by a cache.Store and the bodies returned by the network.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by String when a body is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("codec: body is not valid UTF-8")

// Codec encodes and decodes values of type T.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Determinism: Decode(Encode(v)) must yield a value equal to v.
type Codec[T any] interface {
	// Encode converts v to a stored entry.
	Encode(v T) ([]byte, error)

	// Decode converts a stored entry or network body to a value.
	Decode(data []byte) (T, error)
}

// String treats bodies as UTF-8 text.
type String struct{}

// Encode returns the UTF-8 bytes of v.
func (String) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

// Decode returns data as a string, or ErrInvalidUTF8.
func (String) Decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

// Bytes passes bodies through unchanged, copying to avoid aliasing.
type Bytes struct{}

// Encode returns a copy of v.
func (Bytes) Encode(v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}

// Decode returns a copy of data.
func (Bytes) Decode(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// JSON encodes values with encoding/json.
type JSON[T any] struct{}

// Encode marshals v with json.Marshal.
func (JSON[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: json encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals data into a new T.
func (JSON[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("codec: json decode: %w", err)
	}
	return v, nil
}

var (
	_ Codec[string] = String{}
	_ Codec[[]byte] = Bytes{}
	_ Codec[any]    = JSON[any]{}
)
