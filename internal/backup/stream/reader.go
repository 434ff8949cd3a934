package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrNotObject indicates the input is not a JSON object.
var ErrNotObject = errors.New("input is not a JSON object")

// Entry is one key/value pair of the object.
type Entry[T any] struct {
	Key   string
	Value T
}

// Reader streams entries of a JSON object, decoding each value as T.
type Reader[T any] struct {
	dec *json.Decoder
}

// NewReader creates a streaming reader for type T.
func NewReader[T any](r io.Reader) *Reader[T] {
	return &Reader[T]{dec: json.NewDecoder(r)}
}

// All returns an iterator over all entries. A value that does not decode
// as T is yielded as an error carrying its key, and iteration continues.
// Malformed JSON ends iteration with an error.
func (r *Reader[T]) All() iter.Seq2[Entry[T], error] {
	return func(yield func(Entry[T], error) bool) {
		tok, err := r.dec.Token()
		if err != nil {
			yield(Entry[T]{}, err)
			return
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			yield(Entry[T]{}, ErrNotObject)
			return
		}

		for r.dec.More() {
			tok, err := r.dec.Token()
			if err != nil {
				yield(Entry[T]{}, err)
				return
			}
			key, _ := tok.(string)

			var raw json.RawMessage
			if err := r.dec.Decode(&raw); err != nil {
				yield(Entry[T]{Key: key}, err)
				return
			}

			var value T
			if err := json.Unmarshal(raw, &value); err != nil {
				if !yield(Entry[T]{Key: key}, fmt.Errorf("entry %q: %w", key, err)) {
					return
				}
				continue
			}
			if !yield(Entry[T]{Key: key, Value: value}, nil) {
				return
			}
		}

		if _, err := r.dec.Token(); err != nil {
			yield(Entry[T]{}, err)
		}
	}
}
