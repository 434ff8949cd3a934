// Package stream reads and writes large JSON objects one entry at a time.
//
// Export files are a single JSON object keyed by gallery id; the writer
// emits it entry by entry so a library never has to sit in memory as one
// value, and the reader walks it back the same way.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("stream writer closed")

// Writer streams key/value entries of one JSON object.
type Writer struct {
	w      *bufio.Writer
	count  int
	closed bool
}

// NewWriter creates an object writer on w. Nothing is written until the
// first Write or Close.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes one entry.
func (w *Writer) Write(key string, entity any) error {
	if w.closed {
		return ErrClosed
	}
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	sep := ",\n"
	if w.count == 0 {
		sep = "{\n"
	}
	for _, part := range [][]byte{[]byte(sep), k, []byte(": "), v} {
		if _, err := w.w.Write(part); err != nil {
			return err
		}
	}
	w.count++
	return nil
}

// Count returns entries written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close terminates the object and flushes. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	end := "\n}\n"
	if w.count == 0 {
		end = "{}\n"
	}
	if _, err := w.w.WriteString(end); err != nil {
		return err
	}
	return w.w.Flush()
}
