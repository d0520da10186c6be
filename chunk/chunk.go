// Package chunk splits text and slices under destination size ceilings.
package chunk

import (
	"errors"
	"unicode/utf8"
)

// ErrInvalidSize is returned when the requested chunk size is below one.
var ErrInvalidSize = errors.New("chunk size must be at least 1")

// Split cuts text into consecutive pieces of exactly size runes; the last piece
// holds the remainder. Joining the pieces yields text unchanged. Boundaries are
// rune based and may fall inside a word.
func Split(text string, size int) ([]string, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	if text == "" {
		return nil, nil
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, text[start:])
	return chunks, nil
}

// Batch groups items into slices of at most size elements, preserving order.
func Batch[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out, nil
}
