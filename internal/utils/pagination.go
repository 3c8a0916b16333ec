// Package utils provides small, generic helpers shared by the dashboard and
// the Discord commands. They carry no domain logic.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Page is a 1-based page request with its derived window.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number to >= 1 and size to [1, maxSize].
func NewPage(number, size, maxSize int) Page {
	if number < 1 {
		number = 1
	}
	return Page{Number: number, Size: Clamp(size, 1, maxSize)}
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages returns the page count for total rows.
func (p Page) TotalPages(total int64) int {
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether another page follows.
func (p Page) HasNext(total int64) bool { return p.Number < p.TotalPages(total) }
