// Package utils provides tiny helpers for parsing and bounding the
// pagination query parameters used by list endpoints.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, returning def when s is empty
// or not a valid integer. Leading/trailing whitespace is not trimmed; a
// padded query parameter counts as invalid.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Clamp bounds v to the inclusive range [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
