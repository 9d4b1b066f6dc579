// Package utils provides small helpers shared across packages.
package utils

import (
	"regexp"
)

var notSnake = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Map applies f to every element of a and returns the results.
func Map[A any, B any](a []A, f func(A, uint64) B) []B {
	out := make([]B, 0, len(a))
	for i, v := range a {
		out = append(out, f(v, uint64(i)))
	}
	return out
}

// Filter returns the elements of a for which f is true.
func Filter[A any](a []A, f func(A) bool) []A {
	out := make([]A, 0)
	for _, v := range a {
		if f(v) {
			out = append(out, v)
		}
	}
	return out
}

// SnakeCase replaces every run of non alphanumeric characters with an
// underscore, e.g. "tx.finality-duration" becomes "tx_finality_duration".
func SnakeCase(s string) string {
	return notSnake.ReplaceAllString(s, "_")
}
