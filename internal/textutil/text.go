// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textutil holds rune-safe string helpers shared across stages.
package textutil

import "strings"

// Truncate keeps the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Ellipsize truncates s to n runes and appends "..." when anything was cut.
func Ellipsize(s string, n int) string {
	t := Truncate(s, n)
	if len(t) < len(s) {
		return t + "..."
	}
	return t
}

// CollapseSpace replaces every run of whitespace with one space and trims
// the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
