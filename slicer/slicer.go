// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package slicer provides helpers for string slices which are used as ordered sets.
package slicer

// StringExists checks if the given string exists in the string slice.
// If it exists, the position and a boolean `true` will return
func StringExists(slice []string, search string) (int, bool) {
	for i, s := range slice {
		if s == search {
			return i, true
		}
	}
	return 0, false
}

// StringUnique will unique all strings in the given slice.
// The order of the first occurrence is kept.
func StringUnique(slice []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// StringDiff returns all entries of a which do not exist in b.
// The order of a is kept and duplicates are removed.
func StringDiff(a []string, b []string) []string {
	exclude := make(map[string]bool, len(b))
	for _, entry := range b {
		exclude[entry] = true
	}

	var rv []string
	for _, entry := range StringUnique(a) {
		if !exclude[entry] {
			rv = append(rv, entry)
		}
	}
	return rv
}
