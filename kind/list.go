// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kind

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickascher/relmap/query/types"
)

// ListSeparator of the list kind.
const ListSeparator = ","

type listKind struct{}

func (listKind) Name() string     { return LIST }
func (listKind) SQLType() string  { return "TEXT" }
func (listKind) BindKind() string { return types.BindString }

// Parse splits a string by the separator, items are trimmed and empty items are removed.
// A null value is an empty list.
func (k listKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return []string{}, nil
	}
	rv := []string{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			rv = append(rv, s)
		}
	}

	switch x := v.(type) {
	case []string:
		for _, s := range x {
			add(s)
		}
		return rv, nil
	case []interface{}:
		for _, item := range x {
			if item == nil {
				continue
			}
			s, ok := str(item)
			if !ok {
				s = fmt.Sprint(item)
			}
			add(s)
		}
		return rv, nil
	}

	s, ok := str(v)
	if !ok {
		return nil, invalid(k, v)
	}
	for _, item := range strings.Split(s, ListSeparator) {
		add(item)
	}
	return rv, nil
}

// Format joins the list.
func (listKind) Format(native interface{}, _ *time.Location) interface{} {
	if l, ok := native.([]string); ok {
		return strings.Join(l, ListSeparator)
	}
	return ""
}

// Value joins the list.
func (k listKind) Value(native interface{}) interface{} {
	return k.Format(native, nil)
}

func (k listKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}
