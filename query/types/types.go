// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package types provides the sanitized column types, the bind kinds of parameters and the
// comparison of raw sql column types.
package types

import (
	"regexp"
	"strings"
	"time"
)

// sanitized types over multiple databases.
const (
	BOOL     = "Bool"
	INTEGER  = "Integer"
	FLOAT    = "Float"
	TEXT     = "Text"
	TEXTAREA = "TextArea"
	TIME     = "Time"
	DATE     = "Date"
	DATETIME = "DateTime"
	SELECT   = "Select"
)

// Bind kinds of a parameter.
const (
	BindString = "s"
	BindInt    = "i"
	BindFloat  = "d"
	BindBlob   = "b"
)

// Interface of the types to access the sanitized kind and the raw sql data.
type Interface interface {
	Kind() string
	Raw() string
}

// NewBool returns a ptr to a Bool.
func NewBool(raw string) *Bool {
	return &Bool{common: common{name: BOOL, raw: raw}}
}

// NewInt returns a ptr to a Int.
func NewInt(raw string) *Int {
	return &Int{common: common{name: INTEGER, raw: raw}}
}

// NewFloat returns a ptr to a Float.
func NewFloat(raw string) *Float {
	return &Float{common: common{name: FLOAT, raw: raw}}
}

// NewText returns a ptr to a Text.
func NewText(raw string) *Text {
	return &Text{common: common{name: TEXT, raw: raw}}
}

// NewTextArea returns a ptr to a TextArea.
func NewTextArea(raw string) *TextArea {
	return &TextArea{common: common{name: TEXTAREA, raw: raw}}
}

// NewTime returns a ptr to a Time.
func NewTime(raw string) *Time {
	return &Time{common: common{name: TIME, raw: raw}}
}

// NewDate returns a ptr to a Date.
func NewDate(raw string) *Date {
	return &Date{common: common{name: DATE, raw: raw}}
}

// NewDateTime returns a ptr to a DateTime.
func NewDateTime(raw string) *DateTime {
	return &DateTime{common: common{name: DATETIME, raw: raw}}
}

// NewSelect returns a ptr to a Select.
func NewSelect(raw string) *Select {
	return &Select{common: common{name: SELECT, raw: raw}}
}

type common struct {
	raw  string
	name string
}

func (c *common) Raw() string {
	return c.raw
}

func (c *common) Kind() string {
	return c.name
}

// Int represents all kind of sql integers
type Int struct {
	Min int64
	Max uint64
	common
}

// Bool represents all kind of sql booleans.
type Bool struct {
	common
}

// Text represents all kind of sql character
type Text struct {
	Size int
	common
}

// TextArea represents all kind of sql text
type TextArea struct {
	Size int
	common
}

// Time represents all kind of sql time
type Time struct {
	common
}

// Date represents all kind of sql dates
type Date struct {
	common
}

// DateTime represents all kind of sql dateTimes
type DateTime struct {
	common
}

// Float represents all kind of sql floats
type Float struct {
	common
}

// Select represents sql enum and set.
type Select struct {
	Values []string
	common
}

// Items will return the defined values.
func (e *Select) Items() []string {
	return e.Values
}

// Items interface.
type Items interface {
	Items() []string
}

// BindKind returns the bind kind of a parameter value.
func BindKind(v interface{}) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		return BindInt
	case float32, float64:
		return BindFloat
	case []byte:
		return BindBlob
	case time.Time:
		return BindString
	}
	return BindString
}

var (
	displayWidth = regexp.MustCompile(`^(tinyint|smallint|mediumint|int|integer|bigint)\(\d+\)`)
	spaces       = regexp.MustCompile(`\s+`)
)

// synonyms of the normalized sql types.
var synonyms = map[string]string{
	"integer":    "int",
	"tinyint(1)": "bool",
	"boolean":    "bool",
	"double":     "float",
	"real":       "float",
	"numeric":    "decimal",
}

// Normalize returns a comparable version of a raw sql type.
// The type is lower cased, integer display widths are removed and synonyms are replaced.
// tinyint(1) is kept as bool.
func Normalize(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = spaces.ReplaceAllString(t, " ")
	if s, ok := synonyms[t]; ok {
		return s
	}
	if strings.HasPrefix(t, "tinyint(1)") {
		return "bool" + strings.TrimPrefix(t, "tinyint(1)")
	}
	t = displayWidth.ReplaceAllString(t, "$1")
	if s, ok := synonyms[t]; ok {
		return s
	}
	// keep modifiers like unsigned.
	if i := strings.Index(t, " "); i > 0 {
		if s, ok := synonyms[t[:i]]; ok {
			return s + t[i:]
		}
	}
	return t
}

// Compatible reports if two raw sql types are equal after normalization.
func Compatible(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
