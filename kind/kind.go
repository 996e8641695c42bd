// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kind provides the catalog of the scalar attribute kinds.
//
// Every kind maps to exactly one sql column type, one bind kind and one external format.
// The catalog is created once and can not be changed at runtime. A new kind is added by
// implementing the Kind interface and adding it to the catalog.
//
// Values have three representations:
// 	native   - the go value of the attribute (string, int64, float64, bool, []string, time.Time).
// 	external - the formatted value for the caller (date as dd/mm/yyyy, list as comma joined string).
// 	storage  - the value which is bound to the sql statement.
package kind

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Names of the kinds.
const (
	CHAR     = "char"
	TEXT     = "text"
	INT      = "int"
	FLOAT    = "float"
	BOOL     = "bool"
	EMAIL    = "email"
	LIST     = "list"
	DATE     = "date"
	DATETIME = "datetime"
	ID       = "id"
	UUID     = "uuid"
)

// Error messages.
var (
	ErrType    = errors.New("kind: invalid value")
	ErrUnknown = "kind: %s is not defined"
)

// Kind of an attribute.
type Kind interface {
	// Name of the kind.
	Name() string
	// SQLType is the column type which is used for the DDL.
	SQLType() string
	// BindKind of the storage value.
	BindKind() string
	// Parse converts a user value into the native value.
	// Nil is returned for a null value. Errors wrap ErrType.
	Parse(v interface{}, loc *time.Location) (interface{}, error)
	// Format converts a native value into the external format.
	Format(native interface{}, loc *time.Location) interface{}
	// Value converts a native value into the storage value.
	Value(native interface{}) interface{}
	// Scan converts a database value into the native value.
	Scan(src interface{}, loc *time.Location) (interface{}, error)
}

// Generator is implemented by kinds which can create a value by itself.
type Generator interface {
	Generate() interface{}
}

// catalog of all kinds.
var catalog = map[string]Kind{
	CHAR:     charKind{},
	TEXT:     textKind{},
	INT:      intKind{},
	FLOAT:    floatKind{},
	BOOL:     boolKind{},
	EMAIL:    emailKind{},
	LIST:     listKind{},
	DATE:     dateKind{},
	DATETIME: dateTimeKind{},
	ID:       idKind{},
	UUID:     uuidKind{},
}

// Get returns the kind by name.
// Error will return if the kind does not exist.
func Get(name string) (Kind, error) {
	if k, ok := catalog[name]; ok {
		return k, nil
	}
	return nil, fmt.Errorf(ErrUnknown, name)
}

// Names returns all kind names sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsNull reports if the user value is null.
// Nil, nil pointers and empty strings are null.
func IsNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	if b, ok := v.([]byte); ok {
		return len(b) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// invalid returns an error which wraps ErrType.
func invalid(k Kind, v interface{}) error {
	return fmt.Errorf("%w: %v is not a valid %s", ErrType, v, k.Name())
}

// str converts a string like value.
func str(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

// location returns UTC if loc is nil.
func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
