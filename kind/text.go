// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kind

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/patrickascher/relmap/query/types"
)

// CharMaxLength of the char and email kind.
const CharMaxLength = 255

var validate = validator.New()

// text converts strings and numbers to a string.
func text(k Kind, v interface{}) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	if s, ok := str(v); ok {
		return s, nil
	}
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	}
	return nil, invalid(k, v)
}

type textKind struct{}

func (textKind) Name() string     { return TEXT }
func (textKind) SQLType() string  { return "TEXT" }
func (textKind) BindKind() string { return types.BindString }
func (k textKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	return text(k, v)
}
func (textKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (textKind) Value(native interface{}) interface{}                    { return native }
func (k textKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}

type charKind struct{}

func (charKind) Name() string     { return CHAR }
func (charKind) SQLType() string  { return fmt.Sprintf("VARCHAR(%d)", CharMaxLength) }
func (charKind) BindKind() string { return types.BindString }

// Parse rejects strings longer than CharMaxLength characters.
func (k charKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	s, err := text(k, v)
	if err != nil || s == nil {
		return s, err
	}
	if utf8.RuneCountInString(s.(string)) > CharMaxLength {
		return nil, fmt.Errorf("%w: %s is longer than %d characters", ErrType, k.Name(), CharMaxLength)
	}
	return s, nil
}
func (charKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (charKind) Value(native interface{}) interface{}                    { return native }
func (k charKind) Scan(src interface{}, _ *time.Location) (interface{}, error) {
	return text(k, src)
}

type emailKind struct{}

func (emailKind) Name() string     { return EMAIL }
func (emailKind) SQLType() string  { return fmt.Sprintf("VARCHAR(%d)", CharMaxLength) }
func (emailKind) BindKind() string { return types.BindString }

// Parse validates the address with the validator email tag.
func (k emailKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	s, ok := str(v)
	if !ok {
		return nil, invalid(k, v)
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > CharMaxLength || validate.Var(s, "email") != nil {
		return nil, invalid(k, v)
	}
	return s, nil
}
func (emailKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (emailKind) Value(native interface{}) interface{}                    { return native }
func (k emailKind) Scan(src interface{}, _ *time.Location) (interface{}, error) {
	return text(k, src)
}
