// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kind

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickascher/relmap/query/types"
)

type uuidKind struct{}

func (uuidKind) Name() string     { return UUID }
func (uuidKind) SQLType() string  { return "CHAR(36)" }
func (uuidKind) BindKind() string { return types.BindString }

// Parse returns the canonical 36 character form.
func (k uuidKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	if u, ok := v.(uuid.UUID); ok {
		return u.String(), nil
	}
	s, ok := str(v)
	if !ok {
		return nil, invalid(k, v)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, invalid(k, v)
	}
	return u.String(), nil
}
func (uuidKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (uuidKind) Value(native interface{}) interface{}                    { return native }
func (k uuidKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}

// Generate a random uuid.
func (uuidKind) Generate() interface{} {
	return uuid.NewString()
}
