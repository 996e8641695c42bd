// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kind

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/patrickascher/relmap/query/types"
)

// integer converts numbers and numeric strings to int64.
// Floats are only accepted without a fraction.
func integer(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return integer(float64(x))
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	}
	if s, ok := str(v); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// float converts numbers and numeric strings to float64.
func float(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	if i, ok := integer(v); ok {
		return float64(i), true
	}
	if s, ok := str(v); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

type intKind struct{}

func (intKind) Name() string     { return INT }
func (intKind) SQLType() string  { return "INT(11)" }
func (intKind) BindKind() string { return types.BindInt }

// Parse converts to int64. An empty string is null.
func (k intKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	if i, ok := integer(v); ok {
		return i, nil
	}
	return nil, invalid(k, v)
}
func (intKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (intKind) Value(native interface{}) interface{}                    { return native }
func (k intKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}

type idKind struct{}

func (idKind) Name() string     { return ID }
func (idKind) SQLType() string  { return "INT(11) UNSIGNED" }
func (idKind) BindKind() string { return types.BindInt }

// Parse accepts positive integers only.
func (k idKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	if i, ok := integer(v); ok && i > 0 {
		return i, nil
	}
	return nil, invalid(k, v)
}
func (idKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (idKind) Value(native interface{}) interface{}                    { return native }
func (k idKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}

type floatKind struct{}

func (floatKind) Name() string     { return FLOAT }
func (floatKind) SQLType() string  { return "DOUBLE" }
func (floatKind) BindKind() string { return types.BindFloat }
func (k floatKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	if f, ok := float(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, nil
	}
	return nil, invalid(k, v)
}
func (floatKind) Format(native interface{}, _ *time.Location) interface{} { return native }
func (floatKind) Value(native interface{}) interface{}                    { return native }
func (k floatKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}

type boolKind struct{}

func (boolKind) Name() string     { return BOOL }
func (boolKind) SQLType() string  { return "TINYINT(1)" }
func (boolKind) BindKind() string { return types.BindInt }

// Parse accepts the literals true, on, 1 and false, off, 0 and native booleans.
func (k boolKind) Parse(v interface{}, _ *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if s, ok := str(v); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "on", "1":
			return true, nil
		case "false", "off", "0":
			return false, nil
		}
		return nil, invalid(k, v)
	}
	if i, ok := integer(v); ok && (i == 0 || i == 1) {
		return i == 1, nil
	}
	return nil, invalid(k, v)
}
func (boolKind) Format(native interface{}, _ *time.Location) interface{} { return native }

// Value converts the boolean to 1 or 0.
func (boolKind) Value(native interface{}) interface{} {
	if b, ok := native.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return native
}
func (k boolKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	return k.Parse(src, loc)
}
