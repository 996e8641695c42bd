// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"database/sql"
	"fmt"
	"reflect"

	"gopkg.in/guregu/null.v4"
)

// Error messages.
var (
	ErrSanitize = "query: can not sanitize value %v of type %s"
)

// Row is a fetched database row, mapped by column name.
// []byte values are converted to string.
type Row map[string]interface{}

// Int64 returns the column value as int64.
func (r Row) Int64(column string) (int64, bool) {
	v, err := SanitizeInterfaceValue(r[column])
	if err != nil {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// String returns the column value as string.
// Numbers are formatted, null returns false.
func (r Row) String(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	s, err := SanitizeToString(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return s, true
}

// NullString returns the column value as null.String.
func (r Row) NullString(column string) null.String {
	s, ok := r.String(column)
	return null.NewString(s, ok)
}

// NullInt returns the column value as null.Int.
func (r Row) NullInt(column string) null.Int {
	i, ok := r.Int64(column)
	return null.NewInt(i, ok)
}

// Bool returns true for the column values true, 1 and "TRUE".
func (r Row) Bool(column string) bool {
	switch v := r[column].(type) {
	case bool:
		return v
	case string:
		return v == "TRUE" || v == "true" || v == "1"
	}
	i, ok := r.Int64(column)
	return ok && i == 1
}

// scanRows maps all rows and closes them.
func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var rv []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		rv = append(rv, row)
	}

	return rv, rows.Err()
}

// distinct removes rows with a duplicate value, column by column.
// The first row of a value is kept.
func distinct(rows []Row, columns []string) []Row {
	for _, column := range columns {
		seen := make(map[string]bool, len(rows))
		var filtered []Row
		for _, row := range rows {
			key := fmt.Sprintf("%T:%v", row[column], row[column])
			if seen[key] {
				continue
			}
			seen[key] = true
			filtered = append(filtered, row)
		}
		rows = filtered
	}
	return rows
}

// SanitizeToString will convert any type to a string.
// Error will return if the type is not implemented in SanitizeInterfaceValue.
func SanitizeToString(i interface{}) (string, error) {
	v, err := SanitizeInterfaceValue(i)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", v), nil
}

// SanitizeInterfaceValue will convert any int, uint, null.Int or numeric string to int64 and []byte, null.String to string.
// Error will return if the type is different or not implemented.
func SanitizeInterfaceValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
	case string:
		var i int64
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil && fmt.Sprint(i) == v {
			return i, nil
		}
		return v, nil
	case []byte:
		return SanitizeInterfaceValue(string(v))
	case null.Int:
		if v.Valid {
			return v.Int64, nil
		}
	case null.String:
		if v.Valid {
			return SanitizeInterfaceValue(v.String)
		}
	}

	return nil, fmt.Errorf(ErrSanitize, value, typeName(value))
}

func typeName(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
