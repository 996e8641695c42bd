// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/patrickascher/relmap/query/condition"
)

const defaultBatchSize = 50

// Error messages.
var (
	ErrValueMissing = "query: no %s value is set (%s)"
	ErrColumn       = "query: column (%s) does not exist in (%s)"
	ErrLastID       = errors.New("query: last id must be a ptr to an integer or interface")
)

// InsertBase can be embedded and changed for different providers.
// All functions and variables are therefore exported.
type InsertBase struct {
	Provider Provider

	ITable     string
	IValues    []map[string]interface{}
	IColumns   []string
	IBatchSize int
	ILastID    interface{}
}

// Batch sets the number of rows per statement.
// Default batching size is 50.
func (i *InsertBase) Batch(size int) Insert {
	i.IBatchSize = size
	return i
}

// Columns define a fixed column order for the insert.
// If the columns are not set manually, all keys of the first value set are used in alphabetical order.
// Only Values will be inserted which are defined here. This means, you can use Columns as a whitelist.
func (i *InsertBase) Columns(c ...string) Insert {
	i.IColumns = c
	return i
}

// Values sets the insert data.
func (i *InsertBase) Values(values []map[string]interface{}) Insert {
	i.IValues = values
	return i
}

// LastInsertedID sets a ptr which receives the last inserted id.
// The argument must be a ptr to an integer or interface{} field.
// It is only set if the insert was not batched.
func (i *InsertBase) LastInsertedID(id ...interface{}) Insert {
	if len(id) > 0 {
		i.ILastID = id[0]
	}
	return i
}

// String returns the rendered statements and arguments.
func (i *InsertBase) String() ([]string, [][]interface{}, error) {
	return i.Render()
}

// Exec the statement.
// More than one batch is executed in a transaction.
func (i *InsertBase) Exec() ([]sql.Result, error) {
	var id reflect.Value
	if i.ILastID != nil {
		id = reflect.ValueOf(i.ILastID)
		if id.Kind() != reflect.Ptr || id.IsNil() {
			return nil, ErrLastID
		}
	}

	stmts, args, err := i.Render()
	if err != nil {
		return nil, err
	}

	res, err := i.Provider.Exec(stmts, args)
	if err != nil {
		return nil, err
	}

	if i.ILastID != nil && len(res) == 1 {
		lastID, err := res[0].LastInsertId()
		if err != nil {
			return nil, err
		}
		if err = setLastID(id.Elem(), lastID); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// setLastID sets the id on the integer or interface value.
func setLastID(v reflect.Value, id int64) error {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(id))
	case reflect.Interface:
		v.Set(reflect.ValueOf(id))
	default:
		return ErrLastID
	}
	return nil
}

// Render the sql statements, one per batch.
func (i *InsertBase) Render() ([]string, [][]interface{}, error) {
	if len(i.IValues) == 0 {
		return nil, nil, fmt.Errorf(ErrValueMissing, "insert", i.ITable)
	}

	columns := addColumns(i.IColumns, i.IValues[0])
	size := i.IBatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	head := "INSERT INTO " + i.Provider.QuoteIdentifier(i.ITable) + " (" + i.Provider.QuoteIdentifier(columns...) + ") VALUES "
	row := "(" + condition.PLACEHOLDER + strings.Repeat(", "+condition.PLACEHOLDER, len(columns)-1) + ")"

	var stmts []string
	var args [][]interface{}
	for start := 0; start < len(i.IValues); start += size {
		end := start + size
		if end > len(i.IValues) {
			end = len(i.IValues)
		}

		var batch []interface{}
		rows := make([]string, 0, end-start)
		for _, values := range i.IValues[start:end] {
			for _, column := range columns {
				val, ok := values[column]
				if !ok {
					return nil, nil, fmt.Errorf(ErrColumn, column, i.ITable)
				}
				batch = append(batch, val)
			}
			rows = append(rows, row)
		}

		stmts = append(stmts, condition.ReplacePlaceholders(head+strings.Join(rows, ", "), i.Provider.Placeholder()))
		args = append(args, batch)
	}

	return stmts, args, nil
}
