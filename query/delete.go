// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"database/sql"

	"github.com/patrickascher/relmap/query/condition"
)

// DeleteBase can be embedded and changed for different providers.
// All functions and variables are therefore exported.
type DeleteBase struct {
	Provider Provider

	DTable     string
	DCondition condition.Condition
}

// Condition adds your own condition to the stmt.
// Only WHERE conditions will be used.
func (d *DeleteBase) Condition(c condition.Condition) Delete {
	c.Reset(condition.HAVING, condition.LIMIT, condition.ORDER, condition.OFFSET, condition.GROUP, condition.JOIN)
	d.DCondition = c
	return d
}

// Where adds a condition which is linked by AND.
// The same shapes as Select.Where are allowed.
func (d *DeleteBase) Where(column string, args ...interface{}) Delete {
	if d.DCondition == nil {
		d.DCondition = condition.New()
	}
	addWhere(d.DCondition, d.Provider, condition.AND, column, args)
	return d
}

// OrWhere adds a condition which is linked by OR.
func (d *DeleteBase) OrWhere(column string, args ...interface{}) Delete {
	if d.DCondition == nil {
		d.DCondition = condition.New()
	}
	addWhere(d.DCondition, d.Provider, condition.OR, column, args)
	return d
}

// String returns the rendered statement.
func (d *DeleteBase) String() (condition.Statement, error) {
	return d.Render()
}

// Exec the statement.
func (d *DeleteBase) Exec() (sql.Result, error) {
	stmt, err := d.Render()
	if err != nil {
		return nil, err
	}

	res, err := d.Provider.Exec([]string{stmt.SQL}, [][]interface{}{stmt.Args})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// Render the sql query.
func (d *DeleteBase) Render() (condition.Statement, error) {
	stmt := condition.Statement{}
	if d.DCondition != nil {
		var err error
		stmt, err = d.DCondition.Render(d.Provider.Placeholder())
		if err != nil {
			return condition.Statement{}, err
		}
	}

	sql := "DELETE FROM " + d.Provider.QuoteIdentifier(d.DTable)
	if stmt.SQL != "" {
		sql += " " + stmt.SQL
	}
	stmt.SQL = sql
	return stmt, nil
}
