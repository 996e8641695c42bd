// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/patrickascher/relmap/query/condition"
	"github.com/patrickascher/relmap/query/types"
)

// UpdateBase can be embedded and changed for different providers.
// All functions and variables are therefore exported.
type UpdateBase struct {
	Provider Provider

	UTable     string
	UColumns   []string
	UValues    map[string]interface{}
	UCondition condition.Condition
}

// Set the values.
func (u *UpdateBase) Set(values map[string]interface{}) Update {
	u.UValues = values
	return u
}

// Columns define a fixed column order for the update.
// If the columns are not set manually, all keys of the values are used in alphabetical order.
// Only Values will be updated which are defined here. This means, you can use Columns as a whitelist.
func (u *UpdateBase) Columns(cols ...string) Update {
	u.UColumns = cols
	return u
}

// Condition adds your own condition to the stmt.
// Only WHERE conditions will be used.
func (u *UpdateBase) Condition(c condition.Condition) Update {
	c.Reset(condition.HAVING, condition.LIMIT, condition.ORDER, condition.OFFSET, condition.GROUP, condition.JOIN)
	u.UCondition = c
	return u
}

// Where adds a condition which is linked by AND.
// The same shapes as Select.Where are allowed.
func (u *UpdateBase) Where(column string, args ...interface{}) Update {
	u.createCondition()
	addWhere(u.UCondition, u.Provider, condition.AND, column, args)
	return u
}

// OrWhere adds a condition which is linked by OR.
func (u *UpdateBase) OrWhere(column string, args ...interface{}) Update {
	u.createCondition()
	addWhere(u.UCondition, u.Provider, condition.OR, column, args)
	return u
}

// String returns the rendered statement.
func (u *UpdateBase) String() (condition.Statement, error) {
	return u.Render()
}

// Exec the statement.
func (u *UpdateBase) Exec() (sql.Result, error) {
	stmt, err := u.Render()
	if err != nil {
		return nil, err
	}

	res, err := u.Provider.Exec([]string{stmt.SQL}, [][]interface{}{stmt.Args})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// Render the sql query.
// The set arguments are followed by the where arguments.
func (u *UpdateBase) Render() (condition.Statement, error) {
	if len(u.UValues) == 0 {
		return condition.Statement{}, fmt.Errorf(ErrValueMissing, "update", u.UTable)
	}

	columns := addColumns(u.UColumns, u.UValues)

	set := make([]string, len(columns))
	var args []interface{}
	for i, column := range columns {
		val, ok := u.UValues[strings.TrimPrefix(column, u.UTable+".")]
		if !ok {
			return condition.Statement{}, fmt.Errorf(ErrColumn, column, u.UTable)
		}
		set[i] = u.Provider.QuoteIdentifier(column) + " = " + condition.PLACEHOLDER
		args = append(args, val)
	}

	c := condition.New()
	if u.UCondition != nil {
		c = u.UCondition.Copy()
	}
	where, err := c.Render(condition.Placeholder{Char: condition.PLACEHOLDER})
	if err != nil {
		return condition.Statement{}, err
	}

	stmt := condition.Statement{}
	sql := "UPDATE " + u.Provider.QuoteIdentifier(u.UTable) + " SET " + strings.Join(set, ", ")
	if where.SQL != "" {
		sql += " " + where.SQL
	}
	stmt.SQL = condition.ReplacePlaceholders(sql, u.Provider.Placeholder())
	stmt.Args = append(args, where.Args...)
	for _, arg := range args {
		stmt.Types += types.BindKind(arg)
	}
	stmt.Types += where.Types
	return stmt, nil
}

// createCondition helper to create a condition if none was set yet.
func (u *UpdateBase) createCondition() {
	if u.UCondition == nil {
		u.UCondition = condition.New()
	}
}
