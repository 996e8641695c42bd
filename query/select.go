// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/patrickascher/relmap/query/condition"
)

// Error messages.
var (
	ErrExecuted = errors.New("query: select was already executed")
	ErrNoRows   = errors.New("query: no rows found")
)

// SelectBase can be embedded and changed for different providers.
// All functions and variables are therefore exported.
type SelectBase struct {
	Provider Provider

	STable     string
	SColumns   []string
	SCondition condition.Condition
	SDistinct  []string
	SNoLimit   bool

	executed bool
}

// Columns define the columns of the select.
// If the columns are not set manually, * will be used.
func (s *SelectBase) Columns(columns ...string) Select {
	s.SColumns = columns
	return s
}

// Condition adds your own condition to the stmt.
func (s *SelectBase) Condition(c condition.Condition) Select {
	s.SCondition = c
	return s
}

// Join - please see the condition.Join documentation.
func (s *SelectBase) Join(joinType int, table string, condition string, args ...interface{}) Select {
	s.createCondition()
	s.SCondition.SetJoin(joinType, s.Provider.QuoteIdentifier(table), condition, args...)
	return s
}

// Where adds a condition which is linked by AND.
//		Where("deleted_at IS NULL")
//		Where("id = ? OR id = ?", 1, 2)
//		Where("name", "John")
//		Where("age", ">=", 18)
func (s *SelectBase) Where(column string, args ...interface{}) Select {
	s.createCondition()
	addWhere(s.SCondition, s.Provider, condition.AND, column, args)
	return s
}

// OrWhere adds a condition which is linked by OR.
// The same shapes as Where are allowed.
func (s *SelectBase) OrWhere(column string, args ...interface{}) Select {
	s.createCondition()
	addWhere(s.SCondition, s.Provider, condition.OR, column, args)
	return s
}

// WhereGroup adds the predicates joined by the inner operator.
// The group is linked to the previous one by link.
// The predicate columns are quoted by the provider.
func (s *SelectBase) WhereGroup(inner string, link string, predicates ...condition.Predicate) Select {
	s.createCondition()
	quoted := make([]condition.Predicate, len(predicates))
	for i, p := range predicates {
		p.Column = s.Provider.QuoteIdentifier(p.Column)
		quoted[i] = p
	}
	s.SCondition.SetWhereGroup(link, inner, quoted...)
	return s
}

// Group - please see the condition.Group documentation.
func (s *SelectBase) Group(group ...string) Select {
	s.createCondition()
	cols := make([]string, len(group))
	for i, g := range group {
		cols[i] = s.Provider.QuoteIdentifier(g)
	}
	s.SCondition.SetGroup(cols...)
	return s
}

// Having - please see the condition.Having documentation.
func (s *SelectBase) Having(condition string, args ...interface{}) Select {
	s.createCondition()
	s.SCondition.SetHaving(condition, args...)
	return s
}

// Order - please see the condition.Order documentation.
// The columns are quoted, a `-` prefix is DESC.
func (s *SelectBase) Order(order ...string) Select {
	s.createCondition()
	cols := make([]string, 0, len(order))
	for _, o := range order {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		desc := strings.HasPrefix(o, "-")
		fields := strings.Fields(strings.TrimPrefix(o, "-"))
		col := s.Provider.QuoteIdentifier(fields[0])
		if desc {
			col = "-" + col
		} else if len(fields) > 1 {
			col += " " + fields[1]
		}
		cols = append(cols, col)
	}
	s.SCondition.SetOrder(cols...)
	return s
}

// Limit of the select.
// A negative limit disables the default limit of the config.
func (s *SelectBase) Limit(limit int) Select {
	s.createCondition()
	s.SNoLimit = limit < 0
	if limit < 0 {
		limit = 0
	}
	s.SCondition.SetLimit(limit)
	return s
}

// Offset - please see the condition.Offset documentation.
func (s *SelectBase) Offset(offset int) Select {
	s.createCondition()
	s.SCondition.SetOffset(offset)
	return s
}

// Distinct removes rows with duplicate values after the rows were fetched.
// The columns are applied one after another, the first row of a value wins.
// This is done in memory and should not be used on large results.
func (s *SelectBase) Distinct(columns ...string) Select {
	s.SDistinct = columns
	return s
}

// Render the sql query.
// The default limit is added if no limit was set.
func (s *SelectBase) Render() (condition.Statement, error) {
	c := s.condition()
	if c.Limit() == 0 && !s.SNoLimit {
		c.SetLimit(s.Provider.Config().Limit())
	}
	return s.render(c)
}

// render the statement with the given condition.
func (s *SelectBase) render(c condition.Condition) (condition.Statement, error) {
	columns := s.SColumns
	if len(columns) == 0 {
		columns = []string{DbExpr("*")}
	}

	stmt, err := c.Render(s.Provider.Placeholder())
	if err != nil {
		return condition.Statement{}, err
	}

	sql := "SELECT " + s.Provider.QuoteIdentifier(columns...) + " FROM " + s.Provider.QuoteIdentifier(s.STable)
	if stmt.SQL != "" {
		sql += " " + stmt.SQL
	}
	stmt.SQL = sql
	return stmt, nil
}

// String returns the rendered statement.
// It does not execute the select.
func (s *SelectBase) String() (condition.Statement, error) {
	return s.Render()
}

// Executed returns true if the select was already executed.
func (s *SelectBase) Executed() bool {
	return s.executed
}

// consume marks the select as executed.
func (s *SelectBase) consume() error {
	if s.executed {
		return ErrExecuted
	}
	s.executed = true
	return nil
}

// All will return all rows.
func (s *SelectBase) All() ([]Row, error) {
	if err := s.consume(); err != nil {
		return nil, err
	}
	stmt, err := s.Render()
	if err != nil {
		return nil, err
	}
	return s.fetch(stmt)
}

// fetch the statement and apply the distinct columns.
func (s *SelectBase) fetch(stmt condition.Statement) ([]Row, error) {
	rows, err := s.Provider.All(stmt.SQL, stmt.Args)
	if err != nil {
		return nil, err
	}
	res, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return distinct(res, s.SDistinct), nil
}

// First will return the first row.
// The limit is set to 1, error ErrNoRows will return if no row was found.
func (s *SelectBase) First() (Row, error) {
	if err := s.consume(); err != nil {
		return nil, err
	}
	c := s.condition()
	c.SetLimit(1)
	stmt, err := s.render(c)
	if err != nil {
		return nil, err
	}
	rows, err := s.fetch(stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, s.STable)
	}
	return rows[0], nil
}

// Count returns the number of rows.
// Order, limit and offset are ignored. If a group was set, the groups are counted.
func (s *SelectBase) Count() (int64, error) {
	if err := s.consume(); err != nil {
		return 0, err
	}

	c := s.condition()
	c.Reset(condition.ORDER, condition.LIMIT, condition.OFFSET)

	var stmt condition.Statement
	var err error
	if len(c.Group()) > 0 {
		stmt, err = s.render(c)
		stmt.SQL = "SELECT COUNT(*) FROM (" + stmt.SQL + ") AS " + s.Provider.QuoteIdentifier("grouped")
	} else {
		columns := s.SColumns
		s.SColumns = []string{DbExpr("COUNT(*)")}
		stmt, err = s.render(c)
		s.SColumns = columns
	}
	if err != nil {
		return 0, err
	}

	rows, err := s.Provider.All(stmt.SQL, stmt.Args)
	if err != nil {
		return 0, err
	}
	res, err := scanRows(rows)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	for _, v := range res[0] {
		count, err := SanitizeInterfaceValue(v)
		if err != nil {
			return 0, err
		}
		if i, ok := count.(int64); ok {
			return i, nil
		}
		return 0, fmt.Errorf(ErrSanitize, v, "count")
	}
	return 0, nil
}

// FetchOrFail returns all rows. If no row was found, an error with the given message is returned which wraps ErrNoRows.
func (s *SelectBase) FetchOrFail(msg string) ([]Row, error) {
	rows, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, msg)
	}
	return rows, nil
}

// FetchOr returns all rows. If no row was found, the result of fn is returned.
func (s *SelectBase) FetchOr(fn func() ([]Row, error)) ([]Row, error) {
	rows, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && fn != nil {
		return fn()
	}
	return rows, nil
}

// condition returns a copy of the condition.
func (s *SelectBase) condition() condition.Condition {
	if s.SCondition == nil {
		return condition.New()
	}
	return s.SCondition.Copy()
}

// createCondition helper to create a condition if none was set yet.
func (s *SelectBase) createCondition() {
	if s.SCondition == nil {
		s.SCondition = condition.New()
	}
}
