// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package condition provides a sql condition builder.
//
// The WHERE clause is a flat list of groups. Every group has an inner operator which joins its
// predicates and a link operator which joins the group to the previous one. A group with more than
// one predicate is rendered in parentheses:
//		a = ? OR b = ? OR (c = ? AND d = ?)
// Arguments and their bind kinds are collected in the same order as the placeholders are rendered.
package condition

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/patrickascher/relmap/query/types"
)

// Error messages.
var (
	ErrValue               = "query: %s was called with no value(s)"
	ErrCrossJoin           = errors.New("query: cross joins are not allowed to have a join condition")
	ErrJoinType            = "query: join type %d is not allowed"
	ErrJoinTable           = errors.New("query: join table is mandatory")
	ErrPlaceholderMismatch = "query: %v placeholder(%d) and arguments(%d) does not fit"
	ErrOperator            = "query: operator %q is not allowed"
	ErrLink                = "query: link operator %q is not allowed, use AND or OR"
	ErrGroup               = errors.New("query: a where group needs at least one predicate")
)

// Link and inner operators of a where group.
const (
	AND = "AND"
	OR  = "OR"
)

// Allowed predicate operators.
const (
	EQ      = "="
	NEQ     = "!="
	NEQ2    = "<>"
	LT      = "<"
	LTE     = "<="
	GT      = ">"
	GTE     = ">="
	LIKE    = "LIKE"
	NOTLIKE = "NOT LIKE"
	IN      = "IN"
	NOTIN   = "NOT IN"
)

// IsOperatorAllowed will return false if the operator is not implemented.
func IsOperatorAllowed(op string) bool {
	switch normalizeOperator(op) {
	case EQ, NEQ, NEQ2, LT, LTE, GT, GTE, LIKE, NOTLIKE, IN, NOTIN:
		return true
	}
	return false
}

// normalizeOperator trims and upper cases the operator, an empty operator is EQ.
func normalizeOperator(op string) string {
	op = strings.ToUpper(strings.Join(strings.Fields(op), " "))
	if op == "" {
		return EQ
	}
	return op
}

// Clause interface.
type Clause interface {
	Arguments() []interface{}
	Condition() string
}

// Predicate of a where group.
// The column must already be quoted. An empty operator is EQ.
type Predicate struct {
	Column   string
	Operator string
	Value    interface{}
}

// Group of where predicates.
type Group struct {
	// Link to the previous group (AND, OR). It is ignored on the first group.
	Link string
	// Inner operator between the predicates (AND, OR).
	Inner      string
	Predicates []Predicate

	raw *clause
}

// Raw returns the raw condition and true if the group was created by SetWhere or SetOrWhere.
func (g Group) Raw() (Clause, bool) {
	if g.raw == nil {
		return nil, false
	}
	return g.raw, true
}

// Statement is a rendered sql statement.
// Types holds the bind kind of every argument, len(Types) is always len(Args).
type Statement struct {
	SQL   string
	Args  []interface{}
	Types string
}

// add arguments and their bind kind.
func (s *Statement) add(args ...interface{}) {
	for _, arg := range args {
		s.Args = append(s.Args, arg)
		s.Types += types.BindKind(arg)
	}
}

// Condition interface.
type Condition interface {
	SetWhere(condition string, args ...interface{}) Condition
	SetOrWhere(condition string, args ...interface{}) Condition
	SetWhereGroup(link string, inner string, predicates ...Predicate) Condition
	Where() []Group
	SetJoin(joinType int, table string, condition string, args ...interface{}) Condition
	Join() []Clause
	SetHaving(condition string, args ...interface{}) Condition
	Having() []Clause
	SetLimit(limit int) Condition
	Limit() int
	SetOffset(offset int) Condition
	Offset() int
	SetGroup(group ...string) Condition
	Group() []string
	SetOrder(order ...string) Condition
	Order() []string

	Copy() Condition
	Merge(Condition)
	Reset(...int)
	Error() error
	Render(p Placeholder) (Statement, error)
}

// Allowed conditions.
const (
	WHERE = iota + 1
	HAVING
	LIMIT
	ORDER
	OFFSET
	GROUP
	JOIN
)

// Allowed join types.
const (
	LEFT = iota + 1
	RIGHT
	INNER
	CROSS
)

// clause is a helper struct for raw WHERE, HAVING and JOIN.
type clause struct {
	condition string
	arguments []interface{}
}

// Condition will return the defined condition.
func (c *clause) Condition() string {
	return c.condition
}

// Arguments of the condition.
func (c *clause) Arguments() []interface{} {
	return c.arguments
}

type condition struct {
	where  []Group
	values map[int][]Clause // having, join
	limit  int
	order  []string
	offset int
	group  []string
	error  error
}

// New creates a new Condition instance.
func New() Condition {
	return &condition{values: make(map[int][]Clause)}
}

// Merge two conditions.
// Group, Offset, Limit and Order will be set if they have a none zero value instead of merged, because they should only be used once.
// Where, Having and Join will be merged, if exist.
func (c *condition) Merge(b Condition) {
	if group := b.Group(); len(group) > 0 {
		c.group = append([]string(nil), group...)
	}
	if offset := b.Offset(); offset != 0 {
		c.SetOffset(offset)
	}
	if limit := b.Limit(); limit != 0 {
		c.SetLimit(limit)
	}
	if order := b.Order(); len(order) > 0 {
		c.order = append([]string(nil), order...)
	}
	if where := b.Where(); len(where) > 0 {
		c.where = append(c.where, where...)
	}
	if having := b.Having(); len(having) > 0 {
		c.values[HAVING] = append(c.values[HAVING], having...)
	}
	if join := b.Join(); len(join) > 0 {
		c.values[JOIN] = append(c.values[JOIN], join...)
	}
	if err := b.Error(); err != nil && c.error == nil {
		c.error = err
	}
}

// Copy a Condition into a new instance.
func (c *condition) Copy() Condition {
	newC := New().(*condition)
	newC.limit = c.limit
	newC.offset = c.offset
	newC.order = append([]string(nil), c.order...)
	newC.group = append([]string(nil), c.group...)
	newC.error = c.error
	newC.where = make([]Group, len(c.where))
	for i, g := range c.where {
		g.Predicates = append([]Predicate(nil), g.Predicates...)
		newC.where[i] = g
	}
	for k := range c.values {
		newC.values[k] = append([]Clause(nil), c.values[k]...)
	}
	return newC
}

// Error of the condition.
func (c *condition) Error() error {
	return c.error
}

// setError keeps the first error.
func (c *condition) setError(err error) {
	if c.error == nil {
		c.error = err
	}
}

// SetWhere will create a raw sql WHERE condition which is linked by AND.
// Arrays and slices can be passed as argument.
//		c.SetWhere("id = ?",1)
//		c.SetWhere("id IN (?)",[]int{10,11,12})
func (c *condition) SetWhere(condition string, args ...interface{}) Condition {
	return c.raw(AND, condition, args)
}

// SetOrWhere is like SetWhere but linked by OR.
func (c *condition) SetOrWhere(condition string, args ...interface{}) Condition {
	return c.raw(OR, condition, args)
}

func (c *condition) raw(link string, condition string, args []interface{}) Condition {
	condition, args, err := clauseManipulation(condition, args)
	if err != nil {
		c.setError(err)
	}
	c.where = append(c.where, Group{Link: link, Inner: AND, raw: &clause{condition: condition, arguments: args}})
	return c
}

// SetWhereGroup adds a group of predicates.
// The inner operator joins the predicates, the link operator joins the group to the previous one.
func (c *condition) SetWhereGroup(link string, inner string, predicates ...Predicate) Condition {
	link = strings.ToUpper(strings.TrimSpace(link))
	inner = strings.ToUpper(strings.TrimSpace(inner))
	if link != AND && link != OR {
		c.setError(fmt.Errorf(ErrLink, link))
	}
	if inner != AND && inner != OR {
		c.setError(fmt.Errorf(ErrLink, inner))
	}
	if len(predicates) == 0 {
		c.setError(ErrGroup)
	}
	c.where = append(c.where, Group{Link: link, Inner: inner, Predicates: predicates})
	return c
}

// Where returns the where groups.
func (c *condition) Where() []Group {
	return c.where
}

// SetJoin will create a sql JOIN condition.
// LEFT, RIGHT, INNER and CROSS are supported.
// SQL USING() is not supported at the moment.
// If the join type is unknown or the table is empty, an error will be set.
func (c *condition) SetJoin(joinType int, table string, condition string, args ...interface{}) Condition {

	// table name is mandatory
	if table == "" {
		c.setError(ErrJoinTable)
	}

	condition = strings.TrimSpace(condition)
	switch joinType {
	case LEFT:
		condition = "LEFT JOIN " + table + " ON " + condition
	case RIGHT:
		condition = "RIGHT JOIN " + table + " ON " + condition
	case INNER:
		condition = "INNER JOIN " + table + " ON " + condition
	case CROSS:
		if condition != "" || len(args) > 0 {
			c.setError(ErrCrossJoin)
			args = nil
		}
		condition = "CROSS JOIN " + table
	default:
		c.setError(fmt.Errorf(ErrJoinType, joinType))
	}
	condition, args, err := clauseManipulation(condition, args)
	if err != nil {
		c.setError(err)
	}
	c.values[JOIN] = append(c.values[JOIN], &clause{condition: condition, arguments: args})
	return c
}

// Join returns the join clause.
func (c *condition) Join() []Clause {
	return c.values[JOIN]
}

// SetHaving will create a sql HAVING condition.
// When called multiple times, its getting chained by AND operator.
func (c *condition) SetHaving(condition string, args ...interface{}) Condition {
	condition, args, err := clauseManipulation(condition, args)
	if err != nil {
		c.setError(err)
	}
	c.values[HAVING] = append(c.values[HAVING], &clause{condition: condition, arguments: args})
	return c
}

// Having returns the having clause.
func (c *condition) Having() []Clause {
	return c.values[HAVING]
}

// SetLimit for the condition.
func (c *condition) SetLimit(limit int) Condition {
	c.limit = limit
	return c
}

// Limit of the condition.
func (c *condition) Limit() int {
	return c.limit
}

// SetOffset for the condition.
func (c *condition) SetOffset(offset int) Condition {
	c.offset = offset
	return c
}

// Offset of the condition.
func (c *condition) Offset() int {
	return c.offset
}

// SetGroup should only be called once.
// If its called more often, the last values are set.
func (c *condition) SetGroup(group ...string) Condition {
	c.Reset(GROUP)
	if len(group) == 0 || (len(group) == 1 && group[0] == "") {
		c.setError(fmt.Errorf(ErrValue, "SetGroup"))
		return c
	}
	c.group = group
	return c
}

// Group return the group columns.
func (c *condition) Group() []string {
	return c.group
}

// SetOrder should only be called once.
// If a column has a `-` prefix, DESC order will get set.
// If its called more often, the last values are set.
func (c *condition) SetOrder(order ...string) Condition {
	c.Reset(ORDER)
	if len(order) == 0 || (len(order) == 1 && order[0] == "") {
		c.setError(fmt.Errorf(ErrValue, "SetOrder"))
		return c
	}

	rv := make([]string, len(order))
	for k, o := range order {
		o = strings.TrimSpace(o)
		o = strings.Replace(o, " asc", " ASC", 1)
		o = strings.Replace(o, " desc", " DESC", 1)
		if strings.HasPrefix(o, "-") {
			o = o[1:] + " DESC"
		} else if !strings.HasSuffix(o, " ASC") && !strings.HasSuffix(o, " DESC") {
			o += " ASC"
		}
		rv[k] = o
	}
	c.order = rv
	return c
}

// Order return the order columns.
func (c *condition) Order() []string {
	return c.order
}

// Reset the complete condition or only single parts.
func (c *condition) Reset(r ...int) {
	if len(r) == 0 {
		r = []int{WHERE, HAVING, LIMIT, ORDER, OFFSET, GROUP, JOIN}
	}
	for _, reset := range r {
		switch reset {
		case WHERE:
			c.where = nil
		case HAVING, JOIN:
			c.values[reset] = nil
		case LIMIT:
			c.limit = 0
		case OFFSET:
			c.offset = 0
		case ORDER:
			c.order = nil
		case GROUP:
			c.group = nil
		}
	}
}

// Render the condition as sql statement.
func (c *condition) Render(p Placeholder) (Statement, error) {
	stmt := Statement{}

	if c.error != nil {
		return stmt, c.error
	}

	var sql []string

	// JOIN clause
	for _, v := range c.values[JOIN] {
		sql = append(sql, v.Condition())
		stmt.add(v.Arguments()...)
	}

	// WHERE clause
	if len(c.where) > 0 {
		where, err := c.renderWhere(&stmt)
		if err != nil {
			return Statement{}, err
		}
		sql = append(sql, "WHERE "+where)
	}

	// GROUP clause
	if len(c.group) > 0 {
		sql = append(sql, "GROUP BY "+strings.Join(c.group, ", "))
	}

	// HAVING clause
	if len(c.values[HAVING]) > 0 {
		var having []string
		for _, v := range c.values[HAVING] {
			having = append(having, v.Condition())
			stmt.add(v.Arguments()...)
		}
		sql = append(sql, "HAVING "+strings.Join(having, " AND "))
	}

	// ORDER clause
	if len(c.order) > 0 {
		sql = append(sql, "ORDER BY "+strings.Join(c.order, ", "))
	}

	// LIMIT clause
	if c.limit > 0 {
		sql = append(sql, "LIMIT "+strconv.Itoa(c.limit))
	}

	// OFFSET clause
	if c.offset > 0 {
		sql = append(sql, "OFFSET "+strconv.Itoa(c.offset))
	}

	stmt.SQL = ReplacePlaceholders(strings.Join(sql, " "), p)
	return stmt, nil
}

// renderWhere renders all groups, the first group omits its link operator.
func (c *condition) renderWhere(stmt *Statement) (string, error) {
	var b strings.Builder
	multiple := len(c.where) > 1
	for i, g := range c.where {
		if i > 0 {
			b.WriteString(" " + g.Link + " ")
		}

		if g.raw != nil {
			cond := g.raw.condition
			if multiple && strings.Contains(strings.ToUpper(cond), " OR ") {
				cond = "(" + cond + ")"
			}
			b.WriteString(cond)
			stmt.add(g.raw.arguments...)
			continue
		}

		parts := make([]string, 0, len(g.Predicates))
		for _, p := range g.Predicates {
			part, args, err := p.render()
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
			stmt.add(args...)
		}
		group := strings.Join(parts, " "+g.Inner+" ")
		if len(parts) > 1 {
			group = "(" + group + ")"
		}
		b.WriteString(group)
	}
	return b.String(), nil
}

// render a single predicate.
// Null equality is rendered as IS NULL / IS NOT NULL.
// An empty IN list is always false, an empty NOT IN list always true.
func (p Predicate) render() (string, []interface{}, error) {
	op := normalizeOperator(p.Operator)
	if !IsOperatorAllowed(op) {
		return "", nil, fmt.Errorf(ErrOperator, p.Operator)
	}

	if isNil(p.Value) {
		switch op {
		case EQ:
			return p.Column + " IS NULL", nil, nil
		case NEQ, NEQ2:
			return p.Column + " IS NOT NULL", nil, nil
		}
	}

	if op == IN || op == NOTIN {
		rv := reflect.ValueOf(p.Value)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			if rv.Len() == 0 {
				if op == IN {
					return "1 = 0", nil, nil
				}
				return "1 = 1", nil, nil
			}
			args := make([]interface{}, rv.Len())
			for i := range args {
				args[i] = rv.Index(i).Interface()
			}
			return p.Column + " " + op + " (" + PLACEHOLDER + strings.Repeat(", "+PLACEHOLDER, len(args)-1) + ")", args, nil
		}
		return p.Column + " " + op + " (" + PLACEHOLDER + ")", []interface{}{p.Value}, nil
	}

	return p.Column + " " + op + " " + PLACEHOLDER, []interface{}{p.Value}, nil
}

// isNil reports if the value is nil or a nil pointer.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// ReplacePlaceholders will replace the query placeholder with any other placeholder.
func ReplacePlaceholders(stmt string, p Placeholder) string {
	if p.Char == PLACEHOLDER && !p.Numeric {
		return stmt
	}
	n := strings.Count(stmt, PLACEHOLDER)
	for i := 1; i <= n; i++ {
		stmt = strings.Replace(stmt, PLACEHOLDER, p.placeholder(), 1)
	}
	return stmt
}

// clauseManipulation is a helper for array or slice arguments.
func clauseManipulation(clause string, args []interface{}) (string, []interface{}, error) {

	clause = strings.TrimSpace(clause)

	// check if the placeholder/arguments fit.
	if count := strings.Count(clause, PLACEHOLDER); count != len(args) {
		return "", nil, fmt.Errorf(ErrPlaceholderMismatch, clause, count, len(args))
	}

	if len(args) == 0 {
		return clause, nil, nil
	}

	// expand array or slice arguments.
	var rv []interface{}
	parts := strings.SplitAfter(clause, PLACEHOLDER)
	for i, arg := range args {
		argReflect := reflect.ValueOf(arg)
		if (argReflect.Kind() == reflect.Array || argReflect.Kind() == reflect.Slice) && argReflect.Type().Elem().Kind() != reflect.Uint8 {
			n := argReflect.Len()
			if n == 0 {
				return "", nil, fmt.Errorf(ErrValue, clause)
			}
			parts[i] = strings.Replace(parts[i], PLACEHOLDER, PLACEHOLDER+strings.Repeat(", "+PLACEHOLDER, n-1), 1)
			for j := 0; j < n; j++ {
				rv = append(rv, argReflect.Index(j).Interface())
			}
			continue
		}
		rv = append(rv, arg)
	}

	return strings.Join(parts, ""), rv, nil
}
