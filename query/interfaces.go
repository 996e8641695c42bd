// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"database/sql"

	"github.com/patrickascher/relmap/logger"
	"github.com/patrickascher/relmap/query/condition"
)

// Builder is the entry point for the query provider.
type Builder interface {
	SetLogger(logger.Manager)
	Query(...Query) Query
	Config() Config
	QuoteIdentifier(string) string
}

// Provider must be implemented by the database providers.
type Provider interface {
	Open() error
	Config() Config
	SetDB(*sql.DB)
	DB() *sql.DB
	Placeholder() condition.Placeholder
	QuoteIdentifier(...string) string
	QuoteIdentifierChar() string
	SetLogger(logger.Manager)
	Query() Query
	Exec([]string, [][]interface{}) ([]sql.Result, error)
	All(string, []interface{}) (*sql.Rows, error)
}

// Query is a new instance of the provider.
// If a transaction is started, all statements of this instance will run in it.
type Query interface {
	Tx() (Query, error)
	HasTx() bool
	Commit() error
	Rollback() error

	DB() *sql.DB

	Select(string) Select
	Insert(string) Insert
	Update(string) Update
	Delete(string) Delete
	Information(string) Information
	Table(string) Table
	Tables() ([]string, error)
}

// Insert statement.
type Insert interface {
	Batch(int) Insert
	Columns(...string) Insert
	Values([]map[string]interface{}) Insert
	LastInsertedID(...interface{}) Insert

	String() ([]string, [][]interface{}, error)
	Exec() ([]sql.Result, error)
}

// Update statement.
type Update interface {
	Set(map[string]interface{}) Update
	Columns(...string) Update
	Condition(condition.Condition) Update
	Where(string, ...interface{}) Update
	OrWhere(string, ...interface{}) Update

	String() (condition.Statement, error)
	Exec() (sql.Result, error)
}

// Delete statement.
type Delete interface {
	Condition(c condition.Condition) Delete
	Where(string, ...interface{}) Delete
	OrWhere(string, ...interface{}) Delete

	String() (condition.Statement, error)
	Exec() (sql.Result, error)
}

// Select statement.
type Select interface {
	Columns(...string) Select
	Condition(c condition.Condition) Select
	Join(joinType int, table string, condition string, args ...interface{}) Select
	Where(column string, args ...interface{}) Select
	OrWhere(column string, args ...interface{}) Select
	WhereGroup(inner string, link string, predicates ...condition.Predicate) Select
	Group(group ...string) Select
	Having(condition string, args ...interface{}) Select
	Order(order ...string) Select
	Limit(limit int) Select
	Offset(offset int) Select
	Distinct(columns ...string) Select

	String() (condition.Statement, error)
	Executed() bool
	All() ([]Row, error)
	First() (Row, error)
	Count() (int64, error)
	FetchOrFail(msg string) ([]Row, error)
	FetchOr(fn func() ([]Row, error)) ([]Row, error)
}

// Information about a table.
type Information interface {
	Exists() (bool, error)
	Describe(columns ...string) ([]Column, error)
	ForeignKey() ([]ForeignKey, error)
	CreateStatement() (string, error)
}

// Table provides the DDL of a table.
type Table interface {
	Create(columns ...ColumnDefinition) error
	CreateIfNotExists(columns ...ColumnDefinition) error
	CreateStatement(ifNotExists bool, columns ...ColumnDefinition) (string, error)
	AddColumn(column ColumnDefinition) error
	ModifyColumn(column ColumnDefinition) error
	DropColumn(name string) error
	Drop() error
}

// Type of a column.
type Type interface {
	Kind() string
	Raw() string
}
