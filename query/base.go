// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/patrickascher/relmap/logger"
	"github.com/patrickascher/relmap/query/condition"
)

// Error messages.
var (
	ErrDbNotSet = errors.New("query: DB is not set")
	ErrNoTx     = errors.New("query: no tx exists")
	ErrTxExists = errors.New("query: tx already exists")
)

// TransactionBase holds the *sql.Tx of a query instance.
type TransactionBase struct {
	SQLTx *sql.Tx
}

// HasTx returns true if a sql.Tx exists.
func (t *TransactionBase) HasTx() bool {
	return t.SQLTx != nil
}

// Commit the transaction, the tx is removed afterwards.
func (t *TransactionBase) Commit() error {
	if t.SQLTx == nil {
		return ErrNoTx
	}
	defer func() { t.SQLTx = nil }()
	return t.SQLTx.Commit()
}

// Rollback the transaction, the tx is removed afterwards.
func (t *TransactionBase) Rollback() error {
	if t.SQLTx == nil {
		return ErrNoTx
	}
	defer func() { t.SQLTx = nil }()
	return t.SQLTx.Rollback()
}

// Base struct includes the configuration, logger and transaction logic.
type Base struct {
	db       *sql.DB
	Config   Config
	Logger   logger.Manager
	Provider Provider

	TransactionBase
}

// SetDB sets the *sql.DB.
func (b *Base) SetDB(db *sql.DB) {
	b.db = db
}

// DB returns the *sql.DB.
func (b *Base) DB() *sql.DB {
	return b.db
}

// QuoteIdentifier quotes every string with the providers quote-identifier-character.
// If query.DbExpr was used, the string will not be quoted.
// "go.users AS u" will be converted to `go`.`users` `u`
func (b *Base) QuoteIdentifier(columns ...string) string {
	quote := b.Provider.QuoteIdentifierChar()

	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "" {
			continue
		}

		// don't escape query.DbExpr()
		if strings.HasPrefix(c, dbExpr) {
			quoted = append(quoted, c[1:])
			continue
		}

		// replace quote characters in the column name.
		c = strings.Replace(c, quote, "", -1)

		// check if an alias was used
		alias := strings.Fields(c)
		parts := strings.Split(alias[0], ".")
		for i, p := range parts {
			if p != "*" {
				parts[i] = quote + p + quote
			}
		}
		rv := strings.Join(parts, ".")
		if len(alias) >= 2 {
			rv += " " + b.QuoteIdentifier(alias[len(alias)-1])
		}
		quoted = append(quoted, rv)
	}

	return strings.Join(quoted, ", ")
}

// Tx will create a sql.Tx.
// Error will return if a tx was already set or the provider returns an error.
func (b *Base) Tx() (Query, error) {
	if b.HasTx() {
		return nil, ErrTxExists
	}
	var err error
	b.SQLTx, err = b.Provider.DB().Begin()
	if err != nil {
		return nil, err
	}
	return b.Provider.(Query), nil
}

// log returns a logger with a timer and the statement arguments.
// Nil will return if no logger is set.
func (b *Base) log(args interface{}) logger.Manager {
	if b.Logger == nil {
		return nil
	}
	return b.Logger.WithFields(logger.Fields{"args": args}).WithTimer()
}

// All will return the sql.Rows.
// If a logger is defined, the query will be logged on `DEBUG` lvl with a timer.
// If a transaction is set, it will run in the transaction.
func (b *Base) All(stmt string, args []interface{}) (*sql.Rows, error) {
	if log := b.log(args); log != nil {
		defer log.Debug(stmt)
	}

	if b.HasTx() {
		return b.SQLTx.Query(stmt, args...)
	}
	if b.db == nil {
		return nil, ErrDbNotSet
	}
	return b.db.Query(stmt, args...)
}

// Exec will execute the statement.
// Because of the Insert.Batch, multiple statements and arguments can be added and therefore an slice of sql.Result returns.
// If a transaction is set, it will run in the transaction.
// If its a batch exec and no transaction is set, it will automatically create one and commits it.
func (b *Base) Exec(stmt []string, args [][]interface{}) ([]sql.Result, error) {
	if log := b.log(args); log != nil {
		defer log.Debug(strings.Join(stmt, "; "))
	}
	if b.db == nil && !b.HasTx() {
		return nil, ErrDbNotSet
	}

	// set a transaction if its a batch
	var autoCommit bool
	if !b.HasTx() && len(args) > 1 {
		if _, err := b.Tx(); err != nil {
			return nil, err
		}
		autoCommit = true
	}

	var results []sql.Result
	for i, arg := range args {
		var res sql.Result
		var err error
		if b.HasTx() {
			res, err = b.SQLTx.Exec(stmt[i], arg...)
		} else {
			res, err = b.db.Exec(stmt[i], arg...)
		}

		if err != nil {
			if autoCommit {
				if rErr := b.Rollback(); rErr != nil {
					return nil, fmt.Errorf("query: %s: %w", rErr, err)
				}
			}
			return nil, err
		}
		results = append(results, res)
	}

	if autoCommit {
		return results, b.Commit()
	}

	return results, nil
}

// Open will set some basic sql Settings and check the connection.
// all defined config.PreQuery will run here.
func (b *Base) Open() error {

	if b.db == nil {
		return ErrDbNotSet
	}

	// settings, zero values keep the go defaults (2 idle, unlimited open, no lifetime).
	if b.Config.MaxIdleConnections > 0 {
		b.db.SetMaxIdleConns(b.Config.MaxIdleConnections)
	}
	b.db.SetMaxOpenConns(b.Config.MaxOpenConnections)
	b.db.SetConnMaxLifetime(b.Config.MaxConnLifetime)

	// check connection
	err := b.db.Ping()
	if err != nil {
		return err
	}

	// add pre query
	for _, v := range b.Config.PreQuery {
		_, err = b.db.Exec(v)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
	}

	return nil
}

// SetLogger sets the logger.
func (b *Base) SetLogger(logger logger.Manager) {
	b.Logger = logger
}

// addColumns is a helper to create a sorted column slice out of the value map.
func addColumns(columns []string, values map[string]interface{}) []string {
	if len(columns) == 0 {
		for column := range values {
			columns = append(columns, column)
		}
		sort.Strings(columns)
	}
	return columns
}

// addWhere adds a where condition in one of the following shapes:
//		Where("deleted_at IS NULL")          raw condition without arguments
//		Where("id = ? OR id = ?", 1, 2)      raw condition, slices are expanded
//		Where("name", "John")                column = value
//		Where("age", ">=", 18)               column operator value
// The column is quoted by the provider.
func addWhere(c condition.Condition, p Provider, link string, column string, args []interface{}) {
	if len(args) == 0 || strings.Contains(column, condition.PLACEHOLDER) || len(args) > 2 {
		if link == condition.OR {
			c.SetOrWhere(column, args...)
			return
		}
		c.SetWhere(column, args...)
		return
	}

	predicate := condition.Predicate{Column: p.QuoteIdentifier(column), Value: args[0]}
	if len(args) == 2 {
		op, _ := args[0].(string)
		if op == "" {
			op = fmt.Sprint(args[0])
		}
		predicate.Operator = op
		predicate.Value = args[1]
	}
	c.SetWhereGroup(link, condition.AND, predicate)
}
