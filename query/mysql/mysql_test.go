// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mysql_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/query/condition"
	"github.com/patrickascher/relmap/query/mysql"
	"github.com/patrickascher/relmap/query/types"
	"github.com/stretchr/testify/assert"
	"gopkg.in/guregu/null.v4"
)

// newBuilder returns a mysql builder on a sqlmock connection.
func newBuilder(t *testing.T, matcher sqlmock.QueryMatcher) (query.Builder, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	b, err := query.NewFromDB("mysql", query.Config{Provider: "mysql", Database: "test"}, db)
	if err != nil {
		t.Fatal(err)
	}
	return b, mock
}

// TestOpen tests:
// - the pre queries run on open.
// - without connection settings the idle connection is kept for sequential statements.
func TestOpen(t *testing.T) {
	asserts := assert.New(t)
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("SET NAMES utf8mb4").WillReturnResult(sqlmock.NewResult(0, 0))
	b, err := query.NewFromDB("mysql", query.Config{Provider: "mysql", Database: "test", PreQuery: []string{"SET NAMES utf8mb4"}}, db)
	asserts.NoError(err)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("information_schema").WithArgs("test", "users").
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
		exists, err := b.Query().Information("users").Exists()
		asserts.NoError(err)
		asserts.True(exists)
	}

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestSelect tests:
// - the grouped where shape of Where, OrWhere and WhereGroup.
// - the default limit, order and offset rendering.
// - All returns the rows and the select is consuming.
// - First returns ErrNoRows.
// - Count with and without group.
func TestSelect(t *testing.T) {
	asserts := assert.New(t)
	b, mock := newBuilder(t, sqlmock.QueryMatcherEqual)

	// where shape
	stmt, err := b.Query().Select("users").Columns("id", "name").
		Where("a", 1).
		OrWhere("b", 2).
		WhereGroup(condition.AND, condition.OR, condition.Predicate{Column: "c", Value: 3}, condition.Predicate{Column: "d", Value: 4}).
		String()
	asserts.NoError(err)
	asserts.Equal("SELECT `id`, `name` FROM `users` WHERE `a` = ? OR `b` = ? OR (`c` = ? AND `d` = ?) LIMIT 1000", stmt.SQL)
	asserts.Equal([]interface{}{1, 2, 3, 4}, stmt.Args)
	asserts.Equal("iiii", stmt.Types)

	// operator, order, limit and offset
	stmt, err = b.Query().Select("users").Where("age", ">=", 18).Where("deleted_at IS NULL").Order("-name", "id").Limit(10).Offset(5).String()
	asserts.NoError(err)
	asserts.Equal("SELECT * FROM `users` WHERE `age` >= ? AND deleted_at IS NULL ORDER BY `name` DESC, `id` ASC LIMIT 10 OFFSET 5", stmt.SQL)

	// disabled limit
	stmt, err = b.Query().Select("users").Limit(-1).String()
	asserts.NoError(err)
	asserts.Equal("SELECT * FROM `users`", stmt.SQL)

	// error: operator
	_, err = b.Query().Select("users").Where("age", "~", 18).String()
	asserts.Error(err)

	// All
	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` IN (?, ?) LIMIT 1000").WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "John").AddRow(2, []byte("Jane")))
	sel := b.Query().Select("users").Where("id", condition.IN, []int{1, 2})
	rows, err := sel.All()
	asserts.NoError(err)
	asserts.Equal(2, len(rows))
	id, ok := rows[0].Int64("id")
	asserts.True(ok)
	asserts.Equal(int64(1), id)
	asserts.Equal("Jane", rows[1]["name"])
	asserts.True(sel.Executed())

	// consumed
	_, err = sel.All()
	asserts.Equal(query.ErrExecuted, err)

	// First without result
	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` = ? LIMIT 1").WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = b.Query().Select("users").Where("id", 3).First()
	asserts.True(errors.Is(err, query.ErrNoRows))

	// Count
	mock.ExpectQuery("SELECT COUNT(*) FROM `users` WHERE `active` = ?").WithArgs(true).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(5))
	count, err := b.Query().Select("users").Where("active", true).Order("name").Limit(2).Count()
	asserts.NoError(err)
	asserts.Equal(int64(5), count)

	// Count grouped
	mock.ExpectQuery("SELECT COUNT(*) FROM (SELECT * FROM `users` GROUP BY `name`) AS `grouped`").WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))
	count, err = b.Query().Select("users").Group("name").Count()
	asserts.NoError(err)
	asserts.Equal(int64(3), count)

	// FetchOrFail
	mock.ExpectQuery("SELECT * FROM `users` LIMIT 1000").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = b.Query().Select("users").FetchOrFail("no user")
	asserts.True(errors.Is(err, query.ErrNoRows))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestInsert tests:
// - single insert with the last inserted id.
// - batched insert runs in a transaction.
// - error if a column value is missing.
func TestInsert(t *testing.T) {
	asserts := assert.New(t)
	b, mock := newBuilder(t, sqlmock.QueryMatcherEqual)

	mock.ExpectExec("INSERT INTO `users` (`age`, `name`) VALUES (?, ?)").WithArgs(20, "John").WillReturnResult(sqlmock.NewResult(5, 1))
	var id int
	_, err := b.Query().Insert("users").Values([]map[string]interface{}{{"name": "John", "age": 20}}).LastInsertedID(&id).Exec()
	asserts.NoError(err)
	asserts.Equal(5, id)

	// error: last id is no ptr
	_, err = b.Query().Insert("users").Values([]map[string]interface{}{{"name": "John"}}).LastInsertedID(id).Exec()
	asserts.Equal(query.ErrLastID, err)

	// batch
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?), (?)").WithArgs("a", "b").WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?)").WithArgs("c").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()
	res, err := b.Query().Insert("users").Batch(2).Columns("name").Values([]map[string]interface{}{{"name": "a"}, {"name": "b"}, {"name": "c"}}).Exec()
	asserts.NoError(err)
	asserts.Equal(2, len(res))

	// batch error with rollback
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?)").WithArgs("a").WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()
	_, err = b.Query().Insert("users").Batch(1).Values([]map[string]interface{}{{"name": "a"}, {"name": "b"}}).Exec()
	asserts.Error(err)

	// error: missing column
	_, _, err = b.Query().Insert("users").Values([]map[string]interface{}{{"name": "a"}, {"age": 1}}).String()
	asserts.Error(err)

	// error: no values
	_, _, err = b.Query().Insert("users").String()
	asserts.Error(err)

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestUpdateDelete tests:
// - the set arguments are followed by the where arguments.
// - the bind kinds of the update.
// - delete with an IN condition.
// - the statements inside a transaction.
func TestUpdateDelete(t *testing.T) {
	asserts := assert.New(t)
	b, mock := newBuilder(t, sqlmock.QueryMatcherEqual)

	stmt, err := b.Query().Update("users").Set(map[string]interface{}{"name": "Jane", "score": 1.5}).Where("id", 1).OrWhere("id", 2).String()
	asserts.NoError(err)
	asserts.Equal("UPDATE `users` SET `name` = ?, `score` = ? WHERE `id` = ? OR `id` = ?", stmt.SQL)
	asserts.Equal([]interface{}{"Jane", 1.5, 1, 2}, stmt.Args)
	asserts.Equal("sdii", stmt.Types)

	// error: no values
	_, err = b.Query().Update("users").Where("id", 1).String()
	asserts.Error(err)

	stmt, err = b.Query().Delete("users").Where("id", condition.IN, []int{1, 2}).String()
	asserts.NoError(err)
	asserts.Equal("DELETE FROM `users` WHERE `id` IN (?, ?)", stmt.SQL)

	// transaction
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET `name` = ? WHERE `id` = ?").WithArgs("Jane", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `users` WHERE `id` = ?").WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := b.Query().Tx()
	asserts.NoError(err)
	asserts.True(tx.HasTx())
	_, err = tx.Tx()
	asserts.Equal(query.ErrTxExists, err)
	_, err = tx.Update("users").Set(map[string]interface{}{"name": "Jane"}).Where("id", 1).Exec()
	asserts.NoError(err)
	_, err = tx.Delete("users").Where("id", 2).Exec()
	asserts.NoError(err)
	asserts.NoError(tx.Commit())
	asserts.False(tx.HasTx())
	asserts.Equal(query.ErrNoTx, tx.Rollback())

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestInformation tests:
// - Exists, Describe, ForeignKey and CreateStatement.
// - a table without constraints has no foreign keys.
// - Tables of the database.
func TestInformation(t *testing.T) {
	asserts := assert.New(t)
	b, mock := newBuilder(t, sqlmock.QueryMatcherRegexp)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `information_schema`.`TABLES` WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?")).
		WithArgs("test", "users").WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	exists, err := b.Query().Information("users").Exists()
	asserts.NoError(err)
	asserts.True(exists)

	mock.ExpectQuery(regexp.QuoteMeta("FROM `information_schema`.`COLUMNS` `c` WHERE c.TABLE_SCHEMA = ? AND c.TABLE_NAME = ? ORDER BY `c`.`ORDINAL_POSITION` ASC")).
		WithArgs("test", "users").
		WillReturnRows(sqlmock.NewRows([]string{"name", "position", "nullable", "pk", "uni", "type", "def", "length", "autoincrement"}).
			AddRow("id", 1, "FALSE", "TRUE", "FALSE", "int(11)", nil, nil, "TRUE").
			AddRow("name", 2, "TRUE", "FALSE", "FALSE", "varchar(100)", "John", 100, "FALSE"))
	cols, err := b.Query().Information("users").Describe()
	asserts.NoError(err)
	asserts.Equal(2, len(cols))
	asserts.Equal("id", cols[0].Name)
	asserts.True(cols[0].PrimaryKey)
	asserts.True(cols[0].Autoincrement)
	asserts.False(cols[0].NullAble)
	asserts.False(cols[0].DefaultValue.Valid)
	asserts.Equal(types.INTEGER, cols[0].Type.Kind())
	asserts.Equal(2, cols[1].Position)
	asserts.True(cols[1].NullAble)
	asserts.Equal(null.StringFrom("John"), cols[1].DefaultValue)
	asserts.Equal(null.IntFrom(100), cols[1].Length)
	asserts.Equal(100, cols[1].Type.(*types.Text).Size)

	// error: table does not exist
	mock.ExpectQuery(regexp.QuoteMeta("FROM `information_schema`.`COLUMNS` `c`")).WillReturnRows(sqlmock.NewRows([]string{"name"}))
	_, err = b.Query().Information("roles").Describe()
	asserts.Error(err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.key_column_usage cu, information_schema.table_constraints tc")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "tbl", "col", "ref_tbl", "ref_col"}).AddRow("fk_role", "users", "role_id", "roles", "id"))
	fks, err := b.Query().Information("users").ForeignKey()
	asserts.NoError(err)
	asserts.Equal([]query.ForeignKey{{Name: "fk_role", Primary: query.Relation{Table: "users", Column: "role_id"}, Secondary: query.Relation{Table: "roles", Column: "id"}}}, fks)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.key_column_usage cu")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "tbl", "col", "ref_tbl", "ref_col"}))
	fks, err = b.Query().Information("roles").ForeignKey()
	asserts.NoError(err)
	asserts.Empty(fks)

	mock.ExpectQuery(regexp.QuoteMeta("SHOW CREATE TABLE `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("users", "CREATE TABLE `users` (`id` int)"))
	create, err := b.Query().Information("users").CreateStatement()
	asserts.NoError(err)
	asserts.Equal("CREATE TABLE `users` (`id` int)", create)

	mock.ExpectQuery("SHOW TABLES").WillReturnRows(sqlmock.NewRows([]string{"Tables_in_test"}).AddRow("roles").AddRow("users"))
	tables, err := b.Query().Tables()
	asserts.NoError(err)
	asserts.Equal([]string{"roles", "users"}, tables)

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestTable tests the rendered DDL statements.
func TestTable(t *testing.T) {
	asserts := assert.New(t)
	b, mock := newBuilder(t, sqlmock.QueryMatcherEqual)

	cols := []query.ColumnDefinition{
		{Name: "id", Type: "int", Primary: true, AutoIncrement: true},
		{Name: "name", Type: "varchar(255)", NotNull: true},
		{Name: "birthday", Type: "date"},
	}
	stmt, err := b.Query().Table("users").CreateStatement(true, cols...)
	asserts.NoError(err)
	asserts.Equal("CREATE TABLE IF NOT EXISTS `users` (`id` int NOT NULL AUTO_INCREMENT, `name` varchar(255) NOT NULL, `birthday` date, PRIMARY KEY (`id`))", stmt)

	// error: no columns
	_, err = b.Query().Table("users").CreateStatement(false)
	asserts.Error(err)

	mock.ExpectExec("CREATE TABLE `users` (`id` int NOT NULL AUTO_INCREMENT, `name` varchar(255) NOT NULL, `birthday` date, PRIMARY KEY (`id`))").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE `users` ADD COLUMN `email` varchar(255)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE `users` MODIFY COLUMN `email` varchar(100) NOT NULL").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE `users` DROP COLUMN `email`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE `users`").WillReturnResult(sqlmock.NewResult(0, 0))

	tbl := b.Query().Table("users")
	asserts.NoError(tbl.Create(cols...))
	asserts.NoError(tbl.AddColumn(query.ColumnDefinition{Name: "email", Type: "varchar(255)"}))
	asserts.NoError(tbl.ModifyColumn(query.ColumnDefinition{Name: "email", Type: "varchar(100)", NotNull: true}))
	asserts.NoError(tbl.DropColumn("email"))
	asserts.NoError(tbl.Drop())

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestTypeMapping tests the mapping of the raw mysql types.
func TestTypeMapping(t *testing.T) {
	asserts := assert.New(t)

	tests := []struct {
		raw  string
		kind string
	}{
		{"tinyint(1)", types.BOOL},
		{"int(11)", types.INTEGER},
		{"bigint(20) unsigned", types.INTEGER},
		{"decimal(10,2)", types.FLOAT},
		{"varchar(255)", types.TEXT},
		{"text", types.TEXTAREA},
		{"longtext", types.TEXTAREA},
		{"time", types.TIME},
		{"date", types.DATE},
		{"timestamp", types.DATETIME},
		{"enum('a','b')", types.SELECT},
		{"set('x','y')", types.SELECT},
	}
	for _, test := range tests {
		typ := mysql.TypeMapping(test.raw, null.Int{})
		if asserts.NotNil(typ, test.raw) {
			asserts.Equal(test.kind, typ.Kind(), test.raw)
			asserts.Equal(test.raw, typ.Raw())
		}
	}

	asserts.Nil(mysql.TypeMapping("geometry", null.Int{}))

	i := mysql.TypeMapping("smallint unsigned", null.Int{}).(*types.Int)
	asserts.Equal(int64(0), i.Min)
	asserts.Equal(uint64(65535), i.Max)

	sel := mysql.TypeMapping("enum('a','b')", null.Int{}).(*types.Select)
	asserts.Equal([]string{"a", "b"}, sel.Items())
}
