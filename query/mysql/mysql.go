// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mysql provides the mysql query provider.
// The provider is registered under the name "mysql".
package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/query/condition"
	"github.com/patrickascher/relmap/query/types"
	"gopkg.in/guregu/null.v4"
)

// Error messages.
var (
	ErrTableDoesNotExist = "mysql: table %s or column does not exist %s"
	ErrCreateStatement   = "mysql: no create statement for table %s"
	ErrColumns           = "mysql: table %s needs at least one column"
)

type mysql struct {
	query.Base
}

// init registers the provider under mysql.
func init() {
	err := query.Register("mysql", newMysql)
	if err != nil {
		panic(err)
	}
}

// newMysql creates a new query.Provider.
func newMysql(config interface{}) (query.Provider, error) {
	cfg, ok := config.(query.Config)
	if !ok {
		return nil, fmt.Errorf("mysql: config must be of type query.Config but is %T", config)
	}
	mysqlBuilder := &mysql{}
	mysqlBuilder.Base.Provider = mysqlBuilder
	mysqlBuilder.Base.Config = cfg

	return mysqlBuilder, nil
}

// Placeholder returns the ? placeholder for the mysql driver.
func (m *mysql) Placeholder() condition.Placeholder {
	return condition.Placeholder{Char: "?"}
}

// Config returns the query.Config.
func (m *mysql) Config() query.Config {
	return m.Base.Config
}

// QuoteIdentifierChar for mysql.
func (m *mysql) QuoteIdentifierChar() string {
	return "`"
}

// Open creates a new *sql.DB.
// If a *sql.DB was already set, it will be used.
func (m *mysql) Open() error {
	if m.DB() == nil {
		if m.Base.Config.Timeout == "" {
			m.Base.Config.Timeout = "30s"
		}

		db, err := sql.Open("mysql", m.dsn())
		if err != nil {
			return err
		}
		m.SetDB(db)
	}

	// call base Open function.
	return m.Base.Open()
}

// dsn of the configuration.
func (m *mysql) dsn() string {
	c := m.Base.Config
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC&timeout=%s", c.Username, c.Password, c.Host, c.Port, c.Database, c.Timeout)
}

// Query creates a new mysql instance.
func (m *mysql) Query() query.Query {
	// create a new instance with an empty transaction.
	// Everything else will be copied from the parent.
	instance := mysql{}
	instance.Base = query.Base{Config: m.Base.Config, Logger: m.Base.Logger}
	instance.Base.Provider = &instance // self ref for TX
	instance.SetDB(m.DB())

	return &instance
}

// Select will return a query.Select.
func (m *mysql) Select(table string) query.Select {
	return &query.SelectBase{STable: table, Provider: m}
}

// Insert will return a query.Insert.
func (m *mysql) Insert(table string) query.Insert {
	return &query.InsertBase{ITable: table, Provider: m}
}

// Update will return a query.Update.
func (m *mysql) Update(table string) query.Update {
	return &query.UpdateBase{UTable: table, Provider: m}
}

// Delete will return a query.Delete.
func (m *mysql) Delete(table string) query.Delete {
	return &query.DeleteBase{DTable: table, Provider: m}
}

// Information will return a query.Information.
func (m *mysql) Information(table string) query.Information {
	return &information{table: table, mysql: m}
}

// Table will return a query.Table.
func (m *mysql) Table(name string) query.Table {
	return &table{name: name, mysql: m}
}

// Tables returns all table names of the database.
func (m *mysql) Tables() ([]string, error) {
	rows, err := m.All("SHOW TABLES", nil)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// exec a single statement without arguments.
func (m *mysql) exec(stmt string) error {
	_, err := m.Exec([]string{stmt}, [][]interface{}{nil})
	return err
}

// information helper struct.
type information struct {
	table string
	mysql *mysql
}

// Exists reports if the table exists in the configured database.
func (i *information) Exists() (bool, error) {
	count, err := i.mysql.Select("information_schema.TABLES").
		Where("TABLE_SCHEMA = ?", i.mysql.Config().Database).
		Where("TABLE_NAME = ?", i.table).
		Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Describe the defined table.
// The columns are ordered by their position.
func (i *information) Describe(columns ...string) ([]query.Column, error) {
	sel := i.mysql.Select("information_schema.COLUMNS c").
		Columns("c.COLUMN_NAME AS name",
			"c.ORDINAL_POSITION AS position",
			query.DbExpr("IF(c.IS_NULLABLE='YES','TRUE','FALSE') AS nullable"),
			query.DbExpr("IF(c.COLUMN_KEY='PRI','TRUE','FALSE') AS pk"),
			query.DbExpr("IF(c.COLUMN_KEY='UNI','TRUE','FALSE') AS uni"),
			"c.COLUMN_TYPE AS type",
			"c.COLUMN_DEFAULT AS def",
			"c.CHARACTER_MAXIMUM_LENGTH AS length",
			query.DbExpr("IF(c.EXTRA='auto_increment','TRUE','FALSE') AS autoincrement"),
		).
		Where("c.TABLE_SCHEMA = ?", i.mysql.Config().Database).
		Where("c.TABLE_NAME = ?", i.table).
		Order("c.ORDINAL_POSITION").
		Limit(-1)

	if len(columns) > 0 {
		sel.Where("c.COLUMN_NAME IN (?)", columns)
	}

	rows, err := sel.All()
	if err != nil {
		return nil, err
	}

	cols := make([]query.Column, 0, len(rows))
	for _, row := range rows {
		c := query.Column{Table: i.table}
		c.Name, _ = row.String("name")
		position, _ := row.Int64("position")
		c.Position = int(position)
		c.NullAble = row.Bool("nullable")
		c.PrimaryKey = row.Bool("pk")
		c.Unique = row.Bool("uni")
		c.DefaultValue = row.NullString("def")
		c.Length = row.NullInt("length")
		c.Autoincrement = row.Bool("autoincrement")
		raw, _ := row.String("type")
		c.Type = TypeMapping(raw, c.Length)
		cols = append(cols, c)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf(ErrTableDoesNotExist, i.mysql.Config().Database+"."+i.table, columns)
	}

	return cols, nil
}

// ForeignKey will return the foreign key constraints of the defined table.
// An empty slice will return if the table has none.
func (i *information) ForeignKey() ([]query.ForeignKey, error) {
	rows, err := i.mysql.Select(query.DbExpr("information_schema.key_column_usage cu, information_schema.table_constraints tc")).
		Columns("tc.constraint_name AS name", "tc.table_name AS tbl", "cu.column_name AS col", "cu.referenced_table_name AS ref_tbl", "cu.referenced_column_name AS ref_col").
		Where("cu.constraint_name = tc.constraint_name AND cu.table_name = tc.table_name AND tc.constraint_type = 'FOREIGN KEY'").
		Where("cu.table_schema = ?", i.mysql.Config().Database).
		Where("tc.table_schema = ?", i.mysql.Config().Database).
		Where("tc.table_name = ?", i.table).
		Limit(-1).
		All()
	if err != nil {
		return nil, err
	}

	fKeys := make([]query.ForeignKey, 0, len(rows))
	for _, row := range rows {
		f := query.ForeignKey{}
		f.Name, _ = row.String("name")
		f.Primary.Table, _ = row.String("tbl")
		f.Primary.Column, _ = row.String("col")
		f.Secondary.Table, _ = row.String("ref_tbl")
		f.Secondary.Column, _ = row.String("ref_col")
		fKeys = append(fKeys, f)
	}

	return fKeys, nil
}

// CreateStatement returns the statement of SHOW CREATE TABLE.
func (i *information) CreateStatement() (string, error) {
	rows, err := i.mysql.All("SHOW CREATE TABLE "+i.mysql.QuoteIdentifier(i.table), nil)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf(ErrCreateStatement, i.table)
	}
	var name, stmt string
	if err = rows.Scan(&name, &stmt); err != nil {
		return "", err
	}
	return stmt, nil
}

// table helper struct for the DDL.
type table struct {
	name  string
	mysql *mysql
}

// Create the table.
func (t *table) Create(columns ...query.ColumnDefinition) error {
	stmt, err := t.CreateStatement(false, columns...)
	if err != nil {
		return err
	}
	return t.mysql.exec(stmt)
}

// CreateIfNotExists creates the table if it does not exist yet.
func (t *table) CreateIfNotExists(columns ...query.ColumnDefinition) error {
	stmt, err := t.CreateStatement(true, columns...)
	if err != nil {
		return err
	}
	return t.mysql.exec(stmt)
}

// CreateStatement renders the CREATE TABLE statement.
// All primary columns are added as PRIMARY KEY.
func (t *table) CreateStatement(ifNotExists bool, columns ...query.ColumnDefinition) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf(ErrColumns, t.name)
	}

	var primary []string
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, t.column(c))
		if c.Primary {
			primary = append(primary, c.Name)
		}
	}
	if len(primary) > 0 {
		defs = append(defs, "PRIMARY KEY ("+t.mysql.QuoteIdentifier(primary...)+")")
	}

	stmt := "CREATE TABLE "
	if ifNotExists {
		stmt += "IF NOT EXISTS "
	}
	return stmt + t.mysql.QuoteIdentifier(t.name) + " (" + strings.Join(defs, ", ") + ")", nil
}

// AddColumn adds a column to the table.
func (t *table) AddColumn(column query.ColumnDefinition) error {
	return t.mysql.exec("ALTER TABLE " + t.mysql.QuoteIdentifier(t.name) + " ADD COLUMN " + t.column(column))
}

// ModifyColumn changes the definition of an existing column.
func (t *table) ModifyColumn(column query.ColumnDefinition) error {
	return t.mysql.exec("ALTER TABLE " + t.mysql.QuoteIdentifier(t.name) + " MODIFY COLUMN " + t.column(column))
}

// DropColumn removes the column from the table.
func (t *table) DropColumn(name string) error {
	return t.mysql.exec("ALTER TABLE " + t.mysql.QuoteIdentifier(t.name) + " DROP COLUMN " + t.mysql.QuoteIdentifier(name))
}

// Drop the table.
func (t *table) Drop() error {
	return t.mysql.exec("DROP TABLE " + t.mysql.QuoteIdentifier(t.name))
}

// column renders a single column definition.
func (t *table) column(c query.ColumnDefinition) string {
	def := t.mysql.QuoteIdentifier(c.Name) + " " + c.Type
	if c.NotNull || c.Primary {
		def += " NOT NULL"
	}
	if c.AutoIncrement {
		def += " AUTO_INCREMENT"
	}
	return def
}

// integer ranges by type prefix, the longest prefix must be checked first.
var integers = []struct {
	prefix string
	min    int64
	max    uint64
	umax   uint64
}{
	{"bigint", -9223372036854775808, 9223372036854775807, 18446744073709551615},
	{"mediumint", -8388608, 8388607, 16777215},
	{"smallint", -32768, 32767, 65535},
	{"tinyint", -128, 127, 255},
	{"int", -2147483648, 2147483647, 4294967295},
}

// text sizes by type prefix.
var textAreas = []struct {
	prefix string
	size   int
}{
	{"tinytext", 255},
	{"mediumtext", 16777215},
	{"longtext", 4294967295},
	{"text", 65535},
}

// TypeMapping converts the database type to an unique types.Interface over different database drives.
// Nil will return if the type is unknown.
func TypeMapping(raw string, length null.Int) types.Interface {
	raw = strings.ToLower(raw)

	switch {
	case strings.HasPrefix(raw, "enum(0,1)"), strings.HasPrefix(raw, "tinyint(1)"), raw == "bool", raw == "boolean":
		return types.NewBool(raw)
	case strings.HasPrefix(raw, "decimal"), strings.HasPrefix(raw, "float"), strings.HasPrefix(raw, "double"):
		return types.NewFloat(raw)
	case strings.HasPrefix(raw, "varchar"), strings.HasPrefix(raw, "char"):
		text := types.NewText(raw)
		if length.Valid {
			text.Size = int(length.Int64)
		}
		return text
	case raw == "time":
		return types.NewTime(raw)
	case raw == "date":
		return types.NewDate(raw)
	case raw == "datetime", raw == "timestamp":
		return types.NewDateTime(raw)
	case strings.HasPrefix(raw, "enum("), strings.HasPrefix(raw, "set("):
		sel := types.NewSelect(raw)
		values := raw[strings.Index(raw, "(")+1 : len(raw)-1]
		for _, v := range strings.Split(values, ",") {
			sel.Values = append(sel.Values, strings.Trim(v, "'"))
		}
		return sel
	}

	for _, i := range integers {
		if strings.HasPrefix(raw, i.prefix) {
			integer := types.NewInt(raw)
			integer.Min, integer.Max = i.min, i.max
			if strings.HasSuffix(raw, "unsigned") {
				integer.Min, integer.Max = 0, i.umax
			}
			return integer
		}
	}

	for _, t := range textAreas {
		if strings.HasPrefix(raw, t.prefix) {
			textArea := types.NewTextArea(raw)
			textArea.Size = t.size
			return textArea
		}
	}

	return nil
}
