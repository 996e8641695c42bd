// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/logger"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/query/types"
	"github.com/patrickascher/relmap/slicer"
)

// Error messages.
var (
	ErrTableMissing = errors.New("orm: table does not exist")
)

// Mismatch of a column between the model and the database.
type Mismatch struct {
	Column string `yaml:"column" json:"column"`
	Model  string `yaml:"model" json:"model"`
	DB     string `yaml:"db" json:"db"`
}

// Report of the model database adequation.
// Extra database columns of the model table are listed but do not fail the report.
// Junction tables must match exactly.
type Report struct {
	Table                 string     `yaml:"table" json:"table"`
	Success               bool       `yaml:"success" json:"success"`
	TableExists           bool       `yaml:"table_exists" json:"table_exists"`
	MissingColumnsInDB    []string   `yaml:"missing_columns_in_db,omitempty" json:"missing_columns_in_db,omitempty"`
	MissingColumnsInModel []string   `yaml:"missing_columns_in_model,omitempty" json:"missing_columns_in_model,omitempty"`
	TypeMismatches        []Mismatch `yaml:"type_mismatches,omitempty" json:"type_mismatches,omitempty"`
	NullabilityMismatches []Mismatch `yaml:"nullability_mismatches,omitempty" json:"nullability_mismatches,omitempty"`
	ForeignKeyMismatches  []Mismatch `yaml:"foreign_key_mismatches,omitempty" json:"foreign_key_mismatches,omitempty"`
	Junctions             []Report   `yaml:"junctions,omitempty" json:"junctions,omitempty"`
}

// ColumnDefinitions of the model table.
// The id column is always first, the other columns follow in declaration order.
// Foreign keys have the type of the target id.
func (m *Model) ColumnDefinitions() ([]query.ColumnDefinition, error) {
	if err := m.isInit(); err != nil {
		return nil, err
	}

	id := m.idAttr.columnDefinition()
	id.Primary = true
	id.NotNull = true
	id.AutoIncrement = m.idAttr.kind.Name() == kind.ID
	defs := []query.ColumnDefinition{id}

	for _, a := range m.attributes {
		switch x := a.(type) {
		case *Scalar:
			if x != m.idAttr {
				defs = append(defs, x.columnDefinition())
			}
		case *Link:
			if !x.inversed {
				defs = append(defs, query.ColumnDefinition{Name: x.column, Type: x.idKind.SQLType(), NotNull: x.required})
			}
		}
	}
	return defs, nil
}

// junctions returns the link through attributes.
func (m *Model) junctions() []*LinkThrough {
	var rv []*LinkThrough
	for _, a := range m.attributes {
		if l, ok := a.(*LinkThrough); ok {
			rv = append(rv, l)
		}
	}
	return rv
}

// CheckModelDBAdequation compares the model columns with the database table.
// Missing columns, type and nullability mismatches fail the report. Foreign key constraints of links must
// reference the link target. The junction tables are reported in Junctions.
func (m *Model) CheckModelDBAdequation() (Report, error) {
	defs, err := m.ColumnDefinitions()
	if err != nil {
		return Report{Table: m.table}, err
	}
	report, err := m.checkTable(m.table, defs)
	if err != nil {
		return report, err
	}

	if report.TableExists {
		if report.ForeignKeyMismatches, err = m.foreignKeyMismatches(); err != nil {
			return report, err
		}
		report.Success = report.Success && len(report.ForeignKeyMismatches) == 0
	}

	for _, l := range m.junctions() {
		junction, err := m.checkJunction(l)
		if err != nil {
			return report, err
		}
		report.Success = report.Success && junction.Success
		report.Junctions = append(report.Junctions, junction)
	}
	return report, nil
}

// checkTable compares the column definitions with the database table.
func (m *Model) checkTable(table string, defs []query.ColumnDefinition) (Report, error) {
	report := Report{Table: table}
	information := m.query().Information(table)
	var err error
	if report.TableExists, err = information.Exists(); err != nil {
		return report, err
	}
	if !report.TableExists {
		for _, d := range defs {
			report.MissingColumnsInDB = append(report.MissingColumnsInDB, d.Name)
		}
		return report, nil
	}

	cols, err := information.Describe()
	if err != nil {
		return report, err
	}
	db := make(map[string]query.Column, len(cols))
	var dbNames, modelNames []string
	for _, c := range cols {
		db[c.Name] = c
		dbNames = append(dbNames, c.Name)
	}

	for _, d := range defs {
		modelNames = append(modelNames, d.Name)
		c, ok := db[d.Name]
		if !ok {
			report.MissingColumnsInDB = append(report.MissingColumnsInDB, d.Name)
			continue
		}

		raw := "unknown"
		if c.Type != nil {
			raw = c.Type.Raw()
		}
		if c.Type == nil || !types.Compatible(d.Type, raw) {
			report.TypeMismatches = append(report.TypeMismatches, Mismatch{Column: d.Name, Model: d.Type, DB: raw})
		}
		if notNull := d.NotNull || d.Primary; notNull == c.NullAble {
			report.NullabilityMismatches = append(report.NullabilityMismatches, Mismatch{Column: d.Name, Model: nullability(!notNull), DB: nullability(c.NullAble)})
		}
	}
	report.MissingColumnsInModel = slicer.StringDiff(dbNames, modelNames)

	report.Success = len(report.MissingColumnsInDB) == 0 && len(report.TypeMismatches) == 0 && len(report.NullabilityMismatches) == 0
	return report, nil
}

// checkJunction compares the junction table. Extra columns fail the report.
func (m *Model) checkJunction(l *LinkThrough) (Report, error) {
	report, err := m.checkTable(l.junction, l.JunctionDefinitions())
	report.Success = report.Success && len(report.MissingColumnsInModel) == 0
	return report, err
}

// foreignKeyMismatches returns the foreign key constraints of link columns which do not reference the link target.
// Link columns without a constraint are valid.
func (m *Model) foreignKeyMismatches() ([]Mismatch, error) {
	var links []*Link
	for _, a := range m.attributes {
		if l, ok := a.(*Link); ok && !l.inversed {
			links = append(links, l)
		}
	}
	if len(links) == 0 {
		return nil, nil
	}

	fks, err := m.query().Information(m.table).ForeignKey()
	if err != nil {
		return nil, err
	}
	var rv []Mismatch
	for _, l := range links {
		for _, fk := range fks {
			if fk.Primary.Column != l.column {
				continue
			}
			if fk.Secondary.Table != l.table || fk.Secondary.Column != l.idColumn {
				rv = append(rv, Mismatch{Column: l.column, Model: l.table + "." + l.idColumn, DB: fk.Secondary.Table + "." + fk.Secondary.Column})
			}
		}
	}
	return rv, nil
}

func nullability(nullable bool) string {
	if nullable {
		return "null"
	}
	return "not null"
}

// UpdateTableFromModel adds the missing columns to the database table.
// With force, mismatched columns are modified and extra columns are dropped. If a modification fails,
// the column is dropped and added again. The junction tables are not changed.
// The adequation report after the update is returned.
func (m *Model) UpdateTableFromModel(force bool) (Report, error) {
	defs, err := m.ColumnDefinitions()
	if err != nil {
		return Report{Table: m.table}, err
	}
	report, err := m.checkTable(m.table, defs)
	if err != nil {
		return report, err
	}
	if !report.TableExists {
		return report, fmt.Errorf("%w: %s", ErrTableMissing, m.table)
	}

	byName := make(map[string]query.ColumnDefinition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	table := m.query().Table(m.table)
	log := m.log()

	for _, name := range report.MissingColumnsInDB {
		if err = table.AddColumn(byName[name]); err != nil {
			return report, err
		}
		info(log, "column added", logger.Fields{"column": name})
	}

	modify := map[string]bool{}
	mismatches := append(append([]Mismatch(nil), report.TypeMismatches...), report.NullabilityMismatches...)
	for _, mm := range mismatches {
		if !force {
			warn(log, "column mismatch, use force to modify", logger.Fields{"column": mm.Column, "model": mm.Model, "db": mm.DB})
			continue
		}
		if modify[mm.Column] {
			continue
		}
		modify[mm.Column] = true
		if err = table.ModifyColumn(byName[mm.Column]); err != nil {
			warn(log, "column modify failed, recreating it", logger.Fields{"column": mm.Column, "error": err.Error()})
			if err = table.DropColumn(mm.Column); err != nil {
				return report, err
			}
			if err = table.AddColumn(byName[mm.Column]); err != nil {
				return report, err
			}
		}
		info(log, "column modified", logger.Fields{"column": mm.Column})
	}

	for _, name := range report.MissingColumnsInModel {
		if !force {
			warn(log, "column is not declared in the model", logger.Fields{"column": name})
			continue
		}
		if err = table.DropColumn(name); err != nil {
			return report, err
		}
		info(log, "column dropped", logger.Fields{"column": name})
	}

	return m.CheckModelDBAdequation()
}

// GenerateTableForModel creates the junction tables and the model table if they do not exist.
// An existing model table is updated with UpdateTableFromModel. An existing junction table which differs
// from its definition is only recreated with force. The adequation report is returned.
func (m *Model) GenerateTableForModel(force bool) (Report, error) {
	defs, err := m.ColumnDefinitions()
	if err != nil {
		return Report{Table: m.table}, err
	}

	for _, l := range m.junctions() {
		if err = m.generateJunction(l, force); err != nil {
			return Report{Table: m.table}, err
		}
	}

	exists, err := m.query().Information(m.table).Exists()
	if err != nil {
		return Report{Table: m.table}, err
	}
	if exists {
		return m.UpdateTableFromModel(force)
	}
	if err = m.query().Table(m.table).Create(defs...); err != nil {
		return Report{Table: m.table}, err
	}
	info(m.log(), "table created", nil)
	return m.CheckModelDBAdequation()
}

// generateJunction creates the junction table, or recreates it with force if the columns differ.
func (m *Model) generateJunction(l *LinkThrough, force bool) error {
	report, err := m.checkJunction(l)
	if err != nil {
		return err
	}
	log := m.log()
	table := m.query().Table(l.junction)
	fields := logger.Fields{"junction": l.junction}

	switch {
	case !report.TableExists:
		if err = table.Create(l.JunctionDefinitions()...); err != nil {
			return err
		}
		info(log, "junction table created", fields)
	case report.Success:
		return nil
	case !force:
		warn(log, "junction table differs, use force to recreate it", fields)
	default:
		if err = table.Drop(); err != nil {
			return err
		}
		if err = table.Create(l.JunctionDefinitions()...); err != nil {
			return err
		}
		info(log, "junction table recreated", fields)
	}
	return nil
}

// statements returns the CREATE TABLE statements of the model and its junction tables.
// Junction tables in the skip map are not returned, returned junctions are added to it.
func (m *Model) statements(skip map[string]bool) ([]string, error) {
	defs, err := m.ColumnDefinitions()
	if err != nil {
		return nil, err
	}
	stmt, err := m.query().Table(m.table).CreateStatement(true, defs...)
	if err != nil {
		return nil, err
	}
	rv := []string{stmt}

	for _, l := range m.junctions() {
		if skip[l.junction] {
			continue
		}
		skip[l.junction] = true
		if stmt, err = m.query().Table(l.junction).CreateStatement(true, l.JunctionDefinitions()...); err != nil {
			return nil, err
		}
		rv = append(rv, stmt)
	}
	return rv, nil
}

// Export writes the CREATE TABLE statements of all tables of the database, ordered by name.
// The default builder is used.
func Export(w io.Writer) error {
	mu.RLock()
	b := defaultBuilder
	mu.RUnlock()
	if b == nil {
		return fmt.Errorf(ErrMandatory, "builder", "Export")
	}

	tables, err := b.Query().Tables()
	if err != nil {
		return err
	}
	sort.Strings(tables)
	for _, table := range tables {
		stmt, err := b.Query().Information(table).CreateStatement()
		if err != nil {
			return err
		}
		if _, err = io.WriteString(w, stmt+";\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// ExportModels writes the CREATE TABLE statements of the registered model kinds.
// Without names all registered kinds are exported. The kinds are ordered by name,
// each followed by its junction tables.
func ExportModels(w io.Writer, names ...string) error {
	if len(names) == 0 {
		names = Names()
	}

	skip := map[string]bool{}
	for _, name := range names {
		m, err := New(name)
		if err != nil {
			return err
		}
		stmts, err := m.model().statements(skip)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err = io.WriteString(w, stmt+";\n\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func info(l logger.Manager, msg string, fields logger.Fields) {
	if l == nil {
		return
	}
	if fields != nil {
		l = l.WithFields(fields)
	}
	l.Info(msg)
}

func warn(l logger.Manager, msg string, fields logger.Fields) {
	if l == nil {
		return
	}
	if fields != nil {
		l = l.WithFields(fields)
	}
	l.Warning(msg)
}
