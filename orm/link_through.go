// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"fmt"

	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/query/condition"
	"github.com/patrickascher/relmap/slicer"
	"github.com/patrickascher/relmap/stringer"
	"github.com/patrickascher/relmap/translation"
)

// Error messages.
var (
	ErrLinkValue = "orm: %s: invalid link value %v"
)

// discriminatorType is the column type of a junction discriminator.
const discriminatorType = "CHAR(255)"

// LinkThrough is a many to many relation by a junction table.
//
// The junction table has the source column, the target column and optional discriminator columns
// if one junction table serves several model kinds. The value is always *Targets.
type LinkThrough struct {
	relation
	inversed bool

	junction            string
	sourceColumn        string
	targetColumn        string
	sourceDiscriminator discriminator
	targetDiscriminator discriminator
	sourceIDKind        kind.Kind
}

// NewLinkThrough creates a link through attribute.
// The junction table and columns are set on model initialization if they are not defined by option.
func NewLinkThrough(name string, opts ...Option) (*LinkThrough, error) {
	o := newOptions(opts)
	r, err := newRelation(name, o)
	if err != nil {
		return nil, err
	}

	l := &LinkThrough{
		relation:            r,
		inversed:            o.inversed,
		junction:            o.junction,
		sourceColumn:        o.sourceColumn,
		targetColumn:        o.targetColumn,
		sourceDiscriminator: o.sourceDiscriminator,
		targetDiscriminator: o.targetDiscriminator,
	}
	l.value = NewTargets()
	return l, nil
}

// resolve the target and the junction defaults.
//
// The junction is named by the source and target table, for inversed links by the target and source table.
// The columns are the singular tables with an "_id" suffix. If the target is the model table, the
// target column is prefixed with "linked_", for inversed links the source column.
func (l *LinkThrough) resolve(m *Model) error {
	if err := l.relation.resolve(); err != nil {
		return err
	}
	l.sourceIDKind = m.idAttr.kind

	source, target := stringer.ForeignKey(m.table), stringer.ForeignKey(l.table)
	junction := stringer.JunctionTable(m.table, l.table)
	if l.inversed {
		junction = stringer.JunctionTable(l.table, m.table)
	}
	if l.table == m.table {
		if l.inversed {
			source = "linked_" + source
		} else {
			target = "linked_" + target
		}
	}

	if l.junction == "" {
		l.junction = junction
	}
	if l.sourceColumn == "" {
		l.sourceColumn = source
	}
	if l.targetColumn == "" {
		l.targetColumn = target
	}
	return nil
}

// Junction returns the junction table.
func (l *LinkThrough) Junction() string {
	return l.junction
}

// Create sets the targets of a new record.
func (l *LinkThrough) Create(v interface{}) bool {
	return l.set(v, false)
}

// Update sets the targets of an existing record.
func (l *LinkThrough) Update(v interface{}) bool {
	return l.set(v, true)
}

func (l *LinkThrough) set(v interface{}, update bool) bool {
	current := l.value
	l.reset()
	l.value = NewTargets()

	list := items(v)
	if len(list) == 0 && l.required {
		switch {
		case update && !isEmpty(current):
			l.value = current
			l.addMessage(WARNING, translation.OldValueUsed, nil)
			return true
		case l.defaultValue != nil:
			list = items(l.defaultValue)
			l.addMessage(INFO, translation.DefaultValueUsed, nil)
		default:
			l.addMessage(ERROR, translation.AttributeRequired, nil)
			return false
		}
	}

	l.value = l.targets(list)
	return l.valid
}

// Get returns the *Targets if native, otherwise the target ids.
func (l *LinkThrough) Get(native bool) interface{} {
	if native {
		return l.targetsValue()
	}
	return l.targetsValue().IDs()
}

// targetsValue returns the value.
func (l *LinkThrough) targetsValue() *Targets {
	t, ok := l.value.(*Targets)
	if !ok || t == nil {
		t = NewTargets()
		l.value = t
	}
	return t
}

// where adds the junction scope of the bound id.
func (l *LinkThrough) where(w func(string, ...interface{})) {
	w(l.sourceColumn, l.sourceIDKind.Value(l.id))
	if l.sourceDiscriminator.Column != "" {
		w(l.sourceDiscriminator.Column, l.sourceDiscriminator.Value)
	}
	if l.targetDiscriminator.Column != "" {
		w(l.targetDiscriminator.Column, l.targetDiscriminator.Value)
	}
}

// currentIDs returns the target ids of the junction rows in order.
func (l *LinkThrough) currentIDs() ([]interface{}, error) {
	m, err := l.bound()
	if err != nil {
		return nil, err
	}

	sel := m.query().Select(l.junction).Columns(l.targetColumn).Limit(-1)
	l.where(func(column string, args ...interface{}) { sel.Where(column, args...) })
	rows, err := sel.All()
	if err != nil {
		return nil, err
	}

	ids := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		id, err := l.idKind.Scan(row[l.targetColumn], l.location())
		if err != nil {
			return nil, fmt.Errorf("orm: %s: %w", l.name, err)
		}
		if id != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Load the targets of the given id.
// The target ids are read from the junction table and the targets are loaded with one IN query.
func (l *LinkThrough) Load(id interface{}) error {
	if err := l.Bind(id); err != nil {
		return err
	}
	ids, err := l.currentIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		l.value = NewTargets()
		return nil
	}

	m, _ := l.owner()
	storage := make([]interface{}, len(ids))
	for i, tid := range ids {
		storage[i] = l.storageID(tid)
	}
	sel := m.query().Select(l.table).Where(l.idColumn, condition.IN, storage).Limit(-1)
	if l.softDelete != "" {
		sel.Where(l.softDelete, nil)
	}
	fetched, err := l.fetch(sel)
	if err != nil {
		return err
	}

	// keep the junction order.
	byID := NewTargets(fetched...)
	targets := NewTargets()
	for _, tid := range ids {
		if t, ok := byID.Get(tid); ok {
			targets.Add(t)
		}
	}
	l.value = targets
	return nil
}

// Save reconciles the junction rows against the value.
// Missing pairs are inserted with one statement, removed pairs are deleted one by one.
// Rows of other source ids are never touched.
func (l *LinkThrough) Save() error {
	ids, err := l.currentIDs()
	if err != nil {
		return err
	}
	current := make(map[string]interface{}, len(ids))
	currentKeys := make([]string, 0, len(ids))
	for _, id := range ids {
		current[key(id)] = id
		currentKeys = append(currentKeys, key(id))
	}

	desired := l.targetsValue()
	var add []Target
	for _, k := range slicer.StringDiff(desired.Keys(), currentKeys) {
		t, _ := desired.Get(k)
		add = append(add, t)
	}
	if err = l.insert(add...); err != nil {
		return err
	}

	for _, k := range slicer.StringDiff(currentKeys, desired.Keys()) {
		if err = l.remove(current[k]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes all junction rows of the bound id.
func (l *LinkThrough) Delete() error {
	l.reset()
	l.value = NewTargets()
	return l.Save()
}

// AddLink adds the targets and inserts the missing junction rows.
func (l *LinkThrough) AddLink(v interface{}) error {
	m, err := l.bound()
	if err != nil {
		return err
	}

	l.messages, l.valid, l.err = nil, true, nil
	targets := l.targets(items(v))
	if l.err != nil {
		return l.err
	}
	if !l.valid || targets.Len() == 0 {
		return fmt.Errorf(ErrLinkValue, l.name, v)
	}

	var add []Target
	for _, t := range targets.All() {
		sel := m.query().Select(l.junction)
		l.where(func(column string, args ...interface{}) { sel.Where(column, args...) })
		count, err := sel.Where(l.targetColumn, l.storageID(t.TargetID())).Count()
		if err != nil {
			return err
		}
		if count == 0 {
			add = append(add, t)
		}
		l.targetsValue().Add(t)
	}
	return l.insert(add...)
}

// RemoveLink deletes the junction row of the target id.
func (l *LinkThrough) RemoveLink(id interface{}) error {
	tid, err := l.idKind.Parse(id, l.location())
	if err != nil || tid == nil {
		return fmt.Errorf(ErrLinkValue, l.name, id)
	}
	if err = l.remove(tid); err != nil {
		return err
	}
	l.targetsValue().Remove(tid)
	return nil
}

// insert the junction rows of the targets with one statement.
func (l *LinkThrough) insert(targets ...Target) error {
	if len(targets) == 0 {
		return nil
	}
	m, err := l.bound()
	if err != nil {
		return err
	}

	values := make([]map[string]interface{}, 0, len(targets))
	for _, t := range targets {
		row := map[string]interface{}{
			l.sourceColumn: l.sourceIDKind.Value(l.id),
			l.targetColumn: l.storageID(t.TargetID()),
		}
		if l.sourceDiscriminator.Column != "" {
			row[l.sourceDiscriminator.Column] = l.sourceDiscriminator.Value
		}
		if l.targetDiscriminator.Column != "" {
			row[l.targetDiscriminator.Column] = l.targetDiscriminator.Value
		}
		values = append(values, row)
	}

	_, err = m.query().Insert(l.junction).Columns(l.junctionColumns()...).Batch(len(values)).Values(values).Exec()
	return err
}

// remove the junction row of the target id.
func (l *LinkThrough) remove(tid interface{}) error {
	m, err := l.bound()
	if err != nil {
		return err
	}
	del := m.query().Delete(l.junction)
	l.where(func(column string, args ...interface{}) { del.Where(column, args...) })
	_, err = del.Where(l.targetColumn, l.storageID(tid)).Exec()
	return err
}

// junctionColumns in the order of the DDL.
func (l *LinkThrough) junctionColumns() []string {
	columns := []string{l.sourceColumn, l.targetColumn}
	if l.sourceDiscriminator.Column != "" {
		columns = append(columns, l.sourceDiscriminator.Column)
	}
	if l.targetDiscriminator.Column != "" {
		columns = append(columns, l.targetDiscriminator.Column)
	}
	return columns
}

// JunctionDefinitions returns the columns of the junction table.
// The junction table has no surrogate id.
func (l *LinkThrough) JunctionDefinitions() []query.ColumnDefinition {
	defs := []query.ColumnDefinition{
		{Name: l.sourceColumn, Type: l.sourceIDKind.SQLType(), NotNull: true},
		{Name: l.targetColumn, Type: l.idKind.SQLType(), NotNull: true},
	}
	for _, d := range []discriminator{l.sourceDiscriminator, l.targetDiscriminator} {
		if d.Column != "" {
			defs = append(defs, query.ColumnDefinition{Name: d.Column, Type: discriminatorType, NotNull: true})
		}
	}
	return defs
}

func (l *LinkThrough) columnValue() (interface{}, bool) {
	return nil, false
}

func (l *LinkThrough) hydrate(interface{}) error {
	return nil
}
