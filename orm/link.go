// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"fmt"

	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/slicer"
	"github.com/patrickascher/relmap/stringer"
	"github.com/patrickascher/relmap/translation"
)

// Link is a relation by a foreign key.
//
// The foreign key lives in the model table, or in the target table if the link is inversed.
// A link holds one Target or nil. An inversed link holds *Targets.
type Link struct {
	relation
	inversed bool
}

// NewLink creates a link attribute.
// The default column is the singular name with an "_id" suffix, or for inversed links the
// singular model table with an "_id" suffix.
func NewLink(name string, opts ...Option) (*Link, error) {
	o := newOptions(opts)
	r, err := newRelation(name, o)
	if err != nil {
		return nil, err
	}

	l := &Link{relation: r, inversed: o.inversed}
	l.column = o.column
	if l.column == "" && !l.inversed {
		l.column = stringer.ForeignKey(name)
	}
	l.value = l.empty()
	return l, nil
}

// Inversed reports if the foreign key lives in the target table.
func (l *Link) Inversed() bool {
	return l.inversed
}

// resolve the target and the default column of an inversed link.
func (l *Link) resolve(m *Model) error {
	if err := l.relation.resolve(); err != nil {
		return err
	}
	if l.column == "" {
		l.column = stringer.ForeignKey(m.table)
	}
	return nil
}

// empty value of the link.
func (l *Link) empty() interface{} {
	if l.inversed {
		return NewTargets()
	}
	return nil
}

// isEmpty reports if the value has no target.
func isEmpty(v interface{}) bool {
	if t, ok := v.(*Targets); ok {
		return t.Len() == 0
	}
	return v == nil
}

// Create sets the target of a new record.
// Accepted are nil, an entity, a Target, a map with the target id, a raw id and for inversed links slices of them.
func (l *Link) Create(v interface{}) bool {
	return l.set(v, false)
}

// Update sets the target of an existing record.
func (l *Link) Update(v interface{}) bool {
	return l.set(v, true)
}

func (l *Link) set(v interface{}, update bool) bool {
	current := l.value
	l.reset()
	l.value = l.empty()

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

	if !l.inversed && len(list) > 1 {
		l.addMessage(ERROR, translation.AttributeType, map[string]interface{}{"Kind": l.targetName()})
		return false
	}

	targets := l.targets(list)
	if l.inversed {
		l.value = targets
	} else if t := targets.First(); t != nil {
		l.value = t
	}
	return l.valid
}

// Get returns the Target or *Targets if native, otherwise the target id or ids.
func (l *Link) Get(native bool) interface{} {
	if native {
		return l.value
	}
	return l.TargetID()
}

// TargetID returns the target id without fetching the target.
// Inversed links return a slice of ids.
func (l *Link) TargetID() interface{} {
	if l.inversed {
		return l.targetsValue().IDs()
	}
	if t, ok := l.value.(Target); ok {
		return t.TargetID()
	}
	return nil
}

// targetsValue returns the value of an inversed link.
func (l *Link) targetsValue() *Targets {
	t, ok := l.value.(*Targets)
	if !ok || t == nil {
		t = NewTargets()
		l.value = t
	}
	return t
}

// Load fetches the target of the given id.
// A non inversed link reads the foreign key of the model row and loads the target.
// An inversed link loads all target rows which point to the id.
func (l *Link) Load(id interface{}) error {
	if err := l.Bind(id); err != nil {
		return err
	}
	m, err := l.owner()
	if err != nil {
		return err
	}

	if l.inversed {
		sel := m.query().Select(l.table).Where(l.column, m.idAttr.kind.Value(id)).Limit(-1)
		if l.softDelete != "" {
			sel.Where(l.softDelete, nil)
		}
		targets, err := l.fetch(sel)
		if err != nil {
			return err
		}
		l.value = NewTargets(targets...)
		return nil
	}

	row, err := m.query().Select(m.table).Columns(l.column).Where(m.idColumn(), id).First()
	if err != nil {
		return err
	}
	if err = l.hydrate(rowValue(row, l.column)); err != nil || l.value == nil {
		return err
	}

	fk := l.TargetID()
	targets, err := l.fetch(m.query().Select(l.table).Where(l.idColumn, l.storageID(fk)).Limit(1))
	if err != nil {
		return err
	}
	if len(targets) > 0 {
		l.value = targets[0]
	}
	return nil
}

// Save writes the foreign key into the model row.
// An inversed link reconciles the target rows against the value.
func (l *Link) Save() error {
	if l.inversed {
		return l.reconcile()
	}
	v, _ := l.columnValue()
	return l.saveColumn(v)
}

// Delete removes the target.
// The foreign key of the model row is cleared, for inversed links the foreign keys of all target rows.
func (l *Link) Delete() error {
	l.reset()
	l.value = l.empty()
	return l.Save()
}

// reconcile the target rows of an inversed link.
// Added ids get the foreign key set, removed ids get it cleared. Unchanged rows are not touched.
func (l *Link) reconcile() error {
	m, err := l.bound()
	if err != nil {
		return err
	}
	source := m.idAttr.kind.Value(l.id)

	rows, err := m.query().Select(l.table).Columns(l.idColumn).Where(l.column, source).Limit(-1).All()
	if err != nil {
		return err
	}
	current := make(map[string]interface{}, len(rows))
	var currentKeys []string
	for _, row := range rows {
		k := key(row[l.idColumn])
		current[k] = row[l.idColumn]
		currentKeys = append(currentKeys, k)
	}

	desired := l.targetsValue()
	for _, k := range slicer.StringDiff(desired.Keys(), currentKeys) {
		t, _ := desired.Get(k)
		_, err = m.query().Update(l.table).Set(map[string]interface{}{l.column: source}).Where(l.idColumn, l.storageID(t.TargetID())).Exec()
		if err != nil {
			return err
		}
	}
	for _, k := range slicer.StringDiff(currentKeys, desired.Keys()) {
		if err = l.unlink(current[k], false); err != nil {
			return err
		}
	}
	return nil
}

// unlink clears the foreign key of a target row which points to the bound id.
// If cascade is true, the target row is deleted.
func (l *Link) unlink(id interface{}, cascade bool) error {
	m, err := l.bound()
	if err != nil {
		return err
	}
	source := m.idAttr.kind.Value(l.id)
	if cascade {
		_, err = m.query().Delete(l.table).Where(l.idColumn, id).Where(l.column, source).Exec()
		return err
	}
	_, err = m.query().Update(l.table).Set(map[string]interface{}{l.column: nil}).Where(l.idColumn, id).Where(l.column, source).Exec()
	return err
}

// RemoveLink removes a target.
//
// A non inversed link clears its foreign key, with cascade the previous target row is deleted.
// An inversed link removes the id from the value and clears the foreign key of that target row, with cascade
// the target row is deleted instead.
func (l *Link) RemoveLink(id interface{}, cascade bool) error {
	m, err := l.bound()
	if err != nil {
		return err
	}

	if l.inversed {
		tid, err := l.idKind.Parse(id, l.location())
		if err != nil || tid == nil {
			return fmt.Errorf("orm: %s: %w", l.name, kind.ErrType)
		}
		l.targetsValue().Remove(tid)
		return l.unlink(l.storageID(tid), cascade)
	}

	previous := l.TargetID()
	if previous == nil || (id != nil && key(id) != key(previous)) {
		return nil
	}
	l.value = nil
	if err = l.Save(); err != nil {
		return err
	}
	if cascade {
		_, err = m.query().Delete(l.table).Where(l.idColumn, l.storageID(previous)).Exec()
	}
	return err
}

func (l *Link) columnValue() (interface{}, bool) {
	if l.inversed {
		return nil, false
	}
	return l.storageID(l.TargetID()), true
}

func (l *Link) hydrate(v interface{}) error {
	if l.inversed {
		return nil
	}
	if kind.IsNull(v) {
		l.value = nil
		return nil
	}
	id, err := l.idKind.Scan(v, l.location())
	if err != nil {
		return fmt.Errorf("orm: %s: %w", l.name, err)
	}
	l.value = Unresolved{ID: id}
	return nil
}
