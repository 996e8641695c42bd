// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"fmt"
	"reflect"

	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/query/condition"
	"github.com/patrickascher/relmap/stringer"
	"github.com/patrickascher/relmap/translation"
)

// relation holds the target of a Link or LinkThrough.
// The target is a registered model kind or a raw table.
type relation struct {
	attribute

	target     string
	table      string
	idColumn   string
	idKind     kind.Kind
	softDelete string
}

// newRelation creates the relation of the options.
// Without a target, the camel case singular of the name is used as model kind.
func newRelation(name string, o options) (relation, error) {
	r := relation{target: o.target, table: o.targetTable, idColumn: o.targetID}
	r.attribute = attribute{name: name, required: o.required, defaultValue: o.defaultValue, valid: true}

	if r.table != "" {
		r.target = ""
		if r.idColumn == "" {
			r.idColumn = "id"
		}
		idKind := o.targetIDKind
		if idKind == "" {
			idKind = kind.ID
		}
		k, err := kind.Get(idKind)
		if err != nil {
			return r, fmt.Errorf("orm: %w", err)
		}
		if k.Name() != kind.ID && k.Name() != kind.UUID {
			return r, fmt.Errorf("%w: %s", ErrID, name)
		}
		r.idKind = k
		return r, nil
	}

	if r.target == "" {
		r.target = stringer.SnakeToCamel(stringer.Singular(name))
	}
	return r, nil
}

// resolve the table and id of a model kind target.
func (r *relation) resolve() error {
	if r.target == "" {
		return nil
	}
	t, err := declared(r.target)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrTarget, r.name, err)
	}
	r.table = t.table
	r.idColumn = t.idColumn()
	r.idKind = t.idAttr.kind
	if t.deletedAt != nil {
		r.softDelete = t.deletedAt.column
	}
	return nil
}

// targetName for messages.
func (r *relation) targetName() string {
	if r.target != "" {
		return r.target
	}
	return r.table
}

// items returns the single values of a link value.
// Null values are removed.
func items(v interface{}) []interface{} {
	if kind.IsNull(v) {
		return nil
	}

	switch x := v.(type) {
	case *Targets:
		var rv []interface{}
		for _, t := range x.All() {
			rv = append(rv, t)
		}
		return rv
	case Target, Interface, map[string]interface{}, query.Row:
		return []interface{}{v}
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		var list []interface{}
		for i := 0; i < rv.Len(); i++ {
			if item := rv.Index(i).Interface(); !kind.IsNull(item) {
				list = append(list, item)
			}
		}
		return list
	}
	return []interface{}{v}
}

// convert a single value into a target.
// If the value is a raw id, the parsed id is returned and must be looked up.
func (r *relation) convert(v interface{}) (Target, interface{}, bool) {
	switch x := v.(type) {
	case Target:
		if x.TargetID() == nil {
			return nil, nil, false
		}
		return x, nil, true
	case Interface:
		if x.ID() == nil {
			return nil, nil, false
		}
		return Resolved{Entity: x}, nil, true
	case query.Row:
		return r.fromMap(x)
	case map[string]interface{}:
		return r.fromMap(x)
	}

	id, err := r.idKind.Parse(v, r.location())
	if err != nil || id == nil {
		return nil, nil, false
	}
	return nil, id, true
}

// fromMap converts a map which contains the target id.
func (r *relation) fromMap(m map[string]interface{}) (Target, interface{}, bool) {
	id, err := r.idKind.Parse(m[r.idColumn], r.location())
	if err != nil || id == nil {
		return nil, nil, false
	}
	if r.target == "" {
		return Record{ID: id, Values: query.Row(m)}, nil, true
	}
	return Unresolved{ID: id}, nil, true
}

// targets converts all items.
// Raw ids are looked up with one query, missing ids add a relation-not-found error.
func (r *relation) targets(list []interface{}) *Targets {
	converted := make([]Target, len(list))
	ids := make([]interface{}, len(list))
	var raw []interface{}
	for i, item := range list {
		t, id, ok := r.convert(item)
		if !ok {
			r.addMessage(ERROR, translation.AttributeType, map[string]interface{}{"Kind": r.targetName()})
			continue
		}
		converted[i], ids[i] = t, id
		if id != nil {
			raw = append(raw, id)
		}
	}

	found := map[string]Target{}
	if len(raw) > 0 {
		var err error
		if found, err = r.lookup(raw); err != nil {
			r.err = err
			r.valid = false
			return NewTargets()
		}
	}

	rv := NewTargets()
	for i := range list {
		switch {
		case converted[i] != nil:
			rv.Add(converted[i])
		case ids[i] != nil:
			t, ok := found[key(ids[i])]
			if !ok {
				r.addMessage(ERROR, translation.RelationNotFound, map[string]interface{}{"ID": ids[i]})
				continue
			}
			rv.Add(t)
		}
	}
	return rv
}

// lookup the ids in the target table.
func (r *relation) lookup(ids []interface{}) (map[string]Target, error) {
	m, err := r.owner()
	if err != nil {
		return nil, err
	}

	sel := m.query().Select(r.table).Where(r.idColumn, condition.IN, ids).Limit(-1)
	if r.target != "" {
		sel.Columns(r.idColumn)
	}
	if r.softDelete != "" {
		sel.Where(r.softDelete, nil)
	}
	rows, err := sel.All()
	if err != nil {
		return nil, err
	}

	found := make(map[string]Target, len(rows))
	for _, row := range rows {
		id, err := r.idKind.Scan(row[r.idColumn], r.location())
		if err != nil {
			return nil, fmt.Errorf("orm: %s: %w", r.name, err)
		}
		if r.target == "" {
			found[key(id)] = Record{ID: id, Values: row}
			continue
		}
		found[key(id)] = Unresolved{ID: id}
	}
	return found, nil
}

// fetch the targets of the select.
// Model kinds are resolved into entities, raw tables into records.
func (r *relation) fetch(sel query.Select) ([]Target, error) {
	rows, err := sel.All()
	if err != nil {
		return nil, err
	}

	rv := make([]Target, 0, len(rows))
	for _, row := range rows {
		if r.target == "" {
			id, err := r.idKind.Scan(row[r.idColumn], r.location())
			if err != nil {
				return nil, fmt.Errorf("orm: %s: %w", r.name, err)
			}
			rv = append(rv, Record{ID: id, Values: row})
			continue
		}

		entity, err := New(r.target)
		if err != nil {
			return nil, err
		}
		entity.model().req = r.request()
		if r.model != nil {
			entity.model().tx = r.model.tx
		}
		if err = entity.model().hydrate(row); err != nil {
			return nil, err
		}
		rv = append(rv, Resolved{Entity: entity})
	}
	return rv, nil
}

// storageID returns the storage value of a target id.
func (r *relation) storageID(id interface{}) interface{} {
	if id == nil {
		return nil
	}
	return r.idKind.Value(id)
}
