// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"fmt"
	"time"

	"github.com/patrickascher/relmap/query"
)

// Attribute of a model.
//
// Create and Update validate and coerce a user value. They never return an error for invalid values,
// the problems are added as messages and Valid returns false.
// An attribute is bound to the id of its model once, binding another id returns ErrRebind.
type Attribute interface {
	Name() string
	Column() string
	Required() bool

	Create(v interface{}) bool
	Update(v interface{}) bool
	Get(native bool) interface{}
	Messages() []Message
	Valid() bool

	Bind(id interface{}) error
	BoundID() interface{}
	Load(id interface{}) error
	Save() error
	Delete() error

	base() *attribute
	// columnValue returns the storage value if the attribute has a column in the model table.
	columnValue() (interface{}, bool)
	// hydrate sets the value of a fetched model row.
	hydrate(v interface{}) error
}

// attribute holds the common fields of all attribute types.
type attribute struct {
	name         string
	column       string
	required     bool
	defaultValue interface{}

	model *Model
	id    interface{}

	value    interface{}
	messages []Message
	valid    bool
	err      error
}

// Name of the attribute.
func (a *attribute) Name() string {
	return a.name
}

// Column of the attribute.
func (a *attribute) Column() string {
	return a.column
}

// Required reports if the attribute is mandatory.
func (a *attribute) Required() bool {
	return a.required
}

// Messages of the last Create or Update.
func (a *attribute) Messages() []Message {
	return a.messages
}

// Valid reports if the last Create or Update had no error message.
func (a *attribute) Valid() bool {
	return a.valid
}

// BoundID returns the bound id or nil.
func (a *attribute) BoundID() interface{} {
	return a.id
}

// Bind the attribute to an id.
// Binding the same id again is a no-op.
func (a *attribute) Bind(id interface{}) error {
	if id == nil {
		return fmt.Errorf("%w: %s", ErrNotBound, a.name)
	}
	if a.id != nil {
		if key(a.id) != key(id) {
			return fmt.Errorf("%w: %s %v (%v)", ErrRebind, a.name, a.id, id)
		}
		return nil
	}
	a.id = id
	return nil
}

func (a *attribute) base() *attribute {
	return a
}

// reset the value, messages and validity.
func (a *attribute) reset() {
	a.value = nil
	a.messages = nil
	a.valid = true
	a.err = nil
}

// addMessage adds a translated message, an error flips the validity.
func (a *attribute) addMessage(severity string, code string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Attribute"] = a.name
	a.messages = append(a.messages, newMessage(a.request().Lang, severity, code, data))
	if severity == ERROR {
		a.valid = false
	}
}

// request of the current model operation.
func (a *attribute) request() Request {
	if a.model == nil {
		return Request{}
	}
	return a.model.req
}

// location of the current request.
func (a *attribute) location() *time.Location {
	return a.request().location()
}

// owner returns the model of the attribute.
func (a *attribute) owner() (*Model, error) {
	if a.model == nil {
		return nil, ErrInit
	}
	return a.model, nil
}

// bound returns the model and an error if the attribute is not bound.
func (a *attribute) bound() (*Model, error) {
	m, err := a.owner()
	if err != nil {
		return nil, err
	}
	if a.id == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, a.name)
	}
	return m, nil
}

// saveColumn updates the column of the model row.
// If the model has timestamps, updated_at is set as well.
func (a *attribute) saveColumn(value interface{}) error {
	m, err := a.bound()
	if err != nil {
		return err
	}

	columns := []string{a.column}
	values := map[string]interface{}{a.column: value}
	if m.updatedAt != nil && a.column != m.updatedAt.column {
		now := m.req.now()
		m.updatedAt.value = now
		columns = append(columns, m.updatedAt.column)
		values[m.updatedAt.column] = m.updatedAt.storage()
	}

	_, err = m.query().Update(m.table).Columns(columns...).Set(values).Where(m.idColumn(), a.id).Exec()
	return err
}

// key returns the comparable key of an id.
func key(id interface{}) string {
	return fmt.Sprint(id)
}

// rowValue returns the column value of a row.
func rowValue(row query.Row, column string) interface{} {
	if row == nil {
		return nil
	}
	return row[column]
}
