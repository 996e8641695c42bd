// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"fmt"
	"time"

	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/translation"
)

// Error messages.
var (
	ErrDefault = "orm: default value %v of %s is not a valid %s"
)

// Scalar is an attribute with a single value of a kind.
type Scalar struct {
	attribute
	kind kind.Kind
}

// NewScalar creates a scalar attribute of the given kind.
// The column is the attribute name if not set by option.
func NewScalar(name string, kindName string, opts ...Option) (*Scalar, error) {
	k, err := kind.Get(kindName)
	if err != nil {
		return nil, fmt.Errorf("orm: %w", err)
	}

	o := newOptions(opts)
	if o.column == "" {
		o.column = name
	}
	if o.defaultValue != nil {
		if _, err = k.Parse(o.defaultValue, time.UTC); err != nil {
			return nil, fmt.Errorf(ErrDefault, o.defaultValue, name, k.Name())
		}
	}

	s := &Scalar{kind: k}
	s.attribute = attribute{name: name, column: o.column, required: o.required, defaultValue: o.defaultValue, valid: true}
	return s, nil
}

// Kind of the attribute.
func (s *Scalar) Kind() kind.Kind {
	return s.kind
}

// Create sets the value of a new record.
//
// A null value of a required attribute uses the default value with an info message.
// Without a default, an error message is added.
func (s *Scalar) Create(v interface{}) bool {
	return s.set(v, false)
}

// Update sets the value of an existing record.
//
// A null value of a required attribute keeps the current value with a warning message.
// If there is no current value, the same rules as on Create apply.
func (s *Scalar) Update(v interface{}) bool {
	return s.set(v, true)
}

// UpdateAndSave updates the value and saves it immediately for the given id.
// False will return if the value was not valid, nothing is saved then.
func (s *Scalar) UpdateAndSave(v interface{}, id interface{}) (bool, error) {
	if err := s.Bind(id); err != nil {
		return false, err
	}
	if !s.Update(v) {
		return false, nil
	}
	return true, s.Save()
}

func (s *Scalar) set(v interface{}, update bool) bool {
	current := s.value
	s.reset()

	if kind.IsNull(v) && s.required {
		switch {
		case update && current != nil:
			s.value = current
			s.addMessage(WARNING, translation.OldValueUsed, nil)
		case s.defaultValue != nil:
			s.value, _ = s.kind.Parse(s.defaultValue, s.location())
			s.addMessage(INFO, translation.DefaultValueUsed, nil)
		default:
			s.addMessage(ERROR, translation.AttributeRequired, nil)
		}
		return s.valid
	}

	native, err := s.kind.Parse(v, s.location())
	if err != nil {
		s.addMessage(ERROR, translation.AttributeType, map[string]interface{}{"Kind": s.kind.Name()})
		return false
	}
	s.value = native
	return true
}

// Get returns the native value or the external format.
func (s *Scalar) Get(native bool) interface{} {
	if native || s.value == nil {
		return s.value
	}
	return s.kind.Format(s.value, s.location())
}

// storage value of the attribute.
func (s *Scalar) storage() interface{} {
	if s.value == nil {
		return nil
	}
	return s.kind.Value(s.value)
}

// Load the value of the given id.
func (s *Scalar) Load(id interface{}) error {
	if err := s.Bind(id); err != nil {
		return err
	}
	m, err := s.owner()
	if err != nil {
		return err
	}
	row, err := m.query().Select(m.table).Columns(s.column).Where(m.idColumn(), id).First()
	if err != nil {
		return err
	}
	return s.hydrate(rowValue(row, s.column))
}

// Save the value.
func (s *Scalar) Save() error {
	return s.saveColumn(s.storage())
}

// Delete sets the value to null and saves it.
func (s *Scalar) Delete() error {
	s.reset()
	return s.Save()
}

func (s *Scalar) columnValue() (interface{}, bool) {
	return s.storage(), true
}

func (s *Scalar) hydrate(v interface{}) error {
	native, err := s.kind.Scan(v, s.location())
	if err != nil {
		return fmt.Errorf("orm: %s: %w", s.name, err)
	}
	s.value = native
	return nil
}

// columnDefinition of the attribute.
func (s *Scalar) columnDefinition() query.ColumnDefinition {
	return query.ColumnDefinition{Name: s.column, Type: s.kind.SQLType(), NotNull: s.required}
}
