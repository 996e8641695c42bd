// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"fmt"

	"github.com/patrickascher/relmap/kind"
)

// Privacy of a model operation.
type Privacy int

// Privacy levels.
const (
	// PUBLIC allows everyone.
	PUBLIC Privacy = iota
	// LOGIN requires a user id in the request.
	LOGIN
	// OWNER requires the user id of the owner attribute.
	OWNER
)

// Right which is checked against the privacy.
type Right int

// Rights.
const (
	VIEW Right = iota
	EDIT
)

// Reserved attribute names.
const (
	IDName        = "id"
	CreatedAtName = "created_at"
	UpdatedAtName = "updated_at"
	DeletedAtName = "deleted_at"
)

// Declaration collects the attributes of a model kind.
// All errors are collected and returned on model initialization.
type Declaration struct {
	model *Model
	errs  []error
}

// add the attribute to the model.
// Names and columns must be unique.
func (d *Declaration) add(a Attribute, err error) Attribute {
	if err != nil {
		d.errs = append(d.errs, err)
		return nil
	}

	m := d.model
	if _, exists := m.index[a.Name()]; exists {
		d.errs = append(d.errs, fmt.Errorf("%w: %s.%s", ErrDuplicateAttribute, m.name, a.Name()))
		return nil
	}
	if _, ok := a.columnValue(); ok {
		for _, existing := range m.attributes {
			if _, hasColumn := existing.columnValue(); hasColumn && existing.Column() == a.Column() {
				d.errs = append(d.errs, fmt.Errorf("%w: %s column %s", ErrDuplicateAttribute, m.name, a.Column()))
				return nil
			}
		}
	}

	a.base().model = m
	m.attributes = append(m.attributes, a)
	m.index[a.Name()] = a
	return a
}

// scalar adds a scalar attribute.
func (d *Declaration) scalar(name string, kindName string, opts []Option) *Scalar {
	s, err := NewScalar(name, kindName, opts...)
	if d.add(s, err) == nil {
		return nil
	}
	return s
}

// err returns all collected errors joined.
func (d *Declaration) err() error {
	switch len(d.errs) {
	case 0:
		return nil
	case 1:
		return d.errs[0]
	}
	msg := d.errs[0].Error()
	for _, e := range d.errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%w (%s)", d.errs[0], msg)
}

// ID declares the id attribute.
// Only the kinds id and uuid are allowed. An id of kind id is generated by the database,
// an id of kind uuid is generated on create.
func (d *Declaration) ID(kindName string, opts ...Option) {
	if d.model.idAttr != nil {
		d.errs = append(d.errs, fmt.Errorf("%w: %s", ErrID, d.model.name))
		return
	}
	if kindName != kind.ID && kindName != kind.UUID {
		d.errs = append(d.errs, fmt.Errorf("%w: %s has %s", ErrID, d.model.name, kindName))
		return
	}
	if newOptions(opts).required {
		d.errs = append(d.errs, fmt.Errorf("%w: %s", ErrIDRequired, d.model.name))
		return
	}
	d.model.idAttr = d.scalar(IDName, kindName, opts)
}

// Owner declares the attribute which holds the user id of the creator.
// The kind defaults to id.
func (d *Declaration) Owner(column string, kindName ...string) {
	if d.model.owner != nil {
		d.errs = append(d.errs, fmt.Errorf("%w: %s", ErrOwner, d.model.name))
		return
	}
	k := kind.ID
	if len(kindName) > 0 {
		k = kindName[0]
	}
	if k != kind.ID && k != kind.UUID {
		d.errs = append(d.errs, fmt.Errorf("%w: owner of %s has %s", ErrID, d.model.name, k))
		return
	}
	d.model.owner = d.scalar(column, k, nil)
}

// Privacy sets the privacy of view and edit operations.
func (d *Declaration) Privacy(view Privacy, edit Privacy) {
	d.model.view = view
	d.model.edit = edit
}

// Timestamps declares the created_at and updated_at attributes.
func (d *Declaration) Timestamps() {
	d.model.createdAt = d.scalar(CreatedAtName, kind.DATETIME, nil)
	d.model.updatedAt = d.scalar(UpdatedAtName, kind.DATETIME, nil)
}

// SoftDelete declares the deleted_at attribute.
// Deleted rows are excluded from all queries and link lookups.
func (d *Declaration) SoftDelete() {
	d.model.deletedAt = d.scalar(DeletedAtName, kind.DATETIME, nil)
}

// Char declares an attribute of kind char.
func (d *Declaration) Char(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.CHAR, opts)
}

// Text declares an attribute of kind text.
func (d *Declaration) Text(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.TEXT, opts)
}

// Int declares an attribute of kind int.
func (d *Declaration) Int(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.INT, opts)
}

// Float declares an attribute of kind float.
func (d *Declaration) Float(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.FLOAT, opts)
}

// Bool declares an attribute of kind bool.
func (d *Declaration) Bool(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.BOOL, opts)
}

// Email declares an attribute of kind email.
func (d *Declaration) Email(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.EMAIL, opts)
}

// List declares an attribute of kind list.
func (d *Declaration) List(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.LIST, opts)
}

// Date declares an attribute of kind date.
func (d *Declaration) Date(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.DATE, opts)
}

// DateTime declares an attribute of kind datetime.
func (d *Declaration) DateTime(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.DATETIME, opts)
}

// UUID declares an attribute of kind uuid.
func (d *Declaration) UUID(name string, opts ...Option) *Scalar {
	return d.scalar(name, kind.UUID, opts)
}

// Attribute declares a scalar attribute of any kind.
func (d *Declaration) Attribute(name string, kindName string, opts ...Option) *Scalar {
	if kindName == kind.ID {
		d.errs = append(d.errs, fmt.Errorf("%w: use ID to declare %s.%s", ErrID, d.model.name, name))
		return nil
	}
	return d.scalar(name, kindName, opts)
}

// Link declares a link attribute.
func (d *Declaration) Link(name string, opts ...Option) *Link {
	l, err := NewLink(name, opts...)
	if d.add(l, err) == nil {
		return nil
	}
	return l
}

// LinkThrough declares a link through attribute.
func (d *Declaration) LinkThrough(name string, opts ...Option) *LinkThrough {
	l, err := NewLinkThrough(name, opts...)
	if d.add(l, err) == nil {
		return nil
	}
	return l
}
