// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package orm maps declared entities onto relational tables.
//
// A model kind embeds orm.Model and declares its attributes:
//		type User struct {
//			orm.Model
//		}
//
//		func (u *User) Declare(d *orm.Declaration) {
//			d.ID(kind.ID)
//			d.Char("name", orm.Required())
//			d.Link("role")
//			d.LinkThrough("tags", orm.TargetKind("Tag"))
//			d.Timestamps()
//			d.SoftDelete()
//		}
//
//		func (u *User) DefaultBuilder() query.Builder {
//			return builder
//		}
//
// Every operation takes an explicit orm.Request which carries the current user, the location and the time.
// Validation problems never return an error, they are added as messages to the attribute and the model.
// Errors are returned for programmer mistakes and database failures.
//
// No operation runs in an implicit transaction. Relation reconciliation is safe to re-run,
// callers who need atomicity set a transaction with Model.WithTx.
package orm

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/patrickascher/relmap/logger"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/registry"
)

// registryPrefix of the model kinds.
const registryPrefix = "orm_"

// Error messages.
var (
	ErrMandatory          = "orm: %s is mandatory but has zero-value in %s"
	ErrInit               = errors.New("orm: model is not initialized")
	ErrDuplicateAttribute = errors.New("orm: attribute is already declared")
	ErrID                 = errors.New("orm: exactly one id attribute of kind id or uuid is required")
	ErrIDRequired         = errors.New("orm: id attribute can not be required")
	ErrOwner              = errors.New("orm: only one owner attribute is allowed")
	ErrUnknownAttribute   = errors.New("orm: attribute does not exist")
	ErrRebind             = errors.New("orm: attribute is already bound to another id")
	ErrNotBound           = errors.New("orm: model is not bound to an id")
	ErrBound              = errors.New("orm: model is already bound to an id")
	ErrLoginRequired      = errors.New("orm: login required")
	ErrPermission         = errors.New("orm: permission denied")
	ErrTarget             = errors.New("orm: link target is not defined")
	ErrFactory            = "orm: factory of %s returned nil"
)

// defaults of all model kinds.
var (
	mu             sync.RWMutex
	defaultBuilder query.Builder
	defaultLogger  logger.Manager
)

// SetDefaultBuilder sets the builder which is returned by Model.DefaultBuilder.
func SetDefaultBuilder(b query.Builder) {
	mu.Lock()
	defer mu.Unlock()
	defaultBuilder = b
}

// SetDefaultLogger sets the logger which is returned by Model.DefaultLogger.
func SetDefaultLogger(l logger.Manager) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Interface of the orm model.
// It is implemented by every struct which embeds orm.Model and declares its attributes.
type Interface interface {
	Init(caller Interface) error
	Declare(d *Declaration)

	DefaultBuilder() query.Builder
	DefaultTableName() string
	DefaultLogger() logger.Manager

	ID() interface{}
	Table() string
	Attribute(name string) (Attribute, bool)
	Messages() Messages
	ToArray(native bool) map[string]interface{}

	Create(req Request, data interface{}) (bool, error)
	Update(req Request, data interface{}) (bool, error)
	Delete(req Request, force bool) error
	Find(req Request, id interface{}) error
	Fetch(names ...string) error

	model() *Model
}

// Factory creates a new, not initialized model kind.
type Factory func() Interface

// Register a model kind by name.
// The name is used by links and the package functions to create instances.
func Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("orm: %w", registry.ErrMandatoryArguments)
	}
	return registry.Set(registryPrefix+name, factory)
}

// Names returns all registered model kinds sorted by name.
func Names() []string {
	return registry.Names(registryPrefix)
}

// New returns an initialized instance of the registered model kind.
func New(name string) (Interface, error) {
	r, err := registry.Get(registryPrefix + name)
	if err != nil {
		return nil, fmt.Errorf("orm: %w", err)
	}
	m := r.(Factory)()
	if m == nil {
		return nil, fmt.Errorf(ErrFactory, name)
	}
	if err = m.Init(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Find returns the entity of the model kind with the given id.
func Find(req Request, name string, id interface{}) (Interface, error) {
	m, err := New(name)
	if err != nil {
		return nil, err
	}
	if err = m.Find(req, id); err != nil {
		return nil, err
	}
	return m, nil
}

// Update loads the entity and updates it with the given data.
// False will return if the data was not valid, the messages are available on the returned model.
func Update(req Request, name string, id interface{}, data interface{}) (Interface, bool, error) {
	m, err := Find(req, name, id)
	if err != nil {
		return nil, false, err
	}
	ok, err := m.Update(req, data)
	return m, ok, err
}

// Delete loads and deletes the entity.
// If force is true, the row will be removed even if the model has a soft delete.
func Delete(req Request, name string, id interface{}, force bool) error {
	m, err := Find(req, name, id)
	if err != nil {
		return err
	}
	return m.Delete(req, force)
}

// newInstance creates a new initialized instance of the same type as the caller.
func newInstance(caller Interface) (Interface, error) {
	t := reflect.TypeOf(caller)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	m, ok := reflect.New(t).Interface().(Interface)
	if !ok {
		return nil, fmt.Errorf(ErrMandatory, "orm.Interface", t.String())
	}
	if err := m.Init(m); err != nil {
		return nil, err
	}
	return m, nil
}

// reflectName returns the struct name of the caller.
func reflectName(caller interface{}) string {
	t := reflect.TypeOf(caller)
	if t == nil {
		return "nil"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
