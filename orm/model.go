// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/logger"
	"github.com/patrickascher/relmap/query"
	"github.com/patrickascher/relmap/query/condition"
	"github.com/patrickascher/relmap/registry"
	"github.com/patrickascher/relmap/stringer"
)

// Error messages.
var (
	ErrNotFound = errors.New("orm: entity not found")
)

// TagName of the struct fields which are decoded as input data.
const TagName = "orm"

// Mode of the filter predicates.
type Mode int

// Modes.
const (
	// MatchAll links the filters with AND.
	MatchAll Mode = iota
	// MatchAny links the filters with OR.
	MatchAny
)

// Model must be embedded in every model kind.
type Model struct {
	caller      Interface
	name        string
	table       string
	builder     query.Builder
	logger      logger.Manager
	tx          query.Query
	initialized bool

	attributes []Attribute
	index      map[string]Attribute

	idAttr    *Scalar
	owner     *Scalar
	createdAt *Scalar
	updatedAt *Scalar
	deletedAt *Scalar
	view      Privacy
	edit      Privacy

	id       interface{}
	req      Request
	messages Messages
	touched  []Attribute
}

// Init the model.
// The attributes are declared and the link targets are resolved.
// It must be called once before the model is used, orm.New does it automatically.
func (m *Model) Init(caller Interface) error {
	if m.initialized {
		return nil
	}
	if err := m.declare(caller); err != nil {
		return err
	}

	m.builder = caller.DefaultBuilder()
	if m.builder == nil {
		return fmt.Errorf(ErrMandatory, "builder", m.name)
	}
	m.logger = caller.DefaultLogger()

	for _, a := range m.attributes {
		var err error
		switch x := a.(type) {
		case *Link:
			err = x.resolve(m)
		case *LinkThrough:
			err = x.resolve(m)
		}
		if err != nil {
			return err
		}
	}

	m.messages = newMessages()
	m.initialized = true
	return nil
}

// declare the attributes of the caller.
func (m *Model) declare(caller Interface) error {
	if caller == nil || (reflect.ValueOf(caller).Kind() == reflect.Ptr && reflect.ValueOf(caller).IsNil()) {
		return fmt.Errorf(ErrMandatory, "caller", "Init")
	}

	*m = Model{caller: caller, name: reflectName(caller), index: map[string]Attribute{}}
	m.table = caller.DefaultTableName()

	d := &Declaration{model: m}
	caller.Declare(d)
	if err := d.err(); err != nil {
		return err
	}
	if m.idAttr == nil {
		return fmt.Errorf("%w: %s", ErrID, m.name)
	}
	return nil
}

// declared returns the declared but not initialized model of a registered kind.
// The links of the returned model are not resolved.
func declared(name string) (*Model, error) {
	r, err := registry.Get(registryPrefix + name)
	if err != nil {
		return nil, err
	}
	caller := r.(Factory)()
	if caller == nil {
		return nil, fmt.Errorf(ErrFactory, name)
	}
	m := caller.model()
	if err = m.declare(caller); err != nil {
		return nil, err
	}
	return m, nil
}

// DefaultBuilder returns the builder of SetDefaultBuilder.
func (m *Model) DefaultBuilder() query.Builder {
	mu.RLock()
	defer mu.RUnlock()
	return defaultBuilder
}

// DefaultTableName is the plural snake case of the struct name.
func (m *Model) DefaultTableName() string {
	return stringer.TableName(m.name)
}

// DefaultLogger returns the logger of SetDefaultLogger.
// If it is nil, no logs are written.
func (m *Model) DefaultLogger() logger.Manager {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func (m *Model) model() *Model {
	return m
}

func (m *Model) isInit() error {
	if !m.initialized {
		return ErrInit
	}
	return nil
}

// Name of the model kind.
func (m *Model) Name() string {
	return m.name
}

// ID returns the bound id or nil.
func (m *Model) ID() interface{} {
	return m.id
}

// Table of the model.
func (m *Model) Table() string {
	return m.table
}

// Attribute returns the attribute by name.
func (m *Model) Attribute(name string) (Attribute, bool) {
	a, ok := m.index[name]
	return a, ok
}

// Attributes in declaration order.
func (m *Model) Attributes() []Attribute {
	return append([]Attribute(nil), m.attributes...)
}

// Messages of the last Create, Update or CheckForm.
func (m *Model) Messages() Messages {
	if m.messages == nil {
		m.messages = newMessages()
	}
	return m.messages
}

// WithTx runs all statements of the model in the given transaction.
// A nil argument removes the transaction.
func (m *Model) WithTx(tx query.Query) {
	m.tx = tx
}

// query returns a new query or the transaction.
func (m *Model) query() query.Query {
	return m.builder.Query(m.tx)
}

// idColumn of the model table.
func (m *Model) idColumn() string {
	return m.idAttr.column
}

// log returns the logger with the model fields, nil if no logger is defined.
func (m *Model) log() logger.Manager {
	if m.logger == nil {
		return nil
	}
	return m.logger.WithFields(logger.Fields{"model": m.name, "table": m.table})
}

// isReserved reports if the attribute is managed by the model.
func (m *Model) isReserved(a Attribute) bool {
	for _, s := range []*Scalar{m.idAttr, m.owner, m.createdAt, m.updatedAt, m.deletedAt} {
		if s != nil && Attribute(s) == a {
			return true
		}
	}
	return false
}

// isCollection reports if the attribute is persisted outside of the model row.
func isCollection(a Attribute) bool {
	switch x := a.(type) {
	case *Link:
		return x.inversed
	case *LinkThrough:
		return true
	}
	return false
}

// bind the model and all attributes to the id.
func (m *Model) bind(id interface{}) error {
	if id == nil {
		return ErrNotBound
	}
	if m.id != nil && key(m.id) != key(id) {
		return fmt.Errorf("%w: %s %v (%v)", ErrRebind, m.name, m.id, id)
	}
	m.id = id
	for _, a := range m.attributes {
		if err := a.Bind(id); err != nil {
			return err
		}
	}
	return nil
}

// hydrate sets the attribute values of a model row and binds the id.
func (m *Model) hydrate(row query.Row) error {
	for _, a := range m.attributes {
		if _, ok := a.columnValue(); !ok {
			continue
		}
		if v, ok := row[a.Column()]; ok {
			if err := a.hydrate(v); err != nil {
				return err
			}
		}
	}
	if m.idAttr.value == nil {
		return fmt.Errorf(ErrMandatory, "id", m.table)
	}
	return m.bind(m.idAttr.value)
}

// columns of the model table in declaration order.
func (m *Model) columns() []string {
	var columns []string
	for _, a := range m.attributes {
		if _, ok := a.columnValue(); ok {
			columns = append(columns, a.Column())
		}
	}
	return columns
}

// columnValues returns the columns and storage values of all attributes which pass the filter.
func (m *Model) columnValues(filter func(Attribute) bool) ([]string, map[string]interface{}) {
	var columns []string
	values := map[string]interface{}{}
	for _, a := range m.attributes {
		v, ok := a.columnValue()
		if !ok || !filter(a) {
			continue
		}
		columns = append(columns, a.Column())
		values[a.Column()] = v
	}
	return columns, values
}

// decode the input data into a map.
// Structs are decoded with mapstructure, the field names are converted to snake case.
func decode(data interface{}) (map[string]interface{}, error) {
	switch x := data.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return x, nil
	case query.Row:
		return x, nil
	}

	var raw map[string]interface{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: TagName, Result: &raw})
	if err != nil {
		return nil, fmt.Errorf("orm: %w", err)
	}
	if err = dec.Decode(data); err != nil {
		return nil, fmt.Errorf("orm: %w", err)
	}

	values := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		values[stringer.CamelToSnake(k)] = v
	}
	return values, nil
}

// inputValue returns the raw value of the attribute by name, or by foreign key column for links.
func inputValue(values map[string]interface{}, a Attribute) (interface{}, bool) {
	if v, ok := values[a.Name()]; ok {
		return v, true
	}
	if l, ok := a.(*Link); ok && !l.inversed && l.column != "" {
		v, ok := values[l.column]
		return v, ok
	}
	return nil, false
}

// CheckForm validates the data without saving it.
//
// Every attribute gets its raw value by name, links also by foreign key column.
// The id, owner, timestamps, soft delete, inversed links and link through attributes are skipped.
// The checked values are returned in the external format. If any attribute has an error message, nil and false will return.
// An error is only returned if the data could not be decoded or a database lookup failed.
func (m *Model) CheckForm(req Request, data interface{}, isUpdate bool) (map[string]interface{}, bool, error) {
	if err := m.isInit(); err != nil {
		return nil, false, err
	}
	m.req = req
	values, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return m.checkForm(values, isUpdate)
}

func (m *Model) checkForm(values map[string]interface{}, isUpdate bool) (map[string]interface{}, bool, error) {
	m.messages = newMessages()
	rv := map[string]interface{}{}
	for _, a := range m.attributes {
		if m.isReserved(a) || isCollection(a) {
			continue
		}
		v, _ := inputValue(values, a)
		if isUpdate {
			a.Update(v)
		} else {
			a.Create(v)
		}
		if err := a.base().err; err != nil {
			return nil, false, err
		}
		m.messages.add(a.Name(), a.Messages()...)
		rv[a.Name()] = a.Get(false)
	}
	if m.messages.HasError() {
		return nil, false, nil
	}
	return rv, true, nil
}

// checkCollections sets the inversed links and link through attributes which exist in the data.
// They are marked as touched and persisted after the model row.
func (m *Model) checkCollections(values map[string]interface{}, isUpdate bool) error {
	m.touched = nil
	for _, a := range m.attributes {
		if !isCollection(a) {
			continue
		}
		v, ok := inputValue(values, a)
		if !ok {
			continue
		}
		if isUpdate {
			a.Update(v)
		} else {
			a.Create(v)
		}
		if err := a.base().err; err != nil {
			return err
		}
		m.messages.add(a.Name(), a.Messages()...)
		m.touched = append(m.touched, a)
	}
	return nil
}

// saveTouched persists the touched collections.
func (m *Model) saveTouched() error {
	touched := m.touched
	m.touched = nil
	for _, a := range touched {
		if err := a.Save(); err != nil {
			return err
		}
	}
	return nil
}

// Create a new entity.
//
// The data is checked first, if any attribute is not valid false will return and nothing is saved.
// The model row is inserted with one statement and the model is bound to the new id.
// Inversed links and link through attributes are persisted afterwards.
func (m *Model) Create(req Request, data interface{}) (bool, error) {
	if err := m.isInit(); err != nil {
		return false, err
	}
	if m.id != nil {
		return false, fmt.Errorf("%w: %s %v", ErrBound, m.name, m.id)
	}
	m.req = req
	if m.edit != PUBLIC && kind.IsNull(req.UserID) {
		return false, ErrLoginRequired
	}

	values, err := decode(data)
	if err != nil {
		return false, err
	}
	if _, _, err = m.checkForm(values, false); err != nil {
		return false, err
	}
	if err = m.checkCollections(values, false); err != nil {
		return false, err
	}
	if m.messages.HasError() {
		return false, nil
	}

	m.idAttr.value = nil
	if g, ok := m.idAttr.kind.(kind.Generator); ok {
		m.idAttr.value = g.Generate()
	}
	if m.owner != nil {
		if m.owner.value, err = m.owner.kind.Parse(req.UserID, req.location()); err != nil {
			return false, fmt.Errorf("orm: %s owner: %w", m.name, err)
		}
	}
	now := req.now()
	for _, s := range []*Scalar{m.createdAt, m.updatedAt} {
		if s != nil {
			s.value = now
		}
	}
	if m.deletedAt != nil {
		m.deletedAt.value = nil
	}

	auto := m.idAttr.value == nil
	columns, row := m.columnValues(func(a Attribute) bool { return !(auto && a == Attribute(m.idAttr)) })
	var lastID int64
	insert := m.query().Insert(m.table).Columns(columns...).Values([]map[string]interface{}{row})
	if auto {
		insert.LastInsertedID(&lastID)
	}
	if _, err = insert.Exec(); err != nil {
		return false, err
	}
	if auto {
		m.idAttr.value = lastID
	}

	if err = m.bind(m.idAttr.value); err != nil {
		return false, err
	}
	return true, m.saveTouched()
}

// Update the bound entity.
//
// A missing attribute in the data counts as null, required attributes keep their old value.
// Inversed links and link through attributes are only changed if they exist in the data.
func (m *Model) Update(req Request, data interface{}) (bool, error) {
	if err := m.isInit(); err != nil {
		return false, err
	}
	if m.id == nil {
		return false, fmt.Errorf("%w: %s", ErrNotBound, m.name)
	}
	m.req = req
	if err := m.rights(EDIT, req); err != nil {
		return false, err
	}

	values, err := decode(data)
	if err != nil {
		return false, err
	}
	if _, _, err = m.checkForm(values, true); err != nil {
		return false, err
	}
	if err = m.checkCollections(values, true); err != nil {
		return false, err
	}
	if m.messages.HasError() {
		return false, nil
	}

	if m.updatedAt != nil {
		m.updatedAt.value = req.now()
	}
	columns, row := m.columnValues(func(a Attribute) bool {
		return !m.isReserved(a) || a == Attribute(m.updatedAt)
	})
	_, err = m.query().Update(m.table).Columns(columns...).Set(row).Where(m.idColumn(), m.idAttr.storage()).Exec()
	if err != nil {
		return false, err
	}
	return true, m.saveTouched()
}

// CheckUserRights reports if the user has the right on the model.
// An owner privacy is checked against the owner attribute of a bound model.
func (m *Model) CheckUserRights(right Right, userID interface{}) bool {
	privacy := m.view
	if right == EDIT {
		privacy = m.edit
	}

	switch privacy {
	case PUBLIC:
		return true
	case LOGIN:
		return !kind.IsNull(userID)
	}

	if kind.IsNull(userID) {
		return false
	}
	if m.owner == nil || m.id == nil {
		return true
	}
	return m.owner.value != nil && key(m.owner.value) == key(userID)
}

// rights returns ErrLoginRequired or ErrPermission if the request has not the right.
func (m *Model) rights(right Right, req Request) error {
	if m.CheckUserRights(right, req.UserID) {
		return nil
	}
	if kind.IsNull(req.UserID) {
		return ErrLoginRequired
	}
	return fmt.Errorf("%w: %s %v", ErrPermission, m.name, m.id)
}

// StartQuery returns a select on the model table.
// The owner filter of an owner privacy and the soft delete filter are added.
func (m *Model) StartQuery(req Request) (query.Select, error) {
	if err := m.isInit(); err != nil {
		return nil, err
	}
	if m.view != PUBLIC && kind.IsNull(req.UserID) {
		return nil, ErrLoginRequired
	}

	sel := m.query().Select(m.table).Columns(m.columns()...)
	if m.view == OWNER && m.owner != nil {
		user, err := m.owner.kind.Parse(req.UserID, req.location())
		if err != nil {
			return nil, fmt.Errorf("orm: %s owner: %w", m.name, err)
		}
		sel.Where(m.owner.column, m.owner.kind.Value(user))
	}
	if m.deletedAt != nil {
		sel.Where(m.deletedAt.column, nil)
	}
	return sel, nil
}

// Find loads the entity with the given id and binds the model.
// ErrNotFound will return if no visible row exists.
func (m *Model) Find(req Request, id interface{}) error {
	if err := m.isInit(); err != nil {
		return err
	}
	m.req = req
	pid, err := m.idAttr.kind.Parse(id, req.location())
	if err != nil {
		return fmt.Errorf("orm: %s: %w", m.name, err)
	}
	if pid == nil {
		return fmt.Errorf("%w: %s %v", ErrNotFound, m.name, id)
	}

	sel, err := m.StartQuery(req)
	if err != nil {
		return err
	}
	row, err := sel.Where(m.idColumn(), m.idAttr.kind.Value(pid)).First()
	if err != nil {
		if errors.Is(err, query.ErrNoRows) {
			return fmt.Errorf("%w: %s %v", ErrNotFound, m.name, id)
		}
		return err
	}
	return m.hydrate(row)
}

// filter returns the select with the filter predicates.
// The keys are attribute names, slice values are rendered as IN.
func (m *Model) filter(req Request, filters map[string]interface{}, mode Mode) (query.Select, error) {
	sel, err := m.StartQuery(req)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return sel, nil
	}

	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	predicates := make([]condition.Predicate, 0, len(names))
	for _, name := range names {
		a, ok := m.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, m.name, name)
		}
		if _, ok = a.columnValue(); !ok {
			return nil, fmt.Errorf("%w: %s.%s has no column", ErrUnknownAttribute, m.name, name)
		}

		p := condition.Predicate{Column: a.Column(), Operator: condition.EQ, Value: m.filterValue(a, filters[name])}
		if list, ok := p.Value.([]interface{}); ok {
			p.Operator = condition.IN
			p.Value = list
		}
		predicates = append(predicates, p)
	}

	inner := condition.AND
	if mode == MatchAny {
		inner = condition.OR
	}
	return sel.WhereGroup(inner, condition.AND, predicates...), nil
}

// filterValue converts the filter value into the storage value of the attribute.
// Values which can not be converted are used as they are.
func (m *Model) filterValue(a Attribute, v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if v != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		if s, ok := a.(*Scalar); ok && s.kind.Name() == kind.LIST {
			return m.storageValue(a, v)
		}
		list := make([]interface{}, rv.Len())
		for i := range list {
			list[i] = m.storageValue(a, rv.Index(i).Interface())
		}
		return list
	}
	return m.storageValue(a, v)
}

func (m *Model) storageValue(a Attribute, v interface{}) interface{} {
	loc := m.req.location()
	switch x := a.(type) {
	case *Scalar:
		if native, err := x.kind.Parse(v, loc); err == nil {
			if native == nil {
				return nil
			}
			return x.kind.Value(native)
		}
	case *Link:
		if id, err := x.idKind.Parse(v, loc); err == nil {
			return x.storageID(id)
		}
	}
	return v
}

// Query returns all visible entities which match the filters.
// The keys of the filters are attribute names.
func (m *Model) Query(req Request, filters map[string]interface{}, mode Mode) ([]Interface, error) {
	m.req = req
	sel, err := m.filter(req, filters, mode)
	if err != nil {
		return nil, err
	}
	rows, err := sel.All()
	if err != nil {
		return nil, err
	}

	rv := make([]Interface, 0, len(rows))
	for _, row := range rows {
		e, err := newInstance(m.caller)
		if err != nil {
			return nil, err
		}
		e.model().req = req
		e.model().tx = m.tx
		if err = e.model().hydrate(row); err != nil {
			return nil, err
		}
		rv = append(rv, e)
	}
	return rv, nil
}

// List returns all visible entities.
func (m *Model) List(req Request) ([]Interface, error) {
	return m.Query(req, nil, MatchAll)
}

// Count returns the number of visible entities which match all filters.
func (m *Model) Count(req Request, filters map[string]interface{}) (int64, error) {
	m.req = req
	sel, err := m.filter(req, filters, MatchAll)
	if err != nil {
		return 0, err
	}
	return sel.Count()
}

// Delete the bound entity.
// If the model has a soft delete, deleted_at is set. With force or without soft delete the row is removed.
// Link targets and junction rows are not touched.
func (m *Model) Delete(req Request, force bool) error {
	if err := m.isInit(); err != nil {
		return err
	}
	if m.id == nil {
		return fmt.Errorf("%w: %s", ErrNotBound, m.name)
	}
	m.req = req
	if err := m.rights(EDIT, req); err != nil {
		return err
	}

	if m.deletedAt != nil && !force {
		m.deletedAt.value = req.now()
		return m.deletedAt.Save()
	}
	_, err := m.query().Delete(m.table).Where(m.idColumn(), m.idAttr.storage()).Exec()
	return err
}

// ToArray returns the values of all attributes by name.
// If native is false, the external format is used.
func (m *Model) ToArray(native bool) map[string]interface{} {
	rv := make(map[string]interface{}, len(m.attributes))
	for _, a := range m.attributes {
		rv[a.Name()] = a.Get(native)
	}
	return rv
}

// Fetch loads the given attributes of the bound model.
// Without names, all links and link through attributes are loaded.
func (m *Model) Fetch(names ...string) error {
	if err := m.isInit(); err != nil {
		return err
	}
	if m.id == nil {
		return fmt.Errorf("%w: %s", ErrNotBound, m.name)
	}

	if len(names) == 0 {
		for _, a := range m.attributes {
			switch a.(type) {
			case *Link, *LinkThrough:
				names = append(names, a.Name())
			}
		}
	}

	for _, name := range names {
		a, ok := m.index[name]
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, m.name, name)
		}
		if err := a.Load(m.id); err != nil {
			return err
		}
	}
	return nil
}
