// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

// Option of an attribute declaration.
type Option func(*options)

// discriminator column and value of a polymorphic junction table.
type discriminator struct {
	Column string
	Value  string
}

// options of all attribute types.
// Options which do not belong to the attribute type are ignored.
type options struct {
	required     bool
	defaultValue interface{}
	column       string

	target       string
	targetTable  string
	targetID     string
	targetIDKind string
	inversed     bool

	junction            string
	sourceColumn        string
	targetColumn        string
	sourceDiscriminator discriminator
	targetDiscriminator discriminator
}

// newOptions applies all options.
func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Required marks the attribute as mandatory.
func Required() Option {
	return func(o *options) { o.required = true }
}

// Default value of a required attribute, which is used if the attribute is null on create.
func Default(v interface{}) Option {
	return func(o *options) { o.defaultValue = v }
}

// Column sets the column name.
// For links it is the foreign key column, in the target table if the link is inversed.
func Column(name string) Option {
	return func(o *options) { o.column = name }
}

// TargetKind sets the registered model kind of a link.
// By default the camel case singular of the attribute name is used.
func TargetKind(name string) Option {
	return func(o *options) { o.target = name }
}

// TargetTable sets a raw table as link target.
// The id kind is optional and defaults to kind.ID.
func TargetTable(table string, idColumn string, idKind ...string) Option {
	return func(o *options) {
		o.targetTable = table
		o.targetID = idColumn
		if len(idKind) > 0 {
			o.targetIDKind = idKind[0]
		}
	}
}

// Inversed defines that the foreign key lives in the target table.
func Inversed() Option {
	return func(o *options) { o.inversed = true }
}

// Junction sets the junction table of a link through.
func Junction(table string) Option {
	return func(o *options) { o.junction = table }
}

// SourceColumn sets the junction column of the declaring model.
func SourceColumn(name string) Option {
	return func(o *options) { o.sourceColumn = name }
}

// TargetColumn sets the junction column of the target.
func TargetColumn(name string) Option {
	return func(o *options) { o.targetColumn = name }
}

// SourceDiscriminator sets a junction column and value which identifies the declaring model kind.
func SourceDiscriminator(column string, value string) Option {
	return func(o *options) { o.sourceDiscriminator = discriminator{Column: column, Value: value} }
}

// TargetDiscriminator sets a junction column and value which identifies the target kind.
func TargetDiscriminator(column string, value string) Option {
	return func(o *options) { o.targetDiscriminator = discriminator{Column: column, Value: value} }
}
