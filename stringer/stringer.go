// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stringer provides the naming conventions of the mapper.
// Tables are plural snake case, foreign keys are the singular snake name with an "_id" suffix and
// junction tables join both table names with an underscore.
package stringer

import (
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/serenize/snaker"
)

// CamelToSnake of the given string.
func CamelToSnake(s string) string {
	return snaker.CamelToSnake(s)
}

// SnakeToCamel of the given string.
func SnakeToCamel(s string) string {
	return snaker.SnakeToCamel(s)
}

// Plural of the given string.
func Plural(s string) string {
	return inflection.Plural(s)
}

// Singular of the given string.
func Singular(s string) string {
	return inflection.Singular(s)
}

// TableName returns the default table of a model kind.
//		TableName("BlogPost") // blog_posts
func TableName(kind string) string {
	return Plural(CamelToSnake(kind))
}

// ForeignKey returns the default foreign key column for a table or kind.
//		ForeignKey("blog_posts") // blog_post_id
func ForeignKey(name string) string {
	return Singular(CamelToSnake(name)) + "_id"
}

// JunctionTable returns the default junction table name between the source and target table.
//		JunctionTable("articles", "tags") // articles_tags
func JunctionTable(source string, target string) string {
	return strings.Join([]string{CamelToSnake(source), CamelToSnake(target)}, "_")
}
