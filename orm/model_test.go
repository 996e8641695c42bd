// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/patrickascher/relmap/kind"
	"github.com/patrickascher/relmap/orm"
	"github.com/patrickascher/relmap/query"
	_ "github.com/patrickascher/relmap/query/mysql"
	"github.com/patrickascher/relmap/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type User struct {
	orm.Model
}

func (u *User) Declare(d *orm.Declaration) {
	d.ID(kind.ID)
	d.Char("name", orm.Required())
	d.Email("email")
	d.Int("age", orm.Required(), orm.Default(18))
	d.Link("role")
	d.Link("posts", orm.Inversed())
	d.LinkThrough("tags")
	d.Timestamps()
	d.SoftDelete()
}

type Role struct {
	orm.Model
}

func (r *Role) Declare(d *orm.Declaration) {
	d.ID(kind.ID)
	d.Char("name", orm.Required())
}

type Post struct {
	orm.Model
}

func (p *Post) Declare(d *orm.Declaration) {
	d.ID(kind.ID)
	d.Char("title")
	d.Link("user")
}

type Tag struct {
	orm.Model
}

func (t *Tag) Declare(d *orm.Declaration) {
	d.ID(kind.ID)
	d.Char("name")
}

type Note struct {
	orm.Model
}

func (n *Note) Declare(d *orm.Declaration) {
	d.ID(kind.UUID)
	d.Owner("user_id")
	d.Privacy(orm.OWNER, orm.OWNER)
	d.Text("body")
}

// Doc shares the taggables junction with other kinds.
type Doc struct {
	orm.Model
}

func (d *Doc) Declare(decl *orm.Declaration) {
	decl.ID(kind.ID)
	decl.Char("title")
	decl.LinkThrough("tags", orm.Junction("taggables"), orm.SourceColumn("taggable_id"),
		orm.SourceDiscriminator("taggable_type", "doc"), orm.TargetDiscriminator("tag_type", "tag"))
}

func init() {
	for name, factory := range map[string]orm.Factory{
		"Doc":  func() orm.Interface { return &Doc{} },
		"User": func() orm.Interface { return &User{} },
		"Role": func() orm.Interface { return &Role{} },
		"Post": func() orm.Interface { return &Post{} },
		"Tag":  func() orm.Interface { return &Tag{} },
		"Note": func() orm.Interface { return &Note{} },
	} {
		if err := orm.Register(name, factory); err != nil {
			panic(err)
		}
	}
}

const userColumns = "`id`, `name`, `email`, `age`, `role_id`, `created_at`, `updated_at`, `deleted_at`"

var now = time.Date(2021, 5, 1, 10, 0, 0, 0, time.UTC)

// newMock sets a mysql builder on a sqlmock connection as default builder.
func newMock(t *testing.T, matcher sqlmock.QueryMatcher) sqlmock.Sqlmock {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := query.NewFromDB("mysql", query.Config{Provider: "mysql", Database: "test"}, db)
	require.NoError(t, err)
	orm.SetDefaultBuilder(b)
	return mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "age", "role_id", "created_at", "updated_at", "deleted_at"}).
		AddRow(7, "John", "john@example.com", 18, 2, "2021-05-01 10:00:00", "2021-05-01 10:00:00", nil)
}

// findUser expects the select of the user with the id 7 and returns the loaded user.
func findUser(t *testing.T, mock sqlmock.Sqlmock) orm.Interface {
	mock.ExpectQuery("SELECT " + userColumns + " FROM `users` WHERE `deleted_at` IS NULL AND `id` = ? LIMIT 1").
		WithArgs(7).WillReturnRows(userRows())
	u, err := orm.Find(orm.Request{Now: now}, "User", 7)
	require.NoError(t, err)
	return u
}

// TestInit tests:
// - the default table name and the resolved link defaults.
// - the declaration errors are returned by Init.
// - a missing builder returns an error.
func TestInit(t *testing.T) {
	asserts := assert.New(t)
	newMock(t, sqlmock.QueryMatcherEqual)

	m, err := orm.New("User")
	asserts.NoError(err)
	asserts.Equal("users", m.Table())
	asserts.Nil(m.ID())

	role, ok := m.Attribute("role")
	asserts.True(ok)
	asserts.Equal("role_id", role.Column())
	posts, _ := m.Attribute("posts")
	asserts.Equal("user_id", posts.Column())
	tags, _ := m.Attribute("tags")
	asserts.Equal("users_tags", tags.(*orm.LinkThrough).Junction())

	_, ok = m.Attribute("unknown")
	asserts.False(ok)

	// error: duplicate attribute
	dup := &duplicate{}
	asserts.True(errors.Is(dup.Init(dup), orm.ErrDuplicateAttribute))

	// error: no id
	noID := &withoutID{}
	asserts.True(errors.Is(noID.Init(noID), orm.ErrID))

	// error: required id
	reqID := &requiredID{}
	asserts.True(errors.Is(reqID.Init(reqID), orm.ErrIDRequired))

	// error: unknown model kind
	_, err = orm.New("Unknown")
	asserts.Error(err)

	// error: no builder
	orm.SetDefaultBuilder(nil)
	_, err = orm.New("Role")
	asserts.Error(err)
}

type duplicate struct{ orm.Model }

func (d *duplicate) Declare(decl *orm.Declaration) {
	decl.ID(kind.ID)
	decl.Char("name")
	decl.Text("name")
}

type withoutID struct{ orm.Model }

func (w *withoutID) Declare(decl *orm.Declaration) {
	decl.Char("name")
}

type requiredID struct{ orm.Model }

func (r *requiredID) Declare(decl *orm.Declaration) {
	decl.ID(kind.ID, orm.Required())
}

// TestModel_Create tests:
// - the raw foreign key is looked up and the link through ids are looked up in one query.
// - one insert in declaration order with the default value and the timestamps.
// - the junction rows are inserted with one statement.
// - the default value adds an info message.
func TestModel_Create(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)

	mock.ExpectQuery("SELECT `id` FROM `roles` WHERE `id` IN (?)").WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("SELECT `id` FROM `tags` WHERE `id` IN (?, ?)").WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec("INSERT INTO `users` (`name`, `email`, `age`, `role_id`, `created_at`, `updated_at`, `deleted_at`) VALUES (?, ?, ?, ?, ?, ?, ?)").
		WithArgs("John", "john@example.com", 18, 2, "2021-05-01 10:00:00", "2021-05-01 10:00:00", nil).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT `tag_id` FROM `users_tags` WHERE `user_id` = ?").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}))
	mock.ExpectExec("INSERT INTO `users_tags` (`user_id`, `tag_id`) VALUES (?, ?), (?, ?)").WithArgs(7, 1, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))

	u, err := orm.New("User")
	asserts.NoError(err)
	ok, err := u.Create(orm.Request{Now: now}, map[string]interface{}{
		"name":    "John",
		"email":   "john@example.com",
		"role_id": 2,
		"tags":    []int{1, 2},
	})
	asserts.NoError(err)
	asserts.True(ok)
	asserts.Equal(int64(7), u.ID())

	values := u.ToArray(false)
	asserts.Equal("John", values["name"])
	asserts.Equal(int64(18), values["age"])
	asserts.Equal(int64(2), values["role"])
	asserts.Equal([]interface{}{int64(1), int64(2)}, values["tags"])

	msgs := u.Messages()
	asserts.Equal(1, len(msgs[orm.AllMessages]))
	asserts.Equal(orm.INFO, msgs["age"][0].Severity)
	asserts.Equal(translation.DefaultValueUsed, msgs["age"][0].Code)
	asserts.False(msgs.HasError())

	// error: already bound
	_, err = u.Create(orm.Request{}, nil)
	asserts.True(errors.Is(err, orm.ErrBound))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestModel_CheckForm tests:
// - a required attribute without default adds an error.
// - a char longer than 255 characters adds an error, 255 characters are valid.
// - an invalid value adds a type error and no values are returned.
// - a missing link target adds a relation-not-found error.
// - nothing is written if the form is not valid.
// - the messages are encoded as arrays.
func TestModel_CheckForm(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)

	u, err := orm.New("User")
	asserts.NoError(err)
	user := u.(*User)

	// required
	ok, err := u.Create(orm.Request{}, map[string]interface{}{})
	asserts.NoError(err)
	asserts.False(ok)
	asserts.Equal(translation.AttributeRequired, u.Messages()["name"][0].Code)
	asserts.Equal(orm.ERROR, u.Messages()["name"][0].Severity)

	// length boundary
	values, ok, err := user.CheckForm(orm.Request{}, map[string]interface{}{"name": strings.Repeat("a", 255)}, false)
	asserts.NoError(err)
	asserts.True(ok)
	asserts.Equal(strings.Repeat("a", 255), values["name"])
	_, ok, err = user.CheckForm(orm.Request{}, map[string]interface{}{"name": strings.Repeat("ä", 256)}, false)
	asserts.NoError(err)
	asserts.False(ok)

	// type
	values, ok, err = user.CheckForm(orm.Request{}, map[string]interface{}{"name": "John", "age": "abc", "email": "no-mail"}, false)
	asserts.NoError(err)
	asserts.False(ok)
	asserts.Nil(values)
	asserts.Equal(translation.AttributeType, u.Messages()["age"][0].Code)
	asserts.Equal(translation.AttributeType, u.Messages()["email"][0].Code)
	asserts.Equal(2, len(u.Messages()[orm.AllMessages]))

	// relation not found
	mock.ExpectQuery("SELECT `id` FROM `roles` WHERE `id` IN (?)").WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	ok, err = u.Create(orm.Request{}, map[string]interface{}{"name": "John", "role_id": 99})
	asserts.NoError(err)
	asserts.False(ok)
	asserts.Equal(translation.RelationNotFound, u.Messages()["role"][0].Code)
	asserts.Nil(u.ID())

	// json
	b, err := json.Marshal(u.Messages())
	asserts.NoError(err)
	asserts.Contains(string(b), `"role":[["error","relation-not-found",`)

	// struct input
	input := struct {
		Name string `orm:"name"`
		Age  int
	}{Name: "Jane", Age: 30}
	values, ok, err = user.CheckForm(orm.Request{}, input, false)
	asserts.NoError(err)
	asserts.True(ok)
	asserts.Equal("Jane", values["name"])
	asserts.Equal(int64(30), values["age"])

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestModel_Update tests:
// - Find loads the columns of the model row.
// - one update of the model row with updated_at.
// - the inversed link sets the foreign key of the added row and clears the one of the removed row.
// - unchanged target rows are not touched.
// - a missing required value keeps the old value with a warning.
func TestModel_Update(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)
	u := findUser(t, mock)
	asserts.Equal(int64(7), u.ID())
	asserts.Equal("John", u.ToArray(false)["name"])

	later := now.Add(time.Hour)
	mock.ExpectQuery("SELECT `id` FROM `roles` WHERE `id` IN (?)").WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("SELECT `id` FROM `posts` WHERE `id` IN (?, ?, ?)").WithArgs(2, 3, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3).AddRow(4))
	mock.ExpectExec("UPDATE `users` SET `name` = ?, `email` = ?, `age` = ?, `role_id` = ?, `updated_at` = ? WHERE `id` = ?").
		WithArgs("John", "john@example.com", 20, 2, "2021-05-01 11:00:00", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT `id` FROM `posts` WHERE `user_id` = ?").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectExec("UPDATE `posts` SET `user_id` = ? WHERE `id` = ?").WithArgs(7, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `posts` SET `user_id` = ? WHERE `id` = ? AND `user_id` = ?").WithArgs(nil, 1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := u.Update(orm.Request{Now: later}, map[string]interface{}{
		"name":    "",
		"email":   "john@example.com",
		"age":     20,
		"role_id": 2,
		"posts":   []int{2, 3, 4},
	})
	asserts.NoError(err)
	asserts.True(ok)
	asserts.Equal(orm.WARNING, u.Messages()["name"][0].Severity)
	asserts.Equal(translation.OldValueUsed, u.Messages()["name"][0].Code)
	asserts.Equal([]interface{}{int64(2), int64(3), int64(4)}, u.ToArray(false)["posts"])

	// error: not bound
	n, err := orm.New("User")
	asserts.NoError(err)
	_, err = n.Update(orm.Request{}, nil)
	asserts.True(errors.Is(err, orm.ErrNotBound))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestLinkThrough tests:
// - Fetch reads the junction ids and loads the targets with one IN query in junction order.
// - Update inserts the missing pair and deletes the removed pair only.
// - AddLink inserts a pair which does not exist yet.
// - RemoveLink deletes one pair.
func TestLinkThrough(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)
	u := findUser(t, mock)

	mock.ExpectQuery("SELECT `tag_id` FROM `users_tags` WHERE `user_id` = ?").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow(2).AddRow(1))
	mock.ExpectQuery("SELECT * FROM `tags` WHERE `id` IN (?, ?)").WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "go").AddRow(2, "sql"))
	asserts.NoError(u.Fetch("tags"))

	tags, _ := u.Attribute("tags")
	targets := tags.Get(true).(*orm.Targets)
	asserts.Equal([]interface{}{int64(2), int64(1)}, targets.IDs())
	tag := targets.First().(orm.Resolved).Entity
	asserts.Equal("sql", tag.ToArray(false)["name"])

	// reconcile
	mock.ExpectQuery("SELECT `id` FROM `tags` WHERE `id` IN (?, ?)").WithArgs(2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3))
	mock.ExpectQuery("SELECT `tag_id` FROM `users_tags` WHERE `user_id` = ?").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow(2).AddRow(1))
	mock.ExpectExec("INSERT INTO `users_tags` (`user_id`, `tag_id`) VALUES (?, ?)").WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `users_tags` WHERE `user_id` = ? AND `tag_id` = ?").WithArgs(7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.True(tags.Update([]int{2, 3}))
	asserts.NoError(tags.Save())

	// add and remove a single link
	lt := tags.(*orm.LinkThrough)
	mock.ExpectQuery("SELECT `id` FROM `tags` WHERE `id` IN (?)").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery("SELECT COUNT(*) FROM `users_tags` WHERE `user_id` = ? AND `tag_id` = ?").WithArgs(7, 5).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `users_tags` (`user_id`, `tag_id`) VALUES (?, ?)").WithArgs(7, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(lt.AddLink(5))
	asserts.True(lt.Get(true).(*orm.Targets).Has(int64(5)))

	mock.ExpectExec("DELETE FROM `users_tags` WHERE `user_id` = ? AND `tag_id` = ?").WithArgs(7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(lt.RemoveLink(2))
	asserts.False(lt.Get(true).(*orm.Targets).Has(int64(2)))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestLinkThrough_Discriminator tests:
// - Fetch, reconcile, AddLink and RemoveLink are scoped by the source id and both discriminators.
// - the discriminator values are inserted with every junction row.
// - AddLink does not insert an existing pair.
func TestLinkThrough_Discriminator(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)

	mock.ExpectQuery("SELECT `id`, `title` FROM `docs` WHERE `id` = ? LIMIT 1").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(3, "manual"))
	d, err := orm.Find(orm.Request{Now: now}, "Doc", 3)
	require.NoError(t, err)

	const scope = "`taggable_id` = ? AND `taggable_type` = ? AND `tag_type` = ?"

	// fetch
	mock.ExpectQuery("SELECT `tag_id` FROM `taggables` WHERE "+scope).WithArgs(3, "doc", "tag").
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow(1).AddRow(2))
	mock.ExpectQuery("SELECT * FROM `tags` WHERE `id` IN (?, ?)").WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "go").AddRow(2, "sql"))
	asserts.NoError(d.Fetch("tags"))
	tags, _ := d.Attribute("tags")
	lt := tags.(*orm.LinkThrough)
	asserts.Equal("taggables", lt.Junction())
	asserts.Equal([]interface{}{int64(1), int64(2)}, lt.Get(false))

	// reconcile
	mock.ExpectQuery("SELECT `id` FROM `tags` WHERE `id` IN (?, ?)").WithArgs(1, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(5))
	mock.ExpectQuery("SELECT `tag_id` FROM `taggables` WHERE "+scope).WithArgs(3, "doc", "tag").
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow(1).AddRow(2))
	mock.ExpectExec("INSERT INTO `taggables` (`taggable_id`, `tag_id`, `taggable_type`, `tag_type`) VALUES (?, ?, ?, ?)").
		WithArgs(3, 5, "doc", "tag").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `taggables` WHERE "+scope+" AND `tag_id` = ?").WithArgs(3, "doc", "tag", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.True(lt.Update([]int{1, 5}))
	asserts.NoError(lt.Save())

	// add a missing pair
	mock.ExpectQuery("SELECT `id` FROM `tags` WHERE `id` IN (?)").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("SELECT COUNT(*) FROM `taggables` WHERE "+scope+" AND `tag_id` = ?").WithArgs(3, "doc", "tag", 7).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `taggables` (`taggable_id`, `tag_id`, `taggable_type`, `tag_type`) VALUES (?, ?, ?, ?)").
		WithArgs(3, 7, "doc", "tag").WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(lt.AddLink(7))

	// an existing pair is not inserted again
	mock.ExpectQuery("SELECT `id` FROM `tags` WHERE `id` IN (?)").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT(*) FROM `taggables` WHERE "+scope+" AND `tag_id` = ?").WithArgs(3, "doc", "tag", 1).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	asserts.NoError(lt.AddLink(1))

	// remove
	mock.ExpectExec("DELETE FROM `taggables` WHERE "+scope+" AND `tag_id` = ?").WithArgs(3, "doc", "tag", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(lt.RemoveLink(5))
	asserts.Equal([]interface{}{int64(1), int64(7)}, lt.Get(false))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestLink tests:
// - Fetch of a non inversed link reads the foreign key and loads the target.
// - RemoveLink clears the foreign key with updated_at.
// - Fetch of an inversed link selects the target rows by foreign key.
func TestLink(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)
	u := findUser(t, mock)

	role, _ := u.Attribute("role")
	asserts.Equal(int64(2), role.(*orm.Link).TargetID())

	mock.ExpectQuery("SELECT `role_id` FROM `users` WHERE `id` = ? LIMIT 1").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"role_id"}).AddRow(2))
	mock.ExpectQuery("SELECT * FROM `roles` WHERE `id` = ? LIMIT 1").WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "admin"))
	mock.ExpectQuery("SELECT * FROM `posts` WHERE `user_id` = ?").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).AddRow(1, "first", 7).AddRow(2, "second", 7))
	asserts.NoError(u.Fetch("role", "posts"))

	entity := role.Get(true).(orm.Resolved).Entity
	asserts.Equal("admin", entity.ToArray(false)["name"])
	posts, _ := u.Attribute("posts")
	asserts.Equal(2, posts.Get(true).(*orm.Targets).Len())

	mock.ExpectExec("UPDATE `users` SET `role_id` = ?, `updated_at` = ? WHERE `id` = ?").WithArgs(nil, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(role.(*orm.Link).RemoveLink(nil, false))
	asserts.Nil(role.(*orm.Link).TargetID())

	// error: unknown attribute
	asserts.True(errors.Is(u.Fetch("unknown"), orm.ErrUnknownAttribute))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestModel_Delete tests:
// - a soft delete sets deleted_at and updated_at.
// - force removes the row.
func TestModel_Delete(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)
	u := findUser(t, mock)

	mock.ExpectExec("UPDATE `users` SET `deleted_at` = ?, `updated_at` = ? WHERE `id` = ?").
		WithArgs("2021-05-01 10:00:00", "2021-05-01 10:00:00", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(u.Delete(orm.Request{Now: now}, false))

	mock.ExpectExec("DELETE FROM `users` WHERE `id` = ?").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	asserts.NoError(u.Delete(orm.Request{Now: now}, true))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestModel_Query tests:
// - the filters are sorted by name and linked by AND or OR.
// - slice values are rendered as IN.
// - Count has no limit, List the default limit.
// - an unknown filter returns an error.
func TestModel_Query(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)

	u, err := orm.New("User")
	asserts.NoError(err)
	m := u.(*User)

	mock.ExpectQuery("SELECT COUNT(*) FROM `users` WHERE `deleted_at` IS NULL AND (`age` IN (?, ?) AND `name` = ?)").
		WithArgs(18, 20, "John").WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))
	count, err := m.Count(orm.Request{}, map[string]interface{}{"name": "John", "age": []int{18, 20}})
	asserts.NoError(err)
	asserts.Equal(int64(3), count)

	mock.ExpectQuery("SELECT " + userColumns + " FROM `users` WHERE `deleted_at` IS NULL AND (`age` = ? OR `name` = ?) LIMIT 1000").
		WithArgs(18, "John").WillReturnRows(userRows())
	list, err := m.Query(orm.Request{}, map[string]interface{}{"name": "John", "age": 18}, orm.MatchAny)
	asserts.NoError(err)
	asserts.Equal(1, len(list))
	asserts.Equal(int64(7), list[0].ID())

	mock.ExpectQuery("SELECT " + userColumns + " FROM `users` WHERE `deleted_at` IS NULL LIMIT 1000").
		WillReturnRows(userRows())
	list, err = m.List(orm.Request{})
	asserts.NoError(err)
	asserts.Equal(1, len(list))

	_, err = m.Count(orm.Request{}, map[string]interface{}{"unknown": 1})
	asserts.True(errors.Is(err, orm.ErrUnknownAttribute))

	// error: not found
	mock.ExpectQuery("SELECT " + userColumns + " FROM `users` WHERE `deleted_at` IS NULL AND `id` = ? LIMIT 1").
		WithArgs(8).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = orm.Find(orm.Request{}, "User", 8)
	asserts.True(errors.Is(err, orm.ErrNotFound))

	asserts.NoError(mock.ExpectationsWereMet())
}

// TestModel_Privacy tests:
// - an owner privacy requires a login.
// - the owner is stamped on create and the uuid is generated.
// - the owner filter is added to the query.
// - CheckUserRights compares the owner.
func TestModel_Privacy(t *testing.T) {
	asserts := assert.New(t)
	mock := newMock(t, sqlmock.QueryMatcherEqual)

	n, err := orm.New("Note")
	asserts.NoError(err)
	note := n.(*Note)

	_, err = note.StartQuery(orm.Request{})
	asserts.True(errors.Is(err, orm.ErrLoginRequired))
	_, err = note.Create(orm.Request{}, nil)
	asserts.True(errors.Is(err, orm.ErrLoginRequired))

	mock.ExpectExec("INSERT INTO `notes` (`id`, `user_id`, `body`) VALUES (?, ?, ?)").
		WithArgs(sqlmock.AnyArg(), 5, "hello").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := note.Create(orm.Request{UserID: 5}, map[string]interface{}{"body": "hello"})
	asserts.NoError(err)
	asserts.True(ok)
	asserts.Equal(36, len(note.ID().(string)))

	asserts.True(note.CheckUserRights(orm.EDIT, 5))
	asserts.False(note.CheckUserRights(orm.EDIT, 6))
	asserts.False(note.CheckUserRights(orm.VIEW, nil))

	sel, err := note.StartQuery(orm.Request{UserID: 5})
	asserts.NoError(err)
	stmt, err := sel.String()
	asserts.NoError(err)
	asserts.Equal("SELECT `id`, `user_id`, `body` FROM `notes` WHERE `user_id` = ? LIMIT 1000", stmt.SQL)

	// error: permission
	asserts.True(errors.Is(note.Delete(orm.Request{UserID: 6}, false), orm.ErrPermission))

	asserts.NoError(mock.ExpectationsWereMet())
}
