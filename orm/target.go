// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import "github.com/patrickascher/relmap/query"

// Target of a link.
// It is one of Unresolved, Resolved or Record.
type Target interface {
	TargetID() interface{}
	isTarget()
}

// Unresolved is a target which is only known by its id.
type Unresolved struct {
	ID interface{}
}

// TargetID returns the id.
func (t Unresolved) TargetID() interface{} { return t.ID }
func (Unresolved) isTarget()               {}

// Resolved is a target with the loaded entity.
type Resolved struct {
	Entity Interface
}

// TargetID returns the id of the entity.
func (t Resolved) TargetID() interface{} {
	if t.Entity == nil {
		return nil
	}
	return t.Entity.ID()
}
func (Resolved) isTarget() {}

// Record is a loaded row of a raw target table.
type Record struct {
	ID     interface{}
	Values query.Row
}

// TargetID returns the id.
func (t Record) TargetID() interface{} { return t.ID }
func (Record) isTarget()               {}

// Targets is an ordered map of targets by id.
type Targets struct {
	keys  []string
	items map[string]Target
}

// NewTargets creates a new target map.
func NewTargets(targets ...Target) *Targets {
	t := &Targets{items: make(map[string]Target, len(targets))}
	for _, target := range targets {
		t.Add(target)
	}
	return t
}

// Add a target. An existing target with the same id is replaced at its position.
func (t *Targets) Add(target Target) {
	if target == nil || target.TargetID() == nil {
		return
	}
	k := key(target.TargetID())
	if _, ok := t.items[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.items[k] = target
}

// Get the target by id.
func (t *Targets) Get(id interface{}) (Target, bool) {
	target, ok := t.items[key(id)]
	return target, ok
}

// Has reports if the id exists.
func (t *Targets) Has(id interface{}) bool {
	_, ok := t.items[key(id)]
	return ok
}

// Remove the target by id.
// False will return if the id did not exist.
func (t *Targets) Remove(id interface{}) bool {
	k := key(id)
	if _, ok := t.items[k]; !ok {
		return false
	}
	delete(t.items, k)
	for i, v := range t.keys {
		if v == k {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of targets.
func (t *Targets) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the id keys in order.
func (t *Targets) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// IDs returns the target ids in order.
func (t *Targets) IDs() []interface{} {
	ids := make([]interface{}, 0, t.Len())
	for _, target := range t.All() {
		ids = append(ids, target.TargetID())
	}
	return ids
}

// All returns the targets in order.
func (t *Targets) All() []Target {
	if t == nil {
		return nil
	}
	rv := make([]Target, 0, len(t.keys))
	for _, k := range t.keys {
		rv = append(rv, t.items[k])
	}
	return rv
}

// First returns the first target or nil.
func (t *Targets) First() Target {
	if t.Len() == 0 {
		return nil
	}
	return t.items[t.keys[0]]
}
