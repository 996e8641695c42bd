// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orm

import "time"

// Request carries the caller state of one operation.
// A nil UserID means the caller is not logged in.
type Request struct {
	UserID   interface{}
	Location *time.Location
	Now      time.Time
	Lang     string
}

// location returns the request location or UTC.
func (r Request) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// now returns the request time in the request location, truncated to the second.
func (r Request) now() time.Time {
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(r.location()).Truncate(time.Second)
}
