// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import "time"

// DefaultLimit of a select if no limit was set.
const DefaultLimit = 1000

// Config sql struct.
type Config struct {
	Provider string

	Username string
	Password string
	Host     string
	Port     int
	Database string

	MaxIdleConnections int
	MaxOpenConnections int
	MaxConnLifetime    time.Duration
	Timeout            string

	PreQuery []string

	// DefaultLimit of a select without limit, zero means DefaultLimit and a negative value disables it.
	DefaultLimit int
}

// Limit returns the default select limit.
// Zero is returned if the limit is disabled.
func (c Config) Limit() int {
	switch {
	case c.DefaultLimit == 0:
		return DefaultLimit
	case c.DefaultLimit < 0:
		return 0
	}
	return c.DefaultLimit
}
