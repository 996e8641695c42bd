// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kind

import (
	"strings"
	"time"

	"github.com/patrickascher/relmap/query/types"
)

// Layouts of the date and datetime kind.
const (
	DateFormat        = "02/01/2006"
	DateTimeFormat    = "02/01/2006 15:04:05"
	DateStorage       = "2006-01-02"
	DateTimeStorage   = "2006-01-02 15:04:05"
	dateTimeShort     = "02/01/2006 15:04"
	dateTimeISOShort  = "2006-01-02 15:04"
	dateTimeISOLetter = "2006-01-02T15:04:05"
)

// layouts which are accepted as user input.
// Layouts with a zone are converted into the location.
var (
	zoneLayouts = []string{time.RFC3339Nano, time.RFC3339}
	dayLayouts  = []string{DateStorage, DateFormat}
	timeLayouts = []string{DateTimeStorage, dateTimeISOLetter, dateTimeISOShort, DateTimeFormat, dateTimeShort}
)

// parseTime parses the value in the location.
// Date layouts are accepted as midnight.
func parseTime(v interface{}, loc *time.Location) (time.Time, bool) {
	loc = location(loc)
	if t, ok := v.(time.Time); ok {
		return t.In(loc), true
	}
	if t, ok := v.(*time.Time); ok && t != nil {
		return t.In(loc), true
	}

	s, ok := str(v)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range zoneLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range append(timeLayouts, dayLayouts...) {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// midnight of the day in the location.
func midnight(t time.Time, loc *time.Location) time.Time {
	loc = location(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

type dateKind struct{}

func (dateKind) Name() string     { return DATE }
func (dateKind) SQLType() string  { return "DATE" }
func (dateKind) BindKind() string { return types.BindString }

// Parse returns the midnight of the day in the location.
func (k dateKind) Parse(v interface{}, loc *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	t, ok := parseTime(v, loc)
	if !ok {
		return nil, invalid(k, v)
	}
	return midnight(t, loc), nil
}

// Format returns the date as dd/mm/yyyy.
func (dateKind) Format(native interface{}, loc *time.Location) interface{} {
	if t, ok := native.(time.Time); ok {
		return t.In(location(loc)).Format(DateFormat)
	}
	return native
}

// Value returns the day as yyyy-mm-dd.
// A date has no time, so it is not converted to UTC.
func (dateKind) Value(native interface{}) interface{} {
	if t, ok := native.(time.Time); ok {
		return t.Format(DateStorage)
	}
	return native
}

// Scan reads the day in the location.
func (k dateKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	if IsNull(src) {
		return nil, nil
	}
	if t, ok := src.(time.Time); ok {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, location(loc)), nil
	}
	s, ok := str(src)
	if !ok {
		return nil, invalid(k, src)
	}
	s = strings.TrimSpace(s)
	if len(s) > len(DateStorage) {
		s = s[:len(DateStorage)]
	}
	t, err := time.ParseInLocation(DateStorage, s, location(loc))
	if err != nil {
		return nil, invalid(k, src)
	}
	return t, nil
}

type dateTimeKind struct{}

func (dateTimeKind) Name() string     { return DATETIME }
func (dateTimeKind) SQLType() string  { return "DATETIME" }
func (dateTimeKind) BindKind() string { return types.BindString }

// Parse returns the time in the location, without fraction of seconds.
func (k dateTimeKind) Parse(v interface{}, loc *time.Location) (interface{}, error) {
	if IsNull(v) {
		return nil, nil
	}
	t, ok := parseTime(v, loc)
	if !ok {
		return nil, invalid(k, v)
	}
	return t.Truncate(time.Second), nil
}

// Format returns the time as dd/mm/yyyy hh:mm:ss in the location.
func (dateTimeKind) Format(native interface{}, loc *time.Location) interface{} {
	if t, ok := native.(time.Time); ok {
		return t.In(location(loc)).Format(DateTimeFormat)
	}
	return native
}

// Value returns the UTC time as yyyy-mm-dd hh:mm:ss.
func (dateTimeKind) Value(native interface{}) interface{} {
	if t, ok := native.(time.Time); ok {
		return t.UTC().Format(DateTimeStorage)
	}
	return native
}

// Scan reads a UTC time and converts it into the location.
func (k dateTimeKind) Scan(src interface{}, loc *time.Location) (interface{}, error) {
	if IsNull(src) {
		return nil, nil
	}
	if t, ok := src.(time.Time); ok {
		return t.In(location(loc)), nil
	}
	s, ok := str(src)
	if !ok {
		return nil, invalid(k, src)
	}
	t, err := time.ParseInLocation(DateTimeStorage, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil, invalid(k, src)
	}
	return t.In(location(loc)), nil
}
