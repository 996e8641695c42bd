// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logrus is the logrus provider for the logger package. Its a wrapper for https://github.com/sirupsen/logrus.
// The provider is registered as NAME, its format and output can be changed with Configure.
package logrus

import (
	"io"
	"time"

	"github.com/patrickascher/relmap/logger"
	"github.com/sirupsen/logrus"
)

// NAME of the registered provider.
const NAME = "logrus"

// Formats which are supported by the provider.
const (
	TEXT = "text"
	JSON = "json"
)

// std is the registered provider.
var std = New()

func init() {
	if err := logger.Register(NAME, std); err != nil {
		panic(err)
	}
}

// Options of the provider.
// Empty Format defaults to TEXT, a nil Writer to logrus default (stderr).
type Options struct {
	Format string
	Writer io.Writer
}

// New creates a new logrus provider.
func New(opts ...Options) *provider {
	log := logrus.New()
	log.SetLevel(logrus.TraceLevel)

	p := &provider{Instance: log}
	if len(opts) > 0 {
		p.configure(opts[0])
	} else {
		p.configure(Options{})
	}
	return p
}

// Configure sets the format and writer of the registered provider.
func Configure(opts Options) {
	std.configure(opts)
}

type provider struct {
	Instance *logrus.Logger
}

func (p *provider) configure(o Options) {
	switch o.Format {
	case JSON:
		p.Instance.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		p.Instance.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: o.Writer != nil})
	}
	if o.Writer != nil {
		p.Instance.SetOutput(o.Writer)
	}
}

// Log implements the logger.Provider interface.
// Durations are written as string so that the JSON output stays human readable.
func (p *provider) Log(entry logger.Entry) {
	fields := logrus.Fields{}
	for k, v := range entry.Fields.Map() {
		if d, ok := v.(time.Duration); ok {
			v = d.String()
		}
		fields[k] = v
	}

	e := p.Instance.WithFields(fields).WithTime(entry.Timestamp)
	switch entry.Level {
	case logger.TRACE:
		e.Trace(entry.Message)
	case logger.DEBUG:
		e.Debug(entry.Message)
	case logger.INFO:
		e.Info(entry.Message)
	case logger.WARNING:
		e.Warning(entry.Message)
	case logger.ERROR:
		e.Error(entry.Message)
	case logger.PANIC:
		e.Panic(entry.Message)
	}
}
