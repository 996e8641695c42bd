// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/patrickascher/relmap/config"
	"github.com/patrickascher/relmap/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockConfig struct {
	mock.Mock
}

func (m *mockConfig) Parse(cfg interface{}, options interface{}) error {
	args := m.Called(cfg, options)
	return args.Error(0)
}

type dbConfig struct {
	Host  string
	Port  int
	Limit int
}

// TestLoad tests:
// - the config must be a ptr.
// - the provider must implement config.Interface.
// - unknown providers return a wrapped registry error.
// - provider errors are returned.
func TestLoad(t *testing.T) {
	asserts := assert.New(t)

	cfg := dbConfig{}
	options := "something"
	mockProvider := new(mockConfig)

	err := registry.Set("config-mock", mockProvider)
	asserts.NoError(err)
	err = registry.Set("config-err-interface", "")
	asserts.NoError(err)

	err = config.Load("config-mock", cfg, options)
	asserts.Equal(config.ErrPointer, err)

	err = config.Load("config-err-interface", &cfg, options)
	asserts.Equal(config.ErrInterface, err)

	err = config.Load("config-not-existing", &cfg, options)
	asserts.Error(err)
	asserts.Equal(fmt.Errorf("config: %w", errors.Unwrap(err)), err)

	mockProvider.On("Parse", &cfg, options).Once().Return(errors.New("an error"))
	err = config.Load("config-mock", &cfg, options)
	asserts.Equal(errors.New("an error"), err)

	mockProvider.On("Parse", &cfg, options).Once().Return(nil)
	err = config.Load("config-mock", &cfg, options)
	asserts.NoError(err)

	mockProvider.AssertExpectations(t)
}

// TestLoadWithDefaults tests if zero values are filled and parsed values are kept.
func TestLoadWithDefaults(t *testing.T) {
	asserts := assert.New(t)

	cfg := dbConfig{}
	mockProvider := new(mockConfig)
	err := registry.Set("config-mock-defaults", mockProvider)
	asserts.NoError(err)

	mockProvider.On("Parse", &cfg, nil).Once().Return(nil).Run(func(args mock.Arguments) {
		c := args.Get(0).(*dbConfig)
		c.Host = "db.local"
	})
	err = config.LoadWithDefaults("config-mock-defaults", &cfg, nil, dbConfig{Host: "localhost", Port: 3306, Limit: 1000})
	asserts.NoError(err)
	asserts.Equal(dbConfig{Host: "db.local", Port: 3306, Limit: 1000}, cfg)

	err = config.Defaults(&cfg, "wrong")
	asserts.Equal(config.ErrDefaults, err)
	err = config.Defaults(cfg, dbConfig{})
	asserts.Equal(config.ErrPointer, err)

	mockProvider.AssertExpectations(t)
}
