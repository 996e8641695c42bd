// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry provides a simple container for named values in the application space.
// Query providers, logger providers, config providers and the orm model kinds are stored here.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Error messages
var (
	ErrUnknownEntry       = "registry: unknown registry name %#v, maybe you forgot to set it"
	ErrMandatoryArguments = errors.New("registry: one or more arguments have a zero-value")
	ErrAlreadyExists      = "registry: %v is already registered"
)

// registry store
var (
	mu        sync.RWMutex
	registry  = make(map[string]interface{})
	validator []Validate
)

// Validate defines a prefix and custom function which can be added to the `Validator` function.
// The custom function will receive the registry name and registry value as arguments.
type Validate struct {
	Prefix string
	Fn     func(string, interface{}) error
}

// Validator provides an opportunity to add a custom function before the value is added to the registry.
func Validator(validate Validate) error {
	if validate.Prefix == "" || validate.Fn == nil {
		return ErrMandatoryArguments
	}

	mu.Lock()
	defer mu.Unlock()
	if hasValidator(validate.Prefix) != nil {
		return fmt.Errorf(ErrAlreadyExists, "validator prefix "+validate.Prefix)
	}
	validator = append(validator, validate)
	return nil
}

// hasValidator checks if the registry[name] matches the Validate.Prefix.
func hasValidator(name string) *Validate {
	for _, v := range validator {
		if strings.HasPrefix(name, v.Prefix) {
			return &v
		}
	}
	return nil
}

// Set a value by name.
// The name and value argument must have a non-zero value, and the registered name must be unique.
// If a validator is registered, and the name matches any prefix, it will be checked before the value will be added to the registry.
func Set(name string, value interface{}) error {
	if value == nil || name == "" {
		return ErrMandatoryArguments
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf(ErrAlreadyExists, name)
	}

	if validator := hasValidator(name); validator != nil {
		if err := validator.Fn(name, value); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	}

	registry[name] = value
	return nil
}

// Get returns the value by the registered name.
// If the registry name does not exist, an error will return.
func Get(name string) (interface{}, error) {
	mu.RLock()
	defer mu.RUnlock()
	value, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf(ErrUnknownEntry, name)
	}
	return value, nil
}

// Names returns all registered names with the given prefix, sorted and with the prefix removed.
// Nil will return if none was found.
func Names(prefix string) []string {
	mu.RLock()
	defer mu.RUnlock()
	var rv []string
	for n := range registry {
		if strings.HasPrefix(n, prefix) {
			rv = append(rv, strings.TrimPrefix(n, prefix))
		}
	}
	sort.Strings(rv)
	return rv
}

// Prefix returns all entries which name start with this prefix, ordered by name.
// If none was found, nil will return.
func Prefix(prefix string) []interface{} {
	names := Names(prefix)

	mu.RLock()
	defer mu.RUnlock()
	var rv []interface{}
	for _, n := range names {
		rv = append(rv, registry[prefix+n])
	}
	return rv
}
