// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package viper provides a wrapper for the https://github.com/spf13/viper package.
// It offers a different callback function, to get access to the viper instance.
// By default, the watcher will automatically unmarshal the data of the defined configuration struct.
// Nested keys can be overwritten by env variables, the key separator "." is replaced by "_" (database.host = PREFIX_DATABASE_HOST).
package viper

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickascher/relmap/config"
	"github.com/patrickascher/relmap/registry"
	"github.com/spf13/viper"
)

// init registers the viper provider.
func init() {
	err := registry.Set(config.VIPER, new(viperProvider))
	if err != nil {
		log.Fatal(err)
	}
}

// Error messages
var (
	ErrOptions   = errors.New("viper-provider: options must be of type viper.Options")
	ErrMandatory = errors.New("viper-provider: viper.Options file-name and path are mandatory")
	ErrFileType  = errors.New("viper-provider: file-type is missing and can not be guessed by the file extension")
)

// Options for the viper provider.
type Options struct {
	// FileName of the configuration.
	FileName string
	// FileType optional if the filename has an extension.
	FileType string
	// FilePath to look into.
	FilePath string
	// Watch for file changes.
	Watch bool
	// WatchCallback can be defined.
	// By default, the config struct gets updated on changes.
	WatchCallback func(cfg interface{}, viper *viper.Viper, e fsnotify.Event)
	// EnvPrefix
	EnvPrefix string
	// EnvAutomatic check if environment variables match any of the existing keys.
	EnvAutomatic bool
	// EnvBind binds a Viper key to a ENV variable.
	EnvBind []string
}

// vInstances of vipers.
// Mapping key is the absolute filepath, because this is the only argument of the viper watch-callback function.
var (
	mu         sync.Mutex
	vInstances map[string]vInstance
)

// vInstance with the configuration and options.
// Needed for the callbacks, because of limits of the standard viper callback arguments.
type vInstance struct {
	viper   *viper.Viper
	cfg     interface{}
	options Options
}

// viper struct to satisfy the config.Interface.
type viperProvider struct{}

// Parse will configure viper and unmarshal the config into the config struct.
// If Options.Watch is activated, the configuration will automatically be updated on file changes.
// An additional callback can be added.
// Filename and path are mandatory, the type is guessed by the file extension if empty.
func (vp *viperProvider) Parse(cfg interface{}, opt interface{}) error {

	// check if the options have the correct type.
	options, ok := opt.(Options)
	if !ok {
		return ErrOptions
	}

	// mandatory fields
	if options.FileName == "" || options.FilePath == "" {
		return ErrMandatory
	}
	if options.FileType == "" {
		options.FileType = strings.TrimPrefix(filepath.Ext(options.FileName), ".")
		if options.FileType == "" {
			return ErrFileType
		}
	}

	// create/get viper instance
	i, err := instance(cfg, options)
	if err != nil {
		return fmt.Errorf("viper-provider: %w", err)
	}

	// add configurations
	i.viper.SetConfigFile(filepath.Join(options.FilePath, options.FileName))
	i.viper.SetConfigType(options.FileType)

	// By default, the config will be updated on file change.
	// If there is a custom function, it will be called as well.
	i.viper.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		i, ok := vInstances[e.Name]
		mu.Unlock()
		if !ok {
			return
		}
		_ = i.viper.Unmarshal(i.cfg)
		if i.options.WatchCallback != nil {
			i.options.WatchCallback(i.cfg, i.viper, e)
		}
	})

	// add env prefix.
	if options.EnvPrefix != "" {
		i.viper.SetEnvPrefix(options.EnvPrefix)
	}
	i.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// add env bindings.
	if len(options.EnvBind) != 0 {
		for _, key := range options.EnvBind {
			// no error can happen because the key is not empty.
			_ = i.viper.BindEnv(key)
		}
	}

	// set env automatism.
	if options.EnvAutomatic {
		i.viper.AutomaticEnv()
	}

	// read config.
	err = i.viper.ReadInConfig()
	if err != nil {
		return err
	}

	// add file watcher, goroutine will be spawned.
	if options.Watch {
		i.viper.WatchConfig()
	}

	// unmarshal
	return i.viper.Unmarshal(cfg)
}

// instance will check if there is already a viper instance for the given filepath.
// If so, the instance *cfg and options will be updated. Otherwise a new instance will be created.
func instance(cfg interface{}, opt Options) (vInstance, error) {
	mu.Lock()
	defer mu.Unlock()

	if vInstances == nil {
		vInstances = make(map[string]vInstance)
	}

	// get absolute path and check if file exist.
	name, err := filepath.Abs(filepath.Join(opt.FilePath, opt.FileName))
	if err != nil {
		return vInstance{}, err
	}
	_, err = os.Stat(name)
	if err != nil {
		return vInstance{}, err
	}

	// create an instance if it does not exist yet.
	if _, ok := vInstances[name]; !ok {
		vInstances[name] = vInstance{options: opt, cfg: cfg, viper: viper.New()}
	} else {
		// re-assign *cfg and config on multiple call.
		v := vInstances[name]
		v.cfg = cfg
		v.options = opt
		vInstances[name] = v
	}

	return vInstances[name], nil
}
