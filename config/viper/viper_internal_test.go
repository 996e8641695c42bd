// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package viper

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

type databaseCfg struct {
	Host     string
	User     string
	Password string
}

type appCfg struct {
	Database databaseCfg
	Log      string
}

func writeYaml(t *testing.T, dir string, user string) {
	content := fmt.Sprintf("database:\n  host: localhost\n  user: %s\n  password: \"\"\nlog: debug\n", user)
	if err := ioutil.WriteFile(filepath.Join(dir, "relmap.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// TestViperProvider_Options tests:
// - wrong option type.
// - mandatory fields.
// - the file type can not be guessed.
// - missing file.
func TestViperProvider_Options(t *testing.T) {
	asserts := assert.New(t)
	v := viperProvider{}
	c := appCfg{}

	asserts.Equal(ErrOptions, v.Parse(&c, ""))
	asserts.Equal(ErrMandatory, v.Parse(&c, Options{FilePath: "."}))
	asserts.Equal(ErrMandatory, v.Parse(&c, Options{FileName: "relmap.yaml"}))
	asserts.Equal(ErrFileType, v.Parse(&c, Options{FileName: "relmap", FilePath: "."}))

	err := v.Parse(&c, Options{FileName: "missing.yaml", FilePath: t.TempDir()})
	asserts.Error(err)
	asserts.Equal(fmt.Errorf("viper-provider: %w", errors.Unwrap(err)), err)
}

// TestViperProvider_Parse tests:
// - nested keys are unmarshalled.
// - the instance is re-used for the same file and cfg, options are re-assigned.
// - env variables overwrite nested keys.
func TestViperProvider_Parse(t *testing.T) {
	asserts := assert.New(t)
	dir := t.TempDir()
	writeYaml(t, dir, "root")

	v := viperProvider{}
	c := &appCfg{}
	c2 := &appCfg{}
	opt := Options{FileName: "relmap.yaml", FilePath: dir}

	err := v.Parse(c, opt)
	asserts.NoError(err)
	asserts.Equal("localhost", c.Database.Host)
	asserts.Equal("root", c.Database.User)
	asserts.Equal("debug", c.Log)

	name, _ := filepath.Abs(filepath.Join(dir, "relmap.yaml"))
	asserts.True(fmt.Sprintf("%p", c) == fmt.Sprintf("%p", vInstances[name].cfg))
	err = v.Parse(c2, opt)
	asserts.NoError(err)
	asserts.True(fmt.Sprintf("%p", c2) == fmt.Sprintf("%p", vInstances[name].cfg))

	err = os.Setenv("RELMAPTEST_DATABASE_PASSWORD", "toor")
	asserts.NoError(err)
	defer os.Unsetenv("RELMAPTEST_DATABASE_PASSWORD")

	c3 := &appCfg{}
	opt.EnvPrefix = "relmaptest"
	opt.EnvAutomatic = true
	err = v.Parse(c3, opt)
	asserts.NoError(err)
	asserts.Equal("toor", c3.Database.Password)
	asserts.Equal("localhost", c3.Database.Host)
}

// TestViperProvider_Watch tests if the config struct and the custom callback are updated on file changes.
func TestViperProvider_Watch(t *testing.T) {
	asserts := assert.New(t)
	dir := t.TempDir()
	writeYaml(t, dir, "root")

	called := make(chan struct{}, 10)
	v := viperProvider{}
	c := &appCfg{}
	opt := Options{
		FileName:      "relmap.yaml",
		FilePath:      dir,
		Watch:         true,
		WatchCallback: func(cfg interface{}, v *viper.Viper, e fsnotify.Event) { called <- struct{}{} },
	}
	err := v.Parse(c, opt)
	asserts.NoError(err)
	asserts.Equal("root", c.Database.User)

	writeYaml(t, dir, "admin")
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("config change was not detected")
	}
	// the watcher can fire more than once per write.
	asserts.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return c.Database.User == "admin"
	}, 2*time.Second, 20*time.Millisecond)
}
