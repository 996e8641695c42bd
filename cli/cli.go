// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli provides the schema commands for the registered model kinds.
//
// An application registers its model kinds and calls Run from its main function:
//		func main() {
//			_ = orm.Register("User", func() orm.Interface { return &User{} })
//			os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
//		}
//
// Commands:
//		export   writes the CREATE TABLE statements of the database into the structure file,
//		         with -declared the statements of the model kinds.
//		check    prints the adequation report of every model kind.
//		migrate  creates or updates the tables, drops and modifies columns only with -force.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickascher/relmap/config"
	"github.com/patrickascher/relmap/config/viper"
	"github.com/patrickascher/relmap/logger"
	"github.com/patrickascher/relmap/logger/logrus"
	"github.com/patrickascher/relmap/orm"
	"github.com/patrickascher/relmap/query"
	_ "github.com/patrickascher/relmap/query/mysql"
	"gopkg.in/yaml.v3"
)

// Commands.
const (
	EXPORT  = "export"
	CHECK   = "check"
	MIGRATE = "migrate"
)

// Exit codes.
const (
	ExitOK = iota
	ExitFailure
	ExitUsage
)

// Error messages.
var (
	ErrCommand = "cli: unknown command %q"
	ErrSchema  = "cli: model kind %s has no schema methods"
	ErrReport  = errors.New("cli: at least one model is not adequate")
)

// Configuration of the commands.
type Configuration struct {
	Database  query.Config
	Log       Log
	Structure Structure
}

// Log configuration.
// Provider is a registered logger provider, the logrus provider can be formatted by Format.
type Log struct {
	Provider string
	Level    string
	Format   string
	Caller   bool
}

// Structure configuration.
type Structure struct {
	// File of the export. "-" writes to the output.
	File string
	// Models to handle, all registered kinds if empty.
	Models []string
	// Declared exports the statements of the model kinds instead of the database tables.
	Declared bool
}

// Defaults of the configuration.
var Defaults = Configuration{
	Database:  query.Config{Provider: "mysql", Host: "127.0.0.1", Port: 3306},
	Log:       Log{Provider: logrus.NAME, Level: "INFO", Format: logrus.TEXT},
	Structure: Structure{File: "structure.sql"},
}

// schema is implemented by every model kind which embeds orm.Model.
type schema interface {
	CheckModelDBAdequation() (orm.Report, error)
	GenerateTableForModel(force bool) (orm.Report, error)
}

// Load the configuration file.
// The values can be overwritten by environment variables with the prefix RELMAP, for example RELMAP_DATABASE_HOST.
func Load(file string) (Configuration, error) {
	var cfg Configuration
	dir, name := filepath.Split(file)
	if dir == "" {
		dir = "."
	}
	opts := viper.Options{FileName: name, FilePath: dir, EnvPrefix: "RELMAP", EnvAutomatic: true}
	if err := config.LoadWithDefaults(config.VIPER, &cfg, opts, Defaults); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewLogger returns a manager of the registered provider with the configured level.
// The logrus provider writes into w.
func NewLogger(cfg Log, w io.Writer) (logger.Manager, error) {
	lvl, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Provider == logrus.NAME {
		logrus.Configure(logrus.Options{Format: cfg.Format, Writer: w})
	}
	registered, err := logger.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	log := registered.New()
	log.SetLogLevel(lvl)
	log.SetCallerFields(cfg.Caller)
	return log, nil
}

// Run parses the arguments and executes the command.
// The exit code is returned.
func Run(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("relmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("config", "relmap.yaml", "configuration file")
	force := fs.Bool("force", false, "modify and drop columns on migrate")
	output := fs.String("o", "", "export file, the configured structure file by default")
	declared := fs.Bool("declared", false, "export the statements of the model kinds")
	models := fs.String("models", "", "comma separated model kinds, all registered kinds by default")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: relmap [flags] %s|%s|%s\n", EXPORT, CHECK, MIGRATE)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return ExitUsage
	}
	cmd := fs.Arg(0)
	if cmd != EXPORT && cmd != CHECK && cmd != MIGRATE {
		fmt.Fprintf(stderr, ErrCommand+"\n", cmd)
		fs.Usage()
		return ExitUsage
	}

	cfg, err := Load(*file)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}
	if *models != "" {
		cfg.Structure.Models = strings.Split(*models, ",")
	}
	if *declared {
		cfg.Structure.Declared = true
	}
	if *output != "" {
		cfg.Structure.File = *output
	}

	log, err := NewLogger(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}
	b, err := query.New(cfg.Database.Provider, cfg.Database)
	if err != nil {
		log.Error(err.Error())
		return ExitFailure
	}
	b.SetLogger(log)
	orm.SetDefaultBuilder(b)
	orm.SetDefaultLogger(log)

	if err = Execute(cmd, cfg.Structure, *force, stdout); err != nil {
		log.Error(err.Error())
		return ExitFailure
	}
	return ExitOK
}

// Execute the command with the default builder of the orm.
func Execute(cmd string, structure Structure, force bool, w io.Writer) error {
	names := structure.Models
	if len(names) == 0 {
		names = orm.Names()
	}

	switch cmd {
	case EXPORT:
		return export(structure, names, w)
	case CHECK:
		return reports(names, w, func(s schema) (orm.Report, error) { return s.CheckModelDBAdequation() })
	case MIGRATE:
		return reports(names, w, func(s schema) (orm.Report, error) { return s.GenerateTableForModel(force) })
	}
	return fmt.Errorf(ErrCommand, cmd)
}

// export writes the statements into the file or the writer.
func export(structure Structure, names []string, w io.Writer) error {
	write := func(w io.Writer) error {
		if structure.Declared {
			return orm.ExportModels(w, names...)
		}
		return orm.Export(w)
	}
	if structure.File == "" || structure.File == "-" {
		return write(w)
	}

	f, err := os.Create(structure.File)
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// reports writes the yaml reports of all models.
// ErrReport will return if any report was not successful.
func reports(names []string, w io.Writer, fn func(schema) (orm.Report, error)) error {
	rv := make([]orm.Report, 0, len(names))
	success := true
	for _, name := range names {
		m, err := orm.New(name)
		if err != nil {
			return err
		}
		s, ok := m.(schema)
		if !ok {
			return fmt.Errorf(ErrSchema, name)
		}
		report, err := fn(s)
		if err != nil {
			return err
		}
		success = success && report.Success
		rv = append(rv, report)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rv); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if !success {
		return ErrReport
	}
	return nil
}
