// Copyright (c) 2021 Patrick Ascher <development@fullhouse-productions.com>. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command relmap runs the schema commands for the model kinds which are registered in the binary.
// Applications usually build their own binary with their model kinds and call cli.Run.
package main

import (
	"os"

	"github.com/patrickascher/relmap/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
