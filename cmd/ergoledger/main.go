// Copyright 2024 The ergo-ledger-go Authors
// This file is part of ergo-ledger-go.
//
// ergo-ledger-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ergo-ledger-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ergo-ledger-go. If not, see <http://www.gnu.org/licenses/>.

// ergoledger is a command line client for the Ergo application of Ledger
// hardware wallets.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ergoplatform/ergo-ledger-go/cmd/utils"
	"github.com/ergoplatform/ergo-ledger-go/internal/debug"
	"gopkg.in/urfave/cli.v1"
)

const clientVersion = "0.1.0"

var (
	// Git information set by linker when building with ci.go.
	gitCommit string
	gitDate   string
	app       = newApp()
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "Ergo Ledger app command line interface"
	app.Version = versionWithCommit(gitCommit, gitDate)
	app.Writer = os.Stdout
	app.HideVersion = true
	app.EnableBashCompletion = true

	app.Flags = append(app.Flags, debug.Flags...)
	app.Flags = append(app.Flags, utils.TransportFlags...)
	app.Before = func(ctx *cli.Context) error {
		return debug.Setup(ctx)
	}
	app.CommandNotFound = func(ctx *cli.Context, cmd string) {
		fmt.Fprintf(os.Stderr, "No such command: %s\n", cmd)
		os.Exit(1)
	}
	app.Commands = []cli.Command{
		versionCommand,
		appCommand,
		appInfoCommand,
		openAppCommand,
		closeAppCommand,
		xpubCommand,
		addressCommand,
		addressesCommand,
		attestCommand,
		signCommand,
		dumpConfigCommand,
	}
	return app
}

func versionWithCommit(gitCommit, gitDate string) string {
	version := clientVersion
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return version
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withSession runs fn against the device selected by the flags, releasing
// the transport afterwards.
func withSession(ctx *cli.Context, fn func(*session) error) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	s, err := openSession(&cfg)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}
