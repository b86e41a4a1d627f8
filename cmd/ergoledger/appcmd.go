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

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ergoplatform/ergo-ledger-go/cmd/utils"
	"github.com/ergoplatform/ergo-ledger-go/ledger"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"
)

var (
	versionCommand = cli.Command{
		Action:    utils.MigrateFlags(printVersion),
		Name:      "version",
		Usage:     "Print version numbers",
		ArgsUsage: " ",
		Category:  "MISCELLANEOUS COMMANDS",
		Description: `
The output of this command is supposed to be machine-readable.
`,
	}
	appCommand = cli.Command{
		Action:   utils.MigrateFlags(printApp),
		Name:     "app",
		Usage:    "Print the name and version of the running Ergo app",
		Flags:    utils.TransportFlags,
		Category: "DEVICE COMMANDS",
	}
	appInfoCommand = cli.Command{
		Action:   utils.MigrateFlags(printAppInfo),
		Name:     "appinfo",
		Usage:    "Print what the device OS reports about the running app",
		Flags:    utils.TransportFlags,
		Category: "DEVICE COMMANDS",
	}
	openAppCommand = cli.Command{
		Action:    utils.MigrateFlags(openApp),
		Name:      "open",
		Usage:     "Launch an app from the device dashboard",
		ArgsUsage: "[<name>]",
		Flags:     utils.TransportFlags,
		Category:  "DEVICE COMMANDS",
		Description: `
Asks the dashboard to launch the named app, the Ergo app by default. The
device may ask the user to confirm.
`,
	}
	closeAppCommand = cli.Command{
		Action:   utils.MigrateFlags(closeApp),
		Name:     "close",
		Usage:    "Quit the running app and return to the dashboard",
		Flags:    utils.TransportFlags,
		Category: "DEVICE COMMANDS",
	}
)

// notice prints a highlighted hint for the user to stderr.
var notice = color.New(color.FgYellow, color.Bold)

func printVersion(ctx *cli.Context) error {
	w := ctx.App.Writer
	fmt.Fprintln(w, "Version:", clientVersion)
	if gitCommit != "" {
		fmt.Fprintln(w, "Git Commit:", gitCommit)
	}
	if gitDate != "" {
		fmt.Fprintln(w, "Git Commit Date:", gitDate)
	}
	fmt.Fprintln(w, "Architecture:", runtime.GOARCH)
	fmt.Fprintln(w, "Go Version:", runtime.Version())
	fmt.Fprintln(w, "Operating System:", runtime.GOOS)
	return nil
}

func printApp(ctx *cli.Context) error {
	return withSession(ctx, func(s *session) error {
		name, err := s.app.GetAppName()
		if err != nil {
			return err
		}
		version, err := s.app.GetAppVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "%s %s\n", name.Name, version)
		return nil
	})
}

func printAppInfo(ctx *cli.Context) error {
	return withSession(ctx, func(s *session) error {
		info, err := s.app.GetCurrentAppInfo()
		if err != nil {
			return err
		}
		w := ctx.App.Writer
		fmt.Fprintln(w, "Name:", info.Name)
		fmt.Fprintln(w, "Version:", info.Version)
		fmt.Fprintln(w, "Flags:", hexutil.Bytes(info.Flags))
		return nil
	})
}

func openApp(ctx *cli.Context) error {
	name := ledger.ErgoAppName
	if ctx.NArg() > 0 {
		name = ctx.Args().First()
	}
	return withSession(ctx, func(s *session) error {
		notice.Fprintf(os.Stderr, "Confirm opening %s on the device\n", name)
		return s.app.OpenApp(name)
	})
}

func closeApp(ctx *cli.Context) error {
	return withSession(ctx, func(s *session) error {
		return s.app.CloseApp()
	})
}
