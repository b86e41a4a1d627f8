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

// Package utils contains internal helper functions for ergo-ledger-go commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/ergoplatform/ergo-ledger-go/accounts/usbwallet"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"gopkg.in/urfave/cli.v1"
)

var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	NetworkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "Network addresses are encoded for (mainnet, testnet)",
		Value: ergo.Mainnet.String(),
	}
	TransportFlag = cli.StringFlag{
		Name:  "transport",
		Usage: "How to reach the device (usb, speculos, replay)",
		Value: "usb",
	}
	USBPathFlag = cli.StringFlag{
		Name:  "usb.path",
		Usage: "Platform path of the USB device to use (default: first Ledger found)",
	}
	SpeculosAddrFlag = cli.StringFlag{
		Name:  "speculos.addr",
		Usage: "APDU socket of the Speculos emulator",
		Value: usbwallet.DefaultSpeculosAddr,
	}
	ReplayFileFlag = cli.StringFlag{
		Name:  "replay.file",
		Usage: "Recorded APDU exchanges answered instead of a device",
	}
	TimeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Usage: "Maximum time a single exchange with the emulator may take",
		Value: 5 * time.Minute,
	}
	AuthTokenFlag = cli.Uint64Flag{
		Name:  "authtoken",
		Usage: "Auth token binding the session approval (default: random)",
	}
	NoAuthTokenFlag = cli.BoolFlag{
		Name:  "noauthtoken",
		Usage: "Do not attach an auth token, every command asks for approval",
	}
)

// TransportFlags are the flags selecting and configuring the device connection.
var TransportFlags = []cli.Flag{
	ConfigFileFlag,
	NetworkFlag,
	TransportFlag,
	USBPathFlag,
	SpeculosAddrFlag,
	ReplayFileFlag,
	TimeoutFlag,
	AuthTokenFlag,
	NoAuthTokenFlag,
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// MigrateFlags sets the global flag from a local flag when it's set.
// This is a temporary function used for migrating old command/flags to the
// new format.
//
// e.g. ergoledger sign --network testnet tx.json
//
// is equivalent after calling this method with:
//
// ergoledger --network testnet sign tx.json
//
// i.e. in the subcommand Action function of 'sign', ctx.GlobalString("network")
// will return "testnet", the same as for ctx.String("network").
func MigrateFlags(action func(ctx *cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		for _, name := range ctx.FlagNames() {
			if ctx.IsSet(name) {
				ctx.GlobalSet(name, ctx.String(name))
			}
		}
		return action(ctx)
	}
}
