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
	"strconv"

	"github.com/ergoplatform/ergo-ledger-go/accounts"
	"github.com/ergoplatform/ergo-ledger-go/cmd/utils"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var (
	showFlag = cli.BoolFlag{
		Name:  "show",
		Usage: "Display the address on the device for the user to compare",
	}
	accountFlag = cli.IntFlag{
		Name:  "account",
		Usage: "Account index below m/44'/429'",
	}
	changeFlag = cli.BoolFlag{
		Name:  "change",
		Usage: "List change addresses instead of receiving ones",
	}
	offsetFlag = cli.IntFlag{
		Name:  "offset",
		Usage: "First address index to list",
	}
	countFlag = cli.IntFlag{
		Name:  "count",
		Usage: "Number of addresses to list",
		Value: 5,
	}

	xpubCommand = cli.Command{
		Action:    utils.MigrateFlags(printXPub),
		Name:      "xpub",
		Usage:     "Export the extended public key of a path",
		ArgsUsage: "[<path>]",
		Flags:     utils.TransportFlags,
		Category:  "ACCOUNT COMMANDS",
		Description: `
Exports the public key and chain code of the given path, m/44'/429'/0' by
default. The device asks for approval unless the auth token was approved
before.
`,
	}
	addressCommand = cli.Command{
		Action:    utils.MigrateFlags(printAddress),
		Name:      "address",
		Usage:     "Derive the address of a path on the device",
		ArgsUsage: "<path>",
		Flags:     append([]cli.Flag{showFlag}, utils.TransportFlags...),
		Category:  "ACCOUNT COMMANDS",
	}
	addressesCommand = cli.Command{
		Action:   utils.MigrateFlags(printAddresses),
		Name:     "addresses",
		Usage:    "List the addresses of an account",
		Flags:    append([]cli.Flag{accountFlag, changeFlag, offsetFlag, countFlag}, utils.TransportFlags...),
		Category: "ACCOUNT COMMANDS",
		Description: `
Exports the account public key once and derives the addresses on the host.
`,
	}
)

func printXPub(ctx *cli.Context) error {
	path := accounts.DefaultAccountPath.String()
	if ctx.NArg() > 0 {
		path = ctx.Args().First()
	}
	parsed, err := accounts.ParseErgoPath(path)
	if err != nil {
		return err
	}
	return withSession(ctx, func(s *session) error {
		xpub, err := s.app.GetExtendedPublicKey(path)
		if err != nil {
			return err
		}
		key, err := xpub.HDKey(parsed)
		if err != nil {
			return err
		}
		w := ctx.App.Writer
		fmt.Fprintln(w, "Path:      ", parsed)
		fmt.Fprintln(w, "Public key:", xpub.PublicKey)
		fmt.Fprintln(w, "Chain code:", xpub.ChainCode)
		fmt.Fprintln(w, "Extended:  ", key)
		return nil
	})
}

func printAddress(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		utils.Fatalf("This command requires a derivation path")
	}
	path := ctx.Args().First()
	return withSession(ctx, func(s *session) error {
		if ctx.Bool(showFlag.Name) {
			notice.Fprintln(os.Stderr, "Compare the address on the device")
			ok, err := s.app.ShowAddress(path, s.network)
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, "Confirmed:", ok)
			return nil
		}
		derived, err := s.app.DeriveAddress(path, s.network)
		if err != nil {
			return err
		}
		addr, err := derived.Address()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, addr)
		return nil
	})
}

func printAddresses(ctx *cli.Context) error {
	account := ctx.Int(accountFlag.Name)
	offset, count := ctx.Int(offsetFlag.Name), ctx.Int(countFlag.Name)
	if account < 0 || offset < 0 || count <= 0 {
		utils.Fatalf("Account, offset and count must be positive")
	}
	if uint64(account) >= accounts.HardenedOffset || uint64(offset)+uint64(count) > accounts.HardenedOffset {
		utils.Fatalf("Address indexes must stay below the hardened range")
	}
	var change uint32
	if ctx.Bool(changeFlag.Name) {
		change = 1
	}
	path := accounts.DerivationPath{accounts.ErgoRootPath[0], accounts.ErgoRootPath[1], accounts.HardenedOffset + uint32(account)}

	return withSession(ctx, func(s *session) error {
		xpub, err := s.app.GetExtendedPublicKey(path.String())
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(ctx.App.Writer)
		table.SetHeader([]string{"Index", "Path", "Address"})
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for i := offset; i < offset+count; i++ {
			addr, err := xpub.DeriveAddress(path, change, uint32(i), s.network)
			if err != nil {
				return err
			}
			full := append(append(accounts.DerivationPath{}, path...), change, uint32(i))
			table.Append([]string{strconv.Itoa(i), full.String(), addr.String()})
		}
		table.Render()
		return nil
	})
}
