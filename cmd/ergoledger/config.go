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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/ergoplatform/ergo-ledger-go/cmd/utils"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      utils.MigrateFlags(dumpConfig),
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "",
		Flags:       utils.TransportFlags,
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// TransportConfig selects how the device is reached.
type TransportConfig struct {
	Kind         string        // usb, speculos or replay
	USBPath      string        `toml:",omitempty"`
	SpeculosAddr string        `toml:",omitempty"`
	ReplayFile   string        `toml:",omitempty"`
	Timeout      time.Duration // Per exchange limit of the emulator transport
}

type ergoledgerConfig struct {
	Network      string
	UseAuthToken bool
	AuthToken    uint32 `toml:",omitempty"` // Zero picks a random token per run
	Transport    TransportConfig
}

var errUnknownTransport = errors.New("unknown transport")

func defaultConfig() ergoledgerConfig {
	return ergoledgerConfig{
		Network:      ergo.Mainnet.String(),
		UseAuthToken: true,
		Transport: TransportConfig{
			Kind:         "usb",
			SpeculosAddr: utils.SpeculosAddrFlag.Value,
			Timeout:      utils.TimeoutFlag.Value,
		},
	}
}

func loadConfig(file string, cfg *ergoledgerConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig layers the config file and the command line flags over the
// defaults.
func makeConfig(ctx *cli.Context) (ergoledgerConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.GlobalIsSet(utils.NetworkFlag.Name) {
		cfg.Network = ctx.GlobalString(utils.NetworkFlag.Name)
	}
	if ctx.GlobalIsSet(utils.TransportFlag.Name) {
		cfg.Transport.Kind = ctx.GlobalString(utils.TransportFlag.Name)
	}
	if ctx.GlobalIsSet(utils.USBPathFlag.Name) {
		cfg.Transport.USBPath = ctx.GlobalString(utils.USBPathFlag.Name)
	}
	if ctx.GlobalIsSet(utils.SpeculosAddrFlag.Name) {
		cfg.Transport.SpeculosAddr = ctx.GlobalString(utils.SpeculosAddrFlag.Name)
	}
	if ctx.GlobalIsSet(utils.ReplayFileFlag.Name) {
		cfg.Transport.ReplayFile = ctx.GlobalString(utils.ReplayFileFlag.Name)
	}
	if ctx.GlobalIsSet(utils.TimeoutFlag.Name) {
		cfg.Transport.Timeout = ctx.GlobalDuration(utils.TimeoutFlag.Name)
	}
	if ctx.GlobalIsSet(utils.AuthTokenFlag.Name) {
		token := ctx.GlobalUint64(utils.AuthTokenFlag.Name)
		if token > 0xffffffff {
			return cfg, fmt.Errorf("auth token %d does not fit 32 bits", token)
		}
		cfg.AuthToken = uint32(token)
	}
	if ctx.GlobalBool(utils.NoAuthTokenFlag.Name) {
		cfg.UseAuthToken = false
	}
	return cfg, cfg.validate()
}

func (cfg *ergoledgerConfig) validate() error {
	if _, err := ergo.ParseNetwork(cfg.Network); err != nil {
		return err
	}
	switch cfg.Transport.Kind {
	case "usb", "speculos":
	case "replay":
		if cfg.Transport.ReplayFile == "" {
			return fmt.Errorf("replay transport needs --%s", utils.ReplayFileFlag.Name)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, cfg.Transport.Kind)
	}
	return nil
}

// network returns the parsed network of a validated config.
func (cfg *ergoledgerConfig) network() ergo.Network {
	network, _ := ergo.ParseNetwork(cfg.Network)
	return network
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	return writeConfig(os.Stdout, &cfg)
}

func writeConfig(w io.Writer, cfg *ergoledgerConfig) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
