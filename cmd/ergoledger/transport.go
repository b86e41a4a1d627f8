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
	"context"
	"fmt"
	"os"

	"github.com/ergoplatform/ergo-ledger-go/accounts/usbwallet"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"github.com/ergoplatform/ergo-ledger-go/ledger"
	"github.com/ergoplatform/ergo-ledger-go/ledger/ledgertest"
	"github.com/ethereum/go-ethereum/log"
)

// session is an Ergo app client together with the resources backing its
// transport.
type session struct {
	app     *ledger.App
	network ergo.Network
	release func() error
}

// Close releases the transport.
func (s *session) Close() error {
	if s.release == nil {
		return nil
	}
	return s.release()
}

// openSession connects to the device selected by cfg.
func openSession(cfg *ergoledgerConfig) (*session, error) {
	var (
		transport ledger.Transport
		release   func() error
	)
	logger := log.New("transport", cfg.Transport.Kind)

	switch cfg.Transport.Kind {
	case "replay":
		record, err := os.ReadFile(cfg.Transport.ReplayFile)
		if err != nil {
			return nil, err
		}
		replayer, err := ledgertest.NewReplayerFromRecord(string(record))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Transport.ReplayFile, err)
		}
		transport, release = replayer, replayer.Done

	case "speculos":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Transport.Timeout)
		defer cancel()

		conn, err := usbwallet.DialSpeculos(ctx, cfg.Transport.SpeculosAddr, cfg.Transport.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to reach emulator: %w", err)
		}
		transport, release = conn, conn.Close

	case "usb":
		hub, err := usbwallet.NewLedgerHub(logger)
		if err != nil {
			return nil, err
		}
		wallet, err := hub.Wallet(cfg.Transport.USBPath)
		if err != nil {
			return nil, err
		}
		if err := wallet.Open(cfg.AuthToken); err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", wallet.Path(), err)
		}
		app, err := wallet.App()
		if err != nil {
			wallet.Close()
			return nil, err
		}
		app.UseAuthToken(cfg.UseAuthToken)
		return &session{app: app, network: cfg.network(), release: wallet.Close}, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownTransport, cfg.Transport.Kind)
	}
	app := ledger.NewApp(transport, cfg.AuthToken).WithLogger(logger).UseAuthToken(cfg.UseAuthToken)
	return &session{app: app, network: cfg.network(), release: release}, nil
}
