// Copyright 2024 The ergo-ledger-go Authors
// This file is part of the ergo-ledger-go library.
//
// The ergo-ledger-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ergo-ledger-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ergo-ledger-go library. If not, see <http://www.gnu.org/licenses/>.

package usbwallet

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/karalabe/usb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(infos []usb.DeviceInfo, err error) (*Hub, *int) {
	calls := new(int)
	hub := &Hub{
		enumerate: func(vendorID, productID uint16) ([]usb.DeviceInfo, error) {
			*calls++
			if vendorID != LedgerVendorID || productID != 0 {
				return nil, errors.New("unexpected filter")
			}
			return infos, err
		},
		log: log.Root(),
	}
	return hub, calls
}

func TestHubDevices(t *testing.T) {
	hub, calls := newTestHub([]usb.DeviceInfo{
		{Path: "3", VendorID: LedgerVendorID, UsagePage: ledgerUsagePage, Interface: -1},
		{Path: "1", VendorID: LedgerVendorID, UsagePage: 0xf1d0, Interface: 1},
		{Path: "2", VendorID: LedgerVendorID, Interface: 0},
	}, nil)

	infos, err := hub.Devices()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "2", infos[0].Path)
	assert.Equal(t, "3", infos[1].Path)

	// Enumerations are throttled
	_, err = hub.Devices()
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
}

func TestHubEnumerationFailure(t *testing.T) {
	failure := errors.New("libusb failure")
	hub, _ := newTestHub(nil, failure)

	_, err := hub.Devices()
	assert.ErrorIs(t, err, failure)
}

func TestHubWallet(t *testing.T) {
	hub, _ := newTestHub([]usb.DeviceInfo{
		{Path: "b", UsagePage: ledgerUsagePage},
		{Path: "a", UsagePage: ledgerUsagePage},
	}, nil)

	wallet, err := hub.Wallet("")
	require.NoError(t, err)
	assert.Equal(t, "a", wallet.Path())

	wallet, err = hub.Wallet("b")
	require.NoError(t, err)
	assert.Equal(t, "b", wallet.Path())

	_, err = hub.Wallet("c")
	assert.ErrorIs(t, err, ErrUnknownDevice)

	empty, _ := newTestHub(nil, nil)
	_, err = empty.Wallet("")
	assert.ErrorIs(t, err, ErrNoDevice)
}
