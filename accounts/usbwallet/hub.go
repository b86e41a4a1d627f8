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

// Package usbwallet implements the transports carrying APDUs to Ledger
// devices: USB HID for real hardware and TCP for the Speculos emulator.
package usbwallet

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/karalabe/usb"
)

// LedgerVendorID is the USB vendor id of Ledger devices.
const LedgerVendorID = 0x2c97

// ledgerUsagePage is the HID usage page of the APDU channel. Platforms that
// do not report usage pages expose the channel on interface 0.
const ledgerUsagePage = 0xffa0

// refreshThrottling is the minimum time between device enumerations.
const refreshThrottling = 500 * time.Millisecond

var (
	// ErrUnsupportedPlatform is returned if the USB library was built without
	// support for the running platform.
	ErrUnsupportedPlatform = errors.New("usbwallet: USB is not supported on this platform")

	// ErrNoDevice is returned if no Ledger is attached.
	ErrNoDevice = errors.New("usbwallet: no Ledger device found")

	// ErrUnknownDevice is returned if the requested device path is not attached.
	ErrUnknownDevice = errors.New("usbwallet: unknown device path")
)

// Hub tracks the Ledger devices attached over USB.
type Hub struct {
	enumerate func(vendorID, productID uint16) ([]usb.DeviceInfo, error)

	infos     []usb.DeviceInfo // Devices seen at the last enumeration
	refreshed time.Time        // Time instance when the list of devices was last refreshed
	stateLock sync.RWMutex     // Protects the internals of the hub from racey access

	log log.Logger
}

// NewLedgerHub creates a hub watching for Ledger devices.
func NewLedgerHub(logger log.Logger) (*Hub, error) {
	if !usb.Supported() {
		return nil, ErrUnsupportedPlatform
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Hub{enumerate: usb.Enumerate, log: logger}, nil
}

// Devices returns the APDU channels of the attached Ledger devices sorted by
// path. Enumerations are throttled, a recent list is reused.
func (hub *Hub) Devices() ([]usb.DeviceInfo, error) {
	hub.stateLock.RLock()
	if !hub.refreshed.IsZero() && time.Since(hub.refreshed) < refreshThrottling {
		infos := hub.infos
		hub.stateLock.RUnlock()
		return infos, nil
	}
	hub.stateLock.RUnlock()

	found, err := hub.enumerate(LedgerVendorID, 0)
	if err != nil {
		return nil, err
	}
	var infos []usb.DeviceInfo
	for _, info := range found {
		// Skip the FIDO and keyboard interfaces of the device
		if info.UsagePage == ledgerUsagePage || info.Interface == 0 {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	hub.stateLock.Lock()
	hub.infos, hub.refreshed = infos, time.Now()
	hub.stateLock.Unlock()

	hub.log.Debug("Enumerated Ledger devices", "count", len(infos))
	return infos, nil
}

// Wallet returns a closed wallet for the device at path, or for the first
// attached device if path is empty.
func (hub *Hub) Wallet(path string) (*Wallet, error) {
	infos, err := hub.Devices()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoDevice
	}
	for _, info := range infos {
		if path == "" || info.Path == path {
			return newWallet(info, info.Open, hub.log.New("path", info.Path)), nil
		}
	}
	return nil, ErrUnknownDevice
}
