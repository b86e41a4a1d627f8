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

package ledger

import (
	"errors"
	"fmt"
)

// Dashboard level commands, answered by the device OS rather than by the
// Ergo app.
const (
	claOS byte = 0xb0

	insOpenApp       Instruction = 0xd8 // Launches an application by name (CLA E0)
	insCloseApp      Instruction = 0xa7 // Quits the running application
	insGetCurrentApp Instruction = 0x01 // Returns name and version of the running application
)

// ErgoAppName is the dashboard name of the Ergo application.
const ErgoAppName = "Ergo"

var errUnknownAppInfoFormat = errors.New("ledger: response format is not recognized")

// AppInfo describes the application currently running on the device.
type AppInfo struct {
	Name    string
	Version string
	Flags   []byte
}

// OpenApp asks the dashboard to launch the application called name. The user
// confirms on the device.
func (a *App) OpenApp(name string) error {
	a.lock()
	defer a.unlock()

	if _, err := a.device.Send(CLA, insOpenApp, 0x00, 0x00, EncodeASCII(name)); err != nil {
		return fmt.Errorf("ledger: opening %q: %w", name, err)
	}
	return nil
}

// CloseApp quits the running application, returning to the dashboard.
func (a *App) CloseApp() error {
	a.lock()
	defer a.unlock()

	_, err := a.device.Send(claOS, insCloseApp, 0x00, 0x00, nil)
	return err
}

// GetCurrentAppInfo retrieves the name and version of the running
// application, or of the dashboard itself.
//
//	Description            | Length
//	-----------------------+--------
//	Format (01)            | 1 byte
//	Name length            | 1 byte
//	Name                   | var
//	Version length         | 1 byte
//	Version                | var
//	Flags length           | 1 byte (opt.)
//	Flags                  | var
func (a *App) GetCurrentAppInfo() (*AppInfo, error) {
	a.lock()
	defer a.unlock()

	res, err := a.device.Send(claOS, insGetCurrentApp, 0x00, 0x00, nil)
	if err != nil {
		return nil, err
	}
	return parseAppInfo(res.Data)
}

func parseAppInfo(data []byte) (*AppInfo, error) {
	if len(data) == 0 || data[0] != 0x01 {
		return nil, errUnknownAppInfoFormat
	}
	rest := data[1:]

	name, rest, err := readLV(rest)
	if err != nil {
		return nil, err
	}
	version, rest, err := readLV(rest)
	if err != nil {
		return nil, err
	}
	info := &AppInfo{Name: DecodeASCII(name), Version: DecodeASCII(version)}
	if len(rest) > 0 {
		if info.Flags, _, err = readLV(rest); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// readLV splits a length prefixed field off the front of data.
func readLV(data []byte) ([]byte, []byte, error) {
	if len(data) == 0 || len(data) < 1+int(data[0]) {
		return nil, nil, fmt.Errorf("%w: truncated field", errUnknownAppInfoFormat)
	}
	n := int(data[0])
	return data[1 : 1+n], data[1+n:], nil
}
