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

// Package accounts parses and validates the BIP32 derivation paths used by the
// Ergo application.
package accounts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
)

// DerivationPath is a BIP32 path, a list of child indices with the hardened
// bit set where applicable.
type DerivationPath = accounts.DerivationPath

const (
	// HardenedOffset is added to an index to derive a hardened child.
	HardenedOffset = 0x80000000

	// MaxPathLength is the deepest path the device accepts.
	MaxPathLength = 10

	// AddressPathLength is the minimum depth of a path pointing to an address:
	// purpose, coin type, account, change and index.
	AddressPathLength = 5
)

var (
	// ErgoRootPath is the 44'/429' prefix every Ergo path must start with.
	ErgoRootPath = DerivationPath{HardenedOffset + 44, HardenedOffset + 429}

	// DefaultAccountPath is the first account of the wallet.
	DefaultAccountPath = DerivationPath{HardenedOffset + 44, HardenedOffset + 429, HardenedOffset + 0}

	// DefaultBaseDerivationPath is the first receiving address of the wallet.
	DefaultBaseDerivationPath = DerivationPath{HardenedOffset + 44, HardenedOffset + 429, HardenedOffset + 0, 0, 0}
)

var (
	ErrNotErgoPath = errors.New("accounts: path must start with 44'/429'")
	ErrPathTooLong = fmt.Errorf("accounts: path deeper than %d components", MaxPathLength)
)

// ParsePath converts a textual BIP32 path into its components. The leading
// "m/" is optional, relative paths are always rooted at the master key.
func ParsePath(path string) (DerivationPath, error) {
	path = strings.TrimSpace(path)
	if path != "m" && !strings.HasPrefix(path, "m/") {
		path = "m/" + path
	}
	parsed, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}
	if len(parsed) > MaxPathLength {
		return nil, fmt.Errorf("%w: %d", ErrPathTooLong, len(parsed))
	}
	return parsed, nil
}

// ParseErgoPath parses path and checks that it lives under 44'/429'.
func ParseErgoPath(path string) (DerivationPath, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if !IsErgoPath(parsed) {
		return nil, fmt.Errorf("%w: %s", ErrNotErgoPath, parsed)
	}
	return parsed, nil
}

// IsErgoPath reports whether path starts with 44'/429'.
func IsErgoPath(path DerivationPath) bool {
	return len(path) >= len(ErgoRootPath) && path[0] == ErgoRootPath[0] && path[1] == ErgoRootPath[1]
}

// ValidateAddressPath checks that path points at an address: it has at least
// account, change and index components and the change component is 0 or 1.
func ValidateAddressPath(path DerivationPath) error {
	if !IsErgoPath(path) {
		return fmt.Errorf("%w: %s", ErrNotErgoPath, path)
	}
	if len(path) < AddressPathLength {
		return fmt.Errorf("invalid path length. %d", len(path))
	}
	if change := path[3]; change != 0 && change != 1 {
		return fmt.Errorf("invalid change path: %d", change)
	}
	return nil
}

// Format renders path as "m/44'/429'/...".
func Format(path DerivationPath) string {
	return path.String()
}
