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

package ergo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErgDecimals is the number of decimal places between nanoERG and ERG.
const ErgDecimals = 9

// FormatErg renders a nanoERG amount as ERG, without trailing zeros.
func FormatErg(nanoErgs string) (string, error) {
	return FormatTokenAmount(nanoErgs, ErgDecimals)
}

// FormatTokenAmount renders a raw token amount with the given number of
// decimals.
func FormatTokenAmount(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return "", fmt.Errorf("invalid amount %q: must be a non-negative integer", amount)
	}
	return d.Shift(-decimals).String(), nil
}

// ParseErg converts an ERG amount into nanoERG.
func ParseErg(ergs string) (string, error) {
	d, err := decimal.NewFromString(ergs)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", ergs, err)
	}
	nano := d.Shift(ErgDecimals)
	if nano.IsNegative() || !nano.Equal(nano.Truncate(0)) {
		return "", fmt.Errorf("invalid amount %q: more than %d decimals or negative", ergs, ErgDecimals)
	}
	return nano.String(), nil
}
