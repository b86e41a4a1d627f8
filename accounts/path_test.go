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

package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		input  string
		output DerivationPath
	}{
		{"m/44'/429'/0'", DefaultAccountPath},
		{"44'/429'/0'", DefaultAccountPath},
		{" m/44'/429'/0'/0/0 ", DefaultBaseDerivationPath},
		{"m/44'/429'/0'/1/7", DerivationPath{HardenedOffset + 44, HardenedOffset + 429, HardenedOffset, 1, 7}},
		{"m/2147483692/2147484077", ErgoRootPath},
	}
	for _, tt := range tests {
		path, err := ParsePath(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.output, path, tt.input)
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, input := range []string{"", "m", "m/", "m/44'/x", "m/44'/429'/0'/0/0/0/0/0/0/0/0"} {
		_, err := ParsePath(input)
		assert.Error(t, err, input)
	}
	_, err := ParsePath("m/1/2/3/4/5/6/7/8/9/10/11")
	assert.ErrorIs(t, err, ErrPathTooLong)
}

func TestParseErgoPath(t *testing.T) {
	_, err := ParseErgoPath("m/44'/60'/0'")
	assert.ErrorIs(t, err, ErrNotErgoPath)

	_, err = ParseErgoPath("m/44'")
	assert.ErrorIs(t, err, ErrNotErgoPath)

	path, err := ParseErgoPath("m/44'/429'/0'/0/0")
	require.NoError(t, err)
	assert.Equal(t, "m/44'/429'/0'/0/0", Format(path))
}

func TestValidateAddressPath(t *testing.T) {
	assert.NoError(t, ValidateAddressPath(DefaultBaseDerivationPath))

	err := ValidateAddressPath(DefaultAccountPath)
	assert.EqualError(t, err, "invalid path length. 3")

	path, err := ParsePath("m/44'/429'/0'/2/0")
	require.NoError(t, err)
	assert.EqualError(t, ValidateAddressPath(path), "invalid change path: 2")

	path, err = ParsePath("m/44'/429'/0'/0'/0")
	require.NoError(t, err)
	assert.EqualError(t, ValidateAddressPath(path), "invalid change path: 2147483648")
}
