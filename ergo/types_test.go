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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIDsFirstOccurrence(t *testing.T) {
	tx := &UnsignedTransaction{
		Inputs: []UnsignedBox{
			{Tokens: []Token{{ID: "bb", Amount: "1"}, {ID: "aa", Amount: "2"}}},
			{Tokens: []Token{{ID: "aa", Amount: "3"}, {ID: "cc", Amount: "4"}}},
		},
	}
	assert.Equal(t, []string{"bb", "aa", "cc"}, tx.TokenIDs())

	tx.DistinctTokenIDs = []string{"cc", "aa", "bb"}
	assert.Equal(t, []string{"cc", "aa", "bb"}, tx.TokenIDs())
}

func TestUnsignedBoxJSON(t *testing.T) {
	blob := `{
		"txId": "e9b0a1c2",
		"index": 1,
		"value": "1000000000",
		"ergoTree": "0x0008cd02",
		"creationHeight": 1298949,
		"tokens": [{"tokenId": "aa", "amount": "5"}],
		"additionalRegisters": "0x00",
		"signPath": "m/44'/429'/0'/0/0"
	}`
	var box UnsignedBox
	require.NoError(t, json.Unmarshal([]byte(blob), &box))
	assert.Equal(t, uint16(1), box.Index)
	assert.Equal(t, []byte{0x00, 0x08, 0xcd, 0x02}, []byte(box.ErgoTree))
	assert.Equal(t, []Token{{ID: "aa", Amount: "5"}}, box.Tokens)
	assert.Empty(t, box.Extension)
}

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork("testnet")
	require.NoError(t, err)
	assert.Equal(t, Testnet, n)
	assert.Equal(t, "testnet", n.String())

	n, err = ParseNetwork("")
	require.NoError(t, err)
	assert.Equal(t, Mainnet, n)

	_, err = ParseNetwork("devnet")
	assert.Error(t, err)
}
