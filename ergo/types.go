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

// Package ergo contains the host-side data model of Ergo boxes and transactions
// as they are streamed to the hardware wallet, along with address encoding.
package ergo

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Network is the network prefix nibble of an Ergo address.
type Network byte

const (
	Mainnet Network = 0x00
	Testnet Network = 0x10
)

// String implements fmt.Stringer.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	}
	return fmt.Sprintf("network(0x%02x)", byte(n))
}

// ParseNetwork converts a textual network name into its prefix value.
func ParseNetwork(name string) (Network, error) {
	switch name {
	case "mainnet", "main", "":
		return Mainnet, nil
	case "testnet", "test":
		return Testnet, nil
	}
	return 0, fmt.Errorf("unknown network %q", name)
}

// Token is an amount of a token identified by its 32 byte id.
type Token struct {
	ID     string `json:"tokenId"`
	Amount string `json:"amount"`
}

// UnsignedBox is a transaction input together with everything the device needs
// to attest it: the box contents and the id of the transaction that created it.
type UnsignedBox struct {
	TxID                string        `json:"txId"`
	Index               uint16        `json:"index"`
	Value               string        `json:"value"`
	ErgoTree            hexutil.Bytes `json:"ergoTree"`
	CreationHeight      uint32        `json:"creationHeight"`
	Tokens              []Token       `json:"tokens"`
	AdditionalRegisters hexutil.Bytes `json:"additionalRegisters"`
	Extension           hexutil.Bytes `json:"extension,omitempty"`
	SignPath            string        `json:"signPath"`
}

// BoxCandidate is a transaction output that does not exist on chain yet.
type BoxCandidate struct {
	Value          string        `json:"value"`
	ErgoTree       hexutil.Bytes `json:"ergoTree"`
	CreationHeight uint32        `json:"creationHeight"`
	Tokens         []Token       `json:"tokens"`
	Registers      hexutil.Bytes `json:"registers"`
}

// ChangeMap tells the device which output address belongs to the wallet, so
// it can be displayed as change rather than as a payment.
type ChangeMap struct {
	Address string `json:"address"`
	Path    string `json:"path"`
}

// UnsignedTransaction is a transaction ready to be signed by the device.
type UnsignedTransaction struct {
	Inputs           []UnsignedBox  `json:"inputs"`
	DataInputs       []string       `json:"dataInputs"`
	Outputs          []BoxCandidate `json:"outputs"`
	DistinctTokenIDs []string       `json:"distinctTokenIds"`
	ChangeMap        *ChangeMap     `json:"changeMap,omitempty"`
}

// TokenIDs returns the ordered token table of the transaction. An explicit
// DistinctTokenIDs list wins, otherwise ids are collected from the inputs in
// order of first appearance.
func (tx *UnsignedTransaction) TokenIDs() []string {
	if len(tx.DistinctTokenIDs) > 0 {
		return tx.DistinctTokenIDs
	}
	var (
		ids  []string
		seen = make(map[string]struct{})
	)
	for _, input := range tx.Inputs {
		for _, token := range input.Tokens {
			if _, ok := seen[token.ID]; ok {
				continue
			}
			seen[token.ID] = struct{}{}
			ids = append(ids, token.ID)
		}
	}
	return ids
}
