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
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// AddressType is the script type nibble of an Ergo address.
type AddressType byte

const (
	P2PK AddressType = 0x01 // Pay to public key
	P2SH AddressType = 0x02 // Pay to script hash
	P2S  AddressType = 0x03 // Pay to script
)

const (
	checksumLength = 4
	pubKeyLength   = 33
	scriptHashLen  = 24
)

var (
	// p2pkTreePrefix is the ergo tree header of a ProveDlog(pk) script.
	p2pkTreePrefix = []byte{0x00, 0x08, 0xcd}

	// p2shTreePrefix and p2shTreeSuffix surround the 24 byte script hash of a
	// pay-to-script-hash ergo tree.
	p2shTreePrefix = hexutil.MustDecode("0x00ea02d193b4cbe4e3010e040004300e18")
	p2shTreeSuffix = hexutil.MustDecode("0xd40801")

	// MinerFeeErgoTree is the well known script guarding the miner fee output.
	MinerFeeErgoTree = hexutil.MustDecode("0x1005040004000e36100204a00b08cd0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798ea02d192a39a8cc7a701730073011001020402d19683030193a38cc7b2a57300000193c2b2a57301007473027303830108cdeeac93b1a57304")
)

var (
	errInvalidAddress  = errors.New("ergo: invalid address")
	errInvalidChecksum = errors.New("ergo: invalid address checksum")
)

// Address is a decoded Ergo address.
type Address struct {
	Network Network
	Type    AddressType
	Content []byte // public key, script hash or full script depending on Type
}

// NewP2PKAddress wraps a compressed secp256k1 public key into an address.
func NewP2PKAddress(network Network, pubkey []byte) (*Address, error) {
	if len(pubkey) != pubKeyLength {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", errInvalidAddress, pubKeyLength, len(pubkey))
	}
	return &Address{Network: network, Type: P2PK, Content: cloneBytes(pubkey)}, nil
}

// AddressFromErgoTree recognises the P2PK and P2SH script templates and falls
// back to a P2S address for anything else.
func AddressFromErgoTree(tree []byte, network Network) (*Address, error) {
	if len(tree) == 0 {
		return nil, fmt.Errorf("%w: empty ergo tree", errInvalidAddress)
	}
	if len(tree) == len(p2pkTreePrefix)+pubKeyLength && bytes.HasPrefix(tree, p2pkTreePrefix) {
		return &Address{Network: network, Type: P2PK, Content: cloneBytes(tree[len(p2pkTreePrefix):])}, nil
	}
	if len(tree) == len(p2shTreePrefix)+scriptHashLen+len(p2shTreeSuffix) &&
		bytes.HasPrefix(tree, p2shTreePrefix) && bytes.HasSuffix(tree, p2shTreeSuffix) {
		hash := tree[len(p2shTreePrefix) : len(p2shTreePrefix)+scriptHashLen]
		return &Address{Network: network, Type: P2SH, Content: cloneBytes(hash)}, nil
	}
	return &Address{Network: network, Type: P2S, Content: cloneBytes(tree)}, nil
}

// AddressFromBytes decodes the raw prefix||content||checksum form of an
// address, as returned by the device.
func AddressFromBytes(raw []byte) (*Address, error) {
	if len(raw) <= 1+checksumLength {
		return nil, fmt.Errorf("%w: too short (%d bytes)", errInvalidAddress, len(raw))
	}
	body, sum := raw[:len(raw)-checksumLength], raw[len(raw)-checksumLength:]
	if !bytes.Equal(checksum(body), sum) {
		return nil, errInvalidChecksum
	}
	addr := &Address{
		Network: Network(body[0] & 0xf0),
		Type:    AddressType(body[0] & 0x0f),
		Content: cloneBytes(body[1:]),
	}
	switch addr.Type {
	case P2PK:
		if len(addr.Content) != pubKeyLength {
			return nil, fmt.Errorf("%w: bad P2PK key length %d", errInvalidAddress, len(addr.Content))
		}
	case P2SH:
		if len(addr.Content) != scriptHashLen {
			return nil, fmt.Errorf("%w: bad P2SH hash length %d", errInvalidAddress, len(addr.Content))
		}
	case P2S:
	default:
		return nil, fmt.Errorf("%w: unknown address type %d", errInvalidAddress, addr.Type)
	}
	return addr, nil
}

// ParseAddress decodes a base58 address and verifies its checksum.
func ParseAddress(s string) (*Address, error) {
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: not base58: %q", errInvalidAddress, s)
	}
	return AddressFromBytes(raw)
}

// Bytes returns prefix||content||checksum.
func (a *Address) Bytes() []byte {
	body := make([]byte, 0, 1+len(a.Content)+checksumLength)
	body = append(body, byte(a.Network)|byte(a.Type))
	body = append(body, a.Content...)
	return append(body, checksum(body)...)
}

// String implements fmt.Stringer, returning the base58 form of the address.
func (a *Address) String() string {
	return base58.Encode(a.Bytes())
}

// ErgoTree reconstructs the script the address pays to.
func (a *Address) ErgoTree() []byte {
	switch a.Type {
	case P2PK:
		return append(cloneBytes(p2pkTreePrefix), a.Content...)
	case P2SH:
		tree := append(cloneBytes(p2shTreePrefix), a.Content...)
		return append(tree, p2shTreeSuffix...)
	}
	return cloneBytes(a.Content)
}

// IsMinerFee reports whether tree is the miner fee script.
func IsMinerFee(tree []byte) bool {
	return bytes.Equal(tree, MinerFeeErgoTree)
}

func checksum(body []byte) []byte {
	sum := blake2b.Sum256(body)
	return sum[:checksumLength]
}

// cloneBytes returns a copy of b that does not alias the caller's buffer.
func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
