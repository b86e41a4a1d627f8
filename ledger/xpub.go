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

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/ergoplatform/ergo-ledger-go/accounts"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
)

// xpubVersion is the BIP32 version prefix of mainnet public keys ("xpub").
var xpubVersion = []byte{0x04, 0x88, 0xb2, 0x1e}

var errHardenedDerivation = errors.New("ledger: hardened derivation needs the private key")

// HDKey assembles a BIP32 extended public key out of the device reply for
// path. The device does not report the parent fingerprint, it is left zero.
func (k *ExtendedPublicKey) HDKey(path accounts.DerivationPath) (*hdkeychain.ExtendedKey, error) {
	if len(k.PublicKey) != pubKeyLength || len(k.ChainCode) != chainCodeLength {
		return nil, fmt.Errorf("%w: key %d bytes, chain code %d bytes", errInvalidXPubReply, len(k.PublicKey), len(k.ChainCode))
	}
	if _, err := btcec.ParsePubKey(k.PublicKey); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidXPubReply, err)
	}
	var child uint32
	if len(path) > 0 {
		child = path[len(path)-1]
	}
	return hdkeychain.NewExtendedKey(xpubVersion, k.PublicKey, k.ChainCode, []byte{0, 0, 0, 0}, uint8(len(path)), child, false), nil
}

// DeriveAddress derives the P2PK address at change/index below the account
// key on the host, without involving the device.
func (k *ExtendedPublicKey) DeriveAddress(account accounts.DerivationPath, change, index uint32, network ergo.Network) (*ergo.Address, error) {
	if change >= accounts.HardenedOffset || index >= accounts.HardenedOffset {
		return nil, errHardenedDerivation
	}
	key, err := k.HDKey(account)
	if err != nil {
		return nil, err
	}
	if key, err = key.Derive(change); err != nil {
		return nil, err
	}
	if key, err = key.Derive(index); err != nil {
		return nil, err
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}
	return ergo.NewP2PKAddress(network, pub.SerializeCompressed())
}
