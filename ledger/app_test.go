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
	"sync"
	"testing"

	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"github.com/ergoplatform/ergo-ledger-go/ledger/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testXPubKey   = "025381e95e132a4b7a6fc66844a81657a07da1ef5041eaefb7fce03f71c06a11a9"
	testChainCode = "9cc4eb9abc8d3f55afeff7bcb8fe2d0a8d100fa35f6fcbac74deded867633eba"
)

// newTestApp creates an app replaying record, and checks the whole record was
// consumed when the test ends.
func newTestApp(t *testing.T, record string, authToken uint32) *App {
	t.Helper()

	replayer := ledgertest.MustReplayer(record)
	t.Cleanup(func() {
		assert.NoError(t, replayer.Done())
	})
	return NewApp(replayer, authToken)
}

func TestAuthTokenGeneration(t *testing.T) {
	app := NewApp(ledgertest.NewReplayer(), 0)
	assert.NotZero(t, app.AuthToken())

	app = NewApp(ledgertest.NewReplayer(), 0x7ee523ef)
	assert.Equal(t, uint32(0x7ee523ef), app.AuthToken())

	app.UseAuthToken(false)
	assert.Zero(t, app.AuthToken())

	app.UseAuthToken(true)
	assert.Equal(t, uint32(0x7ee523ef), app.AuthToken())
}

func TestGetAppVersion(t *testing.T) {
	app := newTestApp(t, `
		=> e001000000
		<= 000004019000
	`, 0)

	version, err := app.GetAppVersion()
	require.NoError(t, err)
	assert.Equal(t, &Version{Major: 0, Minor: 0, Patch: 4, Debug: true}, version)
	assert.Equal(t, "0.0.4-debug", version.String())
}

func TestGetAppVersionShortReply(t *testing.T) {
	app := newTestApp(t, `
		=> e001000000
		<= 00009000
	`, 0)

	_, err := app.GetAppVersion()
	assert.ErrorIs(t, err, errInvalidVersionReply)
}

func TestGetAppName(t *testing.T) {
	app := newTestApp(t, `
		=> e002000000
		<= 4572676f9000
	`, 0)

	name, err := app.GetAppName()
	require.NoError(t, err)
	assert.Equal(t, &AppName{Name: "Ergo"}, name)
}

func TestGetExtendedPublicKey(t *testing.T) {
	app := newTestApp(t, `
		=> e010020011038000002c800001ad800000007ee523ef
		<= 025381e95e132a4b7a6fc66844a81657a07da1ef5041eaefb7fce03f71c06a11a99cc4eb9abc8d3f55afeff7bcb8fe2d0a8d100fa35f6fcbac74deded867633eba9000
	`, 0x7ee523ef)

	xpub, err := app.GetExtendedPublicKey("m/44'/429'/0'")
	require.NoError(t, err)
	assert.Equal(t, testXPubKey, DecodeHex(xpub.PublicKey))
	assert.Equal(t, testChainCode, DecodeHex(xpub.ChainCode))
}

func TestGetExtendedPublicKeyWithoutToken(t *testing.T) {
	app := newTestApp(t, `
		=> e01001000d038000002c800001ad80000000
		<= 025381e95e132a4b7a6fc66844a81657a07da1ef5041eaefb7fce03f71c06a11a99cc4eb9abc8d3f55afeff7bcb8fe2d0a8d100fa35f6fcbac74deded867633eba9000

		=> e01001000d038000002c800001ad80000000
		<= 6985
	`, 0).UseAuthToken(false)

	xpub, err := app.GetExtendedPublicKey("m/44'/429'/0'")
	require.NoError(t, err)
	assert.Equal(t, testXPubKey, DecodeHex(xpub.PublicKey))

	_, err = app.GetExtendedPublicKey("m/44'/429'/0'")
	assert.True(t, IsUserRejection(err))
	assert.EqualError(t, err, "Operation denied by user")
}

func TestGetExtendedPublicKeyInvalidPath(t *testing.T) {
	app := newTestApp(t, "", 0)

	_, err := app.GetExtendedPublicKey("m/44'/60'/0'")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestDeriveAddress(t *testing.T) {
	app := newTestApp(t, `
		=> e01101021a00058000002c800001ad8000000000000000000000007de17fdd
		<= 0102a51a0c5e6b456c2c8e71f238dc02f5345aad9a7c5b8c655dd24bc5e419c4212d731952549000
	`, 0x7de17fdd)

	derived, err := app.DeriveAddress("m/44'/429'/0'/0/0", ergo.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, "0102a51a0c5e6b456c2c8e71f238dc02f5345aad9a7c5b8c655dd24bc5e419c4212d73195254", DecodeHex(derived.Raw))

	addr, err := derived.Address()
	require.NoError(t, err)
	assert.Equal(t, "9fmmpNtxpYe5rFB5MAb4v86FFvTXby5jykoLM6XtGyqwEmFK4io", addr.String())
}

func TestShowAddress(t *testing.T) {
	app := newTestApp(t, `
		=> e01102021a00058000002c800001ad8000000000000000000000007ee523ef
		<= 9000
	`, 0x7ee523ef)

	ok, err := app.ShowAddress("m/44'/429'/0'/0/0", ergo.Mainnet)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShowAddressWithoutToken(t *testing.T) {
	app := newTestApp(t, `
		=> e01102011600058000002c800001ad800000000000000000000000
		<= 9000

		=> e01102011600058000002c800001ad800000000000000000000000
		<= 6985
	`, 0).UseAuthToken(false)

	ok, err := app.ShowAddress("m/44'/429'/0'/0/0", ergo.Mainnet)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = app.ShowAddress("m/44'/429'/0'/0/0", ergo.Mainnet)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrDenied)
}

func TestAddressPathValidation(t *testing.T) {
	// Nothing may reach the device
	app := newTestApp(t, "", 0).UseAuthToken(false)

	_, err := app.ShowAddress("m/44'/429'/0'/3/0", ergo.Mainnet)
	assert.EqualError(t, err, "invalid change path: 3")

	_, err = app.ShowAddress("m/44'/429'", ergo.Mainnet)
	assert.EqualError(t, err, "invalid path length. 2")

	_, err = app.DeriveAddress("m/44'/429'/0'/10/0", ergo.Mainnet)
	assert.EqualError(t, err, "invalid change path: 10")

	_, err = app.DeriveAddress("m/44'/429'/0'/1", ergo.Mainnet)
	assert.EqualError(t, err, "invalid path length. 4")
}

func TestConcurrentRequestsAreSerialised(t *testing.T) {
	record := ""
	for i := 0; i < 8; i++ {
		record += "=> e002000000\n<= 4572676f9000\n"
	}
	app := newTestApp(t, record, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := app.GetAppName()
			if assert.NoError(t, err) {
				assert.Equal(t, "Ergo", name.Name)
			}
		}()
	}
	wg.Wait()
}
