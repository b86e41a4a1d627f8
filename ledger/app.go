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
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ergoplatform/ergo-ledger-go/accounts"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// Instruction is an enumeration of the commands understood by the device.
type Instruction byte

// CLA is the instruction class of the Ergo application.
const CLA byte = 0xe0

const (
	insGetAppVersion     Instruction = 0x01 // Returns the version of the Ergo app
	insGetAppName        Instruction = 0x02 // Returns the name of the running app
	insGetExtendedPubKey Instruction = 0x10 // Returns the public key and chain code of a path
	insDeriveAddress     Instruction = 0x11 // Returns or displays the address of a path
	insAttestInput       Instruction = 0x20 // Attests an input box, see attest.go
	insSignTransaction   Instruction = 0x21 // Signs a transaction, see sign.go
)

// Second parameter values shared by the commands accepting an auth token.
const (
	authWithoutToken byte = 0x01
	authWithToken    byte = 0x02
)

const (
	deriveP1Return  byte = 0x01 // Return the address bytes
	deriveP1Display byte = 0x02 // Display the address on screen, return nothing
)

const (
	pubKeyLength    = 33
	chainCodeLength = 32
)

var (
	errInvalidVersionReply = errors.New("ledger: invalid version reply")
	errInvalidXPubReply    = errors.New("ledger: invalid extended public key reply")
)

// Version is the version of the Ergo application running on the device.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
	Debug bool // App built with debug features enabled
}

// String implements fmt.Stringer.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Debug {
		s += "-debug"
	}
	return s
}

// AppName is the name of the running application.
type AppName struct {
	Name string
}

// ExtendedPublicKey is the account level key material returned by the device.
type ExtendedPublicKey struct {
	PublicKey hexutil.Bytes `json:"publicKey"`
	ChainCode hexutil.Bytes `json:"chainCode"`
}

// DerivedAddress is the raw address returned by the device,
// network||content||checksum.
type DerivedAddress struct {
	Raw hexutil.Bytes `json:"addressHex"`
}

// Address decodes the raw address bytes.
func (d *DerivedAddress) Address() (*ergo.Address, error) {
	return ergo.AddressFromBytes(d.Raw)
}

// App is a connection to the Ergo application on a Ledger device. All
// methods are safe for concurrent use, requests are queued on the device.
type App struct {
	device *Device

	authToken    uint32
	useAuthToken bool

	commsLock chan struct{} // Mutex (buf=1) owning the device for a whole session
	log       log.Logger
}

// NewApp creates a handle to the Ergo app behind transport. A zero authToken
// is replaced by a random one. Auth tokens are in use by default.
func NewApp(transport Transport, authToken uint32) *App {
	logger := log.New("app", "ergo")
	if authToken == 0 {
		authToken = newAuthToken()
	}
	app := &App{
		device:       NewDevice(transport, logger),
		authToken:    authToken,
		useAuthToken: true,
		commsLock:    make(chan struct{}, 1),
		log:          logger,
	}
	app.commsLock <- struct{}{}
	return app
}

// newAuthToken picks a random non-zero token.
func newAuthToken() uint32 {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("ledger: no entropy for auth token: %v", err))
		}
		if token := binary.BigEndian.Uint32(buf[:]); token != 0 {
			return token
		}
	}
}

// WithLogger replaces the contextual logger of the app and its device.
func (a *App) WithLogger(logger log.Logger) *App {
	a.lock()
	defer a.unlock()

	a.log = logger.New("app", "ergo")
	a.device.log = a.log
	return a
}

// UseAuthToken toggles whether the auth token is sent along with the commands
// that accept one.
func (a *App) UseAuthToken(use bool) *App {
	a.lock()
	defer a.unlock()

	a.useAuthToken = use
	return a
}

// AuthToken returns the token sent to the device, or zero if tokens are
// disabled.
func (a *App) AuthToken() uint32 {
	a.lock()
	defer a.unlock()

	return a.token()
}

// token is AuthToken for callers already holding the comms lock.
func (a *App) token() uint32 {
	if !a.useAuthToken {
		return 0
	}
	return a.authToken
}

func (a *App) lock()   { <-a.commsLock }
func (a *App) unlock() { a.commsLock <- struct{}{} }

// authFlag returns the parameter announcing whether a token is attached.
func authFlag(token uint32) byte {
	if token != 0 {
		return authWithToken
	}
	return authWithoutToken
}

// GetAppVersion retrieves the version of the Ergo app.
//
//	CLA | INS | P1 | P2 | Lc
//	----+-----+----+----+----
//	 E0 | 01  | 00 | 00 | 00
//
// With the output data being:
//
//	Description             | Length
//	------------------------+--------
//	Major version           | 1 byte
//	Minor version           | 1 byte
//	Patch version           | 1 byte
//	Flags 01: debug build   | 1 byte
func (a *App) GetAppVersion() (*Version, error) {
	a.lock()
	defer a.unlock()

	res, err := a.device.Send(CLA, insGetAppVersion, 0x00, 0x00, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Data) < 4 {
		return nil, errInvalidVersionReply
	}
	return &Version{
		Major: res.Data[0],
		Minor: res.Data[1],
		Patch: res.Data[2],
		Debug: res.Data[3]&0x01 == 0x01,
	}, nil
}

// GetAppName retrieves the name of the running application.
func (a *App) GetAppName() (*AppName, error) {
	a.lock()
	defer a.unlock()

	res, err := a.device.Send(CLA, insGetAppName, 0x00, 0x00, nil)
	if err != nil {
		return nil, err
	}
	return &AppName{Name: DecodeASCII(res.Data)}, nil
}

// GetExtendedPublicKey retrieves the public key and chain code of an Ergo
// path, usually an account path such as m/44'/429'/0'. The user is asked to
// approve the export unless a previously approved auth token is attached.
//
//	CLA | INS | P1 | P2 | Lc  | Data
//	----+-----+----+----+-----+---------------------------
//	 E0 | 10  | 01 without token
//	            02 with token
//	                 | 00 | var | path || auth token (opt.)
//
// With the output data being:
//
//	Description            | Length
//	-----------------------+---------
//	Compressed public key  | 33 bytes
//	Chain code             | 32 bytes
func (a *App) GetExtendedPublicKey(path string) (*ExtendedPublicKey, error) {
	a.lock()
	defer a.unlock()

	token := a.token()
	data, err := new(packet).path(path).authToken(token).bytes()
	if err != nil {
		return nil, err
	}
	res, err := a.device.Send(CLA, insGetExtendedPubKey, authFlag(token), 0x00, data)
	if err != nil {
		return nil, err
	}
	if len(res.Data) != pubKeyLength+chainCodeLength {
		return nil, fmt.Errorf("%w: %d bytes", errInvalidXPubReply, len(res.Data))
	}
	return &ExtendedPublicKey{
		PublicKey: hexutil.Bytes(res.Data[:pubKeyLength]),
		ChainCode: hexutil.Bytes(res.Data[pubKeyLength:]),
	}, nil
}

// DeriveAddress retrieves the address located at path without displaying it.
//
//	CLA | INS | P1 | P2 | Lc  | Data
//	----+-----+----+----+-----+--------------------------------------
//	 E0 | 11  | 01 return address
//	            02 display address
//	                 | 01 without token
//	                   02 with token
//	                      | var | network || path || auth token (opt.)
//
// The returned address is network||content||checksum.
func (a *App) DeriveAddress(path string, network ergo.Network) (*DerivedAddress, error) {
	a.lock()
	defer a.unlock()

	res, err := a.deriveAddress(path, network, deriveP1Return)
	if err != nil {
		return nil, err
	}
	return &DerivedAddress{Raw: hexutil.Bytes(res.Data)}, nil
}

// ShowAddress displays the address located at path on the device screen. It
// returns true once the user acknowledged it.
func (a *App) ShowAddress(path string, network ergo.Network) (bool, error) {
	a.lock()
	defer a.unlock()

	if _, err := a.deriveAddress(path, network, deriveP1Display); err != nil {
		return false, err
	}
	return true, nil
}

func (a *App) deriveAddress(path string, network ergo.Network, p1 byte) (*DeviceResponse, error) {
	parsed, err := accounts.ParsePath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	if err := accounts.ValidateAddressPath(parsed); err != nil {
		return nil, err
	}
	token := a.token()
	data, err := new(packet).raw(byte(network)).path(path).authToken(token).bytes()
	if err != nil {
		return nil, err
	}
	return a.device.Send(CLA, insDeriveAddress, p1, authFlag(token), data)
}
