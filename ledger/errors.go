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

// StatusWord is the two byte status trailing every device response.
type StatusWord uint16

const (
	StatusOK StatusWord = 0x9000

	StatusDenied              StatusWord = 0x6985
	StatusWrongP1P2           StatusWord = 0x6a86
	StatusWrongAPDUDataLen    StatusWord = 0x6a87
	StatusInsNotSupported     StatusWord = 0x6d00
	StatusClaNotSupported     StatusWord = 0x6e00
	StatusBusy                StatusWord = 0xb000
	StatusWrongResponseLen    StatusWord = 0xb001
	StatusBadSessionID        StatusWord = 0xb002
	StatusWrongSubcommand     StatusWord = 0xb003
	StatusBadState            StatusWord = 0xb0ff
	StatusBadTokenID          StatusWord = 0xe001
	StatusBadTokenValue       StatusWord = 0xe002
	StatusBadContextExtSize   StatusWord = 0xe003
	StatusBadDataInput        StatusWord = 0xe004
	StatusBadBoxID            StatusWord = 0xe005
	StatusBadTokenIndex       StatusWord = 0xe006
	StatusBadFrameIndex       StatusWord = 0xe007
	StatusBadInputCount       StatusWord = 0xe008
	StatusBadOutputCount      StatusWord = 0xe009
	StatusTooManyTokens       StatusWord = 0xe00a
	StatusTooManyInputs       StatusWord = 0xe00b
	StatusTooManyDataInputs   StatusWord = 0xe00c
	StatusTooManyInputFrames  StatusWord = 0xe00d
	StatusTooManyOutputs      StatusWord = 0xe00e
	StatusHasherError         StatusWord = 0xe00f
	StatusBufferError         StatusWord = 0xe010
	StatusU64Overflow         StatusWord = 0xe011
	StatusBIP32BadPath        StatusWord = 0xe012
	StatusInternalCrypto      StatusWord = 0xe013
	StatusNotEnoughData       StatusWord = 0xe014
	StatusTooMuchData         StatusWord = 0xe015
	StatusAddressGenFailed    StatusWord = 0xe016
	StatusSchnorrFailed       StatusWord = 0xe017
	StatusBadFrameSignature   StatusWord = 0xe018
	StatusBadNetworkType      StatusWord = 0xe019
	StatusSmallChunk          StatusWord = 0xe01a
	StatusBIP32FormatFailed   StatusWord = 0xe101
	StatusAddressFormatFailed StatusWord = 0xe102
	StatusStackOverflow       StatusWord = 0xffff
)

// Kind groups device status words by what the caller can do about them.
type Kind int

const (
	KindUnknown       Kind = iota // Status word missing from the table
	KindUserRejection             // The user declined on the device
	KindBadRequest                // Malformed command, P1/P2 or length
	KindSession                   // Busy device or stale session
	KindState                     // Commands issued out of order
	KindDomain                    // Transaction content refused by the app
	KindInternal                  // Device side failure
	KindDisplay                   // Device could not render a value
)

var kindNames = [...]string{"unknown", "user-rejection", "bad-request", "session", "state", "domain", "internal", "display"}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type statusInfo struct {
	kind    Kind
	message string
}

// statusTable maps every status word the Ergo app is known to return. It is
// never modified after initialisation.
var statusTable = map[StatusWord]statusInfo{
	StatusDenied:              {KindUserRejection, "Operation denied by user"},
	StatusWrongP1P2:           {KindBadRequest, "Incorrect P1 or P2"},
	StatusWrongAPDUDataLen:    {KindBadRequest, "Bad APDU length"},
	StatusInsNotSupported:     {KindBadRequest, "Instruction isn't supported"},
	StatusClaNotSupported:     {KindBadRequest, "CLA is not supported"},
	StatusBusy:                {KindSession, "Device is busy"},
	StatusWrongResponseLen:    {KindBadRequest, "Wrong response length"},
	StatusBadSessionID:        {KindSession, "Bad session id"},
	StatusWrongSubcommand:     {KindBadRequest, "Unknown subcommand"},
	StatusBadState:            {KindState, "Bad state (check order of calls and errors)"},
	StatusBadTokenID:          {KindDomain, "Bad token ID"},
	StatusBadTokenValue:       {KindDomain, "Bad token value"},
	StatusBadContextExtSize:   {KindDomain, "Bad context extension size"},
	StatusBadDataInput:        {KindDomain, "Bad data input ID"},
	StatusBadBoxID:            {KindDomain, "Bad box ID"},
	StatusBadTokenIndex:       {KindDomain, "Bad token index"},
	StatusBadFrameIndex:       {KindDomain, "Bad frame index"},
	StatusBadInputCount:       {KindDomain, "Bad input count"},
	StatusBadOutputCount:      {KindDomain, "Bad output count"},
	StatusTooManyTokens:       {KindDomain, "Too many tokens"},
	StatusTooManyInputs:       {KindDomain, "Too many inputs"},
	StatusTooManyDataInputs:   {KindDomain, "Too many data inputs"},
	StatusTooManyInputFrames:  {KindDomain, "Too many input frames"},
	StatusTooManyOutputs:      {KindDomain, "Too many outputs"},
	StatusHasherError:         {KindInternal, "Hasher internal error"},
	StatusBufferError:         {KindInternal, "Buffer internal error"},
	StatusU64Overflow:         {KindDomain, "UInt64 overflow"},
	StatusBIP32BadPath:        {KindBadRequest, "Bad Bip32 path"},
	StatusInternalCrypto:      {KindInternal, "Internal crypto engine error"},
	StatusNotEnoughData:       {KindBadRequest, "Not enough data"},
	StatusTooMuchData:         {KindBadRequest, "Too much data"},
	StatusAddressGenFailed:    {KindInternal, "Address generation failed"},
	StatusSchnorrFailed:       {KindInternal, "Schnorr signing failed"},
	StatusBadFrameSignature:   {KindDomain, "Bad frame signature"},
	StatusBadNetworkType:      {KindBadRequest, "Bad network type value"},
	StatusSmallChunk:          {KindBadRequest, "Bad chunk size"},
	StatusBIP32FormatFailed:   {KindDisplay, "Can't display Bip32 path"},
	StatusAddressFormatFailed: {KindDisplay, "Can't display address"},
	StatusStackOverflow:       {KindInternal, "Stack overflow"},
}

// String implements fmt.Stringer, returning the human readable meaning of
// the status word.
func (sw StatusWord) String() string {
	if info, ok := statusTable[sw]; ok {
		return info.message
	}
	if sw == StatusOK {
		return "OK"
	}
	return fmt.Sprintf("Unknown error (0x%04x)", uint16(sw))
}

// Kind returns the class of the status word.
func (sw StatusWord) Kind() Kind {
	return statusTable[sw].kind
}

// DeviceError is returned when the device answers with a non-success status
// word.
type DeviceError struct {
	Code StatusWord
}

// Error implements error.
func (e *DeviceError) Error() string {
	return e.Code.String()
}

// Kind returns the class of the failure.
func (e *DeviceError) Kind() Kind {
	return e.Code.Kind()
}

// Is makes errors.Is match device errors by status word.
func (e *DeviceError) Is(target error) bool {
	t, ok := target.(*DeviceError)
	return ok && t.Code == e.Code
}

// ErrDenied is the device error reported when the user rejects an operation.
var ErrDenied = &DeviceError{Code: StatusDenied}

// IsUserRejection reports whether err, or anything it wraps, is the user
// declining the operation on the device.
func IsUserRejection(err error) bool {
	return errors.Is(err, ErrDenied)
}

// DeviceErrorKind extracts the device error class of err. The second return
// value is false if err did not originate from the device.
func DeviceErrorKind(err error) (Kind, bool) {
	var derr *DeviceError
	if !errors.As(err, &derr) {
		return KindUnknown, false
	}
	return derr.Kind(), true
}

// Errors raised on the host, before or after talking to the device.
var (
	// ErrInvalidEncoding is wrapped by every codec failure.
	ErrInvalidEncoding = errors.New("ledger: invalid encoding")

	// ErrPayloadTooLarge is returned if a single command payload exceeds the
	// APDU ceiling. Nothing is sent.
	ErrPayloadTooLarge = errors.New("ledger: too much data")

	// ErrMalformedResponse is returned if the device reply does not even hold
	// a status word.
	ErrMalformedResponse = errors.New("ledger: wrong response length")

	ErrExtensionAlreadySet = errors.New("ledger: context extension is already set")
	ErrUnknownTokenID      = errors.New("ledger: token id not in the transaction token table")
	ErrNoInputs            = errors.New("ledger: transaction has no inputs")
	ErrMissingChangePath   = errors.New("ledger: change map without derivation path")
	ErrMissingFrameCount   = errors.New("ledger: device did not report the attested frame count")
	ErrInvalidFrame        = errors.New("ledger: invalid attested box frame")
	ErrMissingSignPath     = errors.New("ledger: input without signing path")
)
