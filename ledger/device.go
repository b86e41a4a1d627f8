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

// Package ledger implements the host side of the Ergo application protocol
// for Ledger hardware wallets: APDU framing, box attestation and transaction
// signing sessions.
package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// Transport delivers a raw APDU to the device and returns the raw response,
// status word included.
type Transport interface {
	Exchange(apdu []byte) ([]byte, error)
}

// DeviceResponse is a successful device reply.
type DeviceResponse struct {
	Data       []byte
	StatusWord StatusWord
}

// Device frames commands into APDUs and checks the returned status words. It
// performs no synchronisation, callers serialise access.
type Device struct {
	transport Transport
	log       log.Logger
}

// NewDevice wraps transport. A nil logger falls back to the root logger.
func NewDevice(transport Transport, logger log.Logger) *Device {
	if logger == nil {
		logger = log.Root()
	}
	return &Device{transport: transport, log: logger}
}

// Send issues a single command. The exchange is as follows:
//
//	CLA | INS | P1 | P2 | Lc  | Data
//	----+-----+----+----+-----+---------
//	 1  |  1  | 1  | 1  | 1   | Lc bytes
//
// With the response being:
//
//	Description | Length
//	------------+---------
//	Data        | variable
//	Status word | 2 bytes
func (d *Device) Send(cla byte, ins Instruction, p1, p2 byte, data []byte) (*DeviceResponse, error) {
	if len(data) > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(data), MaxDataLength)
	}
	apdu := make([]byte, 0, 5+len(data))
	apdu = append(apdu, cla, byte(ins), p1, p2, byte(len(data)))
	apdu = append(apdu, data...)

	d.log.Trace("APDU sent to the Ledger", "apdu", hexutil.Bytes(apdu))
	reply, err := d.transport.Exchange(apdu)
	if err != nil {
		return nil, fmt.Errorf("ledger: exchange failed: %w", err)
	}
	d.log.Trace("APDU reply from the Ledger", "reply", hexutil.Bytes(reply))

	if len(reply) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedResponse, len(reply))
	}
	sw := StatusWord(binary.BigEndian.Uint16(reply[len(reply)-2:]))
	if sw != StatusOK {
		return nil, &DeviceError{Code: sw}
	}
	return &DeviceResponse{Data: reply[:len(reply)-2], StatusWord: sw}, nil
}

// SendChunked streams data in MaxDataLength pieces, all with the same header.
// It stops at the first failure. An empty payload sends nothing.
func (d *Device) SendChunked(cla byte, ins Instruction, p1, p2 byte, data []byte) ([]*DeviceResponse, error) {
	var responses []*DeviceResponse
	for _, chunk := range chunkBytes(data, MaxDataLength) {
		res, err := d.Send(cla, ins, p1, p2, chunk)
		if err != nil {
			return nil, err
		}
		responses = append(responses, res)
	}
	return responses, nil
}
