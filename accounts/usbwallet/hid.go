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

// This file contains the HID framing used by Ledger devices to carry APDUs
// over 64 byte USB reports.

package usbwallet

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

const (
	hidChannel    = 0x0101 // Channel id of the APDU transport
	hidCommandTag = 0x05   // Tag of APDU carrying reports
	hidReportSize = 64     // Size of a single HID report
)

// errReplyInvalidHeader is returned by an exchange if the device replies with
// a mismatching report header. This usually means another app or the
// dashboard owns the channel.
var errReplyInvalidHeader = errors.New("usbwallet: invalid reply header")

// errReplyInvalidSequence is returned if the device skips or repeats a report.
var errReplyInvalidSequence = errors.New("usbwallet: invalid reply sequence")

// errReplyTooShort is returned if the reassembled reply cannot hold a status word.
var errReplyTooShort = errors.New("usbwallet: reply shorter than status word")

// HIDTransport implements ledger.Transport over the report stream of an
// opened USB HID device.
type HIDTransport struct {
	device io.ReadWriter // USB device connection to communicate through
	lock   sync.Mutex    // Serialises report streams
	log    log.Logger
}

// NewHIDTransport wraps an opened HID device.
func NewHIDTransport(device io.ReadWriter, logger log.Logger) *HIDTransport {
	if logger == nil {
		logger = log.Root()
	}
	return &HIDTransport{device: device, log: logger}
}

// Exchange performs a data exchange with the Ledger wallet, sending it an APDU
// and retrieving the response. The APDU is prefixed with its length and split
// into 64 byte reports:
//
//	Description                      | Length
//	---------------------------------+------------------
//	Channel ID (0x0101)              | 2 bytes
//	Command tag (0x05)               | 1 byte
//	Packet sequence index (big end.) | 2 bytes
//	Payload length (first only)      | 2 bytes
//	Payload                          | remaining, padded
//
// The response is streamed back with the same framing, the status word being
// the last two bytes of the reassembled payload.
func (t *HIDTransport) Exchange(apdu []byte) ([]byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	// Prefix the message with its length, it may span multiple reports
	payload := make([]byte, 2, 2+len(apdu))
	binary.BigEndian.PutUint16(payload, uint16(len(apdu)))
	payload = append(payload, apdu...)

	header := []byte{hidChannel >> 8, hidChannel & 0xff, hidCommandTag, 0x00, 0x00}
	report := make([]byte, hidReportSize)

	for i := 0; len(payload) > 0; i++ {
		// Reports are fixed size, the last one is padded with zeroes
		clear(report)
		copy(report, header)
		binary.BigEndian.PutUint16(report[3:], uint16(i))
		payload = payload[copy(report[len(header):], payload):]

		t.log.Trace("Data chunk sent to the Ledger", "chunk", hexutil.Bytes(report))
		if _, err := t.device.Write(report); err != nil {
			return nil, err
		}
	}
	// Stream the reply back from the wallet in 64 byte reports
	var reply []byte
	for seq := uint16(0); ; seq++ {
		if _, err := io.ReadFull(t.device, report); err != nil {
			return nil, err
		}
		t.log.Trace("Data chunk received from the Ledger", "chunk", hexutil.Bytes(report))

		if binary.BigEndian.Uint16(report) != hidChannel || report[2] != hidCommandTag {
			return nil, errReplyInvalidHeader
		}
		if binary.BigEndian.Uint16(report[3:]) != seq {
			return nil, errReplyInvalidSequence
		}
		// The first report carries the total reply length
		var chunk []byte
		if seq == 0 {
			reply = make([]byte, 0, int(binary.BigEndian.Uint16(report[5:7])))
			chunk = report[7:]
		} else {
			chunk = report[5:]
		}
		if left := cap(reply) - len(reply); left > len(chunk) {
			reply = append(reply, chunk...)
		} else {
			reply = append(reply, chunk[:left]...)
			break
		}
	}
	if len(reply) < 2 {
		return nil, errReplyTooShort
	}
	return reply, nil
}
