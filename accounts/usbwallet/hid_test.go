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

package usbwallet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/ergoplatform/ergo-ledger-go/ledger"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hidReports frames payload the way the device streams replies.
func hidReports(payload []byte) [][]byte {
	msg := binary.BigEndian.AppendUint16(nil, uint16(len(payload)))
	msg = append(msg, payload...)

	var reports [][]byte
	for seq := 0; len(msg) > 0; seq++ {
		report := make([]byte, hidReportSize)
		copy(report, []byte{0x01, 0x01, 0x05})
		binary.BigEndian.PutUint16(report[3:], uint16(seq))
		msg = msg[copy(report[5:], msg):]
		reports = append(reports, report)
	}
	return reports
}

// fakeHID is an in-memory Ledger answering every reassembled APDU with the
// output of respond.
type fakeHID struct {
	respond func(apdu []byte) []byte

	written [][]byte
	pending []byte // Reassembled command so far
	want    int    // Announced command length
	replies bytes.Buffer
	closed  bool
	lock    sync.Mutex
}

func (f *fakeHID) Write(report []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.written = append(f.written, append([]byte(nil), report...))
	if binary.BigEndian.Uint16(report[3:]) == 0 {
		f.want = int(binary.BigEndian.Uint16(report[5:]))
		f.pending = append([]byte(nil), report[7:]...)
	} else {
		f.pending = append(f.pending, report[5:]...)
	}
	if len(f.pending) >= f.want {
		for _, reply := range hidReports(f.respond(f.pending[:f.want])) {
			f.replies.Write(reply)
		}
	}
	return len(report), nil
}

func (f *fakeHID) Read(b []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.replies.Read(b)
}

func (f *fakeHID) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.closed = true
	return nil
}

func replyWith(reply string) func([]byte) []byte {
	return func([]byte) []byte { return hexutil.MustDecode(reply) }
}

func TestHIDExchangeSingleReport(t *testing.T) {
	var got []byte
	dev := &fakeHID{respond: func(apdu []byte) []byte {
		got = apdu
		return hexutil.MustDecode("0x000004019000")
	}}
	reply, err := NewHIDTransport(dev, nil).Exchange(hexutil.MustDecode("0xe001000000"))
	require.NoError(t, err)

	assert.Equal(t, hexutil.MustDecode("0x000004019000"), reply)
	assert.Equal(t, hexutil.MustDecode("0xe001000000"), got)

	require.Len(t, dev.written, 1)
	want := make([]byte, hidReportSize)
	copy(want, hexutil.MustDecode("0x01010500000005e001000000"))
	assert.Equal(t, want, dev.written[0])
}

func TestHIDExchangeMultipleReports(t *testing.T) {
	apdu := append([]byte{0xe0, 0x21, 0x16, 0x01, 0xc8}, bytes.Repeat([]byte{0xab}, 200)...)
	long := append(bytes.Repeat([]byte{0xcd}, 100), 0x90, 0x00)

	var got []byte
	dev := &fakeHID{respond: func(cmd []byte) []byte {
		got = cmd
		return long
	}}
	reply, err := NewHIDTransport(dev, nil).Exchange(apdu)
	require.NoError(t, err)

	assert.Equal(t, apdu, got)
	assert.Equal(t, long, reply)

	// 2 length bytes and 205 APDU bytes over 59 byte report payloads
	require.Len(t, dev.written, 4)
	for i, report := range dev.written {
		assert.Len(t, report, hidReportSize)
		assert.Equal(t, uint16(i), binary.BigEndian.Uint16(report[3:]))
	}
}

func TestHIDExchangeInvalidReply(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		dev := &fakeHID{respond: func([]byte) []byte { return nil }}

		// Browser mode replies on another channel
		report := make([]byte, hidReportSize)
		copy(report, hexutil.MustDecode("0x010205000000029000"))
		dev.replies.Write(report)

		_, err := NewHIDTransport(dev, nil).Exchange(hexutil.MustDecode("0xe001000000"))
		assert.ErrorIs(t, err, errReplyInvalidHeader)
	})
	t.Run("sequence", func(t *testing.T) {
		dev := &fakeHID{respond: func([]byte) []byte { return nil }}
		long := hidReports(append(bytes.Repeat([]byte{0xcd}, 100), 0x90, 0x00))
		dev.replies.Write(long[0])
		dev.replies.Write(long[0])

		_, err := NewHIDTransport(dev, nil).Exchange(hexutil.MustDecode("0xe001000000"))
		assert.ErrorIs(t, err, errReplyInvalidSequence)
	})
	t.Run("short", func(t *testing.T) {
		dev := &fakeHID{respond: replyWith("0x90")}

		_, err := NewHIDTransport(dev, nil).Exchange(hexutil.MustDecode("0xe001000000"))
		assert.ErrorIs(t, err, errReplyTooShort)
	})
}

type failingWriter struct{ fakeHID }

var errUnplugged = errors.New("device unplugged")

func (f *failingWriter) Write([]byte) (int, error) { return 0, errUnplugged }

func TestHIDExchangeWriteFailure(t *testing.T) {
	_, err := NewHIDTransport(&failingWriter{}, nil).Exchange(hexutil.MustDecode("0xe001000000"))
	assert.ErrorIs(t, err, errUnplugged)
}

func TestHIDTransportDrivesApp(t *testing.T) {
	dev := &fakeHID{respond: replyWith("0x000004019000")}
	app := ledger.NewApp(NewHIDTransport(dev, nil), 0)

	version, err := app.GetAppVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.0.4-debug", version.String())
}
