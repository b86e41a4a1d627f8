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
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// DefaultSpeculosAddr is where the Speculos emulator serves raw APDUs.
const DefaultSpeculosAddr = "127.0.0.1:9999"

// maxSpeculosReply bounds the reply size announced by the emulator.
const maxSpeculosReply = 64 * 1024

// TCPTransport implements ledger.Transport against the APDU socket of the
// Speculos emulator. Commands are sent as a big endian u32 length followed by
// the APDU; replies carry the u32 length of the data, the data and the status
// word.
type TCPTransport struct {
	conn    net.Conn
	timeout time.Duration // Per exchange deadline, zero waits forever
	lock    sync.Mutex
	log     log.Logger
}

// DialSpeculos connects to an emulator listening on addr.
func DialSpeculos(ctx context.Context, addr string, timeout time.Duration, logger log.Logger) (*TCPTransport, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPTransport(conn, timeout, logger), nil
}

// NewTCPTransport wraps an established emulator connection.
func NewTCPTransport(conn net.Conn, timeout time.Duration, logger log.Logger) *TCPTransport {
	if logger == nil {
		logger = log.Root()
	}
	return &TCPTransport{conn: conn, timeout: timeout, log: logger.New("addr", conn.RemoteAddr())}
}

// Exchange implements ledger.Transport.
func (t *TCPTransport) Exchange(apdu []byte) ([]byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
			return nil, err
		}
	}
	msg := make([]byte, 4, 4+len(apdu))
	binary.BigEndian.PutUint32(msg, uint32(len(apdu)))
	msg = append(msg, apdu...)

	t.log.Trace("APDU sent to the emulator", "apdu", hexutil.Bytes(apdu))
	if _, err := t.conn.Write(msg); err != nil {
		return nil, err
	}
	var size [4]byte
	if _, err := io.ReadFull(t.conn, size[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(size[:])
	if n > maxSpeculosReply {
		return nil, fmt.Errorf("usbwallet: emulator reply too large: %d bytes", n)
	}
	reply := make([]byte, n+2)
	if _, err := io.ReadFull(t.conn, reply); err != nil {
		return nil, err
	}
	t.log.Trace("APDU reply from the emulator", "reply", hexutil.Bytes(reply))
	return reply, nil
}

// Close tears down the emulator connection.
func (t *TCPTransport) Close() error {
	return t.conn.Close()
}
