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

// Package ledgertest provides a scripted device transport replaying recorded
// APDU exchanges.
package ledgertest

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrUnexpectedExchange = errors.New("ledgertest: unexpected exchange, record exhausted")
	ErrCommandMismatch    = errors.New("ledgertest: command does not match record")
	ErrMalformedRecord    = errors.New("ledgertest: malformed record")
)

// Exchange is a single recorded command and the device reply to it.
type Exchange struct {
	Command  []byte
	Response []byte
}

// ParseRecord reads a record made of "=> command" and "<= response" hex
// lines. Blank lines and lines starting with # are ignored.
func ParseRecord(record string) ([]Exchange, error) {
	var (
		exchanges []Exchange
		pending   []byte
		scanner   = bufio.NewScanner(strings.NewReader(record))
		line      int
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if len(text) < 2 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedRecord, line, text)
		}
		payload, err := hex.DecodeString(strings.TrimSpace(text[2:]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, line, err)
		}
		switch text[:2] {
		case "=>":
			if pending != nil {
				return nil, fmt.Errorf("%w: line %d: command without response", ErrMalformedRecord, line)
			}
			pending = payload
		case "<=":
			if pending == nil {
				return nil, fmt.Errorf("%w: line %d: response without command", ErrMalformedRecord, line)
			}
			exchanges = append(exchanges, Exchange{Command: pending, Response: payload})
			pending = nil
		default:
			return nil, fmt.Errorf("%w: line %d: unknown direction %q", ErrMalformedRecord, line, text[:2])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: trailing command without response", ErrMalformedRecord)
	}
	return exchanges, nil
}

// Replayer answers commands from a record, failing on any deviation.
type Replayer struct {
	exchanges []Exchange
	next      int
	lock      sync.Mutex
}

// NewReplayer creates a replayer over the given exchanges.
func NewReplayer(exchanges ...Exchange) *Replayer {
	return &Replayer{exchanges: exchanges}
}

// NewReplayerFromRecord parses record and wraps it into a replayer.
func NewReplayerFromRecord(record string) (*Replayer, error) {
	exchanges, err := ParseRecord(record)
	if err != nil {
		return nil, err
	}
	return NewReplayer(exchanges...), nil
}

// MustReplayer is NewReplayerFromRecord for records known to be valid.
func MustReplayer(record string) *Replayer {
	r, err := NewReplayerFromRecord(record)
	if err != nil {
		panic(err)
	}
	return r
}

// Exchange implements ledger.Transport.
func (r *Replayer) Exchange(apdu []byte) ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.next >= len(r.exchanges) {
		return nil, fmt.Errorf("%w: got %s", ErrUnexpectedExchange, hexutil.Bytes(apdu))
	}
	want := r.exchanges[r.next]
	if !bytes.Equal(want.Command, apdu) {
		return nil, fmt.Errorf("%w: exchange %d: want %s, got %s", ErrCommandMismatch, r.next, hexutil.Bytes(want.Command), hexutil.Bytes(apdu))
	}
	r.next++
	return append([]byte(nil), want.Response...), nil
}

// Remaining returns the number of recorded exchanges not replayed yet.
func (r *Replayer) Remaining() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.exchanges) - r.next
}

// Done reports an error if part of the record was never replayed.
func (r *Replayer) Done() error {
	if n := r.Remaining(); n > 0 {
		return fmt.Errorf("ledgertest: %d recorded exchanges not replayed", n)
	}
	return nil
}
