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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/ergoplatform/ergo-ledger-go/accounts"
	"github.com/holiman/uint256"
)

// MaxDataLength is the largest payload a single APDU can carry.
const MaxDataLength = 255

// EncodeUint8 serializes v into a single byte.
func EncodeUint8(v int) ([]byte, error) {
	if v < 0 || v > math.MaxUint8 {
		return nil, fmt.Errorf("%w: %d does not fit uint8", ErrInvalidEncoding, v)
	}
	return []byte{byte(v)}, nil
}

// EncodeUint16 serializes v as two big endian bytes.
func EncodeUint16(v int) ([]byte, error) {
	if v < 0 || v > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d does not fit uint16", ErrInvalidEncoding, v)
	}
	return binary.BigEndian.AppendUint16(nil, uint16(v)), nil
}

// EncodeUint32 serializes v as four big endian bytes.
func EncodeUint32(v int64) ([]byte, error) {
	if v < 0 || v > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d does not fit uint32", ErrInvalidEncoding, v)
	}
	return binary.BigEndian.AppendUint32(nil, uint32(v)), nil
}

// EncodeUint64 serializes a decimal string as eight big endian bytes. Only
// canonical decimals are accepted: no sign, no leading zeros, no whitespace.
func EncodeUint64(v string) ([]byte, error) {
	if !isCanonicalDecimal(v) {
		return nil, fmt.Errorf("%w: %q is not a decimal integer", ErrInvalidEncoding, v)
	}
	n, err := uint256.FromDecimal(v)
	if err != nil || !n.IsUint64() {
		return nil, fmt.Errorf("%w: %s does not fit uint64", ErrInvalidEncoding, v)
	}
	return binary.BigEndian.AppendUint64(nil, n.Uint64()), nil
}

func isCanonicalDecimal(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DecodeUint8 reads a single byte.
func DecodeUint8(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: uint8 needs 1 byte, got %d", ErrInvalidEncoding, len(b))
	}
	return b[0], nil
}

// DecodeUint16 reads two big endian bytes.
func DecodeUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("%w: uint16 needs 2 bytes, got %d", ErrInvalidEncoding, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// DecodeUint32 reads four big endian bytes.
func DecodeUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: uint32 needs 4 bytes, got %d", ErrInvalidEncoding, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// DecodeUint64 reads eight big endian bytes into a decimal string.
func DecodeUint64(b []byte) (string, error) {
	if len(b) != 8 {
		return "", fmt.Errorf("%w: uint64 needs 8 bytes, got %d", ErrInvalidEncoding, len(b))
	}
	return new(uint256.Int).SetBytes(b).Dec(), nil
}

// EncodeHex decodes an even length hex string. Ids travel without a 0x
// prefix, so one is rejected like any other non hex character.
func EncodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length hex string", ErrInvalidEncoding)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return b, nil
}

// DecodeHex renders b as lowercase hex without prefix.
func DecodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// EncodeASCII keeps the low byte of every character. Non-ASCII input is not
// rejected, the device only ever displays what it receives.
func EncodeASCII(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

// DecodeASCII interprets b as 7 bit ASCII.
func DecodeASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c & 0x7f
	}
	return string(out)
}

// EncodePath flattens an Ergo BIP32 path into the length prefixed list of big
// endian indices the device expects.
func EncodePath(path string) ([]byte, error) {
	parsed, err := accounts.ParseErgoPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return encodeDerivationPath(parsed), nil
}

func encodeDerivationPath(path accounts.DerivationPath) []byte {
	out := make([]byte, 1+4*len(path))
	out[0] = byte(len(path))
	for i, component := range path {
		binary.BigEndian.PutUint32(out[1+4*i:], component)
	}
	return out
}

// DecodePath is the inverse of EncodePath. The result is always the
// normalised, "m/" rooted form of the path, so "44'/429'/0'" encodes and
// decodes back to "m/44'/429'/0'".
func DecodePath(b []byte) (string, error) {
	if len(b) == 0 || len(b) != 1+4*int(b[0]) {
		return "", fmt.Errorf("%w: malformed path of %d bytes", ErrInvalidEncoding, len(b))
	}
	if int(b[0]) > accounts.MaxPathLength {
		return "", fmt.Errorf("%w: %w", ErrInvalidEncoding, accounts.ErrPathTooLong)
	}
	path := make(accounts.DerivationPath, b[0])
	for i := range path {
		path[i] = binary.BigEndian.Uint32(b[1+4*i:])
	}
	return path.String(), nil
}

// packet accumulates the fields of a command payload. The first encoding
// failure sticks and is reported by bytes.
type packet struct {
	buf []byte
	err error
}

func (p *packet) put(b []byte, err error) *packet {
	if p.err != nil {
		return p
	}
	if err != nil {
		p.err = err
		return p
	}
	p.buf = append(p.buf, b...)
	return p
}

func (p *packet) raw(b ...byte) *packet   { return p.put(b, nil) }
func (p *packet) uint8(v int) *packet     { return p.put(EncodeUint8(v)) }
func (p *packet) uint16(v int) *packet    { return p.put(EncodeUint16(v)) }
func (p *packet) uint32(v int64) *packet  { return p.put(EncodeUint32(v)) }
func (p *packet) uint64(v string) *packet { return p.put(EncodeUint64(v)) }
func (p *packet) hex(v string) *packet    { return p.put(EncodeHex(v)) }
func (p *packet) path(v string) *packet   { return p.put(EncodePath(v)) }
func (p *packet) bytes() ([]byte, error)  { return p.buf, p.err }

// hexN decodes v and requires it to be exactly n bytes long.
func (p *packet) hexN(v string, n int) *packet {
	b, err := EncodeHex(v)
	if err == nil && len(b) != n {
		err = fmt.Errorf("%w: expected %d bytes of hex, got %d", ErrInvalidEncoding, n, len(b))
	}
	return p.put(b, err)
}

// authToken appends the token if it is in use.
func (p *packet) authToken(token uint32) *packet {
	if token == 0 {
		return p
	}
	return p.uint32(int64(token))
}

// chunkBytes splits data into pieces of at most size bytes.
func chunkBytes(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	return chunks
}

// packEntries concatenates fixed size entries, perPacket at a time.
func packEntries(entries [][]byte, perPacket int) [][]byte {
	var packets [][]byte
	for len(entries) > 0 {
		n := perPacket
		if n > len(entries) {
			n = len(entries)
		}
		var buf []byte
		for _, entry := range entries[:n] {
			buf = append(buf, entry...)
		}
		packets = append(packets, buf)
		entries = entries[n:]
	}
	return packets
}
