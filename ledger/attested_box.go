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
	"fmt"

	"github.com/ergoplatform/ergo-ledger-go/ergo"
)

const (
	boxIDLength       = 32
	tokenIDLength     = 32
	attestationLength = 16
	tokenEntryLength  = tokenIDLength + 8

	// frameHeaderLength covers box id, frame count, frame index, amount and
	// token count.
	frameHeaderLength = boxIDLength + 1 + 1 + 8 + 1
)

// AttestedBoxFrame is one device signed slice of an input box. The raw Bytes
// are replayed verbatim during signing.
type AttestedBoxFrame struct {
	BoxID           string
	Count           uint8
	Index           uint8
	Amount          string
	Tokens          []ergo.Token
	Attestation     string
	ExtensionLength *uint32 // Only ever set on the first frame
	Bytes           []byte
}

// parseAttestedFrame decodes a frame as returned by the device:
//
//	Description        | Length
//	-------------------+-------------------
//	Box id             | 32 bytes
//	Frame count        | 1 byte
//	Frame index        | 1 byte
//	Amount             | 8 bytes
//	Token count (n)    | 1 byte
//	Tokens             | n * (32 + 8) bytes
//	Attestation        | 16 bytes
func parseAttestedFrame(data []byte) (*AttestedBoxFrame, error) {
	if len(data) < frameHeaderLength+attestationLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(data))
	}
	tokenCount := int(data[frameHeaderLength-1])
	if want := frameHeaderLength + tokenCount*tokenEntryLength + attestationLength; len(data) != want {
		return nil, fmt.Errorf("%w: %d tokens need %d bytes, got %d", ErrInvalidFrame, tokenCount, want, len(data))
	}
	amount, err := DecodeUint64(data[34:42])
	if err != nil {
		return nil, err
	}
	frame := &AttestedBoxFrame{
		BoxID:  DecodeHex(data[:boxIDLength]),
		Count:  data[32],
		Index:  data[33],
		Amount: amount,
		Tokens: make([]ergo.Token, 0, tokenCount),
		Bytes:  append([]byte(nil), data...),
	}
	offset := frameHeaderLength
	for i := 0; i < tokenCount; i++ {
		entry := data[offset : offset+tokenEntryLength]
		value, err := DecodeUint64(entry[tokenIDLength:])
		if err != nil {
			return nil, err
		}
		frame.Tokens = append(frame.Tokens, ergo.Token{ID: DecodeHex(entry[:tokenIDLength]), Amount: value})
		offset += tokenEntryLength
	}
	frame.Attestation = DecodeHex(data[offset:])
	return frame, nil
}

// AttestedBox is an input box together with the frames the device signed for
// it.
type AttestedBox struct {
	Box    *ergo.UnsignedBox
	Frames []*AttestedBoxFrame

	extension    []byte
	extensionSet bool
}

// Extension returns the context extension to stream after the frames, nil if
// there is none.
func (b *AttestedBox) Extension() []byte {
	return b.extension
}

// SetExtension attaches the context extension of the input. The length is
// appended to the first frame, so it can only be done once. An empty
// extension, or the single zero byte encoding of one, is announced with
// length zero and nothing is streamed.
func (b *AttestedBox) SetExtension(extension []byte) error {
	if b.extensionSet {
		return ErrExtensionAlreadySet
	}
	if len(b.Frames) == 0 {
		return fmt.Errorf("%w: box has no frames", ErrInvalidFrame)
	}
	var length uint32
	if !(len(extension) == 0 || (len(extension) == 1 && extension[0] == 0)) {
		b.extension = append([]byte(nil), extension...)
		length = uint32(len(extension))
	}
	first := b.Frames[0]
	first.ExtensionLength = &length
	first.Bytes = binary.BigEndian.AppendUint32(first.Bytes, length)

	b.extensionSet = true
	return nil
}

// AttestedTransaction is a transaction whose inputs were all attested by the
// device, ready for a signing session.
type AttestedTransaction struct {
	Inputs           []*AttestedBox
	DataInputs       []string
	Outputs          []ergo.BoxCandidate
	DistinctTokenIDs []string
	ChangeMap        *ergo.ChangeMap
}
