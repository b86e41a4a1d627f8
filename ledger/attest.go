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
	"fmt"

	"github.com/ergoplatform/ergo-ledger-go/ergo"
)

// attestParam enumerates the steps of an input attestation session.
type attestParam byte

const (
	attestBoxStart          attestParam = 0x01 // Box header, opens the session
	attestAddErgoTreeChunk  attestParam = 0x02 // Up to 255 bytes of the ergo tree
	attestAddTokens         attestParam = 0x03 // Up to 6 token entries
	attestAddRegistersChunk attestParam = 0x04 // Up to 255 bytes of the registers
	attestGetFrame          attestParam = 0x05 // Retrieves a signed frame by index
)

// tokensPerAttestPacket is how many id||amount entries fit one APDU.
const tokensPerAttestPacket = MaxDataLength / tokenEntryLength

// AttestInput has the device verify and sign the contents of an input box.
// The resulting frames prove to a later signing session that the box
// contents were not altered.
//
// The session is opened by:
//
//	CLA | INS | P1 | P2 | Lc  | Data
//	----+-----+----+----+-----+-----------------
//	 E0 | 20  | 01 | 01 without token
//	                 02 with token
//	                      | var | header below
//
//	Description            | Length
//	-----------------------+--------
//	Transaction id         | 32 bytes
//	Output index           | 2 bytes
//	Value                  | 8 bytes
//	Ergo tree length       | 4 bytes
//	Creation height        | 4 bytes
//	Token count            | 1 byte
//	Registers length       | 4 bytes
//	Auth token (opt.)      | 4 bytes
//
// The device answers with a session id that replaces P2 on every following
// step. The last data carrying reply to the streaming steps holds the number
// of frames to fetch.
func (a *App) AttestInput(box *ergo.UnsignedBox) (*AttestedBox, error) {
	a.lock()
	defer a.unlock()

	return a.attestInput(box)
}

func (a *App) attestInput(box *ergo.UnsignedBox) (*AttestedBox, error) {
	token := a.token()
	header, err := new(packet).
		hexN(box.TxID, 32).
		uint16(int(box.Index)).
		uint64(box.Value).
		uint32(int64(len(box.ErgoTree))).
		uint32(int64(box.CreationHeight)).
		uint8(len(box.Tokens)).
		uint32(int64(len(box.AdditionalRegisters))).
		authToken(token).
		bytes()
	if err != nil {
		return nil, err
	}
	var tokenEntries [][]byte
	for _, t := range box.Tokens {
		entry, err := new(packet).hexN(t.ID, tokenIDLength).uint64(t.Amount).bytes()
		if err != nil {
			return nil, err
		}
		tokenEntries = append(tokenEntries, entry)
	}

	res, err := a.device.Send(CLA, insAttestInput, byte(attestBoxStart), authFlag(token), header)
	if err != nil {
		return nil, err
	}
	if len(res.Data) < 1 {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedResponse)
	}
	session := res.Data[0]

	// Stream the box body, remembering the latest reply that carried data
	var counted []*DeviceResponse
	responses, err := a.device.SendChunked(CLA, insAttestInput, byte(attestAddErgoTreeChunk), session, box.ErgoTree)
	if err != nil {
		return nil, err
	}
	counted = append(counted, responses...)

	for _, chunk := range packEntries(tokenEntries, tokensPerAttestPacket) {
		res, err := a.device.Send(CLA, insAttestInput, byte(attestAddTokens), session, chunk)
		if err != nil {
			return nil, err
		}
		counted = append(counted, res)
	}
	responses, err = a.device.SendChunked(CLA, insAttestInput, byte(attestAddRegistersChunk), session, box.AdditionalRegisters)
	if err != nil {
		return nil, err
	}
	counted = append(counted, responses...)

	count := 0
	for _, res := range counted {
		if len(res.Data) > 0 {
			count = int(res.Data[0])
		}
	}
	if count == 0 {
		return nil, ErrMissingFrameCount
	}

	// Retrieve every signed frame of the box
	frames := make([]*AttestedBoxFrame, 0, count)
	for i := 0; i < count; i++ {
		res, err := a.device.Send(CLA, insAttestInput, byte(attestGetFrame), session, []byte{byte(i)})
		if err != nil {
			return nil, err
		}
		frame, err := parseAttestedFrame(res.Data)
		if err != nil {
			return nil, err
		}
		if int(frame.Index) != i || int(frame.Count) != count {
			return nil, fmt.Errorf("%w: got frame %d/%d, expected %d/%d", ErrInvalidFrame, frame.Index, frame.Count, i, count)
		}
		frames = append(frames, frame)
	}
	a.log.Debug("Attested input box", "box", frames[0].BoxID, "frames", count, "session", session)
	return &AttestedBox{Box: box, Frames: frames}, nil
}
