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
	"bytes"
	"fmt"

	"github.com/ergoplatform/ergo-ledger-go/accounts"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
)

// signParam enumerates the steps of a signing session.
type signParam byte

const (
	signStart               signParam = 0x01 // Network, signing path and auth token
	signStartTransaction    signParam = 0x10 // Input, data input, token and output counts
	signAddTokenIDs         signParam = 0x11 // Token table entries
	signAddInputFrame       signParam = 0x12 // Attested input frame
	signAddInputExtension   signParam = 0x13 // Context extension chunk of the last input
	signAddDataInputs       signParam = 0x14 // Data input box ids
	signAddOutputStart      signParam = 0x15 // Output header
	signAddOutputTreeChunk  signParam = 0x16 // Explicit output ergo tree chunk
	signAddOutputMinersFee  signParam = 0x17 // Output pays the miner fee script
	signAddOutputChangeTree signParam = 0x18 // Output pays back to a wallet path
	signAddOutputTokens     signParam = 0x19 // Token table index and amount pairs
	signAddOutputRegisters  signParam = 0x1a // Output registers chunk
	signConfirmAndSign      signParam = 0x20 // Shows the summary, returns the proof
)

const (
	// tokenIDsPerPacket and dataInputsPerPacket fill one APDU with 32 byte ids.
	tokenIDsPerPacket   = MaxDataLength / tokenIDLength
	dataInputsPerPacket = MaxDataLength / boxIDLength

	// outputTokensPerPacket fills one APDU with u32 index || u64 amount pairs.
	outputTokensPerPacket = MaxDataLength / (4 + 8)
)

// OutputKind is how an output script is announced to the device.
type OutputKind int

const (
	OutputExplicit OutputKind = iota // Script streamed verbatim
	OutputMinerFee                   // Well known miner fee script
	OutputChange                     // Script of a wallet owned path
)

func (k OutputKind) String() string {
	switch k {
	case OutputMinerFee:
		return "miner-fee"
	case OutputChange:
		return "change"
	}
	return "explicit"
}

// ClassifyOutput decides how the output script is announced. The miner fee
// script wins over the change address. A nil changeTree disables change
// detection.
func ClassifyOutput(tree []byte, changeTree []byte) OutputKind {
	if ergo.IsMinerFee(tree) {
		return OutputMinerFee
	}
	if changeTree != nil && bytes.Equal(tree, changeTree) {
		return OutputChange
	}
	return OutputExplicit
}

// ChangeTree returns the script the change address of m pays to, or nil when
// the transaction declares no change.
func ChangeTree(m *ergo.ChangeMap) ([]byte, error) {
	if m == nil || m.Address == "" {
		return nil, nil
	}
	addr, err := ergo.ParseAddress(m.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid change address: %w", err)
	}
	return addr.ErgoTree(), nil
}

// SignTx attests every input and runs one signing session per distinct
// signing path. The returned proofs are ordered like the inputs; inputs
// sharing a path share the proof.
func (a *App) SignTx(tx *ergo.UnsignedTransaction, network ergo.Network) ([][]byte, error) {
	if len(tx.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	paths, keys, err := signPaths(tx.Inputs)
	if err != nil {
		return nil, err
	}
	a.lock()
	defer a.unlock()

	attested := &AttestedTransaction{
		Inputs:           make([]*AttestedBox, len(tx.Inputs)),
		DataInputs:       tx.DataInputs,
		Outputs:          tx.Outputs,
		DistinctTokenIDs: tx.TokenIDs(),
		ChangeMap:        tx.ChangeMap,
	}
	for i := range tx.Inputs {
		box, err := a.attestInput(&tx.Inputs[i])
		if err != nil {
			return nil, fmt.Errorf("attesting input %d: %w", i, err)
		}
		if err := box.SetExtension(tx.Inputs[i].Extension); err != nil {
			return nil, err
		}
		attested.Inputs[i] = box
	}
	proofs := make(map[string][]byte, len(paths))
	for _, path := range paths {
		proof, err := a.signSession(attested, path, network)
		if err != nil {
			return nil, err
		}
		proofs[path] = proof
	}
	result := make([][]byte, len(tx.Inputs))
	for i, key := range keys {
		result[i] = proofs[key]
	}
	return result, nil
}

// SignAttestedTx runs a single signing session for inputs that were attested
// beforehand, returning the proof of the key at path.
func (a *App) SignAttestedTx(tx *AttestedTransaction, path string, network ergo.Network) ([]byte, error) {
	if len(tx.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	a.lock()
	defer a.unlock()

	return a.signSession(tx, path, network)
}

// signPaths returns the distinct signing paths of the inputs in order of
// first appearance, and the normalised path of every input.
func signPaths(inputs []ergo.UnsignedBox) ([]string, []string, error) {
	var (
		paths []string
		keys  = make([]string, len(inputs))
		seen  = make(map[string]struct{})
	)
	for i, input := range inputs {
		if input.SignPath == "" {
			return nil, nil, fmt.Errorf("%w: input %d", ErrMissingSignPath, i)
		}
		parsed, err := accounts.ParseErgoPath(input.SignPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: input %d: %w", ErrInvalidEncoding, i, err)
		}
		keys[i] = parsed.String()
		if _, ok := seen[keys[i]]; ok {
			continue
		}
		seen[keys[i]] = struct{}{}
		paths = append(paths, keys[i])
	}
	return paths, keys, nil
}

// signSession streams the whole transaction to the device and asks the user
// to approve it. The session is opened by:
//
//	CLA | INS | P1 | P2 | Lc  | Data
//	----+-----+----+----+-----+------------------------------------
//	 E0 | 21  | 01 | 01 without token
//	                 02 with token
//	                      | var | network || path || auth token (opt.)
//
// The device answers with a session id used as P2 on every following step.
// The final step returns the 56 byte Schnorr proof.
func (a *App) signSession(tx *AttestedTransaction, path string, network ergo.Network) ([]byte, error) {
	var (
		token    = a.token()
		tokenIDs = tx.DistinctTokenIDs
		tokenIdx = make(map[string]int, len(tokenIDs))
	)
	for i, id := range tokenIDs {
		tokenIdx[id] = i
	}
	changeTree, err := ChangeTree(tx.ChangeMap)
	if err != nil {
		return nil, err
	}
	header, err := new(packet).raw(byte(network)).path(path).authToken(token).bytes()
	if err != nil {
		return nil, err
	}
	res, err := a.device.Send(CLA, insSignTransaction, byte(signStart), authFlag(token), header)
	if err != nil {
		return nil, err
	}
	if len(res.Data) < 1 {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedResponse)
	}
	session := res.Data[0]
	a.log.Debug("Signing session opened", "path", path, "session", session)

	send := func(step signParam, data []byte) error {
		_, err := a.device.Send(CLA, insSignTransaction, byte(step), session, data)
		return err
	}
	sendChunked := func(step signParam, data []byte) error {
		_, err := a.device.SendChunked(CLA, insSignTransaction, byte(step), session, data)
		return err
	}

	// Announce the transaction shape
	counts, err := new(packet).
		uint16(len(tx.Inputs)).
		uint16(len(tx.DataInputs)).
		uint8(len(tokenIDs)).
		uint16(len(tx.Outputs)).
		bytes()
	if err != nil {
		return nil, err
	}
	if err := send(signStartTransaction, counts); err != nil {
		return nil, err
	}
	if err := sendIDs(send, signAddTokenIDs, tokenIDs, tokenIDsPerPacket); err != nil {
		return nil, err
	}
	// Replay the attested inputs
	for _, box := range tx.Inputs {
		for _, frame := range box.Frames {
			if err := send(signAddInputFrame, frame.Bytes); err != nil {
				return nil, err
			}
		}
		if ext := box.Extension(); len(ext) > 0 {
			if err := sendChunked(signAddInputExtension, ext); err != nil {
				return nil, err
			}
		}
	}
	if err := sendIDs(send, signAddDataInputs, tx.DataInputs, dataInputsPerPacket); err != nil {
		return nil, err
	}
	// Stream the outputs
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		header, err := new(packet).
			uint64(out.Value).
			uint32(int64(len(out.ErgoTree))).
			uint32(int64(out.CreationHeight)).
			uint8(len(out.Tokens)).
			uint32(int64(len(out.Registers))).
			bytes()
		if err != nil {
			return nil, err
		}
		var entries [][]byte
		for _, t := range out.Tokens {
			idx, ok := tokenIdx[t.ID]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownTokenID, t.ID)
			}
			entry, err := new(packet).uint32(int64(idx)).uint64(t.Amount).bytes()
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		if err := send(signAddOutputStart, header); err != nil {
			return nil, err
		}
		kind := ClassifyOutput(out.ErgoTree, changeTree)
		a.log.Debug("Streaming output", "index", i, "tree", kind)

		switch kind {
		case OutputMinerFee:
			err = send(signAddOutputMinersFee, nil)
		case OutputChange:
			if tx.ChangeMap.Path == "" {
				return nil, ErrMissingChangePath
			}
			var change []byte
			if change, err = EncodePath(tx.ChangeMap.Path); err == nil {
				err = send(signAddOutputChangeTree, change)
			}
		default:
			err = sendChunked(signAddOutputTreeChunk, out.ErgoTree)
		}
		if err != nil {
			return nil, err
		}
		for _, chunk := range packEntries(entries, outputTokensPerPacket) {
			if err := send(signAddOutputTokens, chunk); err != nil {
				return nil, err
			}
		}
		if err := sendChunked(signAddOutputRegisters, out.Registers); err != nil {
			return nil, err
		}
	}
	// Everything streamed, wait for the user to approve
	a.log.Info("Waiting for transaction approval on the Ledger", "path", path)
	res, err = a.device.Send(CLA, insSignTransaction, byte(signConfirmAndSign), session, nil)
	if err != nil {
		return nil, err
	}
	a.log.Debug("Transaction proof received", "path", path, "size", len(res.Data))
	return res.Data, nil
}

// sendIDs streams a list of 32 byte ids in fixed size packets.
func sendIDs(send func(signParam, []byte) error, step signParam, ids []string, perPacket int) error {
	entries := make([][]byte, 0, len(ids))
	for _, id := range ids {
		entry, err := new(packet).hexN(id, boxIDLength).bytes()
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	for _, chunk := range packEntries(entries, perPacket) {
		if err := send(step, chunk); err != nil {
			return err
		}
	}
	return nil
}
