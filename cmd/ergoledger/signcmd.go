// Copyright 2024 The ergo-ledger-go Authors
// This file is part of ergo-ledger-go.
//
// ergo-ledger-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ergo-ledger-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ergo-ledger-go. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ergoplatform/ergo-ledger-go/cmd/utils"
	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"github.com/ergoplatform/ergo-ledger-go/ledger"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var (
	inputFlag = cli.IntFlag{
		Name:  "input",
		Usage: "Attest only the input at this position (-1 for all)",
		Value: -1,
	}

	attestCommand = cli.Command{
		Action:    utils.MigrateFlags(attestTx),
		Name:      "attest",
		Usage:     "Have the device attest the inputs of a transaction",
		ArgsUsage: "<tx.json>",
		Flags:     append([]cli.Flag{inputFlag}, utils.TransportFlags...),
		Category:  "TRANSACTION COMMANDS",
		Description: `
Streams the input boxes of the unsigned transaction to the device and prints
the attested frames as JSON.
`,
	}
	signCommand = cli.Command{
		Action:    utils.MigrateFlags(signTx),
		Name:      "sign",
		Usage:     "Sign a transaction on the device",
		ArgsUsage: "<tx.json>",
		Flags:     utils.TransportFlags,
		Category:  "TRANSACTION COMMANDS",
		Description: `
Attests every input of the unsigned transaction, streams the whole
transaction and waits for the user to approve it. One proof is printed per
input, in input order.
`,
	}
)

// attestedInput is the JSON form of an attested box.
type attestedInput struct {
	BoxID  string          `json:"boxId"`
	Frames []hexutil.Bytes `json:"frames"`
}

// signature is the JSON output of the sign command.
type signature struct {
	Proofs []hexutil.Bytes `json:"proofs"`
}

func readTransaction(file string) (*ergo.UnsignedTransaction, error) {
	blob, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var tx ergo.UnsignedTransaction
	if err := json.Unmarshal(blob, &tx); err != nil {
		return nil, fmt.Errorf("invalid transaction %s: %w", file, err)
	}
	return &tx, nil
}

func attestTx(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		utils.Fatalf("This command requires a transaction file")
	}
	tx, err := readTransaction(ctx.Args().First())
	if err != nil {
		return err
	}
	inputs := tx.Inputs
	if idx := ctx.Int(inputFlag.Name); idx >= 0 {
		if idx >= len(inputs) {
			return fmt.Errorf("input %d out of range, transaction has %d", idx, len(inputs))
		}
		inputs = inputs[idx : idx+1]
	}
	return withSession(ctx, func(s *session) error {
		out := make([]attestedInput, 0, len(inputs))
		for i := range inputs {
			box, err := s.app.AttestInput(&inputs[i])
			if err != nil {
				return err
			}
			entry := attestedInput{BoxID: box.Frames[0].BoxID}
			for _, frame := range box.Frames {
				entry.Frames = append(entry.Frames, frame.Bytes)
			}
			out = append(out, entry)
		}
		return writeJSON(ctx.App.Writer, out)
	})
}

func signTx(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		utils.Fatalf("This command requires a transaction file")
	}
	tx, err := readTransaction(ctx.Args().First())
	if err != nil {
		return err
	}
	return withSession(ctx, func(s *session) error {
		rows, err := summarizeOutputs(tx, s.network)
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stderr)
		table.SetHeader([]string{"#", "Kind", "Address", "ERG", "Tokens"})
		table.AppendBulk(rows)
		table.Render()

		notice.Fprintln(os.Stderr, "Review and approve the transaction on the device")
		proofs, err := s.app.SignTx(tx, s.network)
		if err != nil {
			if ledger.IsUserRejection(err) {
				return fmt.Errorf("transaction rejected on the device")
			}
			return err
		}
		var out signature
		for _, proof := range proofs {
			out.Proofs = append(out.Proofs, proof)
		}
		return writeJSON(ctx.App.Writer, out)
	})
}

// summarizeOutputs renders the outputs the way the device will announce them.
func summarizeOutputs(tx *ergo.UnsignedTransaction, network ergo.Network) ([][]string, error) {
	changeTree, err := ledger.ChangeTree(tx.ChangeMap)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(tx.Outputs))
	for i, out := range tx.Outputs {
		value, err := ergo.FormatErg(out.Value)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		var kind, address string
		switch ledger.ClassifyOutput(out.ErgoTree, changeTree) {
		case ledger.OutputMinerFee:
			kind, address = "fee", "miner"
		case ledger.OutputChange:
			kind, address = "change", tx.ChangeMap.Address
		default:
			addr, err := ergo.AddressFromErgoTree(out.ErgoTree, network)
			if err != nil {
				return nil, fmt.Errorf("output %d: %w", i, err)
			}
			kind, address = "payment", addr.String()
		}
		rows = append(rows, []string{strconv.Itoa(i), kind, address, value, strconv.Itoa(len(out.Tokens))})
	}
	return rows, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
