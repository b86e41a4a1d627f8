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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ergoplatform/ergo-ledger-go/ergo"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runErgoLedger runs the command line against a recorded device session and
// returns what was written to stdout.
func runErgoLedger(t *testing.T, record string, args ...string) (string, error) {
	t.Helper()

	file := filepath.Join(t.TempDir(), "session.apdu")
	require.NoError(t, os.WriteFile(file, []byte(record), 0600))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	argv := []string{"ergoledger", "--transport", "replay", "--replay.file", file}
	err := app.Run(append(argv, args...))
	return out.String(), err
}

func TestAppCommand(t *testing.T) {
	out, err := runErgoLedger(t, `
		=> e002000000
		<= 4572676f9000
		=> e001000000
		<= 000004019000
	`, "app")
	require.NoError(t, err)
	assert.Equal(t, "Ergo 0.0.4-debug\n", out)
}

func TestUnreplayedExchangesFail(t *testing.T) {
	_, err := runErgoLedger(t, `
		=> e002000000
		<= 4572676f9000
		=> e001000000
		<= 000004019000
		=> e001000000
		<= 000004019000
	`, "app")
	assert.ErrorContains(t, err, "not replayed")
}

func TestAddressesCommand(t *testing.T) {
	out, err := runErgoLedger(t, `
		=> e01001000d038000002c800001ad80000000
		<= 025381e95e132a4b7a6fc66844a81657a07da1ef5041eaefb7fce03f71c06a11a99cc4eb9abc8d3f55afeff7bcb8fe2d0a8d100fa35f6fcbac74deded867633eba9000
	`, "--noauthtoken", "addresses", "--count", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "m/44'/429'/0'/0/0")
	assert.Contains(t, out, "9fmmpNtxpYe5rFB5MAb4v86FFvTXby5jykoLM6XtGyqwEmFK4io")
	assert.Contains(t, out, "m/44'/429'/0'/0/1")
	assert.Contains(t, out, "9h6jfUnj1NcdGRx4WDbjQ5hLMtAGAFT9JMx59pziZphpE5zcpZT")
}

func TestSignCommand(t *testing.T) {
	record, err := os.ReadFile(filepath.Join("..", "..", "ledger", "testdata", "sign_erg_only.apdu"))
	require.NoError(t, err)
	tx := filepath.Join("..", "..", "ledger", "testdata", "sign_erg_only.json")

	out, err := runErgoLedger(t, string(record), "--noauthtoken", "sign", tx)
	require.NoError(t, err)

	var result signature
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Proofs, 1)
	assert.Equal(t, "0x445a29676b4d463b9a4266ae42d5d046e6610e936347d6ae0a22c8f539f6ed6077777e9478f501e657eabc6b8cefd406c00a50b80840a5fe", result.Proofs[0].String())
}

func TestSignCommandRejected(t *testing.T) {
	record, err := os.ReadFile(filepath.Join("..", "..", "ledger", "testdata", "sign_erg_only.apdu"))
	require.NoError(t, err)

	// Swap the proof for a rejection
	text := strings.TrimRight(string(record), "\n")
	text = text[:strings.LastIndex(text, "<=")] + "<= 6985\n"
	tx := filepath.Join("..", "..", "ledger", "testdata", "sign_erg_only.json")

	_, err = runErgoLedger(t, text, "--noauthtoken", "sign", tx)
	assert.ErrorContains(t, err, "rejected")
}

func TestSummarizeOutputs(t *testing.T) {
	tx, err := readTransaction(filepath.Join("..", "..", "ledger", "testdata", "sign_erg_only.json"))
	require.NoError(t, err)

	rows, err := summarizeOutputs(tx, ergo.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"0", "change", "9fmmpNtxpYe5rFB5MAb4v86FFvTXby5jykoLM6XtGyqwEmFK4io", "0.1", "0"},
		{"1", "fee", "miner", "0.0011", "0"},
		{"2", "change", "9fmmpNtxpYe5rFB5MAb4v86FFvTXby5jykoLM6XtGyqwEmFK4io", "0.00789736", "0"},
	}, rows)

	// Without a change address the wallet outputs are plain payments
	tx.ChangeMap = nil
	rows, err = summarizeOutputs(tx, ergo.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "payment", "9fmmpNtxpYe5rFB5MAb4v86FFvTXby5jykoLM6XtGyqwEmFK4io", "0.1", "0"}, rows[0])
	assert.Equal(t, "fee", rows[1][1])

	tx.ChangeMap = &ergo.ChangeMap{Address: "not-an-address"}
	_, err = summarizeOutputs(tx, ergo.Mainnet)
	assert.ErrorContains(t, err, "invalid change address")
}

func TestVersionWithCommit(t *testing.T) {
	assert.Equal(t, clientVersion, versionWithCommit("", ""))
	assert.Equal(t, clientVersion+"-0123abcd-20240101", versionWithCommit("0123abcdef", "20240101"))
}

func TestAttestedInputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []attestedInput{{BoxID: "aa", Frames: []hexutil.Bytes{{0x01}}}}))
	assert.JSONEq(t, `[{"boxId":"aa","frames":["0x01"]}]`, buf.String())
}
