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

package ledgertest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	exchanges, err := ParseRecord(`
		# version
		=> e001000000
		<= 000004019000

		=> e002000000
		<= 4572676f9000
	`)
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, []byte{0xe0, 0x01, 0x00, 0x00, 0x00}, exchanges[0].Command)
	assert.Equal(t, []byte{0x45, 0x72, 0x67, 0x6f, 0x90, 0x00}, exchanges[1].Response)
}

func TestParseRecordErrors(t *testing.T) {
	for _, record := range []string{
		"<= 9000",
		"=> e001000000\n=> e001000000",
		"=> e001000000",
		"=> zz",
		"?? 00",
	} {
		_, err := ParseRecord(record)
		assert.ErrorIs(t, err, ErrMalformedRecord, record)
	}
}

func TestReplay(t *testing.T) {
	r := MustReplayer("=> e001000000\n<= 000004019000\n=> e002000000\n<= 4572676f9000")
	assert.Equal(t, 2, r.Remaining())

	res, err := r.Exchange([]byte{0xe0, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x04, 0x01, 0x90, 0x00}, res)
	assert.Error(t, r.Done())

	_, err = r.Exchange([]byte{0xe0, 0x01, 0x00, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrCommandMismatch)

	_, err = r.Exchange([]byte{0xe0, 0x02, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.NoError(t, r.Done())

	_, err = r.Exchange([]byte{0xe0, 0x02, 0x00, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrUnexpectedExchange)
}
