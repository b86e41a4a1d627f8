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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusWordMessages(t *testing.T) {
	assert.Equal(t, "Operation denied by user", StatusDenied.String())
	assert.Equal(t, "Bad state (check order of calls and errors)", StatusBadState.String())
	assert.Equal(t, "Can't display address", StatusAddressFormatFailed.String())
	assert.Equal(t, "Unknown error (0x1234)", StatusWord(0x1234).String())
}

func TestStatusWordKinds(t *testing.T) {
	tests := map[StatusWord]Kind{
		StatusDenied:            KindUserRejection,
		StatusWrongP1P2:         KindBadRequest,
		StatusBadSessionID:      KindSession,
		StatusBadState:          KindState,
		StatusBadFrameSignature: KindDomain,
		StatusSchnorrFailed:     KindInternal,
		StatusBIP32FormatFailed: KindDisplay,
		StatusWord(0x1234):      KindUnknown,
	}
	for sw, kind := range tests {
		assert.Equal(t, kind, sw.Kind(), sw.String())
	}
	assert.Equal(t, "user-rejection", KindUserRejection.String())
}

func TestDeviceErrorMatching(t *testing.T) {
	err := fmt.Errorf("signing: %w", &DeviceError{Code: StatusDenied})
	assert.True(t, IsUserRejection(err))
	assert.True(t, errors.Is(err, ErrDenied))
	assert.False(t, errors.Is(err, &DeviceError{Code: StatusBusy}))
	assert.EqualError(t, err, "signing: Operation denied by user")

	kind, ok := DeviceErrorKind(err)
	assert.True(t, ok)
	assert.Equal(t, KindUserRejection, kind)

	_, ok = DeviceErrorKind(ErrPayloadTooLarge)
	assert.False(t, ok)
	assert.False(t, IsUserRejection(ErrMalformedResponse))
}
