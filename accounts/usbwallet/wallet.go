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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ergoplatform/ergo-ledger-go/ledger"
	"github.com/ethereum/go-ethereum/log"
	"github.com/karalabe/usb"
)

// Maximum time between wallet health checks to detect USB unplugs.
const heartbeatCycle = time.Second

var (
	// ErrWalletAlreadyOpen is returned if a wallet is opened a second time.
	ErrWalletAlreadyOpen = errors.New("usbwallet: wallet already open")

	// ErrWalletClosed is returned if a closed wallet is used.
	ErrWalletClosed = errors.New("usbwallet: wallet closed")
)

// Wallet is a single Ledger device and the Ergo app session on top of it.
type Wallet struct {
	info usb.DeviceInfo             // Known USB device infos about the wallet
	open func() (usb.Device, error) // Opens the USB device behind info
	quit chan chan error            // Terminates the health check loop

	device  usb.Device  // USB device advertising itself as a Ledger
	app     *ledger.App // Ergo app client, nil while closed
	failure error       // Any failure that made the device unusable

	// The app serialises device communication on its own, the state lock only
	// guards the fields above and is never held exclusively during exchanges.
	stateLock sync.RWMutex

	log log.Logger // Contextual logger to tag the wallet with its path
}

func newWallet(info usb.DeviceInfo, open func() (usb.Device, error), logger log.Logger) *Wallet {
	return &Wallet{info: info, open: open, log: logger}
}

// Path returns the platform path of the USB device.
func (w *Wallet) Path() string {
	return w.info.Path
}

// Info returns what the USB stack knows about the device.
func (w *Wallet) Info() usb.DeviceInfo {
	return w.info
}

// Open connects to the device and starts watching its health. A zero
// authToken generates a random one.
func (w *Wallet) Open(authToken uint32) error {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	if w.device != nil {
		return ErrWalletAlreadyOpen
	}
	device, err := w.open()
	if err != nil {
		return err
	}
	w.device = device
	w.app = ledger.NewApp(NewHIDTransport(device, w.log), authToken).WithLogger(w.log)
	w.failure = nil

	w.quit = make(chan chan error)
	go w.heartbeat(w.app, w.quit)

	w.log.Debug("Ledger wallet opened", "product", w.info.Product)
	return nil
}

// App returns the Ergo app client of an open wallet.
func (w *Wallet) App() (*ledger.App, error) {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()

	if w.app == nil {
		if w.failure != nil {
			return nil, w.failure
		}
		return nil, ErrWalletClosed
	}
	return w.app, nil
}

// Status returns a textual status of the wallet, along with the failure that
// closed it, if any.
func (w *Wallet) Status() (string, error) {
	w.stateLock.RLock()
	app, failure := w.app, w.failure
	w.stateLock.RUnlock()

	if app == nil {
		return "Closed", failure
	}
	version, err := app.GetAppVersion()
	if err != nil {
		return "Ergo app offline", err
	}
	return fmt.Sprintf("Ergo app v%s online", version), nil
}

// heartbeat is a health check loop for the USB wallet to periodically verify
// whether it is still present or if it malfunctioned.
func (w *Wallet) heartbeat(app *ledger.App, quit chan chan error) {
	w.log.Debug("USB wallet health-check started")
	defer w.log.Debug("USB wallet health-check stopped")

	var (
		errc chan error
		err  error
	)
	for errc == nil && err == nil {
		select {
		case errc = <-quit:
			continue
		case <-time.After(heartbeatCycle):
		}
		// Device errors tear the wallet down, app level errors are fine
		if _, err = app.GetAppVersion(); err != nil {
			if _, ok := ledger.DeviceErrorKind(err); ok {
				err = nil
			}
		}
	}
	if err != nil {
		w.log.Debug("USB wallet health-check failed", "err", err)
		w.stateLock.Lock()
		w.failure = err
		w.close()
		w.stateLock.Unlock()

		errc = <-quit
	}
	errc <- err
}

// Close stops the health check and releases the USB device.
func (w *Wallet) Close() error {
	w.stateLock.RLock()
	quit := w.quit
	w.stateLock.RUnlock()

	var herr error
	if quit != nil {
		errc := make(chan error)
		quit <- errc
		herr = <-errc // Save for later, we *must* close the USB
	}
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	w.quit = nil
	if err := w.close(); err != nil {
		return err
	}
	return herr
}

// close releases the device. It assumes the state lock is held.
func (w *Wallet) close() error {
	if w.device == nil {
		return nil
	}
	err := w.device.Close()
	w.device, w.app = nil, nil
	return err
}
