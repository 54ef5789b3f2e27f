package nus

import (
	"context"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

var (
	enableOnce sync.Once
	enableErr  error
)

func enableAdapter(adapter *bluetooth.Adapter) error {
	enableOnce.Do(func() {
		enableErr = adapter.Enable()
	})
	return enableErr
}

// BLELink is a Link backed by the host Bluetooth adapter.
type BLELink struct {
	address     string
	scanTimeout time.Duration
	adapter     *bluetooth.Adapter

	mu        sync.Mutex
	device    bluetooth.Device
	rx        bluetooth.DeviceCharacteristic
	connected bool
	handler   NotificationHandler
}

var _ Link = &BLELink{}

// NewBLELink returns a link to address using the default adapter.
func NewBLELink(address string, scanTimeout time.Duration) *BLELink {
	if scanTimeout <= 0 {
		scanTimeout = 10 * time.Second
	}
	return &BLELink{
		address:     address,
		scanTimeout: scanTimeout,
		adapter:     bluetooth.DefaultAdapter,
	}
}

// BLEDialer returns a Dialer producing BLELinks with the given scan timeout.
func BLEDialer(scanTimeout time.Duration) Dialer {
	return func(address string) Link {
		return NewBLELink(address, scanTimeout)
	}
}

func (l *BLELink) Address() string {
	return l.address
}

func (l *BLELink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *BLELink) scan(ctx context.Context) (bluetooth.Address, error) {
	found := make(chan bluetooth.Address, 1)
	var foundOnce sync.Once

	scanErr := make(chan error, 1)
	go func() {
		scanErr <- l.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if strings.EqualFold(result.Address.String(), l.address) {
				foundOnce.Do(func() {
					found <- result.Address
				})
			}
		})
	}()

	timer := time.NewTimer(l.scanTimeout)
	defer timer.Stop()

	select {
	case addr := <-found:
		_ = l.adapter.StopScan()
		return addr, nil
	case err := <-scanErr:
		return bluetooth.Address{}, pkgerrors.Wrap(err, "scan failed")
	case <-timer.C:
		_ = l.adapter.StopScan()
		return bluetooth.Address{}, pkgerrors.Wrapf(ErrDeviceNotFound, "%s not seen within %s", l.address, l.scanTimeout)
	case <-ctx.Done():
		_ = l.adapter.StopScan()
		return bluetooth.Address{}, ctx.Err()
	}
}

// Connect scans for the device, connects, resolves the NUS characteristics
// and enables TX notifications.
func (l *BLELink) Connect(ctx context.Context) error {
	if err := enableAdapter(l.adapter); err != nil {
		return pkgerrors.Wrap(err, "failed to enable BLE adapter")
	}

	logrus.WithField("address", l.address).Debug("scanning")
	addr, err := l.scan(ctx)
	if err != nil {
		return err
	}

	// Give StopScan time to take effect before connecting.
	time.Sleep(100 * time.Millisecond)

	device, err := l.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to connect to %s", l.address)
	}

	rx, tx, err := discover(device)
	if err != nil {
		_ = device.Disconnect()
		return err
	}

	err = tx.EnableNotifications(l.dispatch)
	if err != nil {
		_ = device.Disconnect()
		return pkgerrors.Wrap(err, "failed to enable notifications")
	}

	l.mu.Lock()
	l.device = device
	l.rx = rx
	l.connected = true
	l.mu.Unlock()

	return nil
}

func discover(device bluetooth.Device) (rx, tx bluetooth.DeviceCharacteristic, err error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return rx, tx, pkgerrors.Wrap(err, "failed to discover services")
	}
	if len(services) == 0 {
		return rx, tx, pkgerrors.Wrap(ErrCharacteristicNotFound, "nus service missing")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{rxUUID, txUUID})
	if err != nil {
		return rx, tx, pkgerrors.Wrap(err, "failed to discover characteristics")
	}

	var haveRX, haveTX bool
	for _, c := range chars {
		switch c.UUID() {
		case rxUUID:
			rx, haveRX = c, true
		case txUUID:
			tx, haveTX = c, true
		}
	}
	if !haveRX || !haveTX {
		return rx, tx, ErrCharacteristicNotFound
	}
	return rx, tx, nil
}

func (l *BLELink) dispatch(payload []byte) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h == nil {
		return
	}
	// The stack may reuse the buffer after the callback returns.
	buf := make([]byte, len(payload))
	copy(buf, payload)
	h(buf)
}

func (l *BLELink) Write(frame []byte) error {
	l.mu.Lock()
	rx, connected := l.rx, l.connected
	l.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	_, err := rx.WriteWithoutResponse(frame)
	return err
}

func (l *BLELink) Subscribe(h NotificationHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ErrNotConnected
	}
	l.handler = h
	return nil
}

func (l *BLELink) Unsubscribe() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = nil
	return nil
}

func (l *BLELink) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return nil
	}
	l.connected = false
	l.handler = nil
	return l.device.Disconnect()
}
