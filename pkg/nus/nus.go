// Package nus talks to a device over the Nordic UART Service, a BLE profile
// with one write characteristic (RX) and one notify characteristic (TX) used
// as a transparent serial line.
package nus

import (
	"context"
	"errors"

	"tinygo.org/x/bluetooth"
)

const (
	ServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	// RXUUID is the characteristic the host writes commands to.
	RXUUID = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	// TXUUID is the characteristic the device notifies on.
	TXUUID = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"

	// DefaultChunkSize is the largest single GATT write the firmware accepts.
	DefaultChunkSize = 20
)

var (
	serviceUUID = mustParseUUID(ServiceUUID)
	rxUUID      = mustParseUUID(RXUUID)
	txUUID      = mustParseUUID(TXUUID)
)

var (
	// ErrDeviceNotFound is returned when the scan times out before the target shows up.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNotConnected is returned when writing to or subscribing on a closed link.
	ErrNotConnected = errors.New("not connected")
	// ErrCharacteristicNotFound is returned when the device does not expose NUS.
	ErrCharacteristicNotFound = errors.New("nus characteristic not found")
)

// NotificationHandler receives the raw payload of one TX notification.
type NotificationHandler func(payload []byte)

// Link is a connection to one device speaking NUS.
type Link interface {
	// Address is the device address this link targets.
	Address() string
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
	// Write sends one frame to the RX characteristic. Callers are
	// responsible for keeping frames within the chunk size.
	Write(frame []byte) error
	// Subscribe replaces the current notification handler.
	Subscribe(h NotificationHandler) error
	// Unsubscribe drops the current notification handler.
	Unsubscribe() error
}

// Dialer creates a link for an address. It does not connect.
type Dialer func(address string) Link

func mustParseUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic("invalid uuid " + s + ": " + err.Error())
	}
	return u
}

// ShortAddress returns the last five characters of an address, which is how
// operators tell benches apart in the logs.
func ShortAddress(address string) string {
	if len(address) <= 5 {
		return address
	}
	return address[len(address)-5:]
}
