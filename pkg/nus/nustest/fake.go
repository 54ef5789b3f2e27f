// Package nustest provides a scripted in-memory nus.Link for tests.
package nustest

import (
	"context"
	"strings"
	"sync"

	"github.com/labkit/imucal/pkg/nus"
)

type responder struct {
	command  string
	payloads [][]byte
	once     bool
	used     bool
}

// Link is a fake device. It reassembles written frames into commands and
// answers scripted commands with notifications, delivered synchronously from
// Write.
type Link struct {
	mu sync.Mutex

	address    string
	connected  bool
	handler    nus.NotificationHandler
	frames     [][]byte
	partial    []byte
	commands   []string
	responders []*responder

	connects     int
	failConnects int
	connectErr   error
	failAt       map[int]error
}

var _ nus.Link = &Link{}

// New returns a disconnected fake link for address.
func New(address string) *Link {
	return &Link{address: address}
}

// Dialer returns a dialer that always hands out this link, so reconnects
// reuse the same script and history.
func (l *Link) Dialer() nus.Dialer {
	return func(string) nus.Link { return l }
}

// On answers every occurrence of command with the given text payloads.
func (l *Link) On(command string, payloads ...string) *Link {
	return l.on(command, false, toBytes(payloads))
}

// Once answers only the first occurrence of command.
func (l *Link) Once(command string, payloads ...string) *Link {
	return l.on(command, true, toBytes(payloads))
}

// OnBytes answers every occurrence of command with raw payloads.
func (l *Link) OnBytes(command string, payloads ...[]byte) *Link {
	return l.on(command, false, payloads)
}

func (l *Link) on(command string, once bool, payloads [][]byte) *Link {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responders = append(l.responders, &responder{command: command, payloads: payloads, once: once})
	return l
}

func toBytes(ss []string) [][]byte {
	out := make([][]byte, 0, len(ss))
	for _, s := range ss {
		out = append(out, []byte(s))
	}
	return out
}

// FailConnects makes the next n Connect calls fail with err.
func (l *Link) FailConnects(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failConnects = n
	l.connectErr = err
}

// FailConnectAt makes the call-th Connect call (1-based) fail with err.
func (l *Link) FailConnectAt(call int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAt == nil {
		l.failAt = map[int]error{}
	}
	l.failAt[call] = err
}

func (l *Link) Address() string { return l.address }

func (l *Link) Connect(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects++
	if err, ok := l.failAt[l.connects]; ok {
		return err
	}
	if l.failConnects > 0 {
		l.failConnects--
		return l.connectErr
	}
	l.connected = true
	return nil
}

func (l *Link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	l.handler = nil
	return nil
}

func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Link) Subscribe(h nus.NotificationHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return nus.ErrNotConnected
	}
	l.handler = h
	return nil
}

func (l *Link) Unsubscribe() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = nil
	return nil
}

func (l *Link) Write(frame []byte) error {
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return nus.ErrNotConnected
	}
	l.frames = append(l.frames, append([]byte(nil), frame...))
	l.partial = append(l.partial, frame...)

	var replies [][]byte
	for {
		idx := strings.IndexByte(string(l.partial), '\n')
		if idx < 0 {
			break
		}
		command := string(l.partial[:idx])
		l.partial = l.partial[idx+1:]
		l.commands = append(l.commands, command)
		replies = append(replies, l.match(command)...)
	}
	h := l.handler
	l.mu.Unlock()

	if h != nil {
		for _, p := range replies {
			h(p)
		}
	}
	return nil
}

func (l *Link) match(command string) [][]byte {
	var out [][]byte
	for _, r := range l.responders {
		if r.command != command || (r.once && r.used) {
			continue
		}
		r.used = true
		out = append(out, r.payloads...)
	}
	return out
}

// Emit delivers payload to the current handler as if the device notified it.
func (l *Link) Emit(payload string) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h([]byte(payload))
	}
}

// Commands returns every newline-terminated command received so far.
func (l *Link) Commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

// Frames returns the raw frames written so far.
func (l *Link) Frames() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.frames...)
}

// Connects returns how many times Connect was called.
func (l *Link) Connects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connects
}
