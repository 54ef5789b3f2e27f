// Package transfer pulls a logged file off the device by streaming it over
// TX notifications.
package transfer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/notify"
	"github.com/labkit/imucal/pkg/nus"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultPoll     = time.Second
	DefaultMaxBytes = 10 * 1024 * 1024
)

// Options bounds a retrieval. Zero values take the defaults.
type Options struct {
	// Timeout is the total time allowed for the transfer.
	Timeout time.Duration
	// Poll is how often the size and idle limits are checked.
	Poll time.Duration
	// MaxBytes stops the transfer once this much data arrived.
	MaxBytes int
	// Idle stops the transfer early once no data arrived for this long,
	// provided some data arrived at all. Zero disables it.
	Idle time.Duration
	// ChunkSize is the RX frame size for the rd command.
	ChunkSize int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Poll <= 0 {
		o.Poll = DefaultPoll
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = nus.DefaultChunkSize
	}
	return o
}

type buffer struct {
	mu   sync.Mutex
	data []byte
	last time.Time
}

func (b *buffer) handle(payload []byte) {
	if notify.IsTransferEcho(payload) {
		logrus.WithField("line", string(payload)).Debug("filtered out transfer echo")
		return
	}
	b.mu.Lock()
	b.data = append(b.data, payload...)
	b.last = time.Now()
	total := len(b.data)
	b.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"bytes": len(payload),
		"total": total,
	}).Debug("received file data")
}

func (b *buffer) snapshot() (int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data), b.last
}

// Retrieve requests file with rd and collects every non-echo notification
// until the timeout, the size limit or the idle limit is hit. The link's
// notification handler is replaced for the duration and dropped afterwards.
func Retrieve(ctx context.Context, link nus.Link, file string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	log := logrus.WithFields(logrus.Fields{
		"address": nus.ShortAddress(link.Address()),
		"file":    file,
	})

	buf := &buffer{}
	if err := link.Subscribe(buf.handle); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to subscribe for file transfer")
	}
	defer func() {
		if err := link.Unsubscribe(); err != nil {
			log.WithError(err).Warn("failed to stop notifications after transfer")
		}
	}()

	log.Info("requesting file from device")
	if err := nus.WriteCommand(link, command.Read(file), opts.ChunkSize); err != nil {
		return nil, err
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(opts.Poll)
	defer tick.Stop()

loop:
	for {
		n, last := buf.snapshot()
		if n >= opts.MaxBytes {
			log.WithField("limit", opts.MaxBytes).Info("file transfer limit reached, stopping")
			break
		}
		if opts.Idle > 0 && n > 0 && time.Since(last) >= opts.Idle {
			log.WithField("idle", opts.Idle).Info("file transfer went quiet, stopping")
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			break loop
		case <-tick.C:
		}
	}

	buf.mu.Lock()
	defer buf.mu.Unlock()
	return append([]byte(nil), buf.data...), nil
}

// Save writes data to dir/file, creating dir if needed, and returns the path.
func Save(dir, file string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to create %s", dir)
	}
	path := filepath.Join(dir, filepath.Base(file))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to write %s", path)
	}
	logrus.Infof("file saved to %s (%d bytes received)", path, len(data))
	return path, nil
}
