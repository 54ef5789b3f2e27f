package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Address:       ptr.To(""),
		OutputDir:     ptr.To("output"),
		ConverterPath: ptr.To("udf2csv.exe"),
		// The hub drops commands that arrive before the previous one settled.
		CommandDelayMs:      ptr.To(500),
		WriteChunkSize:      ptr.To(20),
		TransferTimeoutSecs: ptr.To(30),
		TransferMaxMB:       ptr.To(10),
		ScanTimeoutSecs:     ptr.To(10),
		GyroBiasLimitMdps:   ptr.To(50.0),
		ReconnectAttempts:   ptr.To(5),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Address             *string  `json:"address,omitempty"`
	OutputDir           *string  `json:"outputDir,omitempty"`
	ConverterPath       *string  `json:"converterPath,omitempty"`
	CommandDelayMs      *int     `json:"commandDelayMs,omitempty"`
	WriteChunkSize      *int     `json:"writeChunkSize,omitempty"`
	TransferTimeoutSecs *int     `json:"transferTimeoutSecs,omitempty"`
	TransferMaxMB       *int     `json:"transferMaxMB,omitempty"`
	ScanTimeoutSecs     *int     `json:"scanTimeoutSecs,omitempty"`
	GyroBiasLimitMdps   *float64 `json:"gyroBiasLimitMdps,omitempty"`
	ReconnectAttempts   *int     `json:"reconnectAttempts,omitempty"`
}

// NewRawFileConfigFromConfig returns every setting of c, defaults included.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Address:             ptr.To(c.Address()),
		OutputDir:           ptr.To(c.OutputDir()),
		ConverterPath:       ptr.To(c.ConverterPath()),
		CommandDelayMs:      ptr.To(int(c.CommandDelay() / time.Millisecond)),
		WriteChunkSize:      ptr.To(c.WriteChunkSize()),
		TransferTimeoutSecs: ptr.To(int(c.TransferTimeout() / time.Second)),
		TransferMaxMB:       ptr.To(c.TransferMaxBytes() >> 20),
		ScanTimeoutSecs:     ptr.To(int(c.ScanTimeout() / time.Second)),
		GyroBiasLimitMdps:   ptr.To(c.GyroBiasLimit()),
		ReconnectAttempts:   ptr.To(c.ReconnectAttempts()),
	}

	return rawConfig, nil
}

// read returns the value of one field under the read lock.
func read[T any](f *File, field func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(field(f.c), *field(defaultFileConfig))
}

// positive falls back to the default when a file holds a zero or negative
// value for a setting that must be positive.
func positive[T int | float64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (f *File) Address() string {
	return read(f, func(c *RawFileConfig) *string { return c.Address })
}

func (f *File) OutputDir() string {
	return read(f, func(c *RawFileConfig) *string { return c.OutputDir })
}

func (f *File) ConverterPath() string {
	return read(f, func(c *RawFileConfig) *string { return c.ConverterPath })
}

func (f *File) CommandDelay() time.Duration {
	ms := read(f, func(c *RawFileConfig) *int { return c.CommandDelayMs })
	if ms < 0 {
		ms = *defaultFileConfig.CommandDelayMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *File) WriteChunkSize() int {
	n := read(f, func(c *RawFileConfig) *int { return c.WriteChunkSize })
	return positive(n, *defaultFileConfig.WriteChunkSize)
}

func (f *File) TransferTimeout() time.Duration {
	s := read(f, func(c *RawFileConfig) *int { return c.TransferTimeoutSecs })
	return time.Duration(positive(s, *defaultFileConfig.TransferTimeoutSecs)) * time.Second
}

func (f *File) TransferMaxBytes() int {
	mb := read(f, func(c *RawFileConfig) *int { return c.TransferMaxMB })
	return positive(mb, *defaultFileConfig.TransferMaxMB) << 20
}

func (f *File) ScanTimeout() time.Duration {
	s := read(f, func(c *RawFileConfig) *int { return c.ScanTimeoutSecs })
	return time.Duration(positive(s, *defaultFileConfig.ScanTimeoutSecs)) * time.Second
}

func (f *File) GyroBiasLimit() float64 {
	l := read(f, func(c *RawFileConfig) *float64 { return c.GyroBiasLimitMdps })
	return positive(l, *defaultFileConfig.GyroBiasLimitMdps)
}

func (f *File) ReconnectAttempts() int {
	n := read(f, func(c *RawFileConfig) *int { return c.ReconnectAttempts })
	return positive(n, *defaultFileConfig.ReconnectAttempts)
}

func (f *File) SetAddress(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Address = &s
}

func (f *File) SetOutputDir(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.OutputDir = &s
}

func (f *File) SetConverterPath(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ConverterPath = &s
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"address":           f.Address(),
		"outputDir":         f.OutputDir(),
		"converterPath":     f.ConverterPath(),
		"commandDelay":      f.CommandDelay(),
		"writeChunkSize":    f.WriteChunkSize(),
		"transferTimeout":   f.TransferTimeout(),
		"transferMaxBytes":  f.TransferMaxBytes(),
		"scanTimeout":       f.ScanTimeout(),
		"gyroBiasLimitMdps": f.GyroBiasLimit(),
		"reconnectAttempts": f.ReconnectAttempts(),
	}
}
