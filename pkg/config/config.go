// Package config holds the persistent settings of imucal.
package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "imucal.json"

type Config interface {
	Address() string
	OutputDir() string
	ConverterPath() string
	CommandDelay() time.Duration
	WriteChunkSize() int
	TransferTimeout() time.Duration
	TransferMaxBytes() int
	ScanTimeout() time.Duration
	GyroBiasLimit() float64
	ReconnectAttempts() int

	SetAddress(string)
	SetOutputDir(string)
	SetConverterPath(string)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
	// LogrusFields returns the effective settings for structured logging.
	LogrusFields() logrus.Fields
}
