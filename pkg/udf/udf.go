// Package udf prepares vendor sensor logs for analysis: it trims the
// transfer preamble off a retrieved log and runs the vendor converter that
// turns it into CSV.
package udf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultConverter is the vendor converter looked up in the working directory.
const DefaultConverter = "udf2csv.exe"

var (
	ErrHeaderNotFound    = errors.New("valid header not found in the binary file, file might be corrupted")
	ErrConverterNotFound = errors.New("converter not found")
	ErrConversionFailed  = errors.New("failed to convert .bin to .csv")
)

var (
	// FusedHeader requires all three channel lines of a fused IMU log.
	FusedHeader = regexp.MustCompile(`(?s)1\.0\s+1: Accelerometer \(g\):.*?2: Gyroscope \(dps\):.*?3: IMU Temperature \(C\):`)
	// AccelHeader only requires the version line followed by the
	// accelerometer channel line.
	AccelHeader = regexp.MustCompile(`(?s)1\.0\s*\n1:\s*Accelerometer.*?\n`)
)

// HeaderOffset returns the byte offset of the first match of header in data.
func HeaderOffset(data []byte, header *regexp.Regexp) (int, bool) {
	loc := header.FindIndex(data)
	if loc == nil {
		return 0, false
	}
	return loc[0], true
}

// Clean rewrites path in place so that it starts at a FusedHeader.
func Clean(path string) error {
	return CleanWith(path, FusedHeader)
}

// CleanWith rewrites path in place so that it starts at header.
func CleanWith(path string, header *regexp.Regexp) error {
	logrus.WithField("file", path).Info("cleaning binary file")
	content, err := os.ReadFile(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read %s", path)
	}
	off, ok := HeaderOffset(content, header)
	if !ok {
		return pkgerrors.Wrap(ErrHeaderNotFound, path)
	}
	if err := os.WriteFile(path, content[off:], 0o644); err != nil {
		return pkgerrors.Wrapf(err, "failed to rewrite %s", path)
	}
	logrus.WithFields(logrus.Fields{
		"file":    path,
		"trimmed": off,
	}).Info("binary file cleaned")
	return nil
}

// CSVPath is where the converter writes the CSV for bin.
func CSVPath(bin string) string {
	return strings.TrimSuffix(bin, filepath.Ext(bin)) + ".bin.csv"
}

// Converter runs the vendor converter.
type Converter struct {
	// Path to the executable. Relative paths resolve against the working
	// directory.
	Path string
}

func (c Converter) executable() (string, error) {
	p := c.Path
	if p == "" {
		p = DefaultConverter
	}
	if !filepath.IsAbs(p) {
		wd, err := os.Getwd()
		if err != nil {
			return "", pkgerrors.Wrap(err, "failed to get working directory")
		}
		p = filepath.Join(wd, p)
	}
	if _, err := os.Stat(p); err != nil {
		return "", pkgerrors.Wrapf(ErrConverterNotFound, "%s", p)
	}
	return p, nil
}

// Convert runs the converter on bin and returns the path of the CSV.
func (c Converter) Convert(ctx context.Context, bin string) (string, error) {
	exe, err := c.executable()
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"file":      bin,
		"converter": exe,
	}).Info("converting to csv")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, bin)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", pkgerrors.Wrap(ErrConversionFailed, msg)
	}

	out := CSVPath(bin)
	logrus.WithField("file", out).Info("csv file created")
	return out, nil
}
