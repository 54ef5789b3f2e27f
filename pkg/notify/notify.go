// Package notify parses the text lines the firmware sends on TX.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labkit/imucal/pkg/calibration"
)

// Stream tags prefix the live output lines of active sensors.
const (
	TagOrientation     = "Orient_H_P_R:"
	TagGravity         = "Gravity_X_Y_Z:"
	TagLinearAccel     = "Linear_Acc_X_Y_Z:"
	TagAccelCorrected  = "ACC_CRCTD_X_Y_Z:"
	TagGyroCorrected   = "GYRO_CRCTD_X_Y_Z"
	TagGyroPassthrough = "GYR_PASSTHRO_X_Y_Z_A:"
	TagAccelRaw        = "ACCEL_RAW_X_Y_Z_A:"
)

const (
	accelAccuracy = "Accel Accuracy"
	gyroAccuracy  = "Gyro Accuracy"
)

// Decode returns the trimmed text of a notification. ok is false when the
// payload is not valid UTF-8, which happens while a binary file streams.
func Decode(payload []byte) (string, bool) {
	if !utf8.Valid(payload) {
		return "", false
	}
	return strings.TrimSpace(string(payload)), true
}

// ParseAccuracy extracts accuracy readings from line. The level is the integer
// in the last whitespace separated field. Lines whose level does not parse
// yield nothing.
func ParseAccuracy(line string) []calibration.Reading {
	hasAccel := strings.Contains(line, accelAccuracy)
	hasGyro := strings.Contains(line, gyroAccuracy)
	if !hasAccel && !hasGyro {
		return nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return nil
	}

	var out []calibration.Reading
	if hasAccel {
		out = append(out, calibration.Reading{Sensor: calibration.SensorAccel, Level: calibration.Level(n)})
	}
	if hasGyro {
		out = append(out, calibration.Reading{Sensor: calibration.SensorGyro, Level: calibration.Level(n)})
	}
	return out
}

// IsAccuracy reports whether line carries an accuracy report, whether or not
// its level parses.
func IsAccuracy(line string) bool {
	return strings.Contains(line, accelAccuracy) || strings.Contains(line, gyroAccuracy)
}

// AccelRangeConfirmation is the acknowledgement of an aconf command.
func AccelRangeConfirmation(g int) string {
	return fmt.Sprintf("Accel Range set to %dG", g)
}

// GyroRangeConfirmation is the acknowledgement of a gconf command.
func GyroRangeConfirmation(dps int) string {
	return fmt.Sprintf("Gyro Range set to %dDPS", dps)
}

// InvertQuaternionAck is the acknowledgement of an imux iq command.
func InvertQuaternionAck(on bool) string {
	if on {
		return "InvertQuaternion = 1"
	}
	return "InvertQuaternion = 0"
}

// StreamTags returns the tags from tags that occur in line.
func StreamTags(line string, tags []string) []string {
	var found []string
	for _, tag := range tags {
		if strings.Contains(line, tag) {
			found = append(found, tag)
		}
	}
	return found
}

// AllStreamTags lists every known stream tag.
var AllStreamTags = []string{
	TagOrientation,
	TagGravity,
	TagLinearAccel,
	TagAccelCorrected,
	TagGyroCorrected,
	TagGyroPassthrough,
	TagAccelRaw,
}

// IsTransferEcho reports whether payload is the firmware echoing a rd command
// rather than file content. Invalid UTF-8 is dropped before matching.
func IsTransferEcho(payload []byte) bool {
	text := strings.TrimSpace(strings.ToValidUTF8(string(payload), ""))
	return strings.HasPrefix(text, "rd") || strings.HasPrefix(text, "Executing rd")
}
