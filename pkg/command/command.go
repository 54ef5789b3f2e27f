// Package command builds the ASCII commands understood by the sensor-hub
// firmware.
package command

import (
	"fmt"
	"strings"
)

const (
	// Reset clears the sensor hub configuration.
	Reset = "crt"
	// FusionLog selects the fusion log format.
	FusionLog = "-f l"
	// StopLog closes the current log file.
	StopLog = "-l 0"
	// StreamOn and StreamOff toggle live text output of active sensors.
	StreamOn  = "-a 1"
	StreamOff = "-a 0"
	// IMUHub is the hub name of the IMU mux.
	IMUHub = "imux"
)

// SensorID identifies a sensor on the hub.
type SensorID int

const (
	GameRotationVector SensorID = 9
	Orientation        SensorID = 13
	Gravity            SensorID = 15
	LinearAcceleration SensorID = 17
	AccelCorrected     SensorID = 52
	GyroCorrected      SensorID = 54
	GyroPassthrough    SensorID = 64
	AccelRaw           SensorID = 72
)

var sensorNames = map[SensorID]string{
	GameRotationVector: "game rotation vector",
	Orientation:        "orientation",
	Gravity:            "gravity",
	LinearAcceleration: "linear acceleration",
	AccelCorrected:     "accel corrected",
	GyroCorrected:      "gyro corrected",
	GyroPassthrough:    "gyro passthrough",
	AccelRaw:           "accel raw",
}

func (s SensorID) String() string {
	if n, ok := sensorNames[s]; ok {
		return n
	}
	return fmt.Sprintf("sensor %d", int(s))
}

var (
	// AccelRanges are the accelerometer ranges in g the firmware accepts.
	AccelRanges = []int{2, 4, 8}
	// GyroRanges are the gyroscope ranges in dps the firmware accepts.
	GyroRanges = []int{125, 250, 500, 1000}
)

// StartLog opens file on the device and starts logging to it.
func StartLog(file string) string {
	return "-l 1 " + file
}

// ActivateSensor enables sensor id at rate Hz.
func ActivateSensor(id SensorID, rate int) string {
	return fmt.Sprintf("actse %d %d", int(id), rate)
}

// DeactivateSensor disables sensor id.
func DeactivateSensor(id SensorID) string {
	return ActivateSensor(id, 0)
}

// Read asks the device to stream file back over TX.
func Read(file string) string {
	return "rd " + file
}

// AccelRange sets the accelerometer full scale in g.
func AccelRange(g int) string {
	return fmt.Sprintf("aconf %d 2 2", g)
}

// GyroRange sets the gyroscope full scale in dps.
func GyroRange(dps int) string {
	return fmt.Sprintf("gconf %d 2 2", dps)
}

// Label writes a text marker into the running log.
func Label(text string) string {
	return "lab " + strings.TrimSpace(text)
}

// InvertQuaternion toggles inversion of the quaternion output.
func InvertQuaternion(on bool) string {
	if on {
		return "imux iq 1"
	}
	return "imux iq 0"
}

// StreamOutput toggles live text output.
func StreamOutput(on bool) string {
	if on {
		return StreamOn
	}
	return StreamOff
}

// SelectHub switches the active hub.
func SelectHub(name string) string {
	return "sets " + name
}
