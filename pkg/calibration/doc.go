// Package calibration defines the types used while a device calibrates its
// accelerometer and gyroscope. It contains:
//
//   - Sensor and Level: what the firmware reports in its accuracy lines
//   - Tracker: folds accuracy readings into completion flags and gyro timing
//   - Phase: the coarse steps of a test-case run
//   - Status: a synthesized view model returned by the bench HTTP API
//
// These types are shared across session, bench and client code to keep JSON
// contracts consistent.
package calibration
