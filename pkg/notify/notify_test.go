package notify

import (
	"reflect"
	"testing"

	"github.com/labkit/imucal/pkg/calibration"
)

func TestDecode(t *testing.T) {
	if got, ok := Decode([]byte("  Accel Accuracy 3\r\n")); !ok || got != "Accel Accuracy 3" {
		t.Errorf("Decode() = %q, %v", got, ok)
	}
	if _, ok := Decode([]byte{0xff, 0xfe, 0x01}); ok {
		t.Error("invalid UTF-8 should not decode")
	}
}

func TestParseAccuracy(t *testing.T) {
	tests := []struct {
		line string
		want []calibration.Reading
	}{
		{"Accel Accuracy 3", []calibration.Reading{{Sensor: calibration.SensorAccel, Level: 3}}},
		{"Gyro Accuracy 1", []calibration.Reading{{Sensor: calibration.SensorGyro, Level: 1}}},
		{"[0012] Gyro Accuracy : 2", []calibration.Reading{{Sensor: calibration.SensorGyro, Level: 2}}},
		{"Gyro Accuracy high", nil},
		{"Accel Range set to 4G", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := ParseAccuracy(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAccuracy(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestIsAccuracy(t *testing.T) {
	if !IsAccuracy("Gyro Accuracy x") {
		t.Error("expected accuracy line even with unparsable level")
	}
	if IsAccuracy("ACC_CRCTD_X_Y_Z: 1 2 3") {
		t.Error("stream line is not an accuracy line")
	}
}

func TestConfirmations(t *testing.T) {
	if got := AccelRangeConfirmation(8); got != "Accel Range set to 8G" {
		t.Errorf("got %q", got)
	}
	if got := GyroRangeConfirmation(125); got != "Gyro Range set to 125DPS" {
		t.Errorf("got %q", got)
	}
	if got := InvertQuaternionAck(true); got != "InvertQuaternion = 1" {
		t.Errorf("got %q", got)
	}
}

func TestStreamTags(t *testing.T) {
	line := "ACC_CRCTD_X_Y_Z: 0.1 0.2 9.8 GYRO_CRCTD_X_Y_Z 0 0 0"
	got := StreamTags(line, AllStreamTags)
	want := []string{TagAccelCorrected, TagGyroCorrected}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StreamTags() = %v, want %v", got, want)
	}
}

func TestIsTransferEcho(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"rd teste.bin", true},
		{"  Executing rd teste.bin\n", true},
		{"\xffrd teste.bin", true},
		{"\xfe\xff Executing rd teste.bin", true},
		{"\x01\x02binary", false},
		{"1.0 1: Accelerometer (g):", false},
	}
	for _, tt := range tests {
		if got := IsTransferEcho([]byte(tt.payload)); got != tt.want {
			t.Errorf("IsTransferEcho(%q) = %v, want %v", tt.payload, got, tt.want)
		}
	}
}
