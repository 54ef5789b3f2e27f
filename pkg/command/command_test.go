package command

import "testing"

func TestBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"start log", StartLog("lpok.bin"), "-l 1 lpok.bin"},
		{"activate", ActivateSensor(AccelCorrected, 100), "actse 52 100"},
		{"deactivate", DeactivateSensor(Orientation), "actse 13 0"},
		{"read", Read("teste.bin"), "rd teste.bin"},
		{"accel range", AccelRange(4), "aconf 4 2 2"},
		{"gyro range", GyroRange(1000), "gconf 1000 2 2"},
		{"label", Label(" start_heading "), "lab start_heading"},
		{"invert on", InvertQuaternion(true), "imux iq 1"},
		{"invert off", InvertQuaternion(false), "imux iq 0"},
		{"select hub", SelectHub(IMUHub), "sets imux"},
		{"stream on", StreamOutput(true), "-a 1"},
		{"stream off", StreamOutput(false), "-a 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSensorIDString(t *testing.T) {
	if got := GyroCorrected.String(); got != "gyro corrected" {
		t.Errorf("String() = %q", got)
	}
	if got := SensorID(99).String(); got != "sensor 99" {
		t.Errorf("String() = %q", got)
	}
}
