package nus_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/labkit/imucal/pkg/nus"
	"github.com/labkit/imucal/pkg/nus/nustest"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name    string
		command string
		size    int
		want    []string
	}{
		{
			name:    "short command is one newline terminated frame",
			command: "actse 52 100",
			size:    20,
			want:    []string{"actse 52 100\n"},
		},
		{
			name:    "exactly size stays in one frame",
			command: strings.Repeat("a", 20),
			size:    20,
			want:    []string{strings.Repeat("a", 20) + "\n"},
		},
		{
			name:    "long command splits with terminator in last frame",
			command: "lab a_rather_long_label_text",
			size:    20,
			want:    []string{"lab a_rather_long_la", "bel_text\n"},
		},
		{
			name:    "zero size falls back to default",
			command: "crt",
			size:    0,
			want:    []string{"crt\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range nus.Chunk(tt.command, tt.size) {
				if len(f) > 21 {
					t.Errorf("frame %q longer than chunk size", f)
				}
				got = append(got, string(f))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Chunk() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCommandReassembles(t *testing.T) {
	link := nustest.New("AA:BB:CC:DD:EE:FF")
	if err := link.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	long := "lab " + strings.Repeat("x", 45)
	for _, c := range []string{"crt", long} {
		if err := nus.WriteCommand(link, c, nus.DefaultChunkSize); err != nil {
			t.Fatalf("WriteCommand(%q): %v", c, err)
		}
	}

	if got := link.Commands(); !reflect.DeepEqual(got, []string{"crt", long}) {
		t.Errorf("commands = %q", got)
	}
	if n := len(link.Frames()); n != 4 {
		t.Errorf("expected 4 frames, got %d", n)
	}
}

func TestWriteCommandNotConnected(t *testing.T) {
	link := nustest.New("AA:BB:CC:DD:EE:FF")
	if err := nus.WriteCommand(link, "crt", 20); err == nil {
		t.Fatal("expected error on closed link")
	}
}

func TestShortAddress(t *testing.T) {
	if got := nus.ShortAddress("C4:13:E5:CD:37:72"); got != "37:72" {
		t.Errorf("ShortAddress() = %q", got)
	}
	if got := nus.ShortAddress("abc"); got != "abc" {
		t.Errorf("ShortAddress() = %q", got)
	}
}
