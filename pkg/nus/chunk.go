package nus

import (
	pkgerrors "github.com/pkg/errors"
)

// Chunk frames a command for the RX characteristic. The command is newline
// terminated and split into frames of at most size bytes, so the terminator
// always travels in the last frame.
func Chunk(command string, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}

	line := []byte(command + "\n")
	if len(command) <= size {
		return [][]byte{line}
	}

	frames := make([][]byte, 0, len(line)/size+1)
	for i := 0; i < len(line); i += size {
		end := i + size
		if end > len(line) {
			end = len(line)
		}
		frames = append(frames, line[i:end])
	}
	return frames
}

// WriteCommand frames command and writes every frame to the link in order.
func WriteCommand(link Link, command string, size int) error {
	for i, frame := range Chunk(command, size) {
		if err := link.Write(frame); err != nil {
			return pkgerrors.Wrapf(err, "failed to write frame %d of %q", i, command)
		}
	}
	return nil
}
