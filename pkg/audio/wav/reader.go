package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// Decode parses a PCM WAV container and returns its format and sample data.
// Chunks other than fmt and data are skipped.
func Decode(data []byte) (Format, []byte, error) {
	var f Format
	if !IsWAV(data) {
		return f, nil, fmt.Errorf("not a valid RIFF/WAVE file")
	}
	r := bytes.NewReader(data[12:])

	sawFmt := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return f, nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return f, nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			var body [16]byte
			if _, err := io.ReadFull(r, body[:]); err != nil {
				return f, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return f, nil, fmt.Errorf("only PCM format is supported, got format %d", format)
			}
			f.NumChannels = binary.LittleEndian.Uint16(body[2:4])
			f.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			f.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			if _, err := r.Seek(int64(size-16), io.SeekCurrent); err != nil {
				return f, nil, err
			}
			sawFmt = true

		case "data":
			if !sawFmt {
				return f, nil, fmt.Errorf("data chunk before fmt chunk")
			}
			pcm := make([]byte, size)
			n, err := io.ReadFull(r, pcm)
			if err != nil && err != io.ErrUnexpectedEOF {
				return f, nil, fmt.Errorf("read data chunk: %w", err)
			}
			return f, pcm[:n], nil

		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return f, nil, err
			}
		}
	}
}

// Duration is the playing time of pcm in the given format, in seconds.
func Duration(pcm []byte, f Format) float64 {
	bytesPerSecond := int(f.SampleRate) * int(f.NumChannels) * int(f.BitsPerSample) / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(len(pcm)) / float64(bytesPerSecond)
}
