// Package wav wraps raw PCM audio in a WAV container and reads it back.
// Clients that stream raw PCM16 get their utterances wrapped before
// transcription, since transcription APIs want a container format.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format describes PCM sample layout.
type Format struct {
	SampleRate    uint32
	NumChannels   uint16
	BitsPerSample uint16
}

// PCM16Mono16k is the layout browsers are usually asked to record in.
var PCM16Mono16k = Format{SampleRate: 16000, NumChannels: 1, BitsPerSample: 16}

const headerSize = 44

// Encode prefixes pcm with a canonical 44-byte WAV header.
func Encode(pcm []byte, f Format) ([]byte, error) {
	if f.SampleRate == 0 || f.NumChannels == 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels", f.SampleRate, f.NumChannels)
	}
	if f.BitsPerSample != 16 {
		return nil, fmt.Errorf("only 16-bit samples are supported, got %d-bit", f.BitsPerSample)
	}
	blockAlign := f.NumChannels * f.BitsPerSample / 8
	if len(pcm)%int(blockAlign) != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of %d-byte frames", len(pcm), blockAlign)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(pcm))

	dataSize := uint32(len(pcm))
	byteRate := f.SampleRate * uint32(blockAlign)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, dataSize+36)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, f.NumChannels)
	binary.Write(&buf, binary.LittleEndian, f.SampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, f.BitsPerSample)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes(), nil
}
