package wav

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
)

func TestEncodeDecode(t *testing.T) {
	is := is.New(t)

	pcm := make([]byte, 32000) // one second of 16 kHz mono
	for i := range pcm {
		pcm[i] = byte(i)
	}

	out, err := Encode(pcm, PCM16Mono16k)
	is.NoErr(err)
	is.Equal(len(out), headerSize+len(pcm))
	is.True(IsWAV(out))
	is.Equal(binary.LittleEndian.Uint32(out[4:8]), uint32(len(pcm)+36))
	is.Equal(binary.LittleEndian.Uint32(out[40:44]), uint32(len(pcm)))

	f, data, err := Decode(out)
	is.NoErr(err)
	is.Equal(f, PCM16Mono16k)
	is.True(bytes.Equal(data, pcm))
	is.Equal(Duration(data, f), 1.0)
}

func TestEncode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		f    Format
	}{
		{"zero rate", []byte{0, 0}, Format{NumChannels: 1, BitsPerSample: 16}},
		{"8-bit", []byte{0, 0}, Format{SampleRate: 8000, NumChannels: 1, BitsPerSample: 8}},
		{"odd length", []byte{0, 0, 0}, PCM16Mono16k},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.pcm, tt.f); err == nil {
				t.Errorf("Encode(%s) succeeded, want error", tt.name)
			}
		})
	}
}

func TestDecode_SkipsUnknownChunks(t *testing.T) {
	is := is.New(t)

	out, err := Encode([]byte{1, 2, 3, 4}, PCM16Mono16k)
	is.NoErr(err)

	// Insert a LIST chunk between the RIFF header and fmt.
	var withList bytes.Buffer
	withList.Write(out[:12])
	withList.WriteString("LIST")
	binary.Write(&withList, binary.LittleEndian, uint32(4))
	withList.WriteString("INFO")
	withList.Write(out[12:])

	_, data, err := Decode(withList.Bytes())
	is.NoErr(err)
	is.Equal(data, []byte{1, 2, 3, 4})
}

func TestDecode_NotWAV(t *testing.T) {
	is := is.New(t)

	is.True(!IsWAV([]byte("\x1aE\xdf\xa3webm")))
	_, _, err := Decode([]byte("OggS"))
	is.True(err != nil)
}
