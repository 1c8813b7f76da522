package fake

import (
	"context"
	"sync"

	"github.com/finvox/finvox-go/pkg/ai/tts"
)

// FakeTTS is a fake TTS implementation for testing. The "audio" it produces is
// the request text itself, split into pieces of PieceSize bytes, so tests can
// assert on exactly what was spoken.
type FakeTTS struct {
	PieceSize int

	mu       sync.Mutex
	requests []tts.SynthesizeRequest
	failWith error
}

// NewFakeTTS creates a new fake TTS provider.
func NewFakeTTS() *FakeTTS {
	return &FakeTTS{PieceSize: 16}
}

// FailWith makes every following synthesis report err mid-stream.
func (f *FakeTTS) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// Synthesize emits the request text as audio bytes.
func (f *FakeTTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (<-chan tts.Chunk, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	failWith := f.failWith
	f.mu.Unlock()

	size := f.PieceSize
	if size <= 0 {
		size = len(req.Text)
	}

	output := make(chan tts.Chunk, 4)
	go func() {
		defer close(output)

		data := []byte(req.Text)
		for len(data) > 0 {
			n := min(size, len(data))
			select {
			case output <- tts.Chunk{Data: data[:n]}:
			case <-ctx.Done():
				return
			}
			data = data[n:]
		}

		if failWith != nil {
			select {
			case output <- tts.Chunk{Err: failWith}:
			case <-ctx.Done():
			}
		}
	}()

	return output, nil
}

// Texts returns the text of every synthesis request in order.
func (f *FakeTTS) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, len(f.requests))
	for i, r := range f.requests {
		texts[i] = r.Text
	}
	return texts
}

// Capabilities returns the fake TTS capabilities.
func (f *FakeTTS) Capabilities() tts.TTSCapabilities {
	return tts.TTSCapabilities{
		Streaming:            true,
		SupportedLanguages:   []string{"en"},
		SupportedVoices:      []string{"fake-voice"},
		Formats:              []string{"mp3"},
		SupportsSpeedControl: true,
	}
}
