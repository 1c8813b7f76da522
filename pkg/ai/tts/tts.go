// Package tts provides interfaces and types for text-to-speech providers.
package tts

import (
	"context"

	"github.com/finvox/finvox-go/pkg/ai"
)

// TTS-specific error variables
var (
	// ErrRecoverable indicates a temporary TTS failure that may succeed if retried.
	// Examples: service overload, temporary quota exceeded, network issues.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent TTS failure that will not succeed if retried.
	// Examples: invalid voice ID, unsupported text format, permanent quota exceeded.
	ErrFatal = ai.ErrFatal
)

// SynthesizeRequest contains parameters for text-to-speech synthesis.
type SynthesizeRequest struct {
	Text     string
	Voice    string
	Language string
	Format   string // mp3, wav, opus...; provider default when empty
	Speed    float32
}

// Chunk is a slice of encoded audio. A chunk with a non-nil Err is the last
// value sent on the channel and reports a mid-stream failure.
type Chunk struct {
	Data []byte
	Err  error
}

// TTSCapabilities describes the capabilities of a TTS provider.
type TTSCapabilities struct {
	Streaming            bool
	SupportedLanguages   []string
	SupportedVoices      []string
	Formats              []string
	SupportsSpeedControl bool
}

// TTS is the main interface for text-to-speech providers.
type TTS interface {
	// Synthesize converts text to encoded audio.
	// Returns a channel that will receive audio chunks and close when synthesis is complete.
	Synthesize(ctx context.Context, req SynthesizeRequest) (<-chan Chunk, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() TTSCapabilities
}

// Collect drains a synthesis channel into a single buffer.
func Collect(ctx context.Context, chunks <-chan Chunk) ([]byte, error) {
	var out []byte
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return out, nil
			}
			if chunk.Err != nil {
				return out, chunk.Err
			}
			out = append(out, chunk.Data...)
		}
	}
}
