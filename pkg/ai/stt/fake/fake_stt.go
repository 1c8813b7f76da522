package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/finvox/finvox-go/pkg/ai/stt"
)

// DefaultTranscript is used when no transcript is provided
const DefaultTranscript = "What is my account balance?"

// ErrNoAudio is returned when Transcribe is called with an empty payload.
var ErrNoAudio = errors.New("fake stt: empty audio")

// FakeSTT is a fake STT implementation for testing. It returns its scripted
// transcripts in order, cycling once exhausted.
type FakeSTT struct {
	mu          sync.Mutex
	transcripts []string
	calls       int
	received    [][]byte
}

// NewFakeSTT creates a new fake STT provider with scripted transcripts.
func NewFakeSTT(transcripts ...string) *FakeSTT {
	if len(transcripts) == 0 {
		transcripts = []string{DefaultTranscript}
	}
	return &FakeSTT{transcripts: transcripts}
}

// Transcribe returns the next scripted transcript.
func (f *FakeSTT) Transcribe(ctx context.Context, audio stt.Audio) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}
	if len(audio.Data) == 0 {
		return stt.Transcript{}, ErrNoAudio
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	text := f.transcripts[f.calls%len(f.transcripts)]
	f.calls++
	f.received = append(f.received, append([]byte(nil), audio.Data...))

	return stt.Transcript{Text: text, Language: "en"}, nil
}

// Calls reports how many utterances were transcribed.
func (f *FakeSTT) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Received returns copies of the audio payloads seen so far.
func (f *FakeSTT) Received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.received))
	copy(out, f.received)
	return out
}

// Capabilities returns the fake STT capabilities.
func (f *FakeSTT) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		SupportedLanguages: []string{"en"},
		Formats:            []string{"webm", "wav"},
	}
}
