package openai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finvox/finvox-go/pkg/ai/tts"
)

const readSize = 4096

// TTS implements tts.TTS over the speech API.
type TTS struct {
	client *openai.Client
	model  string
	voice  string
	format string
}

// NewTTS creates a speech provider.
func NewTTS(c Config) *TTS {
	return &TTS{client: newClient(c), model: c.Model, voice: c.Voice, format: c.Format}
}

// Synthesize starts synthesis and streams the encoded response body. The
// request itself is made before returning so that provider errors can be
// retried by the caller.
func (o *TTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (<-chan tts.Chunk, error) {
	voice := req.Voice
	if voice == "" {
		voice = o.voice
	}
	format := req.Format
	if format == "" {
		format = o.format
	}

	speech := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormat(format),
	}
	if req.Speed > 0 {
		speech.Speed = float64(req.Speed)
	}

	start := time.Now()
	resp, err := o.client.CreateSpeech(ctx, speech)
	if err != nil {
		return nil, classify(err, "speech synthesis failed")
	}

	out := make(chan tts.Chunk, 8)
	go func() {
		defer close(out)
		defer resp.Close()

		total := 0
		buf := make([]byte, readSize)
		for {
			n, err := resp.Read(buf)
			if n > 0 {
				total += n
				select {
				case out <- tts.Chunk{Data: append([]byte(nil), buf[:n]...)}:
				case <-ctx.Done():
					return
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				select {
				case out <- tts.Chunk{Err: classify(err, "read speech")}:
				case <-ctx.Done():
				}
				return
			}
		}

		slog.Debug("Speech synthesized",
			slog.String("model", o.model),
			slog.Int("chars", len(req.Text)),
			slog.Int("bytes", total),
			slog.Duration("elapsed", time.Since(start)))
	}()

	return out, nil
}

// Capabilities returns the provider's capabilities.
func (o *TTS) Capabilities() tts.TTSCapabilities {
	return tts.TTSCapabilities{
		Streaming:            true,
		SupportedLanguages:   []string{"en"},
		SupportedVoices:      []string{o.voice},
		Formats:              []string{"mp3", "wav", "opus", "aac", "flac", "pcm"},
		SupportsSpeedControl: true,
	}
}
