package openai

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finvox/finvox-go/pkg/ai/stt"
)

// DefaultAudioFilename names uploads whose filename is unknown. Browsers
// record webm/opus by default, and the API infers the codec from the name.
const DefaultAudioFilename = "audio.webm"

// STT transcribes complete utterances with a Whisper model.
type STT struct {
	client   *openai.Client
	model    string
	language string
}

// NewSTT creates a transcription provider.
func NewSTT(c Config) *STT {
	return &STT{client: newClient(c), model: c.Model, language: c.Language}
}

// Transcribe uploads one utterance and returns its transcript.
func (s *STT) Transcribe(ctx context.Context, audio stt.Audio) (stt.Transcript, error) {
	filename := audio.Filename
	if filename == "" {
		filename = DefaultAudioFilename
	}
	language := audio.Language
	if language == "" {
		language = s.language
	}

	start := time.Now()
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return stt.Transcript{}, classify(err, "transcription failed")
	}

	slog.Debug("Transcription result",
		slog.String("model", s.model),
		slog.Int("bytes", len(audio.Data)),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("text", resp.Text))

	return stt.Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

// Capabilities returns the STT capabilities.
func (s *STT) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		SupportedLanguages: []string{
			"en", "hi", "ta", "te", "kn", "ml", "mr", "bn", "gu", "pa", "ur",
			"zh", "de", "es", "ru", "ko", "fr", "ja", "pt", "tr", "pl", "nl", "ar", "it",
		},
		Formats: []string{"webm", "wav", "mp3", "m4a", "ogg", "flac"},
	}
}
