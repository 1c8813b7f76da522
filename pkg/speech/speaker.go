// Package speech turns streamed assistant text into audio chunks. Text is
// buffered until a sentence ends or the buffer fills, synthesized, and the
// audio re-cut into fixed-size chunks for the client.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finvox/finvox-go/pkg/ai"
	"github.com/finvox/finvox-go/pkg/ai/tts"
)

// Defaults.
const (
	DefaultBufferSize = 128
	DefaultChunkSize  = 5 * 1024
)

// DefaultSentenceEndings trigger synthesis as soon as the buffer ends with one.
var DefaultSentenceEndings = []string{"?", "!", ";", ":", "\n"}

// Sink receives each audio chunk in order.
type Sink func(chunk []byte) error

// Config holds configuration for creating a Speaker.
type Config struct {
	TTS tts.TTS

	Voice    string
	Language string
	Format   string
	Speed    float32

	BufferSize      int
	SentenceEndings []string
	ChunkSize       int

	// Retry applies to starting each synthesis. Defaults to ai.DefaultRetryConfig.
	Retry  *ai.RetryConfig
	Logger *slog.Logger
}

// Speaker buffers text for one reply. It is not safe for concurrent use.
type Speaker struct {
	cfg   Config
	retry ai.RetryConfig
	sink  Sink

	buf   strings.Builder
	bytes int
}

// NewSpeaker creates a Speaker delivering audio to sink.
func NewSpeaker(cfg Config, sink Sink) (*Speaker, error) {
	if cfg.TTS == nil {
		return nil, fmt.Errorf("TTS is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.SentenceEndings == nil {
		cfg.SentenceEndings = DefaultSentenceEndings
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	retry := ai.DefaultRetryConfig
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	return &Speaker{cfg: cfg, retry: retry, sink: sink}, nil
}

// Feed appends text and synthesizes the buffer once it reaches BufferSize
// characters or ends with a sentence ending.
func (s *Speaker) Feed(ctx context.Context, text string) error {
	s.buf.WriteString(text)
	if s.ready() {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Speaker) ready() bool {
	buffered := s.buf.String()
	if len([]rune(buffered)) >= s.cfg.BufferSize {
		return true
	}
	for _, end := range s.cfg.SentenceEndings {
		if end != "" && strings.HasSuffix(buffered, end) {
			return true
		}
	}
	return false
}

// Flush synthesizes whatever text is buffered.
func (s *Speaker) Flush(ctx context.Context) error {
	if s.buf.Len() == 0 {
		return nil
	}
	text := s.buf.String()
	s.buf.Reset()

	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.speak(ctx, text)
}

// Say synthesizes text immediately, bypassing the buffer.
func (s *Speaker) Say(ctx context.Context, text string) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	return s.speak(ctx, text)
}

// BytesSent reports how much audio has gone to the sink.
func (s *Speaker) BytesSent() int { return s.bytes }

func (s *Speaker) speak(ctx context.Context, text string) error {
	req := tts.SynthesizeRequest{
		Text:     text,
		Voice:    s.cfg.Voice,
		Language: s.cfg.Language,
		Format:   s.cfg.Format,
		Speed:    s.cfg.Speed,
	}
	chunks, err := ai.Retry(ctx, s.retry, s.cfg.Logger, "tts.synthesize", func(ctx context.Context) (<-chan tts.Chunk, error) {
		return s.cfg.TTS.Synthesize(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	pending := make([]byte, 0, s.cfg.ChunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				if len(pending) > 0 {
					return s.emit(pending)
				}
				return nil
			}
			if chunk.Err != nil {
				return fmt.Errorf("synthesize: %w", chunk.Err)
			}
			pending = append(pending, chunk.Data...)
			for len(pending) >= s.cfg.ChunkSize {
				if err := s.emit(pending[:s.cfg.ChunkSize]); err != nil {
					return err
				}
				pending = append(pending[:0], pending[s.cfg.ChunkSize:]...)
			}
		}
	}
}

func (s *Speaker) emit(b []byte) error {
	out := make([]byte, len(b))
	copy(out, b)
	s.bytes += len(out)
	return s.sink(out)
}
