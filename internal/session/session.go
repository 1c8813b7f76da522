// Package session runs the voice pipeline for one websocket connection: each
// binary frame is an utterance that is transcribed, answered by the agent and
// spoken back as audio chunks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finvox/finvox-go/internal/history"
	"github.com/finvox/finvox-go/pkg/agent"
	"github.com/finvox/finvox-go/pkg/ai"
	"github.com/finvox/finvox-go/pkg/ai/llm"
	"github.com/finvox/finvox-go/pkg/ai/stt"
	"github.com/finvox/finvox-go/pkg/audio/wav"
	"github.com/finvox/finvox-go/pkg/speech"
)

// Input formats for incoming frames.
const (
	InputEncoded = "encoded"
	InputPCM16   = "pcm16"
)

// Conn is the client side of a session.
type Conn interface {
	WriteText(ctx context.Context, text string) error
	WriteBinary(ctx context.Context, data []byte) error
}

// Responder answers a prompt, streaming text deltas. *agent.Agent implements it.
type Responder interface {
	Run(ctx context.Context, prompt string, history []llm.Message, onDelta agent.DeltaFunc) (string, error)
}

// Config holds everything shared by all sessions of a server.
type Config struct {
	STT     stt.STT
	Agent   Responder
	History history.Store
	Speech  speech.Config

	InputFormat   string
	AudioFilename string
	Language      string
	HistoryLimit  int
	GreetingName  string

	Retry   *ai.RetryConfig
	Metrics *Metrics
	Logger  *slog.Logger
}

func (c *Config) validate() error {
	switch {
	case c.STT == nil:
		return errors.New("STT is required")
	case c.Agent == nil:
		return errors.New("agent is required")
	case c.History == nil:
		return errors.New("history store is required")
	case c.Speech.TTS == nil:
		return errors.New("TTS is required")
	}
	return nil
}

// Session is one conversation. Frames must be handled one at a time.
type Session struct {
	id     uuid.UUID
	cfg    *Config
	conn   Conn
	retry  ai.RetryConfig
	logger *slog.Logger

	// userTurns counts every stored user message, not just the loaded window.
	userTurns int
}

// New starts a session with a fresh conversation ID.
func New(cfg *Config, conn Conn) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := ai.DefaultRetryConfig
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	id := uuid.New()
	if cfg.Metrics != nil {
		cfg.Metrics.ActiveSessions.Inc()
	}
	return &Session{
		id:     id,
		cfg:    cfg,
		conn:   conn,
		retry:  retry,
		logger: logger.With(slog.String("conversation_id", id.String())),
	}, nil
}

// ID returns the conversation ID.
func (s *Session) ID() uuid.UUID { return s.id }

// Close ends the session.
func (s *Session) Close() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ActiveSessions.Dec()
	}
}

// connError marks a failed write to the client.
type connError struct{ err error }

func (e *connError) Error() string { return "write to client: " + e.err.Error() }
func (e *connError) Unwrap() error { return e.err }

// HandleText ignores a text frame; the client only speaks audio.
func (s *Session) HandleText(_ context.Context, text string) {
	s.logger.Debug("Ignoring text frame", slog.Int("length", len(text)))
}

// HandleAudio runs one turn. Turn failures are reported to the client as an
// "Error: ..." text frame; only a failed write to the client is returned.
func (s *Session) HandleAudio(ctx context.Context, data []byte) error {
	s.logger.Info("Received audio", slog.Int("bytes", len(data)))

	outcome, err := s.turn(ctx, data)
	s.cfg.Metrics.turn(outcome)
	if err == nil {
		return nil
	}

	var ce *connError
	if errors.As(err, &ce) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Error("Turn failed", slog.String("error", err.Error()))
	if werr := s.conn.WriteText(ctx, "Error: "+err.Error()); werr != nil {
		return &connError{werr}
	}
	return nil
}

func (s *Session) turn(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return OutcomeEmpty, nil
	}
	transcript, err := s.transcribe(ctx, data)
	if err != nil {
		return OutcomeError, err
	}
	s.logger.Info("Transcribed", slog.String("text", transcript))
	if strings.TrimSpace(transcript) == "" {
		return OutcomeEmpty, nil
	}

	if err := s.send(ctx, "Client: "+transcript); err != nil {
		return OutcomeError, err
	}
	if err := s.cfg.History.Append(ctx, s.id, agent.SenderUser, transcript); err != nil {
		return OutcomeError, fmt.Errorf("store user message: %w", err)
	}
	s.userTurns++

	msgs, err := s.cfg.History.List(ctx, s.id, s.cfg.HistoryLimit)
	if err != nil {
		return OutcomeError, fmt.Errorf("load history: %w", err)
	}
	turns := history.Turns(msgs)
	s.logger.Debug("Loaded history",
		slog.Int("messages", len(turns)),
		slog.Int("user_messages", agent.CountUserTurns(turns)),
		slog.Int("user_turns", s.userTurns))

	speaker, err := speech.NewSpeaker(s.speechConfig(), s.sink(ctx))
	if err != nil {
		return OutcomeError, err
	}

	if s.userTurns <= 1 && IsGreeting(transcript) {
		greeting := Greeting(s.cfg.GreetingName)
		start := time.Now()
		if err := speaker.Say(ctx, greeting); err != nil {
			return OutcomeError, err
		}
		s.cfg.Metrics.stage(StageSpeech, start)
		return OutcomeGreeted, s.reply(ctx, greeting)
	}

	start := time.Now()
	answer, err := s.cfg.Agent.Run(ctx, transcript, agent.FormatHistory(turns), func(delta string) error {
		return speaker.Feed(ctx, delta)
	})
	if err != nil {
		return OutcomeError, fmt.Errorf("agent: %w", err)
	}
	if err := speaker.Flush(ctx); err != nil {
		return OutcomeError, err
	}
	s.cfg.Metrics.stage(StageAgent, start)

	s.logger.Info("Answered", slog.Int("audio_bytes", speaker.BytesSent()), slog.Int("length", len(answer)))
	return OutcomeAnswered, s.reply(ctx, answer)
}

func (s *Session) transcribe(ctx context.Context, data []byte) (string, error) {
	audio := stt.Audio{Data: data, Filename: s.cfg.AudioFilename, Language: s.cfg.Language}
	if s.cfg.InputFormat == InputPCM16 && !wav.IsWAV(data) {
		encoded, err := wav.Encode(data, wav.PCM16Mono16k)
		if err != nil {
			return "", fmt.Errorf("wrap pcm16: %w", err)
		}
		audio.Data = encoded
		audio.Filename = "audio.wav"
	}

	start := time.Now()
	defer s.cfg.Metrics.stage(StageTranscribe, start)

	tr, err := ai.Retry(ctx, s.retry, s.logger, "stt.transcribe", func(ctx context.Context) (stt.Transcript, error) {
		return s.cfg.STT.Transcribe(ctx, audio)
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return tr.Text, nil
}

func (s *Session) reply(ctx context.Context, text string) error {
	if err := s.send(ctx, "Agent: "+text); err != nil {
		return err
	}
	if err := s.cfg.History.Append(ctx, s.id, agent.SenderAgent, text); err != nil {
		return fmt.Errorf("store agent message: %w", err)
	}
	return nil
}

func (s *Session) send(ctx context.Context, text string) error {
	if err := s.conn.WriteText(ctx, text); err != nil {
		return &connError{err}
	}
	return nil
}

func (s *Session) sink(ctx context.Context) speech.Sink {
	return func(chunk []byte) error {
		if err := s.conn.WriteBinary(ctx, chunk); err != nil {
			return &connError{err}
		}
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.AudioBytes.Add(float64(len(chunk)))
		}
		return nil
	}
}

func (s *Session) speechConfig() speech.Config {
	c := s.cfg.Speech
	if c.Logger == nil {
		c.Logger = s.logger
	}
	if c.Retry == nil {
		c.Retry = s.cfg.Retry
	}
	return c
}
