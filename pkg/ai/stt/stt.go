// Package stt provides interfaces and types for speech-to-text providers.
// A provider turns one complete recorded utterance into a transcript.
package stt

import (
	"context"

	"github.com/finvox/finvox-go/pkg/ai"
)

// STT-specific error variables
var (
	// ErrRecoverable indicates a temporary STT failure that may succeed if retried.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent STT failure that will not succeed if retried.
	// Examples: invalid audio format, unsupported language, authentication failure.
	ErrFatal = ai.ErrFatal
)

// Audio is a single recorded utterance in a container format the provider
// understands (webm, wav, mp3...). Filename carries the extension providers use
// to detect the format.
type Audio struct {
	Data     []byte
	Filename string
	Language string
}

// Transcript is the result of transcribing one utterance.
type Transcript struct {
	Text     string
	Language string
	Duration float64 // seconds, when reported by the provider
}

// STTCapabilities describes the capabilities of an STT provider.
type STTCapabilities struct {
	SupportedLanguages []string
	Formats            []string
}

// STT is the main interface for speech-to-text providers.
type STT interface {
	// Transcribe converts one utterance to text.
	Transcribe(ctx context.Context, audio Audio) (Transcript, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() STTCapabilities
}
