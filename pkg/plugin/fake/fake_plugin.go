// Package fake registers the fake providers under the name "fake" so the
// server can run end to end without API keys.
package fake

import (
	llmfake "github.com/finvox/finvox-go/pkg/ai/llm/fake"
	sttfake "github.com/finvox/finvox-go/pkg/ai/stt/fake"
	ttsfake "github.com/finvox/finvox-go/pkg/ai/tts/fake"
	"github.com/finvox/finvox-go/pkg/plugin"
)

func newFakeSTT(cfg map[string]any) (any, error) {
	var transcripts []string
	switch v := cfg["transcripts"].(type) {
	case []string:
		transcripts = v
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok {
				transcripts = append(transcripts, s)
			}
		}
	}
	if t := plugin.String(cfg, "transcript", ""); t != "" {
		transcripts = append(transcripts, t)
	}
	return sttfake.NewFakeSTT(transcripts...), nil
}

func newFakeTTS(cfg map[string]any) (any, error) {
	f := ttsfake.NewFakeTTS()
	if n := int(plugin.Float(cfg, "piece_size", 0)); n > 0 {
		f.PieceSize = n
	}
	return f, nil
}

func newFakeLLM(cfg map[string]any) (any, error) {
	var script []llmfake.Reply
	if replies, ok := cfg["responses"].([]string); ok {
		for _, r := range replies {
			script = append(script, llmfake.Reply{Text: r})
		}
	}
	return llmfake.NewFakeLLM(script...), nil
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "fake",
		Factory:     newFakeSTT,
		Description: "Fake STT provider for testing and development",
		Version:     "1.0.0",
		Config: map[string]any{
			"transcript":  sttfake.DefaultTranscript,
			"transcripts": "transcripts returned in turn",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "fake",
		Factory:     newFakeTTS,
		Description: "Fake TTS provider that speaks text back as bytes",
		Version:     "1.0.0",
		Config: map[string]any{
			"piece_size": 16,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "fake",
		Factory:     newFakeLLM,
		Description: "Fake LLM that calls banking tools by keyword",
		Version:     "1.0.0",
		Config: map[string]any{
			"responses": "scripted replies; keyword tool calling when empty",
		},
	})
}
