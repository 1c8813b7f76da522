// Package openai provides STT, LLM and TTS providers for OpenAI and for
// OpenAI-compatible APIs. Groq is registered as its own provider pointing
// at its compatible endpoint.
package openai

import (
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finvox/finvox-go/pkg/plugin"
)

// GroqBaseURL is Groq's OpenAI-compatible API root.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Provider describes one OpenAI-compatible backend and its defaults.
type Provider struct {
	Name    string
	BaseURL string // empty for api.openai.com
	KeyEnv  string

	STTModel  string
	LLMModel  string
	TTSModel  string
	TTSVoice  string
	TTSFormat string
}

var (
	OpenAI = Provider{
		Name:      "openai",
		KeyEnv:    "OPENAI_API_KEY",
		STTModel:  openai.Whisper1,
		LLMModel:  openai.GPT4oMini,
		TTSModel:  string(openai.TTSModel1),
		TTSVoice:  string(openai.VoiceAlloy),
		TTSFormat: string(openai.SpeechResponseFormatMp3),
	}

	Groq = Provider{
		Name:      "groq",
		BaseURL:   GroqBaseURL,
		KeyEnv:    "GROQ_API_KEY",
		STTModel:  "whisper-large-v3-turbo",
		LLMModel:  "llama-3.3-70b-versatile",
		TTSModel:  "playai-tts",
		TTSVoice:  "Fritz-PlayAI",
		TTSFormat: string(openai.SpeechResponseFormatWav),
	}
)

// Config holds the settings shared by every provider kind.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string // STT only
	Voice    string // TTS only
	Format   string // TTS only
}

// config resolves a plugin config map against the provider defaults.
func (p Provider) config(cfg map[string]any, defaultModel string) (Config, error) {
	c := Config{
		APIKey:   plugin.String(cfg, "api_key", os.Getenv(p.KeyEnv)),
		BaseURL:  plugin.String(cfg, "base_url", p.BaseURL),
		Model:    plugin.String(cfg, "model", defaultModel),
		Language: plugin.String(cfg, "language", ""),
		Voice:    plugin.String(cfg, "voice", p.TTSVoice),
		Format:   plugin.String(cfg, "format", p.TTSFormat),
	}
	if c.APIKey == "" {
		return c, fmt.Errorf("%s API key is required (set %s or provide api_key in config)", p.Name, p.KeyEnv)
	}
	return c, nil
}

func newClient(c Config) *openai.Client {
	cc := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cc.BaseURL = c.BaseURL
	}
	return openai.NewClientWithConfig(cc)
}

func (p Provider) register() {
	keyDoc := fmt.Sprintf("%s API key (or set %s)", p.Name, p.KeyEnv)

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind: plugin.KindSTT,
		Name: p.Name,
		Factory: func(cfg map[string]any) (any, error) {
			c, err := p.config(cfg, p.STTModel)
			if err != nil {
				return nil, err
			}
			return NewSTT(c), nil
		},
		Description: p.Name + " Whisper speech-to-text",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key":  keyDoc,
			"model":    p.STTModel,
			"language": "auto-detect (leave empty) or a language code",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind: plugin.KindLLM,
		Name: p.Name,
		Factory: func(cfg map[string]any) (any, error) {
			c, err := p.config(cfg, p.LLMModel)
			if err != nil {
				return nil, err
			}
			return NewLLM(c), nil
		},
		Description: p.Name + " chat completions with tool calling",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": keyDoc,
			"model":   p.LLMModel,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind: plugin.KindTTS,
		Name: p.Name,
		Factory: func(cfg map[string]any) (any, error) {
			c, err := p.config(cfg, p.TTSModel)
			if err != nil {
				return nil, err
			}
			return NewTTS(c), nil
		},
		Description: p.Name + " text-to-speech",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": keyDoc,
			"model":   p.TTSModel,
			"voice":   p.TTSVoice,
			"format":  p.TTSFormat,
		},
	})
}

func init() {
	OpenAI.register()
	Groq.register()
}
