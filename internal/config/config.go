// Package config loads Finvox settings from an optional YAML file, a .env file
// and the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Agent     AgentConfig     `yaml:"agent"`
	Speech    SpeechConfig    `yaml:"speech"`
	Bank      BankConfig      `yaml:"bank"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP and websocket listener.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadLimit      int64         `yaml:"read_limit"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	// InputFormat is "encoded" for container formats the STT API accepts
	// directly, or "pcm16" for raw 16 kHz mono frames that need a WAV header.
	InputFormat string `yaml:"input_format"`
}

// ProvidersConfig selects the STT, LLM and TTS plugins.
type ProvidersConfig struct {
	STT          ProviderConfig `yaml:"stt"`
	LLM          ProviderConfig `yaml:"llm"`
	TTS          ProviderConfig `yaml:"tts"`
	GroqAPIKey   string         `yaml:"groq_api_key"`
	OpenAIAPIKey string         `yaml:"openai_api_key"`
}

// ProviderConfig names a registered plugin and the settings passed to its factory.
type ProviderConfig struct {
	Plugin   string `yaml:"plugin"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
	Voice    string `yaml:"voice"`
	Format   string `yaml:"format"`
}

// AgentConfig configures the banking agent.
type AgentConfig struct {
	SystemPromptPath string  `yaml:"system_prompt_path"`
	MaxToolRounds    int     `yaml:"max_tool_rounds"`
	Temperature      float32 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	HistoryLimit     int     `yaml:"history_limit"`
	GreetingName     string  `yaml:"greeting_name"`
}

// SpeechConfig configures how agent text is buffered into speech.
type SpeechConfig struct {
	BufferSize      int      `yaml:"buffer_size"`
	SentenceEndings []string `yaml:"sentence_endings"`
	ChunkSize       int      `yaml:"chunk_size"`
	AudioFilename   string   `yaml:"audio_filename"`
	Speed           float64  `yaml:"speed"`
}

// BankConfig configures the embedded banking database.
type BankConfig struct {
	Path           string        `yaml:"path"`
	SchemeCacheTTL time.Duration `yaml:"scheme_cache_ttl"`
}

// HistoryConfig selects the conversation history store. A DSN of "memory"
// keeps history in process.
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			ReadLimit:      10 << 20,
			WriteTimeout:   10 * time.Second,
			PingInterval:   30 * time.Second,
			InputFormat:    "encoded",
		},
		Providers: ProvidersConfig{
			STT: ProviderConfig{Plugin: "groq", Model: "whisper-large-v3-turbo"},
			LLM: ProviderConfig{Plugin: "groq"},
			TTS: ProviderConfig{Plugin: "groq"},
		},
		Agent: AgentConfig{
			SystemPromptPath: "",
			MaxToolRounds:    5,
			HistoryLimit:     50,
			GreetingName:     "Shivamani",
		},
		Speech: SpeechConfig{
			BufferSize:      128,
			SentenceEndings: []string{"?", "!", ";", ":", "\n"},
			ChunkSize:       5 * 1024,
			AudioFilename:   "audio.webm",
		},
		Bank: BankConfig{
			Path:           "transactions.db",
			SchemeCacheTTL: 10 * time.Minute,
		},
		History: HistoryConfig{DSN: "memory"},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty),
// a .env file in the working directory (if present) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str(&c.Server.Addr, "FINVOX_ADDR")
	str(&c.Server.InputFormat, "FINVOX_INPUT_FORMAT")
	if v := getenv("FINVOX_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	str(&c.Providers.GroqAPIKey, "GROQ_API_KEY")
	str(&c.Providers.OpenAIAPIKey, "OPENAI_API_KEY")
	str(&c.Providers.STT.Plugin, "FINVOX_STT_PLUGIN")
	str(&c.Providers.STT.Model, "FINVOX_STT_MODEL")
	str(&c.Providers.LLM.Plugin, "FINVOX_LLM_PLUGIN")
	str(&c.Providers.LLM.Model, "FINVOX_LLM_MODEL")
	str(&c.Providers.TTS.Plugin, "FINVOX_TTS_PLUGIN")
	str(&c.Providers.TTS.Model, "FINVOX_TTS_MODEL")
	str(&c.Providers.TTS.Voice, "FINVOX_TTS_VOICE")

	str(&c.Agent.SystemPromptPath, "FINVOX_SYSTEM_PROMPT")
	str(&c.Agent.GreetingName, "FINVOX_GREETING_NAME")
	if err := num(&c.Agent.MaxToolRounds, "FINVOX_MAX_TOOL_ROUNDS"); err != nil {
		return err
	}

	if err := num(&c.Speech.BufferSize, "FINVOX_SPEECH_BUFFER_SIZE"); err != nil {
		return err
	}
	if err := num(&c.Speech.ChunkSize, "FINVOX_SPEECH_CHUNK_SIZE"); err != nil {
		return err
	}

	str(&c.Bank.Path, "FINVOX_BANK_DB")
	str(&c.History.DSN, "FINVOX_HISTORY_DSN", "DATABASE_URL")

	str(&c.Log.Level, "FINVOX_LOG_LEVEL")
	str(&c.Log.Format, "FINVOX_LOG_FORMAT")
	str(&c.Log.File, "FINVOX_LOG_FILE")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error

	for _, p := range []struct {
		kind string
		cfg  ProviderConfig
	}{
		{"stt", c.Providers.STT},
		{"llm", c.Providers.LLM},
		{"tts", c.Providers.TTS},
	} {
		if p.cfg.Plugin == "" {
			errs = append(errs, fmt.Errorf("providers.%s.plugin is required", p.kind))
			continue
		}
		if p.cfg.Plugin != "fake" && c.APIKey(p.cfg) == "" {
			errs = append(errs, fmt.Errorf("providers.%s: no API key for plugin %q", p.kind, p.cfg.Plugin))
		}
	}

	if c.Speech.BufferSize <= 0 {
		errs = append(errs, errors.New("speech.buffer_size must be positive"))
	}
	if c.Speech.ChunkSize <= 0 {
		errs = append(errs, errors.New("speech.chunk_size must be positive"))
	}
	if c.Server.ReadLimit <= 0 {
		errs = append(errs, errors.New("server.read_limit must be positive"))
	}
	if c.Agent.MaxToolRounds <= 0 {
		errs = append(errs, errors.New("agent.max_tool_rounds must be positive"))
	}
	switch c.Server.InputFormat {
	case "encoded", "pcm16":
	default:
		errs = append(errs, fmt.Errorf("server.input_format %q: want encoded or pcm16", c.Server.InputFormat))
	}
	if c.Bank.Path == "" {
		errs = append(errs, errors.New("bank.path is required"))
	}
	return errors.Join(errs...)
}

// APIKey returns the key for a provider: its own api_key, else the shared key
// for its plugin family.
func (c *Config) APIKey(p ProviderConfig) string {
	if p.APIKey != "" {
		return p.APIKey
	}
	switch p.Plugin {
	case "groq":
		return c.Providers.GroqAPIKey
	case "openai":
		return c.Providers.OpenAIAPIKey
	}
	return ""
}

// PluginConfig converts a provider section into the map handed to a plugin
// factory. Empty fields are left out so the plugin's defaults apply.
func (c *Config) PluginConfig(p ProviderConfig) map[string]any {
	out := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("api_key", c.APIKey(p))
	set("model", p.Model)
	set("base_url", p.BaseURL)
	set("language", p.Language)
	set("voice", p.Voice)
	set("format", p.Format)
	return out
}
