package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/finvox/finvox-go/internal/config"
	"github.com/finvox/finvox-go/internal/logging"
	"github.com/finvox/finvox-go/internal/server"
	"github.com/finvox/finvox-go/pkg/ai/stt"
	"github.com/finvox/finvox-go/pkg/audio/wav"
	"github.com/finvox/finvox-go/pkg/bank"
	"github.com/finvox/finvox-go/pkg/plugin"
	_ "github.com/finvox/finvox-go/pkg/plugin/fake"   // Import to register fake plugins
	_ "github.com/finvox/finvox-go/pkg/plugin/openai" // Import to register OpenAI and Groq plugins
	"github.com/finvox/finvox-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "finvox",
	Short: "Finvox - a voice banking assistant",
	Long: `finvox serves a websocket voice assistant that answers banking questions
from a local transactions database using a tool-calling language model.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(version.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the voice stream server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Info("Starting server",
			slog.String("service", "finvox"),
			slog.String("version", version.Version),
			slog.String("commit", version.GitCommit),
			slog.String("addr", cfg.Server.Addr))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		app, err := server.NewApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Error("Error during shutdown", slog.String("error", err.Error()))
			}
		}()

		if err := app.Serve(ctx); err != nil {
			logger.Error("Server failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Banking database commands",
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the banking tables with sample data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBank(cmd, func(ctx context.Context, store *bank.Store) error {
			return store.Reset(ctx)
		})
	},
}

var dbResetLedgerCmd = &cobra.Command{
	Use:   "reset-ledger",
	Short: "Drop and recreate the flat transaction ledger with sample data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBank(cmd, func(ctx context.Context, store *bank.Store) error {
			return store.ResetLedger(ctx)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the agent a question in text and print the streamed answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog.Close()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		app, err := server.NewApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		_, err = app.Agent.Run(ctx, args[0], nil, func(delta string) error {
			_, werr := io.WriteString(out, delta)
			return werr
		})
		fmt.Fprintln(out)
		return err
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio file with the configured STT provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog.Close()

		filePath, _ := cmd.Flags().GetString("file")
		if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
			cfg.Providers.STT.Plugin = provider
		}
		return runTranscribe(cmd.OutOrStdout(), cfg, filePath, logger)
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins [kind]",
	Short: "List registered plugins",
	Long: `List all registered plugins or plugins of a specific kind.
Available kinds: stt, tts, llm`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := ""
		if len(args) > 0 {
			kind = args[0]
		}
		printPlugins(cmd.OutOrStdout(), plugin.List(kind), kind)
		return nil
	},
}

// setup loads configuration and installs the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, io.Closer, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	logger, closer := logging.Setup(cfg.Log)
	return cfg, logger, closer, nil
}

func withBank(cmd *cobra.Command, fn func(context.Context, *bank.Store) error) error {
	cfg, logger, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	path := cfg.Bank.Path
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		path = p
	}

	store, err := bank.Open(path, bank.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := fn(ctx, store); err != nil {
		return err
	}
	logger.Info("Database reset", slog.String("path", path), slog.String("command", cmd.Name()))
	return nil
}

func runTranscribe(out io.Writer, cfg *config.Config, filePath string, logger *slog.Logger) error {
	if filePath == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	if wav.IsWAV(data) {
		format, pcm, err := wav.Decode(data)
		if err != nil {
			return err
		}
		logger.Info("WAV file info",
			slog.Int("sample_rate", int(format.SampleRate)),
			slog.Int("channels", int(format.NumChannels)),
			slog.Float64("duration_seconds", wav.Duration(pcm, format)))
	}

	provider, err := plugin.Build[stt.STT](plugin.KindSTT, cfg.Providers.STT.Plugin, cfg.PluginConfig(cfg.Providers.STT))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tr, err := provider.Transcribe(ctx, stt.Audio{
		Data:     data,
		Filename: filepath.Base(filePath),
		Language: cfg.Providers.STT.Language,
	})
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	fmt.Fprintf(out, "Transcript: %s\n", tr.Text)
	return nil
}

func printPlugins(out io.Writer, plugins []*plugin.Plugin, kind string) {
	if len(plugins) == 0 {
		if kind == "" {
			fmt.Fprintln(out, "No plugins registered")
		} else {
			fmt.Fprintf(out, "No plugins registered for kind: %s\n", kind)
		}
		return
	}

	fmt.Fprintf(out, "%-8s %-20s %-10s %s\n", "KIND", "NAME", "VERSION", "DESCRIPTION")
	fmt.Fprintln(out, "------------------------------------------------------------")
	for _, p := range plugins {
		v := p.Version
		if v == "" {
			v = "N/A"
		}
		description := p.Description
		if description == "" {
			description = "No description"
		}
		fmt.Fprintf(out, "%-8s %-20s %-10s %s\n", p.Kind, p.Name, v, description)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	versionCmd.Flags().Bool("json", false, "Print version information as JSON")
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	dbCmd.PersistentFlags().String("path", "", "Banking database path (overrides bank.path)")
	transcribeCmd.Flags().String("file", "", "Path to the audio file")
	transcribeCmd.Flags().String("provider", "", "STT plugin to use (overrides providers.stt.plugin)")
	transcribeCmd.MarkFlagRequired("file")

	dbCmd.AddCommand(dbResetCmd, dbResetLedgerCmd)
	rootCmd.AddCommand(versionCmd, serveCmd, dbCmd, askCmd, transcribeCmd, pluginsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
