package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/finvox/finvox-go/internal/config"
	"github.com/finvox/finvox-go/pkg/audio/wav"
	"github.com/finvox/finvox-go/pkg/plugin"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPrintPlugins(t *testing.T) {
	is := is.New(t)

	var out bytes.Buffer
	printPlugins(&out, plugin.List(plugin.KindSTT), plugin.KindSTT)

	text := out.String()
	is.True(strings.HasPrefix(text, "KIND"))
	is.True(strings.Contains(text, "fake"))
	is.True(strings.Contains(text, "groq"))

	out.Reset()
	printPlugins(&out, nil, "vad")
	is.Equal(out.String(), "No plugins registered for kind: vad\n")
}

func TestRunTranscribe(t *testing.T) {
	is := is.New(t)

	audio, err := wav.Encode(make([]byte, 3200), wav.PCM16Mono16k)
	is.NoErr(err)
	path := filepath.Join(t.TempDir(), "question.wav")
	is.NoErr(os.WriteFile(path, audio, 0o644))

	cfg := config.Default()
	cfg.Providers.STT.Plugin = "fake"

	var out bytes.Buffer
	is.NoErr(runTranscribe(&out, cfg, path, quiet))
	is.Equal(out.String(), "Transcript: What is my account balance?\n")
}

func TestRunTranscribe_MissingFile(t *testing.T) {
	is := is.New(t)

	err := runTranscribe(io.Discard, config.Default(), "", quiet)
	is.True(err != nil)

	err = runTranscribe(io.Discard, config.Default(), filepath.Join(t.TempDir(), "none.webm"), quiet)
	is.True(err != nil)
}

func TestVersionCommand_JSON(t *testing.T) {
	is := is.New(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	is.NoErr(rootCmd.Execute())
	is.True(strings.Contains(out.String(), `"version":"dev"`))
}
