package fake

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/finvox/finvox-go/pkg/ai/llm"
	"github.com/finvox/finvox-go/pkg/ai/stt"
	"github.com/finvox/finvox-go/pkg/ai/tts"
	"github.com/finvox/finvox-go/pkg/plugin"
)

func TestFakePluginsRegistered(t *testing.T) {
	is := is.New(t)

	_, err := plugin.Build[llm.LLM](plugin.KindLLM, "fake", nil)
	is.NoErr(err)
	_, err = plugin.Build[tts.TTS](plugin.KindTTS, "fake", map[string]any{"piece_size": 4})
	is.NoErr(err)

	engine, err := plugin.Build[stt.STT](plugin.KindSTT, "fake", map[string]any{"transcripts": []any{"hi", "my balance"}})
	is.NoErr(err)

	ctx := context.Background()
	audio := stt.Audio{Data: []byte{1}}
	first, err := engine.Transcribe(ctx, audio)
	is.NoErr(err)
	second, err := engine.Transcribe(ctx, audio)
	is.NoErr(err)
	is.Equal(first.Text, "hi")
	is.Equal(second.Text, "my balance")
}
