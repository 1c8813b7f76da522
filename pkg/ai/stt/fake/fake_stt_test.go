package fake

import (
	"context"
	"testing"

	"github.com/finvox/finvox-go/pkg/ai/stt"
	"github.com/matryer/is"
)

func TestFakeSTT_CyclesTranscripts(t *testing.T) {
	is := is.New(t)

	provider := NewFakeSTT("hello", "show my balance")
	ctx := context.Background()
	audio := stt.Audio{Data: []byte{1, 2, 3}, Filename: "audio.webm"}

	first, err := provider.Transcribe(ctx, audio)
	is.NoErr(err)
	is.Equal(first.Text, "hello")

	second, err := provider.Transcribe(ctx, audio)
	is.NoErr(err)
	is.Equal(second.Text, "show my balance")

	third, err := provider.Transcribe(ctx, audio)
	is.NoErr(err)
	is.Equal(third.Text, "hello") // wraps around

	is.Equal(provider.Calls(), 3)
	is.Equal(len(provider.Received()), 3)
}

func TestFakeSTT_EmptyAudio(t *testing.T) {
	is := is.New(t)

	_, err := NewFakeSTT().Transcribe(context.Background(), stt.Audio{})
	is.Equal(err, ErrNoAudio)
}

func TestFakeSTT_Cancelled(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFakeSTT().Transcribe(ctx, stt.Audio{Data: []byte{1}})
	is.Equal(err, context.Canceled)
}
