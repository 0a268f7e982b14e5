package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
)

type fakeAudioClient struct {
	request goopenai.AudioRequest
	body    []byte
	text    string
	err     error
}

func (f *fakeAudioClient) CreateTranscription(_ context.Context, req goopenai.AudioRequest) (goopenai.AudioResponse, error) {
	f.request = req
	if req.Reader != nil {
		f.body, _ = io.ReadAll(req.Reader)
	}
	if f.err != nil {
		return goopenai.AudioResponse{}, f.err
	}
	return goopenai.AudioResponse{Text: f.text}, nil
}

func TestWhisperTranscriberDefaults(t *testing.T) {
	client := &fakeAudioClient{text: " hola clara \n"}
	tr := newWhisperTranscriber(client, TranscriptionConfig{})

	text, err := tr.Transcribe(context.Background(), []byte("webm-bytes"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hola clara" {
		t.Fatalf("unexpected text: %q", text)
	}
	if client.request.Model != goopenai.Whisper1 || client.request.Language != "es" {
		t.Fatalf("unexpected request: %+v", client.request)
	}
	if client.request.FilePath != "audio.webm" || client.request.Format != goopenai.AudioResponseFormatText {
		t.Fatalf("unexpected file/format: %s %s", client.request.FilePath, client.request.Format)
	}
	if string(client.body) != "webm-bytes" {
		t.Fatalf("audio not forwarded: %q", client.body)
	}
}

func TestWhisperTranscriberErrors(t *testing.T) {
	tr := newWhisperTranscriber(&fakeAudioClient{err: errors.New("boom")}, TranscriptionConfig{})
	if _, err := tr.Transcribe(context.Background(), nil); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
	if _, err := tr.Transcribe(context.Background(), []byte("x")); !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}
