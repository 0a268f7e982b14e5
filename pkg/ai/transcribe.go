package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// ErrEmptyAudio 表示音频数据为空。
var ErrEmptyAudio = errors.New("audio data is empty")

// ErrTranscriptionFailed 包装语音转写服务的错误。
var ErrTranscriptionFailed = errors.New("failed to transcribe audio")

// Transcriber 将一段录音转为文本。
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// TranscriptionConfig 配置 Whisper 转写。
type TranscriptionConfig struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model    string `json:"model" yaml:"model"`
	Language string `json:"language" yaml:"language"`
	FileName string `json:"file_name" yaml:"file_name"` // 决定服务端识别的音频格式
}

// audioClient 是 go-openai Client 中转写所需的子集。
type audioClient interface {
	CreateTranscription(ctx context.Context, request goopenai.AudioRequest) (goopenai.AudioResponse, error)
}

// WhisperTranscriber 通过 OpenAI 音频接口进行语音转写。
type WhisperTranscriber struct {
	client   audioClient
	model    string
	language string
	fileName string
}

// NewWhisperTranscriber 根据配置创建转写器。
func NewWhisperTranscriber(cfg TranscriptionConfig) *WhisperTranscriber {
	clientCfg := goopenai.DefaultConfig(ResolveAPIKey(cfg.APIKey))
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newWhisperTranscriber(goopenai.NewClientWithConfig(clientCfg), cfg)
}

func newWhisperTranscriber(client audioClient, cfg TranscriptionConfig) *WhisperTranscriber {
	t := &WhisperTranscriber{
		client:   client,
		model:    cfg.Model,
		language: cfg.Language,
		fileName: cfg.FileName,
	}
	if t.model == "" {
		t.model = goopenai.Whisper1
	}
	if t.language == "" {
		t.language = "es"
	}
	if t.fileName == "" {
		t.fileName = "audio.webm"
	}
	return t
}

// Transcribe 实现 Transcriber 接口。
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: t.fileName,
		Reader:   bytes.NewReader(audio),
		Language: t.language,
		Format:   goopenai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
