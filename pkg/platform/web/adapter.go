package web

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/betaskintech/clara/pkg/botcore"
)

var (
	// ErrTextRequired 表示文本请求缺少 userText。
	ErrTextRequired = errors.New("user text is required")
	// ErrAudioRequired 表示语音请求缺少 audioBase64。
	ErrAudioRequired = errors.New("audio data is required")
	// ErrAudioEncoding 表示 audioBase64 不是合法的 base64。
	ErrAudioEncoding = errors.New("audio data is not valid base64")
)

// TextRequest 是 /api/voice-chat-avatar 的请求体，文本已由头像服务完成转写。
type TextRequest struct {
	UserText  string `json:"userText"`
	SessionID string `json:"sessionId,omitempty"`
}

// VoiceRequest 是 /api/voice-chat 的请求体。
type VoiceRequest struct {
	AudioBase64 string `json:"audioBase64"`
	SessionID   string `json:"sessionId,omitempty"`
}

// RequestAdapter 将挂件的 JSON 请求映射为通用 Update。
type RequestAdapter struct{}

// Normalize 实现 botcore.Adapter。
func (RequestAdapter) Normalize(raw interface{}) (botcore.Update, error) {
	switch req := raw.(type) {
	case *TextRequest:
		text := strings.TrimSpace(req.UserText)
		if text == "" {
			return botcore.Update{}, ErrTextRequired
		}
		return botcore.Update{
			SessionID: strings.TrimSpace(req.SessionID),
			Source:    botcore.SourceText,
			Text:      text,
		}, nil
	case *VoiceRequest:
		encoded := strings.TrimSpace(req.AudioBase64)
		if encoded == "" {
			return botcore.Update{}, ErrAudioRequired
		}
		// 浏览器 FileReader 产出的是 data URL，去掉前缀
		if idx := strings.Index(encoded, ";base64,"); idx >= 0 && strings.HasPrefix(encoded, "data:") {
			encoded = encoded[idx+len(";base64,"):]
		}
		audio, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return botcore.Update{}, ErrAudioEncoding
		}
		if len(audio) == 0 {
			return botcore.Update{}, ErrAudioRequired
		}
		return botcore.Update{
			SessionID: strings.TrimSpace(req.SessionID),
			Source:    botcore.SourceVoice,
			Audio:     audio,
		}, nil
	default:
		return botcore.Update{}, errors.New("unsupported request type")
	}
}
