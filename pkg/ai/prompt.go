package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// ClaraSystemPrompt is the built-in persona: a voice-first skincare assistant
// recommending the Beta product line.
//
//go:embed prompts/clara.txt
var ClaraSystemPrompt string

// FallbackReply is recorded when the model answers with empty content.
const FallbackReply = "Lo siento, no pude procesar tu consulta."

// LoadSystemPrompt picks the system instruction: inline text wins over a file,
// and both fall back to ClaraSystemPrompt.
func LoadSystemPrompt(inline, path string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}
	if path == "" {
		return strings.TrimSpace(ClaraSystemPrompt), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file %s is empty", path)
	}
	return prompt, nil
}
