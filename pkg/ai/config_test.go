package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeFile(t, "ai.yaml", `
models:
  - name: claude
    provider: anthropic
    api_key: env:ANTHROPIC_API_KEY
    model_name: claude-3-5-haiku-latest
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultModel != "claude" {
		t.Fatalf("expected first model as default, got %q", cfg.DefaultModel)
	}
	m, ok := cfg.Model("claude")
	if !ok {
		t.Fatalf("model not found")
	}
	if m.MaxTokens != DefaultMaxTokens || m.Temperature != DefaultTemperature {
		t.Fatalf("defaults not applied: %+v", m)
	}
}

func TestLoadConfigRejectsUnknownDefault(t *testing.T) {
	path := writeFile(t, "ai.yaml", `
default_model: missing
models:
  - name: clara
    provider: openai
`)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("CLARA_TEST_KEY", "sk-test")
	if got := ResolveAPIKey("env:CLARA_TEST_KEY"); got != "sk-test" {
		t.Fatalf("env reference not resolved: %q", got)
	}
	if got := ResolveAPIKey("literal"); got != "literal" {
		t.Fatalf("literal key changed: %q", got)
	}
}

func TestLoadSystemPrompt(t *testing.T) {
	def, err := LoadSystemPrompt("", "")
	if err != nil || !strings.HasPrefix(def, "Eres Clara") {
		t.Fatalf("expected built-in prompt, got %q (%v)", def, err)
	}
	inline, _ := LoadSystemPrompt("Sé breve.", "ignored.txt")
	if inline != "Sé breve." {
		t.Fatalf("inline prompt should win, got %q", inline)
	}
	path := writeFile(t, "prompt.txt", "  Eres una asesora.\n")
	fromFile, err := LoadSystemPrompt("", path)
	if err != nil || fromFile != "Eres una asesora." {
		t.Fatalf("unexpected file prompt %q (%v)", fromFile, err)
	}
}
