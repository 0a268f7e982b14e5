package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/betaskintech/clara/pkg/memory"
)

func TestChatRunsSlashCommands(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HEYGEN_API_KEY", "")
	t.Setenv("LISTEN_ADDR", "")

	var logs bytes.Buffer
	a, err := newApp("", &logs)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	var out bytes.Buffer
	in := strings.NewReader("/ping\n\nsalir\n/ping\n")
	if err := a.chat(cmd, memory.Fresh(), in, &out); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Count(out.String(), "pong") != 1 {
		t.Fatalf("expected a single pong before salir, got %q", out.String())
	}
	if a.memory.Sessions() != 0 {
		t.Fatalf("commands must not create sessions")
	}
}

func TestRootCmdHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "chat"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("missing %s subcommand: %v", name, err)
		}
	}
}
