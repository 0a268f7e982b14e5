package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/betaskintech/clara/pkg/memory"
	"github.com/spf13/cobra"
)

func run(t *testing.T, mgr *Manager, update botcore.Update) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res := botcore.Collect(ctx, mgr.Trigger(ctx, update))
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	return res.Content
}

func TestManagerPing(t *testing.T) {
	mgr := NewManager(NewRootCmd, memory.NewManager())
	if got := run(t, mgr, botcore.Update{Text: "/ping"}); got != "pong\n" {
		t.Fatalf("expected pong, got %q", got)
	}
}

func TestManagerSessionCommands(t *testing.T) {
	mem := memory.NewManager()
	if err := mem.CommitExchange("sid", "Tengo piel mixta", "Te recomiendo el Booster Sebo Regulador"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	mgr := NewManager(NewRootCmd, mem)

	out := run(t, mgr, botcore.Update{SessionID: "sid", Text: "/sesion"})
	if !strings.Contains(out, "Sesión: sid") || !strings.Contains(out, "Mensajes guardados: 2") {
		t.Fatalf("unexpected session output: %q", out)
	}

	out = run(t, mgr, botcore.Update{SessionID: "sid", Text: "/historial 1"})
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "assistant: Te recomiendo") {
		t.Fatalf("unexpected history output: %q", out)
	}

	if got := len(mem.Snapshot("sid")); got != 2 {
		t.Fatalf("commands must not record turns, got %d", got)
	}
}

func TestManagerHistoryWithoutSession(t *testing.T) {
	mgr := NewManager(NewRootCmd, memory.NewManager())
	out := run(t, mgr, botcore.Update{Text: "/historial"})
	if !strings.Contains(out, "todavía no tenemos una conversación guardada") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestManagerUnknownCommand(t *testing.T) {
	mgr := NewManager(NewRootCmd, memory.NewManager())
	out := run(t, mgr, botcore.Update{Text: "/borrar todo"})
	if !strings.Contains(out, "/borrar") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestManagerNotACommand(t *testing.T) {
	mgr := NewManager(NewRootCmd, memory.NewManager())
	out := run(t, mgr, botcore.Update{Text: "hola"})
	if !strings.Contains(out, "/help") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestManagerHelp(t *testing.T) {
	mgr := NewManager(NewRootCmd, memory.NewManager())
	out := run(t, mgr, botcore.Update{Text: "/help"})
	if !strings.Contains(out, "historial") || !strings.Contains(out, "sesion") {
		t.Fatalf("help should list commands: %q", out)
	}
}

func TestManagerExplicitPayload(t *testing.T) {
	factory := func() *cobra.Command {
		root := &cobra.Command{Use: "clara", SilenceUsage: true, SilenceErrors: true}
		root.AddCommand(&cobra.Command{
			Use: "card",
			RunE: func(cmd *cobra.Command, args []string) error {
				FromContext(cmd.Context()).SetResponsePayload("card")
				return nil
			},
		})
		return root
	}
	mgr := NewManager(factory, memory.NewManager())
	ctx := context.Background()
	res := botcore.Collect(ctx, mgr.Trigger(ctx, botcore.Update{Text: "/card"}))
	if res.Payload != "card" {
		t.Fatalf("expected payload, got %+v", res)
	}
}
