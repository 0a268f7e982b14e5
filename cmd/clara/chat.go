package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/betaskintech/clara/pkg/ai"
	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/betaskintech/clara/pkg/memory"
)

func newChatCmd(configPath *string) *cobra.Command {
	var (
		sessionID string
		model     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Conversa con Clara desde la terminal",
		Long:  "Abre una conversación interactiva. Los comandos que empiezan con / se ejecutan igual que en el widget; escribe salir para terminar.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var opts []ai.ChatOption
			if model != "" {
				opts = append(opts, ai.WithModel(model))
			}
			return a.chat(cmd, memory.ParseRef(sessionID), cmd.InOrStdin(), cmd.OutOrStdout(), opts...)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "continúa una sesión existente")
	cmd.Flags().StringVar(&model, "model", "", "modelo configurado a usar (por defecto ai.default_model)")
	return cmd
}

// chat 运行交互式会话，直到输入结束或用户输入 salir。
func (a *app) chat(cmd *cobra.Command, ref memory.SessionRef, in io.Reader, out io.Writer, opts ...ai.ChatOption) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "salir" || line == "exit":
			return nil
		case strings.HasPrefix(line, "/"):
			id, _ := ref.ID()
			res := botcore.Collect(ctx, a.pipeline.Trigger(ctx, botcore.Update{
				SessionID: id,
				Source:    botcore.SourceText,
				Text:      line,
			}))
			if res.Err != nil {
				fmt.Fprintf(out, "error: %v\n", res.Err)
			} else {
				fmt.Fprint(out, res.Content)
			}
		default:
			streamed := false
			exchange, err := a.service.Reply(ctx, ref, line, append(opts, ai.WithStream(func(chunk string) {
				streamed = true
				fmt.Fprint(out, chunk)
			}))...)
			if err != nil {
				fmt.Fprintf(out, "\nerror: %v\n", err)
				break
			}
			if !streamed {
				fmt.Fprint(out, exchange.Reply)
			}
			fmt.Fprintln(out)
			if exchange.Fresh {
				fmt.Fprintf(out, "(sesión %s)\n", exchange.SessionID)
			}
			ref = memory.Known(exchange.SessionID)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
