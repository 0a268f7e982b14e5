package command

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

const defaultHistoryLines = 6

// NewRootCmd 构建挂件内可用的斜杠命令树。
// 返回：*cobra.Command 根命令，每个请求调用一次。
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clara",
		Short:         "Comandos del asistente",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Verifica que el asistente responde",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("pong")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:     "sesion",
		Aliases: []string{"session"},
		Short:   "Muestra la sesión actual",
		RunE: func(cmd *cobra.Command, args []string) error {
			execCtx := FromContext(cmd.Context())
			turns, err := execCtx.History()
			if err != nil {
				return err
			}
			cmd.Printf("Sesión: %s\n", execCtx.SessionID())
			cmd.Printf("Mensajes guardados: %d\n", len(turns))
			cmd.Printf("Última actividad: %s\n", turns[len(turns)-1].Timestamp.Format("15:04:05"))
			cmd.Printf("Se olvida tras %s sin actividad\n", execCtx.Sessions.IdleThreshold())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:     "historial [n]",
		Aliases: []string{"history"},
		Short:   "Muestra los últimos n mensajes de la conversación",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := defaultHistoryLines
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("n debe ser un número positivo: %q", args[0])
				}
				limit = n
			}

			turns, err := FromContext(cmd.Context()).History()
			if err != nil {
				return err
			}
			if len(turns) > limit {
				turns = turns[len(turns)-limit:]
			}
			for _, t := range turns {
				cmd.Printf("[%s] %s: %s\n", t.Timestamp.Format("15:04"), t.Role, preview(t.Content, 120))
			}
			return nil
		},
	})

	return root
}

// preview 按字符截断长文本。
func preview(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
