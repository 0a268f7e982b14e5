package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/spf13/cobra"
)

const commandLogSnippet = 256

// Manager 实现 PipelineInvoker，负责串联解析、构建 Cobra 命令树并执行。
// 命令只读取会话，不会写入任何对话历史。
type Manager struct {
	factory  CommandFactory
	parser   Parser
	sessions SessionReader
	logger   *slog.Logger
}

// ManagerOption 自定义 Manager 行为。
type ManagerOption func(*Manager)

// WithLogger 注入自定义日志记录器。
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithParser 覆盖默认的命令解析器（例如更换前缀）。
func WithParser(p Parser) ManagerOption {
	return func(m *Manager) {
		m.parser = p
	}
}

// NewManager 绑定命令工厂与会话视图，返回实现 PipelineInvoker 的管理器。
func NewManager(factory CommandFactory, sessions SessionReader, opts ...ManagerOption) *Manager {
	mgr := &Manager{
		factory:  factory,
		parser:   NewParser(),
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Trigger 满足 botcore.PipelineInvoker，为每个请求构建独立的命令树并执行。
func (m *Manager) Trigger(ctx context.Context, update botcore.Update) <-chan botcore.StreamChunk {
	out := make(chan botcore.StreamChunk, 1)
	go func() {
		defer close(out)

		if m == nil || m.factory == nil {
			out <- botcore.StreamChunk{Content: "Error: Command Manager not initialized", IsFinal: true}
			return
		}

		// 1. 初步解析
		parsed := m.parser.Parse(update.Text)
		if !parsed.IsCommand {
			m.logf("command rejected", slog.Any("error", ErrCommandRequired))
			out <- botcore.StreamChunk{Content: "Escribí un comando (por ejemplo /help)", IsFinal: true}
			return
		}

		// 2. 创建 Cobra 命令树
		rootCmd := m.factory()

		// 3. 配置 IO 重定向
		writer := NewStreamWriter(out)
		rootCmd.SetOut(writer)
		rootCmd.SetErr(writer)
		rootCmd.CompletionOptions.DisableDefaultCmd = true

		// 4. 准备上下文
		// 使用 sync.Once 确保 Final 信号只发送一次（无论是通过 Explicit Signal 还是通过兜底结束包）
		var signalOnce sync.Once
		sendSignal := func(chunk botcore.StreamChunk) {
			signalOnce.Do(func() {
				out <- chunk
			})
		}

		execCtx := &ExecutionContext{
			Update:     update,
			Sessions:   m.sessions,
			sendSignal: sendSignal,
		}
		cmdCtx := WithExecutionContext(ctx, execCtx)

		// 5. 设置参数并执行
		args := parsed.Tokens
		// 如果第一个 token 匹配 root command 的 name，移除它以避免 "unknown command X for X" 错误
		if len(args) > 0 && strings.EqualFold(args[0], rootCmd.Name()) {
			args = args[1:]
		}
		if len(args) > 0 && !hasSubcommand(rootCmd, args[0]) {
			m.logf("command rejected",
				slog.Any("error", fmt.Errorf("%w: %s", ErrCommandNotFound, args[0])),
				slog.String("input", truncateForLog(parsed.Raw, commandLogSnippet)),
			)
			sendSignal(botcore.StreamChunk{
				Content: fmt.Sprintf("No conozco el comando /%s. Probá /help", args[0]),
				IsFinal: true,
			})
			return
		}
		rootCmd.SetArgs(args)
		m.logf("executing command",
			slog.Any("args", args),
			slog.String("session_id", update.SessionID),
		)

		if err := rootCmd.ExecuteContext(cmdCtx); err != nil {
			m.logf("command execution error", slog.Any("error", err))
			out <- botcore.StreamChunk{Content: fmt.Sprintf("No pude ejecutar el comando: %v\n", userFacing(err))}
		}

		// 兜底结束包：命令未显式发送终结信号时由这里补齐。
		signalOnce.Do(func() {
			out <- botcore.StreamChunk{Content: "", IsFinal: true}
		})
	}()
	return out
}

func (m *Manager) logf(msg string, attrs ...any) {
	if m == nil || m.logger == nil {
		return
	}
	m.logger.Info(msg, attrs...)
}

// hasSubcommand 判断 name 是否为已注册子命令（help 由 Cobra 在执行时自动注册）。
func hasSubcommand(root *cobra.Command, name string) bool {
	if strings.EqualFold(name, "help") {
		return true
	}
	for _, c := range root.Commands() {
		if strings.EqualFold(c.Name(), name) || c.HasAlias(name) {
			return true
		}
	}
	return false
}

// userFacing 将内部错误转换为面向用户的提示。
func userFacing(err error) string {
	if errors.Is(err, ErrNoSession) {
		return "todavía no tenemos una conversación guardada"
	}
	return err.Error()
}

// truncateForLog 限制日志中输出的文本长度。
func truncateForLog(src string, limit int) string {
	if limit <= 0 || len(src) <= limit {
		return src
	}
	return fmt.Sprintf("%s...(truncated)", src[:limit])
}
