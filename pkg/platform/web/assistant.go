package web

import (
	"context"

	"github.com/betaskintech/clara/pkg/ai"
	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/betaskintech/clara/pkg/memory"
)

// Assistant 是 Web 层依赖的对话能力（由 ai.Service 实现）。
type Assistant interface {
	Reply(ctx context.Context, ref memory.SessionRef, text string, opts ...ai.ChatOption) (ai.Exchange, error)
	ProcessVoice(ctx context.Context, ref memory.SessionRef, audio []byte, opts ...ai.ChatOption) (ai.Exchange, error)
}

// NewAssistantHandler 把 Assistant 包装为流水线默认处理器。
// 结果以 ai.Exchange 形式放在终结片段的 Payload 中。
func NewAssistantHandler(assistant Assistant) botcore.PipelineInvoker {
	return botcore.PipelineFunc(func(ctx context.Context, update botcore.Update) <-chan botcore.StreamChunk {
		out := make(chan botcore.StreamChunk, 1)
		go func() {
			defer close(out)

			ref := memory.ParseRef(update.SessionID)
			var (
				exchange ai.Exchange
				err      error
			)
			if update.Source == botcore.SourceVoice {
				exchange, err = assistant.ProcessVoice(ctx, ref, update.Audio)
			} else {
				exchange, err = assistant.Reply(ctx, ref, update.Text)
			}

			chunk := botcore.StreamChunk{IsFinal: true, Err: err}
			if err == nil {
				chunk.Content = exchange.Reply
				chunk.Payload = exchange
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
		}()
		return out
	})
}
