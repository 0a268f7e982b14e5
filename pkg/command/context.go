package command

import (
	"context"
	"time"

	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/betaskintech/clara/pkg/memory"
)

// keyExecutionContext 是 context.Context 中存储 ExecutionContext 的键。
type keyExecutionContext struct{}

// SessionReader 是命令可见的只读会话视图（由 memory.Manager 实现）。
type SessionReader interface {
	Snapshot(id string) []memory.Turn
	IdleThreshold() time.Duration
}

// ExecutionContext 为命令 handler 提供必要的环境信息。
type ExecutionContext struct {
	Update   botcore.Update
	Sessions SessionReader

	// sendSignal 是一个回调函数，允许 Command 立即向 Pipeline 发送信号
	sendSignal func(chunk botcore.StreamChunk)
}

// SetResponsePayload 立即发送非流式响应对象。
func (ctx *ExecutionContext) SetResponsePayload(payload interface{}) {
	if ctx.sendSignal != nil {
		ctx.sendSignal(botcore.StreamChunk{
			Payload: payload,
			IsFinal: true,
		})
	}
}

// SessionID 返回当前请求携带的会话 ID。
func (ctx *ExecutionContext) SessionID() string {
	if ctx == nil {
		return ""
	}
	return ctx.Update.SessionID
}

// History 返回当前会话的完整历史；会话不存在时返回 ErrNoSession。
func (ctx *ExecutionContext) History() ([]memory.Turn, error) {
	if ctx == nil || ctx.Sessions == nil || ctx.Update.SessionID == "" {
		return nil, ErrNoSession
	}
	turns := ctx.Sessions.Snapshot(ctx.Update.SessionID)
	if turns == nil {
		return nil, ErrNoSession
	}
	return turns, nil
}

// WithExecutionContext 将 ExecutionContext 注入到标准 context.Context 中。
func WithExecutionContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	return context.WithValue(ctx, keyExecutionContext{}, execCtx)
}

// FromContext 从标准 context.Context 中提取 ExecutionContext。
func FromContext(ctx context.Context) *ExecutionContext {
	val := ctx.Value(keyExecutionContext{})
	if val == nil {
		return nil
	}
	return val.(*ExecutionContext)
}
