package botcore

import "context"

// StreamChunk 描述流式输出片段。
type StreamChunk struct {
	Content string
	Payload interface{} // 扩展：携带结构化结果（如 ai.Exchange），用于非流式回复
	Err     error       // 处理失败时设置，通常与 IsFinal 一起出现
	IsFinal bool
}

// PipelineInvoker 抽象命令/业务执行器。
// 实现方必须在结束时关闭返回的通道，并在 ctx 取消后尽快退出。
type PipelineInvoker interface {
	Trigger(ctx context.Context, update Update) <-chan StreamChunk
}

// PipelineFunc 便于直接以函数充当 PipelineInvoker。
type PipelineFunc func(ctx context.Context, update Update) <-chan StreamChunk

// Trigger 实现 PipelineInvoker 接口。
func (f PipelineFunc) Trigger(ctx context.Context, update Update) <-chan StreamChunk {
	if f == nil {
		return nil
	}
	return f(ctx, update)
}

// Result 是一次流水线执行的汇总结果。
type Result struct {
	Content string      // 所有片段内容按顺序拼接
	Payload interface{} // 最后一个非空 Payload
	Err     error
}

// Collect 消费通道直到关闭或收到终结片段，合并为 Result。
func Collect(ctx context.Context, ch <-chan StreamChunk) Result {
	var res Result
	if ch == nil {
		return res
	}
	for {
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		case chunk, ok := <-ch:
			if !ok {
				return res
			}
			res.Content += chunk.Content
			if chunk.Payload != nil {
				res.Payload = chunk.Payload
			}
			if chunk.Err != nil {
				res.Err = chunk.Err
			}
			if chunk.IsFinal {
				return res
			}
		}
	}
}
