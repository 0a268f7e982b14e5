package botcore

// Source 标识用户输入的来源。
type Source string

const (
	SourceText  Source = "text"  // 文本输入，或由头像服务完成 STT 后的文本
	SourceVoice Source = "voice" // 由本服务转写的录音
)

// Update 描述来自挂件的一条标准化用户输入。
type Update struct {
	ID        string            // 请求级唯一 ID，用于日志关联
	SessionID string            // 客户端携带的会话 ID，可为空
	Source    Source            // 输入来源
	Text      string            // 用户文本；语音输入在转写前为空
	Audio     []byte            // 原始录音，仅 SourceVoice 携带
	Metadata  map[string]string // 扩展键值，如 remote_addr、user_agent
}

// CloneMetadata 返回一份 Metadata 拷贝，防止 Handler 意外修改底层数据。
func (u Update) CloneMetadata() map[string]string {
	if len(u.Metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(u.Metadata))
	for k, v := range u.Metadata {
		out[k] = v
	}
	return out
}
