package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/betaskintech/clara/pkg/memory"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrCompletionFailed 表示外部模型调用失败或超时。此时会话历史不会被修改，调用方可用同一会话 ID 重试。
var ErrCompletionFailed = errors.New("completion failed")

// ErrTranscriberMissing 表示未配置语音转写能力。
var ErrTranscriberMissing = errors.New("transcriber not configured")

// ConversationMemory 是 Service 依赖的会话记忆能力（由 memory.Manager 实现）。
type ConversationMemory interface {
	HandleUtterance(text string, ref memory.SessionRef) (memory.Resolution, error)
	BuildPrompt(id, newUserText string) []memory.Message
	CommitExchange(id, userText, assistantText string) error
}

// CompletionObserver 接收每次模型调用的结果，通常用于指标统计。
type CompletionObserver interface {
	CompletionFinished(model string, elapsed time.Duration, err error)
}

// Exchange 是一次完整问答的结果。
type Exchange struct {
	SessionID string `json:"sessionId"`
	UserText  string `json:"userText"`
	Reply     string `json:"botResponse"`
	Fresh     bool   `json:"-"`
}

// Service 是 AI 逻辑的主要入口点。
// 它负责管理模型实例、会话记忆以及与 LLM 的交互。
type Service struct {
	config      *Config
	memory      ConversationMemory
	transcriber Transcriber
	observer    CompletionObserver
	logger      *slog.Logger

	mu         sync.Mutex
	modelCache map[string]llms.Model
}

// ServiceOption 自定义 Service 行为。
type ServiceOption func(*Service)

// WithTranscriber 注入语音转写实现。
func WithTranscriber(t Transcriber) ServiceOption {
	return func(s *Service) {
		s.transcriber = t
	}
}

// WithCompletionObserver 注入模型调用观察者。
func WithCompletionObserver(o CompletionObserver) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger 注入日志记录器。
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelInstance 预置一个已构建的模型实例，跳过 provider 初始化（测试或自定义 provider 使用）。
func WithModelInstance(name string, model llms.Model) ServiceOption {
	return func(s *Service) {
		s.modelCache[name] = model
	}
}

// NewService 创建一个新的 AI 服务实例。
func NewService(config *Config, mem ConversationMemory, opts ...ServiceOption) *Service {
	s := &Service{
		config:     config,
		memory:     mem,
		logger:     slog.Default(),
		modelCache: make(map[string]llms.Model),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// getModel 获取模型实例。
// 如果缓存中存在则直接返回，否则初始化一个新的模型实例并缓存。
//
// 逻辑流程:
// Check Cache -> (Hit) -> Return
//
//	  |
//	(Miss)
//	  v
//
// Load Config -> Init Provider (OpenAI/Google/Anthropic) -> Update Cache -> Return
func (s *Service) getModel(ctx context.Context, modelName string) (llms.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if model, ok := s.modelCache[modelName]; ok {
		return model, nil
	}

	cfg, ok := s.config.Model(modelName)
	if !ok {
		return nil, fmt.Errorf("model '%s' not found in configuration", modelName)
	}

	var llm llms.Model
	var err error

	apiKey := ResolveAPIKey(cfg.APIKey)

	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(apiKey),
			openai.WithModel(cfg.ModelName),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "google":
		llm, err = googleai.New(ctx,
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(cfg.ModelName),
		)
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.ModelName),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		llm, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	s.modelCache[modelName] = llm
	return llm, nil
}

// ChatOptions 定义调用 Reply 时的配置。
type ChatOptions struct {
	Model  string
	Stream func(chunk string)
}

// ChatOption 是配置 ChatOptions 的函数。
type ChatOption func(*ChatOptions)

// WithModel 指定使用的模型。
func WithModel(model string) ChatOption {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// WithStream 在模型生成过程中逐段回调输出。完整回复到达前不会写入会话记忆。
func WithStream(fn func(chunk string)) ChatOption {
	return func(o *ChatOptions) {
		o.Stream = fn
	}
}

// Reply 处理一条用户消息并返回助手回复。
//
// 核心流程:
//
//	User Text + SessionRef
//	      |
//	      v
//	+-----------------------------+
//	| memory.HandleUtterance       |
//	| 1. Sweep idle sessions       |
//	| 2. Resolve / create session  |
//	+--------------+--------------+
//	               |
//	               v
//	+-----------------------------+
//	| memory.BuildPrompt           |
//	| 3. system + last N + input   |
//	+--------------+--------------+
//	               |
//	               v
//	+-----------------------------+
//	| LLM Provider (langchaingo)   |
//	| 4. GenerateContent()         |  --(error)--> ErrCompletionFailed, nothing recorded
//	+--------------+--------------+
//	               |
//	               v
//	+-----------------------------+
//	| memory.CommitExchange        |
//	| 5. Append user + assistant   |
//	+-----------------------------+
func (s *Service) Reply(ctx context.Context, ref memory.SessionRef, text string, opts ...ChatOption) (Exchange, error) {
	options := &ChatOptions{Model: s.config.DefaultModel}
	for _, o := range opts {
		o(options)
	}
	modelName := options.Model
	if modelName == "" {
		modelName = s.config.DefaultModel
	}

	// Step 1: RECEIVED -> SESSION_RESOLVED
	text = strings.TrimSpace(text)
	res, err := s.memory.HandleUtterance(text, ref)
	if err != nil {
		return Exchange{}, err
	}

	llm, err := s.getModel(ctx, modelName)
	if err != nil {
		return Exchange{}, err
	}

	// Step 2: SESSION_RESOLVED -> CONTEXT_BUILT
	prompt := s.memory.BuildPrompt(res.SessionID, text)
	messages := make([]llms.MessageContent, 0, len(prompt))
	for _, msg := range prompt {
		messages = append(messages, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	callOpts := s.callOptions(modelName)
	if options.Stream != nil {
		stream := options.Stream
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			stream(string(chunk))
			return nil
		}))
	}

	// Step 3: CONTEXT_BUILT -> AWAITING_COMPLETION
	start := time.Now()
	resp, err := llm.GenerateContent(ctx, messages, callOpts...)
	if err == nil && (resp == nil || len(resp.Choices) == 0) {
		err = errors.New("empty response from llm")
	}
	if s.observer != nil {
		s.observer.CompletionFinished(modelName, time.Since(start), err)
	}
	if err != nil {
		// FAILED: 不写入任何历史
		s.logger.Error("completion failed",
			slog.String("session_id", res.SessionID),
			slog.String("model", modelName),
			slog.Any("error", err),
		)
		return Exchange{}, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		reply = FallbackReply
	}

	// Step 4: RECORDED
	if err := s.memory.CommitExchange(res.SessionID, text, reply); err != nil {
		return Exchange{}, fmt.Errorf("failed to record exchange: %w", err)
	}

	s.logger.Debug("exchange recorded",
		slog.String("session_id", res.SessionID),
		slog.Bool("fresh", res.Fresh),
		slog.Int("history_turns", len(res.History)),
	)
	return Exchange{SessionID: res.SessionID, UserText: text, Reply: reply, Fresh: res.Fresh}, nil
}

// ProcessVoice 转写音频后生成回复（STT + LLM）。
func (s *Service) ProcessVoice(ctx context.Context, ref memory.SessionRef, audio []byte, opts ...ChatOption) (Exchange, error) {
	if s.transcriber == nil {
		return Exchange{}, ErrTranscriberMissing
	}
	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return Exchange{}, err
	}
	return s.Reply(ctx, ref, text, opts...)
}

func (s *Service) callOptions(modelName string) []llms.CallOption {
	cfg, ok := s.config.Model(modelName)
	if !ok {
		return nil
	}
	return []llms.CallOption{
		llms.WithMaxTokens(cfg.MaxTokens),
		llms.WithTemperature(cfg.Temperature),
	}
}

func messageType(role memory.Role) llms.ChatMessageType {
	switch role {
	case memory.RoleSystem:
		return llms.ChatMessageTypeSystem
	case memory.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
