// Package web exposes the assistant to the browser widget over JSON/HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/betaskintech/clara/pkg/ai"
	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/betaskintech/clara/pkg/memory"
)

const (
	defaultMaxBodyBytes   = 25 << 20
	defaultRequestTimeout = 60 * time.Second
)

// TokenIssuer 申请头像流式令牌（由 avatar.Client 实现）。
type TokenIssuer interface {
	CreateToken(ctx context.Context) (string, error)
}

// RequestObserver 接收每个请求的结果，通常用于指标统计。
type RequestObserver interface {
	ObserveHTTP(route string, status int, elapsed time.Duration)
}

// Server 是挂件后端的 HTTP 入口。
// Fields:
//   - pipeline: 处理标准化 Update 的流水线（命令路由 + 助手）
//   - adapter: 将 JSON 请求体映射为 Update
//   - tokens: HeyGen 令牌签发器，可为空
//   - timeout: 单个请求等待流水线结果的最长时间
type Server struct {
	pipeline botcore.PipelineInvoker
	adapter  botcore.Adapter
	tokens   TokenIssuer
	observer RequestObserver
	metrics  http.Handler
	logger   *slog.Logger
	maxBody  int64
	timeout  time.Duration

	mux *http.ServeMux
}

// ServerOption 用于定制 Server 行为。
type ServerOption func(*Server)

// WithAdapter 自定义请求标准化适配器。
func WithAdapter(adapter botcore.Adapter) ServerOption {
	return func(s *Server) {
		s.adapter = adapter
	}
}

// WithTokenIssuer 启用 /api/heygen-token。
func WithTokenIssuer(t TokenIssuer) ServerOption {
	return func(s *Server) {
		s.tokens = t
	}
}

// WithRequestObserver 注入请求观察者。
func WithRequestObserver(o RequestObserver) ServerOption {
	return func(s *Server) {
		s.observer = o
	}
}

// WithMetricsHandler 在 GET /metrics 上挂载指标处理器。
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger 注入日志记录器。
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes 限制请求体大小（base64 音频计入其中）。
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithRequestTimeout 设置单个请求的处理时限，<=0 时不设限。
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer 根据流水线创建 Server。
func NewServer(pipeline botcore.PipelineInvoker, opts ...ServerOption) *Server {
	s := &Server{
		pipeline: pipeline,
		adapter:  RequestAdapter{},
		logger:   slog.Default(),
		maxBody:  defaultMaxBodyBytes,
		timeout:  defaultRequestTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.mux = http.NewServeMux()
	s.handle("POST /api/voice-chat-avatar", "/api/voice-chat-avatar", http.HandlerFunc(s.handleText))
	s.handle("POST /api/voice-chat", "/api/voice-chat", http.HandlerFunc(s.handleVoice))
	s.handle("POST /api/heygen-token", "/api/heygen-token", http.HandlerFunc(s.handleToken))
	s.handle("GET /healthz", "/healthz", http.HandlerFunc(s.handleHealth))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	return s
}

// ServeHTTP 实现 http.Handler 接口。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ChatResponse 是对话接口的成功响应。
type ChatResponse struct {
	Success     bool   `json:"success"`
	BotResponse string `json:"botResponse"`
	SessionID   string `json:"sessionId,omitempty"`
	UserText    string `json:"userText,omitempty"`
}

// TokenResponse 是 /api/heygen-token 的成功响应。
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// ErrorResponse 是所有接口的失败响应。
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleText 处理头像模式：文本已由 HeyGen 转写，只需生成回复。
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.dispatch(w, r, &req, "Failed to generate response")
}

// handleVoice 处理录音模式：转写 + 生成回复，响应中带回转写文本。
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req VoiceRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.dispatch(w, r, &req, "Failed to process voice input")
}

// dispatch 执行 标准化 -> 流水线 -> 汇总 -> 响应。
//
//	[Normalize] --err--> [400]
//	     |
//	[Pipeline.Trigger] --nil--> [500]
//	     |
//	[Collect] --err--> [400 | 500]
//	     |
//	[200 ChatResponse]
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, raw interface{}, failure string) {
	update, err := s.adapter.Normalize(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, clientMessage(err))
		return
	}
	update.ID = uuid.NewString()
	update.Metadata = map[string]string{
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.UserAgent(),
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ch := s.pipeline.Trigger(ctx, update)
	if ch == nil {
		writeError(w, http.StatusInternalServerError, failure)
		return
	}
	res := botcore.Collect(ctx, ch)
	if res.Err != nil {
		if isClientError(res.Err) {
			writeError(w, http.StatusBadRequest, clientMessage(res.Err))
			return
		}
		s.logger.Error("pipeline failed",
			slog.String("request_id", update.ID),
			slog.String("session_id", update.SessionID),
			slog.Any("error", res.Err),
		)
		writeError(w, http.StatusInternalServerError, failure)
		return
	}

	resp := ChatResponse{Success: true}
	if exchange, ok := res.Payload.(ai.Exchange); ok {
		resp.BotResponse = exchange.Reply
		resp.SessionID = exchange.SessionID
		resp.UserText = exchange.UserText
	} else {
		// 命令输出：会话保持不变
		resp.BotResponse = strings.TrimSpace(res.Content)
		resp.SessionID = update.SessionID
		resp.UserText = update.Text
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleToken 签发 HeyGen 流式令牌。
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, http.StatusInternalServerError, "HeyGen API key not configured")
		return
	}
	token, err := s.tokens.CreateToken(r.Context())
	if err != nil {
		s.logger.Error("heygen token failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode 读取 JSON 请求体，失败时直接写回 400。
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// handle 注册路由并附加日志与指标。
func (s *Server) handle(pattern, route string, h http.Handler) {
	s.mux.Handle(pattern, s.instrument(route, h))
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if s.observer != nil {
			s.observer.ObserveHTTP(route, rec.status, elapsed)
		}
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func isClientError(err error) bool {
	return errors.Is(err, memory.ErrEmptyUtterance) ||
		errors.Is(err, ai.ErrEmptyAudio) ||
		errors.Is(err, ErrTextRequired) ||
		errors.Is(err, ErrAudioRequired) ||
		errors.Is(err, ErrAudioEncoding)
}

// clientMessage 返回与挂件约定的错误文案。
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrTextRequired):
		return "User text is required"
	case errors.Is(err, ErrAudioRequired), errors.Is(err, ai.ErrEmptyAudio):
		return "Audio data is required"
	case errors.Is(err, ErrAudioEncoding):
		return "Audio data is not valid base64"
	case errors.Is(err, memory.ErrEmptyUtterance):
		return "No speech detected in audio"
	default:
		return "Bad request"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
