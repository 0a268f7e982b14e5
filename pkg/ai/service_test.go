package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/betaskintech/clara/pkg/memory"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel 是 llms.Model 的测试替身。
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]llms.MessageContent
	options []llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var o llms.CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	f.calls = append(f.calls, messages)
	f.options = append(f.options, o)
	if f.err != nil {
		return nil, f.err
	}

	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	if o.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(reply, " ") {
			if err := o.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

type recordingObserver struct {
	models []string
	errs   []error
}

func (o *recordingObserver) CompletionFinished(model string, _ time.Duration, err error) {
	o.models = append(o.models, model)
	o.errs = append(o.errs, err)
}

func newTestService(t *testing.T, model llms.Model, opts ...ServiceOption) (*Service, *memory.Manager) {
	t.Helper()
	cfg := DefaultConfig()
	mem := memory.NewManager(memory.WithSystemInstruction("Eres Clara"))
	opts = append([]ServiceOption{WithModelInstance(cfg.DefaultModel, model)}, opts...)
	return NewService(&cfg, mem, opts...), mem
}

func TestReplyRecordsExchange(t *testing.T) {
	model := &fakeModel{replies: []string{"¡Hola! ¿Cómo puedo ayudarte?"}}
	svc, mem := newTestService(t, model)

	ex, err := svc.Reply(context.Background(), memory.Fresh(), "Hola")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if ex.SessionID == "" || !ex.Fresh {
		t.Fatalf("expected new session, got %+v", ex)
	}
	if ex.Reply != "¡Hola! ¿Cómo puedo ayudarte?" {
		t.Fatalf("unexpected reply: %q", ex.Reply)
	}

	turns := mem.Snapshot(ex.SessionID)
	if len(turns) != 2 || turns[0].Content != "Hola" || turns[1].Role != memory.RoleAssistant {
		t.Fatalf("unexpected stored turns: %+v", turns)
	}

	msgs := model.calls[0]
	if len(msgs) != 2 {
		t.Fatalf("expected system + user, got %d messages", len(msgs))
	}
	if msgs[0].Role != llms.ChatMessageTypeSystem || msgs[1].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if model.options[0].MaxTokens != DefaultMaxTokens || model.options[0].Temperature != DefaultTemperature {
		t.Fatalf("unexpected call options: %+v", model.options[0])
	}
}

func TestReplyCarriesHistory(t *testing.T) {
	model := &fakeModel{replies: []string{"uno", "dos"}}
	svc, _ := newTestService(t, model)

	first, err := svc.Reply(context.Background(), memory.Fresh(), "primera")
	if err != nil {
		t.Fatalf("first reply: %v", err)
	}
	second, err := svc.Reply(context.Background(), memory.Known(first.SessionID), "segunda")
	if err != nil {
		t.Fatalf("second reply: %v", err)
	}
	if second.SessionID != first.SessionID || second.Fresh {
		t.Fatalf("session not reused: %+v", second)
	}

	msgs := model.calls[1]
	if len(msgs) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d", len(msgs))
	}
	if msgs[2].Role != llms.ChatMessageTypeAI {
		t.Fatalf("expected assistant history turn, got %s", msgs[2].Role)
	}
}

func TestReplyFailureLeavesNoTrace(t *testing.T) {
	model := &fakeModel{replies: []string{"ok"}}
	obs := &recordingObserver{}
	svc, mem := newTestService(t, model, WithCompletionObserver(obs))

	ex, err := svc.Reply(context.Background(), memory.Fresh(), "hola")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	model.err = errors.New("timeout")
	_, err = svc.Reply(context.Background(), memory.Known(ex.SessionID), "otra pregunta")
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
	if got := len(mem.Snapshot(ex.SessionID)); got != 2 {
		t.Fatalf("failed completion mutated history: %d turns", got)
	}
	if len(obs.errs) != 2 || obs.errs[1] == nil {
		t.Fatalf("observer should see the failure: %+v", obs.errs)
	}
}

func TestReplyEmptyContentUsesFallback(t *testing.T) {
	svc, mem := newTestService(t, &fakeModel{replies: []string{"  "}})

	ex, err := svc.Reply(context.Background(), memory.Fresh(), "hola")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if ex.Reply != FallbackReply {
		t.Fatalf("expected fallback reply, got %q", ex.Reply)
	}
	if turns := mem.Snapshot(ex.SessionID); turns[1].Content != FallbackReply {
		t.Fatalf("fallback not recorded: %+v", turns)
	}
}

func TestReplyStreamsChunks(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{replies: []string{"hola que tal"}})

	var chunks []string
	ex, err := svc.Reply(context.Background(), memory.Fresh(), "hola", WithStream(func(c string) {
		chunks = append(chunks, c)
	}))
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if len(chunks) != 3 || strings.Join(chunks, "") != ex.Reply {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
}

func TestReplyUnknownModel(t *testing.T) {
	svc, mem := newTestService(t, &fakeModel{})
	_, err := svc.Reply(context.Background(), memory.Fresh(), "hola", WithModel("missing"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected model lookup error, got %v", err)
	}
	if mem.Sessions() != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestReplyRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{})
	if _, err := svc.Reply(context.Background(), memory.Fresh(), " "); !errors.Is(err, memory.ErrEmptyUtterance) {
		t.Fatalf("expected ErrEmptyUtterance, got %v", err)
	}
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return s.text, s.err
}

func TestProcessVoice(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{replies: []string{"Contame sobre tu piel"}},
		WithTranscriber(stubTranscriber{text: "tengo la piel grasa"}))

	ex, err := svc.ProcessVoice(context.Background(), memory.Fresh(), []byte("audio"))
	if err != nil {
		t.Fatalf("process voice: %v", err)
	}
	if ex.UserText != "tengo la piel grasa" || ex.Reply != "Contame sobre tu piel" {
		t.Fatalf("unexpected exchange: %+v", ex)
	}
}

func TestProcessVoiceWithoutTranscriber(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{})
	if _, err := svc.ProcessVoice(context.Background(), memory.Fresh(), []byte("audio")); !errors.Is(err, ErrTranscriberMissing) {
		t.Fatalf("expected ErrTranscriberMissing, got %v", err)
	}
}
