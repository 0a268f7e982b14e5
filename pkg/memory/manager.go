// Package memory keeps the short-lived conversational context of each widget
// session: turn history keyed by session id, a bounded prompt window and
// idle-based eviction. Contents never outlive the process.
package memory

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// DefaultIdleThreshold is how long a session may stay silent before a sweep drops it.
const DefaultIdleThreshold = 30 * time.Minute

// ErrEmptyUtterance 表示输入文本为空。
var ErrEmptyUtterance = errors.New("memory: empty utterance")

// Observer receives lifecycle notifications, typically to feed metrics.
type Observer interface {
	SessionsEvicted(n int)
	ExchangeRecorded(storedSessions int)
}

// Resolution is the outcome of resolving an inbound utterance to a session.
type Resolution struct {
	SessionID string
	History   []Turn
	// Fresh is true when a new id was generated, either because none was given
	// or because the given one is unknown (never seen, or already evicted).
	Fresh bool
}

// Manager wires Store, eviction, prompt assembly and Recorder together behind
// the operations request handlers need. It never calls a model itself.
type Manager struct {
	store       *Store
	recorder    *Recorder
	now         func() time.Time
	idle        time.Duration
	maxHistory  int
	instruction string
	logger      *slog.Logger
	observer    Observer
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithClock injects the time source; tests pass a fake clock.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithIdleThreshold overrides DefaultIdleThreshold. Non-positive values are ignored.
func WithIdleThreshold(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idle = d
		}
	}
}

// WithMaxHistoryTurns sets how many stored turns enter each prompt.
func WithMaxHistoryTurns(n int) ManagerOption {
	return func(m *Manager) {
		if n >= 0 {
			m.maxHistory = n
		}
	}
}

// WithSystemInstruction sets the instruction placed first in every prompt.
func WithSystemInstruction(text string) ManagerOption {
	return func(m *Manager) {
		m.instruction = text
	}
}

// WithLogger 注入日志记录器。
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager creates a Manager with an empty Store.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      NewStore(),
		now:        time.Now,
		idle:       DefaultIdleThreshold,
		maxHistory: DefaultMaxHistoryTurns,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.recorder = NewRecorder(m.store, m.now)
	return m
}

// HandleUtterance sweeps stale sessions, then resolves ref.
// Unknown ids degrade to a fresh session instead of failing.
func (m *Manager) HandleUtterance(text string, ref SessionRef) (Resolution, error) {
	if strings.TrimSpace(text) == "" {
		return Resolution{}, ErrEmptyUtterance
	}

	now := m.now()
	m.sweep(now)

	id, history, fresh := m.store.GetOrCreate(ref, now)
	if requested, known := ref.ID(); known && fresh {
		m.logger.Debug("unknown session, starting fresh",
			slog.String("requested", requested),
			slog.String("session_id", id),
		)
	}
	return Resolution{SessionID: id, History: history, Fresh: fresh}, nil
}

// BuildPrompt assembles the bounded prompt for newUserText in session id.
func (m *Manager) BuildPrompt(id, newUserText string) []Message {
	return Build(m.instruction, m.store.Snapshot(id), newUserText, m.maxHistory)
}

// CommitExchange records a completed exchange. Call it only once the
// completion service has answered successfully.
func (m *Manager) CommitExchange(id, userText, assistantText string) error {
	if err := m.recorder.Record(id, userText, assistantText); err != nil {
		return err
	}
	if m.observer != nil {
		m.observer.ExchangeRecorded(m.store.Len())
	}
	return nil
}

// SweepExpired evicts sessions idle past the configured threshold.
func (m *Manager) SweepExpired(now time.Time) int {
	return m.sweep(now)
}

// Snapshot returns the full stored history of id.
func (m *Manager) Snapshot(id string) []Turn {
	return m.store.Snapshot(id)
}

// Sessions returns the number of stored sessions.
func (m *Manager) Sessions() int {
	return m.store.Len()
}

// IdleThreshold returns the configured eviction threshold.
func (m *Manager) IdleThreshold() time.Duration {
	return m.idle
}

func (m *Manager) sweep(now time.Time) int {
	removed := m.store.Sweep(now, m.idle)
	if removed > 0 {
		m.logger.Info("evicted idle sessions",
			slog.Int("removed", removed),
			slog.Duration("idle_threshold", m.idle),
		)
		if m.observer != nil {
			m.observer.SessionsEvicted(removed)
		}
	}
	return removed
}
