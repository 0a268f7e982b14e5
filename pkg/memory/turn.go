package memory

import (
	"strings"
	"time"
)

// Role 标识一条消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem 只出现在组装后的 prompt 中，从不写入存储。
	RoleSystem Role = "system"
)

// Turn is one recorded message of a session. Turns are immutable once stored.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRef tells the store which session an utterance belongs to.
// The zero value is Fresh.
type SessionRef struct {
	id    string
	known bool
}

// Fresh asks the store for a new session.
func Fresh() SessionRef {
	return SessionRef{}
}

// Known refers to an existing session id.
func Known(id string) SessionRef {
	return SessionRef{id: id, known: true}
}

// ParseRef converts a wire value (HTTP body, CLI flag) into a SessionRef.
// Blank strings mean Fresh.
func ParseRef(raw string) SessionRef {
	id := strings.TrimSpace(raw)
	if id == "" {
		return Fresh()
	}
	return Known(id)
}

// ID returns the referenced id and whether the ref is Known.
func (r SessionRef) ID() (string, bool) {
	return r.id, r.known
}

func (r SessionRef) String() string {
	if !r.known {
		return "fresh"
	}
	return r.id
}

func cloneTurns(src []Turn) []Turn {
	if len(src) == 0 {
		return []Turn{}
	}
	dst := make([]Turn, len(src))
	copy(dst, src)
	return dst
}
