package memory

import (
	"errors"
	"time"
)

// ErrEmptySessionID 表示提交对话时缺少会话 ID。
var ErrEmptySessionID = errors.New("memory: empty session id")

// Recorder commits completed exchanges to a Store.
// Callers invoke Record only after the completion call has succeeded; a failed
// completion simply never reaches the recorder, so it leaves no partial turns.
type Recorder struct {
	store *Store
	now   func() time.Time
}

// NewRecorder binds a recorder to store, stamping turns with clock.
func NewRecorder(store *Store, clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{store: store, now: clock}
}

// Record appends the user/assistant pair of one exchange.
func (r *Recorder) Record(sessionID, userContent, assistantContent string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	r.store.Append(sessionID, userContent, assistantContent, r.now())
	return nil
}
