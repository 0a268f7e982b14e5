package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// generateSessionID 生成 "session_<毫秒时间戳>_<随机串>" 形式的会话 ID。
func generateSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
