package memory

// DefaultMaxHistoryTurns keeps the last three exchanges in the prompt.
const DefaultMaxHistoryTurns = 6

// Message is one entry of the prompt handed to the completion service.
type Message struct {
	Role    Role
	Content string
}

// Build assembles [system] + the most recent maxHistoryTurns of history
// (oldest first) + the new user message. The stored history is never modified.
//
// An odd maxHistoryTurns is rounded down, and an excerpt that would start with
// an assistant reply drops that reply, so the window always begins on a user turn.
func Build(system string, history []Turn, newUserContent string, maxHistoryTurns int) []Message {
	window := recent(history, maxHistoryTurns)

	messages := make([]Message, 0, len(window)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	for _, t := range window {
		messages = append(messages, Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: newUserContent})
	return messages
}

func recent(history []Turn, limit int) []Turn {
	limit -= limit % 2
	if limit <= 0 || len(history) == 0 {
		return nil
	}
	window := history
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	for len(window) > 0 && window[0].Role != RoleUser {
		window = window[1:]
	}
	return window
}
