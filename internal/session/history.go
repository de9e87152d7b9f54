package session

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation. Turns are immutable once appended
// and keep conversation order; the history itself is never truncated, only
// the outgoing prompt is.
type Turn struct {
	Role Role
	Text string
}

type History struct {
	turns []Turn
}

func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
}

func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a defensive copy of the conversation, oldest first.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Clear() {
	h.turns = nil
}
