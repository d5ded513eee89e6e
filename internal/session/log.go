package session

import "sync"

// MessageLog is the ordered conversation history. Appends dominate;
// reset replaces the slice wholesale and feature-card removal filters
// it in place. Individual messages are never mutated.
type MessageLog struct {
	mu       sync.RWMutex
	messages []Message
}

// NewMessageLog returns an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Append adds a message to the end of the log and returns it.
func (l *MessageLog) Append(msg Message) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	return msg
}

// Replace swaps the entire list (session reset path).
func (l *MessageLog) Replace(msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]Message(nil), msgs...)
}

// Clear empties the log.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// RemoveFeatureCards drops every feature-card message, preserving the
// relative order of everything else. Returns the number removed.
func (l *MessageLog) RemoveFeatureCards() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.messages[:0]
	removed := 0
	for _, m := range l.messages {
		if m.IsFeatureCard() {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	l.messages = kept
	return removed
}

// Messages returns a copy of the log.
func (l *MessageLog) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// LastN returns a copy of the newest n messages in order.
func (l *MessageLog) LastN(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || len(l.messages) == 0 {
		return nil
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}

// UserTurns counts user-authored messages. The proactive engine gates
// on this.
func (l *MessageLog) UserTurns() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, m := range l.messages {
		if m.Role == RoleUser {
			count++
		}
	}
	return count
}
