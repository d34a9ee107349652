// Package conversation defines the conversational domain types shared by the
// session engine: conversations, turns, and the mutable working-copy history.
//
// A Conversation is owned by the remote store; this package only models the
// local, possibly-stale working copy. Committed turns are immutable; the one
// in-flight turn lives in the chat controller, not here.
package conversation

import (
	"sync"
)

// Role identifies the author of a turn.
type Role string

// Valid roles for committed turns.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one committed message: a user question or an assistant answer.
// AttachmentPath is the remote asset path, set only on user turns that
// carried an attachment.
type Turn struct {
	Role           Role
	Text           string
	AttachmentPath string
}

// Conversation is the local working copy of a remote conversation.
type Conversation struct {
	ID    string
	Title string
	Turns []Turn
}

// Title40 derives a conversation title from its first message, the same way
// the remote store does: the first 40 characters of the text.
func Title40(text string) string {
	const max = 40
	if len(text) <= max {
		return text
	}
	return text[:max]
}

// History encapsulates the working-copy turn sequence with thread-safe
// access. The zero value is not useful; use NewHistory.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{turns: make([]Turn, 0)}
}

// SetTurns replaces the history, typically after loading the conversation
// from the remote store. Makes a defensive copy.
func (h *History) SetTurns(turns []Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = make([]Turn, len(turns))
	copy(h.turns, turns)
}

// Turns returns a copy of all turns.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]Turn, len(h.turns))
	copy(result, h.turns)
	return result
}

// Add appends a committed question/answer pair. attachmentPath may be empty.
func (h *History) Add(question, answer, attachmentPath string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Text: question, AttachmentPath: attachmentPath},
		Turn{Role: RoleAssistant, Text: answer},
	)
}

// Count returns the number of turns.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Tail returns a copy of up to n most recent turns. A non-positive n
// returns all turns. A truncated window's start is snapped forward to the
// next user turn, so the result never opens mid-pair with an assistant
// answer whose question was cut off.
func (h *History) Tail(n int) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if n > 0 && n < len(h.turns) {
		start = len(h.turns) - n
		for start < len(h.turns) && h.turns[start].Role != RoleUser {
			start++
		}
	}

	result := make([]Turn, len(h.turns)-start)
	copy(result, h.turns[start:])
	return result
}

// Clear removes all turns.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = make([]Turn, 0)
}
