package store

import (
	"github.com/gencraft/gencraft/internal/conversation"
)

// Summary is one row of the conversation listing.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TurnPair is one finished turn: the user question and its paired assistant
// answer, committed together as a single logical unit. Question is empty for
// attachment-only turns; Img is the attachment's remote path, empty when the
// turn had none. An empty Answer is allowed.
type TurnPair struct {
	Question string
	Answer   string
	Img      string
}

// commitRequest is the PUT /api/chats/{id} body. Question and Img are
// omitted entirely when absent, matching the store's permissive schema.
type commitRequest struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer"`
	Img      string `json:"img,omitempty"`
}

// createResponse is the POST /api/chats success payload.
type createResponse struct {
	ChatID string `json:"chatId"`
}

// Wire shapes for conversation reads.
type wirePart struct {
	Text string `json:"text"`
}

type wireTurn struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
	Img   string     `json:"img,omitempty"`
}

type wireConversation struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	History []wireTurn `json:"history"`
}

// toConversation converts the wire shape to the domain working copy.
// Any role other than "user" is treated as the assistant.
func (w *wireConversation) toConversation() *conversation.Conversation {
	conv := &conversation.Conversation{
		ID:    w.ID,
		Title: w.Title,
		Turns: make([]conversation.Turn, 0, len(w.History)),
	}
	for _, t := range w.History {
		role := conversation.RoleAssistant
		if t.Role == "user" {
			role = conversation.RoleUser
		}
		var text string
		if len(t.Parts) > 0 {
			text = t.Parts[0].Text
		}
		conv.Turns = append(conv.Turns, conversation.Turn{
			Role:           role,
			Text:           text,
			AttachmentPath: t.Img,
		})
	}
	return conv
}
