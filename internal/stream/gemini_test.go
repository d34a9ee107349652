package stream

import (
	"testing"

	"google.golang.org/genai"

	"github.com/gencraft/gencraft/internal/conversation"
)

func TestBuildContentsRoleMapping(t *testing.T) {
	t.Parallel()

	req := Request{
		History: []conversation.Turn{
			{Role: conversation.RoleUser, Text: "earlier question"},
			{Role: conversation.RoleAssistant, Text: "earlier answer"},
		},
		Text: "new question",
	}

	contents := buildContents(req)
	if len(contents) != 3 {
		t.Fatalf("len(contents) = %d, want 3", len(contents))
	}

	wantRoles := []genai.Role{genai.RoleUser, genai.RoleModel, genai.RoleUser}
	for i, want := range wantRoles {
		if got := genai.Role(contents[i].Role); got != want {
			t.Errorf("contents[%d].Role = %q, want %q", i, got, want)
		}
	}
	if got := contents[0].Parts[0].Text; got != "earlier question" {
		t.Errorf("history text = %q, want %q", got, "earlier question")
	}
	if got := contents[2].Parts[0].Text; got != "new question" {
		t.Errorf("new turn text = %q, want %q", got, "new question")
	}
}

func TestBuildContentsPayloadLeadsParts(t *testing.T) {
	t.Parallel()

	payload := genai.NewPartFromBytes([]byte("pixels"), "image/png")
	req := Request{Text: "describe this", Payload: payload}

	contents := buildContents(req)
	if len(contents) != 1 {
		t.Fatalf("len(contents) = %d, want 1", len(contents))
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
		t.Errorf("parts[0] = %+v, want the attachment payload first", parts[0])
	}
	if parts[1].Text != "describe this" {
		t.Errorf("parts[1].Text = %q, want the user text", parts[1].Text)
	}
}

func TestBuildContentsAttachmentOnly(t *testing.T) {
	t.Parallel()

	req := Request{Payload: genai.NewPartFromBytes([]byte("pixels"), "image/png")}

	contents := buildContents(req)
	if len(contents) != 1 {
		t.Fatalf("len(contents) = %d, want 1", len(contents))
	}
	if got := len(contents[0].Parts); got != 1 {
		t.Fatalf("len(parts) = %d, want 1 (no empty text part)", got)
	}
}
