package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gencraft/gencraft/internal/asset"
	"github.com/gencraft/gencraft/internal/chat"
	"github.com/gencraft/gencraft/internal/conversation"
	"github.com/gencraft/gencraft/internal/stream"
)

// runChat opens an interactive conversation. With an id argument it resumes
// that conversation; otherwise it resumes the last-open one, or starts a new
// conversation on the first message.
func runChat(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup()
	if err != nil {
		return err
	}

	resolver, err := rt.newResolver()
	if err != nil {
		return err
	}

	generator, err := stream.NewGemini(ctx, stream.GeminiConfig{
		Model:  rt.cfg.Model,
		Logger: rt.logger.With("component", "gemini"),
	})
	if err != nil {
		return err
	}
	ingestor, err := stream.NewIngestor(generator, rt.logger.With("component", "stream"))
	if err != nil {
		return err
	}

	stateDir, err := conversation.DefaultStateDir()
	if err != nil {
		return err
	}

	conversationID := ""
	if len(args) > 0 {
		conversationID = args[0]
	} else {
		conversationID, err = conversation.LoadCurrentID(stateDir)
		if err != nil {
			rt.logger.Warn("could not read current conversation", "error", err)
		}
	}

	session := &chatSession{
		rt:        rt,
		resolver:  resolver,
		ingestor:  ingestor,
		stateDir:  stateDir,
		controlID: conversationID,
	}
	return session.loop(ctx)
}

// chatSession holds the interactive loop's state. The controller is created
// lazily: a brand-new conversation only exists after its first message.
type chatSession struct {
	rt       *runtime
	resolver *asset.Resolver
	ingestor *stream.Ingestor
	stateDir string

	controlID  string
	controller *chat.Controller
	pending    *asset.Attachment // staged before the conversation exists
}

func (s *chatSession) loop(ctx context.Context) error {
	if s.controlID != "" {
		if err := s.bind(ctx, s.controlID); err != nil {
			return err
		}
		s.printHistory()
	} else {
		fmt.Println("New conversation. Ask me anything...")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/discard":
			s.discardAttachment()
			continue
		case strings.HasPrefix(line, "/attach "):
			s.attach(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))
			continue
		}

		if err := s.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				fmt.Println()
				return nil
			}
			fmt.Fprintln(os.Stderr, "Something went wrong!")
			s.rt.logger.Error("turn failed", "error", err)
			if s.controller != nil && s.controller.State() == chat.StateErrored {
				_ = s.controller.Dismiss()
			}
		}
	}
	return scanner.Err()
}

// send submits one message, creating the conversation first when needed.
func (s *chatSession) send(ctx context.Context, text string) error {
	if s.controller == nil {
		filePath := ""
		if s.pending != nil {
			filePath = s.pending.LocalPath()
		}
		id, err := s.rt.store.Create(ctx, text, filePath)
		if err != nil {
			return err
		}
		if err := s.bind(ctx, id); err != nil {
			return err
		}
		fmt.Printf("(conversation %s: %s)\n", id, conversation.Title40(text))
	}

	shown := 0
	err := s.controller.Submit(ctx, text, func(snap stream.Snapshot) {
		// Print only the newly appended suffix of the growing answer.
		fmt.Print(snap.Text[shown:])
		shown = len(snap.Text)
	})
	if shown > 0 {
		fmt.Println()
	}
	return err
}

// bind attaches the session to a conversation and records it as current.
func (s *chatSession) bind(ctx context.Context, id string) error {
	controller, err := chat.New(chat.Config{
		ConversationID:  id,
		Ingestor:        s.ingestor,
		Store:           s.rt.store,
		Resolver:        s.resolver,
		Logger:          s.rt.logger.With("component", "chat"),
		MaxHistoryTurns: s.rt.cfg.MaxHistoryTurns,
	})
	if err != nil {
		return err
	}
	if err := controller.Refresh(ctx); err != nil {
		return err
	}

	s.controller = controller
	s.controlID = id
	s.pending = nil
	if err := conversation.SaveCurrentID(s.stateDir, id); err != nil {
		s.rt.logger.Warn("could not record current conversation", "error", err)
	}
	return nil
}

func (s *chatSession) attach(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("Usage: /attach <file>")
		return
	}

	if s.controller != nil {
		a, err := s.controller.Attach(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", errors.Unwrap(err))
			return
		}
		fmt.Printf("Attached %s (%s)\n", path, a.State())
		return
	}

	// No conversation yet: remember the file, it rides along on creation.
	s.pending = asset.Staged(path)
	fmt.Printf("Staged %s for the first message\n", path)
}

func (s *chatSession) discardAttachment() {
	s.pending = nil
	if s.controller != nil {
		s.controller.DiscardAttachment()
	}
	fmt.Println("Attachment discarded")
}

func (s *chatSession) printHistory() {
	for _, turn := range s.controller.History().Turns() {
		prefix := "you"
		if turn.Role == conversation.RoleAssistant {
			prefix = "ai"
		}
		fmt.Printf("[%s] %s\n", prefix, turn.Text)
		if turn.AttachmentPath != "" {
			fmt.Printf("      (attachment: %s)\n", turn.AttachmentPath)
		}
	}
}
