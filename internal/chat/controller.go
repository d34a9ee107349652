// Package chat orchestrates one interactive conversation session: input
// validation, generation streaming, and the commit protocol with the remote
// conversation store.
//
// A Controller drives one conversation at a time through the turn state
// machine:
//
//	Idle → Sending → Streaming → Committing → Idle
//
// with Errored reachable from Sending, Streaming, and Committing, and
// dismissible back to Idle. Turns within one conversation are strictly
// sequential: a submission while another is in flight is rejected.
// Independent conversations use independent Controllers and share nothing.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/gencraft/gencraft/internal/asset"
	"github.com/gencraft/gencraft/internal/conversation"
	"github.com/gencraft/gencraft/internal/log"
	"github.com/gencraft/gencraft/internal/store"
	"github.com/gencraft/gencraft/internal/stream"
)

// State is the controller's position in the turn state machine.
type State int

const (
	// StateIdle accepts submissions.
	StateIdle State = iota

	// StateSending validates and assembles the generation request.
	StateSending

	// StateStreaming consumes answer increments.
	StateStreaming

	// StateCommitting persists the finished pair to the remote store.
	StateCommitting

	// StateErrored holds a turn failure until the user dismisses it.
	StateErrored
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCommitting:
		return "committing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Sink receives each growing answer snapshot for display. Called on the
// submitting goroutine, between stream increments.
type Sink func(stream.Snapshot)

// Config contains required parameters for the Controller.
type Config struct {
	ConversationID string
	Ingestor       *stream.Ingestor
	Store          *store.Client
	Resolver       *asset.Resolver
	Logger         log.Logger

	// MaxHistoryTurns bounds how many prior turns enter the generation
	// request. Zero means no bound.
	MaxHistoryTurns int
}

func (cfg Config) validate() error {
	if cfg.ConversationID == "" {
		return ErrNoConversation
	}
	if cfg.Ingestor == nil {
		return errors.New("ingestor is required")
	}
	if cfg.Store == nil {
		return errors.New("store client is required")
	}
	if cfg.Resolver == nil {
		return errors.New("resolver is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Controller is the session engine for one conversation.
//
// The mutex guards the state word and the transient turn buffers; the
// submission body itself runs on the caller's goroutine, suspending at the
// explicit await points (stream increments, upload, commit).
type Controller struct {
	mu      sync.Mutex
	state   State
	lastErr error

	conversationID string
	history        *conversation.History
	maxHistory     int

	// Transient state of the in-flight turn. Owned by the controller
	// until commit succeeds, then cleared.
	question   string
	answer     string
	attachment *asset.Attachment

	ingestor *stream.Ingestor
	store    *store.Client
	resolver *asset.Resolver
	logger   log.Logger
}

// New creates a Controller bound to one conversation, with an empty working
// copy. Call Refresh to load the remote history.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Controller{
		state:          StateIdle,
		conversationID: cfg.ConversationID,
		history:        conversation.NewHistory(),
		maxHistory:     cfg.MaxHistoryTurns,
		ingestor:       cfg.Ingestor,
		store:          cfg.Store,
		resolver:       cfg.Resolver,
		logger:         cfg.Logger,
	}, nil
}

// Refresh replaces the local working copy with the remote conversation.
func (c *Controller) Refresh(ctx context.Context) error {
	conv, err := c.store.Get(ctx, c.conversationID)
	if err != nil {
		return fmt.Errorf("refreshing conversation: %w", err)
	}
	c.history.SetTurns(conv.Turns)
	return nil
}

// Submit runs one interactive turn: it validates the input, streams the
// answer (republishing each snapshot through sink), and commits the
// finished pair. It returns once the turn is fully committed or failed.
//
// Preconditions: text is non-empty or a ready attachment is staged, and no
// other submission is in flight; re-entrant calls fail with ErrBusy and
// issue no network call. Generation and persistence failures transition the
// controller to StateErrored without rollback of already-rendered text;
// context cancellation (leaving the view) abandons the turn quietly with no
// partial write.
func (c *Controller) Submit(ctx context.Context, text string, sink Sink) error {
	// Whitespace-only text counts as absent everywhere: validation, the
	// generation request, and the committed pair.
	if strings.TrimSpace(text) == "" {
		text = ""
	}

	att, err := c.begin(text)
	if err != nil {
		return err
	}

	turnID := uuid.New()
	c.logger.Debug("submitting turn",
		"conversation_id", c.conversationID,
		"turn_id", turnID,
		"text_len", len(text),
		"has_attachment", att != nil)

	req := stream.Request{
		History: c.history.Tail(c.maxHistory),
		Text:    text,
		Payload: payloadOf(att),
	}

	c.setState(StateStreaming)
	for snap, err := range c.ingestor.Ingest(ctx, req) {
		if err != nil {
			return c.endTurn(ctx, turnID, err)
		}
		c.setAnswer(snap.Text)
		if sink != nil {
			sink(snap)
		}
	}
	if err := ctx.Err(); err != nil {
		return c.endTurn(ctx, turnID, err)
	}

	c.setState(StateCommitting)
	pair := store.TurnPair{
		Question: text,
		Answer:   c.Answer(),
		Img:      remotePathOf(att),
	}
	conv, err := c.store.Commit(ctx, c.conversationID, pair)
	if err != nil {
		return c.endTurn(ctx, turnID, err)
	}

	c.finishTurn(conv, pair)
	c.logger.Debug("turn committed", "conversation_id", c.conversationID, "turn_id", turnID)
	return nil
}

// Attach resolves a local file into the attachment slot for the next turn.
// Replacing a previous attachment is the caller's explicit discard; the
// controller never cancels one on its own. On upload failure the failed
// attachment stays staged (blocking submission) until discarded or retried.
func (c *Controller) Attach(ctx context.Context, path string) (*asset.Attachment, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", ErrBusy, state)
	}
	c.mu.Unlock()

	a, err := c.resolver.Resolve(ctx, path)

	c.mu.Lock()
	c.attachment = a
	c.mu.Unlock()
	return a, err
}

// DiscardAttachment clears the attachment slot, unblocking submission
// after a failed upload.
func (c *Controller) DiscardAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.attachment = nil
	}
}

// Dismiss acknowledges a turn failure and returns the session to Idle.
// Already-rendered partial text stays readable until the next submission
// begins; the failed turn itself is abandoned and must be resubmitted.
func (c *Controller) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateErrored {
		return fmt.Errorf("%w: session is %s", ErrNotErrored, c.state)
	}
	c.state = StateIdle
	c.lastErr = nil
	return nil
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the session to StateErrored, nil
// otherwise.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Question returns the in-flight turn's user text.
func (c *Controller) Question() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.question
}

// Answer returns the answer text accumulated so far for the in-flight
// turn. It survives turn failure for display.
func (c *Controller) Answer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answer
}

// Attachment returns the staged attachment, nil when none.
func (c *Controller) Attachment() *asset.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachment
}

// ConversationID returns the bound conversation's identifier.
func (c *Controller) ConversationID() string {
	return c.conversationID
}

// History returns the local working copy.
func (c *Controller) History() *conversation.History {
	return c.history
}

// begin validates the submission and claims the state machine, resetting
// the turn buffers. Returns the staged attachment to include, if any.
// Rejections here are guaranteed to precede any network call.
func (c *Controller) begin(text string) (*asset.Attachment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, fmt.Errorf("%w: session is %s", ErrBusy, c.state)
	}

	att := c.attachment
	if att != nil && !att.Ready() {
		return nil, fmt.Errorf("%w: attachment is %s", ErrAttachmentNotReady, att.State())
	}
	if strings.TrimSpace(text) == "" && att == nil {
		return nil, ErrEmptySubmission
	}

	c.state = StateSending
	c.lastErr = nil
	c.question = text
	c.answer = ""
	return att, nil
}

// endTurn resolves a failed or cancelled turn. Lifecycle cancellation
// returns the session to Idle with the partial snapshot discarded and no
// error surfaced as a failure; real failures park the session in
// StateErrored with the partial answer left visible.
func (c *Controller) endTurn(ctx context.Context, turnID uuid.UUID, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.lastErr = nil
		c.question = ""
		c.answer = ""
		c.mu.Unlock()
		c.logger.Debug("turn cancelled", "conversation_id", c.conversationID, "turn_id", turnID)
		return err
	}

	c.mu.Lock()
	c.state = StateErrored
	c.lastErr = err
	c.mu.Unlock()
	c.logger.Warn("turn failed",
		"conversation_id", c.conversationID,
		"turn_id", turnID,
		"error", err)
	return err
}

// finishTurn records the committed pair in the working copy and clears all
// transient turn state. Runs only after a successful commit.
func (c *Controller) finishTurn(conv *conversation.Conversation, pair store.TurnPair) {
	if conv != nil && len(conv.Turns) > 0 {
		c.history.SetTurns(conv.Turns)
	} else {
		c.history.Add(pair.Question, pair.Answer, pair.Img)
	}

	c.mu.Lock()
	c.state = StateIdle
	c.question = ""
	c.answer = ""
	c.attachment = nil
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) setAnswer(text string) {
	c.mu.Lock()
	c.answer = text
	c.mu.Unlock()
}

func payloadOf(a *asset.Attachment) *genai.Part {
	if a == nil {
		return nil
	}
	return a.Payload()
}

func remotePathOf(a *asset.Attachment) string {
	if a == nil {
		return ""
	}
	return a.RemotePath()
}
