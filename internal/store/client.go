// Package store is the client for the remote conversation store. It persists
// finished turns, reads conversations and listings, and owns the keyed view
// cache those reads go through.
//
// Every successful write invalidates the cached views it made stale. The
// invalidation is a post-condition of success, executed on every success
// path, so a read after a successful write never observes stale data.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gencraft/gencraft/internal/auth"
	"github.com/gencraft/gencraft/internal/conversation"
	"github.com/gencraft/gencraft/internal/log"
)

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrCommit indicates a persistence call failed. Calls are at-most-once;
	// the client never retries internally.
	ErrCommit = errors.New("persistence call failed")

	// ErrNotFound indicates the conversation does not exist remotely.
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyCreate indicates a creation attempt with neither text nor file.
	ErrEmptyCreate = errors.New("conversation needs text or a file")
)

// Config contains required parameters for the Client.
type Config struct {
	BaseURL    string           // conversation store endpoint
	HTTPClient *http.Client     // nil = http.DefaultClient
	Tokens     auth.TokenSource // bearer credential for the store
	Logger     log.Logger
}

func (cfg Config) validate() error {
	if cfg.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if cfg.Tokens == nil {
		return errors.New("token source is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client talks to the remote conversation store.
//
// Client is safe for concurrent use; the cache is internally synchronized
// and requests carry their own state.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenSource
	cache   *cache
	logger  log.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		tokens:  cfg.Tokens,
		cache:   newCache(),
		logger:  cfg.Logger,
	}, nil
}

// List returns the user's conversations, newest-first order as served by
// the store. Reads through the listing cache.
func (c *Client) List(ctx context.Context) ([]Summary, error) {
	if v, ok := c.cache.get(listKey); ok {
		cached := v.([]Summary)
		out := make([]Summary, len(cached))
		copy(out, cached)
		return out, nil
	}

	var summaries []Summary
	if err := c.getJSON(ctx, "/api/userchats", &summaries); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	cached := make([]Summary, len(summaries))
	copy(cached, summaries)
	c.cache.put(listKey, cached)
	return summaries, nil
}

// Get returns one conversation's working copy. Reads through the detail
// cache keyed by id.
func (c *Client) Get(ctx context.Context, id string) (*conversation.Conversation, error) {
	if v, ok := c.cache.get(detailKey(id)); ok {
		return copyConversation(v.(*conversation.Conversation)), nil
	}

	var wire wireConversation
	if err := c.getJSON(ctx, "/api/chats/"+id, &wire); err != nil {
		return nil, fmt.Errorf("fetching conversation %s: %w", id, err)
	}
	if wire.ID == "" {
		wire.ID = id
	}

	conv := wire.toConversation()
	c.cache.put(detailKey(id), copyConversation(conv))
	return conv, nil
}

// Create starts a new conversation from text and/or a local file, sent as
// multipart form data. Returns the new conversation's identifier.
//
// On success the listing cache is invalidated (exactly the listing key,
// never another conversation's detail entry) so the next List reflects
// the new conversation.
func (c *Client) Create(ctx context.Context, text, filePath string) (id string, err error) {
	if strings.TrimSpace(text) == "" && filePath == "" {
		return "", ErrEmptyCreate
	}

	defer func() {
		if err == nil {
			c.cache.invalidate(listKey)
			c.logger.Debug("invalidated listing cache", "conversation_id", id)
		}
	}()

	body, contentType, err := buildCreateBody(text, filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCommit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chats", body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", ErrCommit, err)
	}
	req.Header.Set("Content-Type", contentType)

	var res createResponse
	if err := c.do(req, &res); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCommit, err)
	}
	if res.ChatID == "" {
		return "", fmt.Errorf("%w: store response missing chatId", ErrCommit)
	}

	c.logger.Info("conversation created", "conversation_id", res.ChatID)
	return res.ChatID, nil
}

// Commit persists one finished turn pair and returns the updated
// conversation. At-most-once: a failure is reported, never retried here.
//
// On success the detail cache entry for id is invalidated, so the next Get
// reflects the committed turn.
func (c *Client) Commit(ctx context.Context, id string, pair TurnPair) (conv *conversation.Conversation, err error) {
	defer func() {
		if err == nil {
			c.cache.invalidate(detailKey(id))
			c.logger.Debug("invalidated detail cache", "conversation_id", id)
		}
	}()

	payload, err := json.Marshal(commitRequest{
		Question: pair.Question,
		Answer:   pair.Answer,
		Img:      pair.Img,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding turn: %w", ErrCommit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/chats/"+id, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrCommit, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var wire wireConversation
	if err := c.do(req, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	if wire.ID == "" {
		wire.ID = id
	}

	c.logger.Info("turn committed",
		"conversation_id", id,
		"answer_len", len(pair.Answer),
		"has_attachment", pair.Img != "")
	return wire.toConversation(), nil
}

// Delete removes a conversation. On success both the detail entry and the
// listing cache are invalidated.
func (c *Client) Delete(ctx context.Context, id string) (err error) {
	defer func() {
		if err == nil {
			c.cache.invalidate(detailKey(id), listKey)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/chats/"+id, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}

	c.logger.Info("conversation deleted", "conversation_id", id)
	return nil
}

// getJSON performs an authenticated GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

// do attaches the bearer credential, executes req, and decodes a 2xx JSON
// response into out (skipped when out is nil).
func (c *Client) do(req *http.Request, out any) error {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: store returned %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(diag)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// buildCreateBody assembles the multipart {text?, file?} creation body.
func buildCreateBody(text, filePath string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if text != "" {
		if err := mw.WriteField("text", text); err != nil {
			return nil, "", fmt.Errorf("building creation body: %w", err)
		}
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", filePath, err)
		}
		fw, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			return nil, "", fmt.Errorf("building creation body: %w", err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, "", fmt.Errorf("building creation body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("building creation body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

// copyConversation returns an independent copy so cached data is never
// shared with callers.
func copyConversation(c *conversation.Conversation) *conversation.Conversation {
	cp := &conversation.Conversation{
		ID:    c.ID,
		Title: c.Title,
		Turns: make([]conversation.Turn, len(c.Turns)),
	}
	copy(cp.Turns, c.Turns)
	return cp
}
