package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gencraft/gencraft/internal/auth"
	"github.com/gencraft/gencraft/internal/conversation"
	"github.com/gencraft/gencraft/internal/log"
)

// storeHandler fakes the conversation store, counting hits per route and
// serving mutable canned data so cache behavior is observable.
type storeHandler struct {
	listHits   atomic.Int64
	getHits    atomic.Int64
	commitHits atomic.Int64

	summaries []Summary
	answers   []string // answers served in GET /api/chats/{id} history

	lastCommitBody map[string]any
	lastAuth       string
}

func (h *storeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.lastAuth = r.Header.Get("Authorization")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/userchats":
		h.listHits.Add(1)
		_ = json.NewEncoder(w).Encode(h.summaries)

	case r.Method == http.MethodGet:
		h.getHits.Add(1)
		id := filepath.Base(r.URL.Path)
		history := make([]map[string]any, 0, len(h.answers)*2)
		for _, ans := range h.answers {
			history = append(history,
				map[string]any{"role": "user", "parts": []map[string]string{{"text": "q"}}},
				map[string]any{"role": "model", "parts": []map[string]string{{"text": ans}}},
			)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": id, "title": "q", "history": history,
		})

	case r.Method == http.MethodPut:
		h.commitHits.Add(1)
		h.lastCommitBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&h.lastCommitBody)
		if ans, ok := h.lastCommitBody["answer"].(string); ok {
			h.answers = append(h.answers, ans)
		}
		id := filepath.Base(r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "title": "q", "history": []any{}})

	case r.Method == http.MethodPost && r.URL.Path == "/api/chats":
		_ = r.ParseMultipartForm(1 << 20)
		h.summaries = append(h.summaries, Summary{ID: "c-new", Title: "new"})
		fmt.Fprint(w, `{"chatId":"c-new"}`)

	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusOK)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL,
		Tokens:  auth.Static("test-token"),
		Logger:  log.NewNop(),
	})
	require.NoError(t, err)
	return c, srv
}

func TestListReadsThroughCache(t *testing.T) {
	t.Parallel()

	h := &storeHandler{summaries: []Summary{{ID: "c1", Title: "first"}}}
	c, _ := newTestClient(t, h)
	ctx := context.Background()

	first, err := c.List(ctx)
	require.NoError(t, err)
	second, err := c.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), h.listHits.Load(), "second List must be served from cache")
	assert.Equal(t, "Bearer test-token", h.lastAuth)

	// Callers get copies, not the cache's slice.
	first[0].Title = "mutated"
	third, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", third[0].Title)
}

func TestGetReadsThroughCache(t *testing.T) {
	t.Parallel()

	h := &storeHandler{answers: []string{"Hello there!"}}
	c, _ := newTestClient(t, h)
	ctx := context.Background()

	conv, err := c.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2)
	assert.Equal(t, conversation.RoleUser, conv.Turns[0].Role)
	assert.Equal(t, conversation.RoleAssistant, conv.Turns[1].Role)
	assert.Equal(t, "Hello there!", conv.Turns[1].Text)

	_, err = c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.getHits.Load(), "second Get must be served from cache")

	// Mutating the returned copy must not poison the cache.
	conv.Turns[1].Text = "mutated"
	again, err := c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", again.Turns[1].Text)
}

func TestCommitInvalidatesDetailCache(t *testing.T) {
	t.Parallel()

	h := &storeHandler{answers: []string{"old answer"}}
	c, _ := newTestClient(t, h)
	ctx := context.Background()

	_, err := c.Get(ctx, "c1")
	require.NoError(t, err)

	_, err = c.Commit(ctx, "c1", TurnPair{Question: "Hello", Answer: "Hello there!"})
	require.NoError(t, err)

	// A read after a successful write observes the committed turn.
	fresh, err := c.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, fresh.Turns, 4)
	assert.Equal(t, "Hello there!", fresh.Turns[3].Text)
	assert.Equal(t, int64(2), h.getHits.Load())
}

func TestCommitBodyShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pair       TurnPair
		wantKeys   []string
		absentKeys []string
	}{
		{
			name:       "text turn",
			pair:       TurnPair{Question: "Hello", Answer: "Hello there!"},
			wantKeys:   []string{"question", "answer"},
			absentKeys: []string{"img"},
		},
		{
			name:       "attachment-only turn omits question",
			pair:       TurnPair{Answer: "Nice picture.", Img: "uploads/pic.png"},
			wantKeys:   []string{"answer", "img"},
			absentKeys: []string{"question"},
		},
		{
			name:       "empty answer still carried",
			pair:       TurnPair{Question: "Hi", Answer: ""},
			wantKeys:   []string{"question", "answer"},
			absentKeys: []string{"img"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := &storeHandler{}
			c, _ := newTestClient(t, h)

			_, err := c.Commit(context.Background(), "c1", tt.pair)
			require.NoError(t, err)

			for _, k := range tt.wantKeys {
				assert.Contains(t, h.lastCommitBody, k)
			}
			for _, k := range tt.absentKeys {
				assert.NotContains(t, h.lastCommitBody, k)
			}
		})
	}
}

func TestCommitFailureKeepsCache(t *testing.T) {
	t.Parallel()

	h := &storeHandler{answers: []string{"old answer"}}
	mux := http.NewServeMux()
	mux.Handle("GET /", h)
	mux.HandleFunc("PUT /", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "write rejected", http.StatusInternalServerError)
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Get(ctx, "c1")
	require.NoError(t, err)

	_, err = c.Commit(ctx, "c1", TurnPair{Question: "Hello", Answer: "x"})
	require.ErrorIs(t, err, ErrCommit)

	// A failed write does not touch the cache.
	_, err = c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.getHits.Load())
}

func TestCreateInvalidatesOnlyListing(t *testing.T) {
	t.Parallel()

	h := &storeHandler{
		summaries: []Summary{{ID: "c1", Title: "first"}},
		answers:   []string{"cached answer"},
	}
	c, _ := newTestClient(t, h)
	ctx := context.Background()

	_, err := c.List(ctx)
	require.NoError(t, err)
	_, err = c.Get(ctx, "c1")
	require.NoError(t, err)

	id, err := c.Create(ctx, "start a new chat", "")
	require.NoError(t, err)
	assert.Equal(t, "c-new", id)

	// Listing is re-fetched, unrelated conversation detail is not.
	fresh, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, int64(2), h.listHits.Load())

	_, err = c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.getHits.Load(), "untouched detail entry must survive creation")
}

func TestCreateWithFile(t *testing.T) {
	t.Parallel()

	gotFile := false
	gotText := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotText = r.FormValue("text")
		if f, _, err := r.FormFile("file"); err == nil {
			gotFile = true
			f.Close()
		}
		fmt.Fprint(w, `{"chatId":"c-file"}`)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Tokens: auth.Static("t"), Logger: log.NewNop()})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "note.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	id, err := c.Create(context.Background(), "look at this", path)
	require.NoError(t, err)
	assert.Equal(t, "c-file", id)
	assert.Equal(t, "look at this", gotText)
	assert.True(t, gotFile)
}

func TestCreateEmptyRejected(t *testing.T) {
	t.Parallel()

	c, err := New(Config{BaseURL: "http://localhost:0", Tokens: auth.Static("t"), Logger: log.NewNop()})
	require.NoError(t, err)

	_, err = c.Create(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyCreate)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Tokens: auth.Static("t"), Logger: log.NewNop()})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInvalidatesCaches(t *testing.T) {
	t.Parallel()

	h := &storeHandler{
		summaries: []Summary{{ID: "c1", Title: "first"}},
		answers:   []string{"a"},
	}
	c, _ := newTestClient(t, h)
	ctx := context.Background()

	_, err := c.List(ctx)
	require.NoError(t, err)
	_, err = c.Get(ctx, "c1")
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "c1"))

	_, err = c.List(ctx)
	require.NoError(t, err)
	_, err = c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.listHits.Load())
	assert.Equal(t, int64(2), h.getHits.Load())
}
