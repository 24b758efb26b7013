package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwern/popchat/pkg/backend"
	"github.com/dwern/popchat/pkg/chat"
)

// These run the coordinator against a real backend client and an
// httptest server, covering the wiring the unit tests fake out.

func TestEndToEndSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []chat.Turn `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, chat.RoleSystem, req.Messages[0].Role)
		json.NewEncoder(w).Encode(map[string]string{"reply": "Hi there"})
	}))
	defer srv.Close()

	store := chat.NewStore("prompt")
	c := chat.NewCoordinator(store, backend.New(srv.URL))

	require.NoError(t, c.Submit(context.Background(), "Hello"))
	assert.Equal(t, []chat.Turn{
		{Role: chat.RoleUser, Content: "Hello"},
		{Role: chat.RoleAssistant, Content: "Hi there"},
	}, store.Visible())
}

func TestEndToEndServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := chat.NewStore("prompt")
	c := chat.NewCoordinator(store, backend.New(srv.URL))

	require.NoError(t, c.Submit(context.Background(), "Hello"))

	visible := store.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, chat.FallbackText, visible[1].Content)
	assert.False(t, c.Busy())
}

func TestEndToEndUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	store := chat.NewStore("prompt")
	c := chat.NewCoordinator(store, backend.New(srv.URL))

	require.NoError(t, c.Submit(context.Background(), "Hello"))

	visible := store.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, chat.ConnectionErrorText, visible[1].Content)
	assert.False(t, c.Busy())
}
