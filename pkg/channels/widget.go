// Package channels hosts the HTTP surface that serves the chat popup
// and bridges browser sessions onto the conversation core. Each
// visitor session gets its own store and coordinator, so the
// single-flight rule holds per visitor, not globally.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dwern/popchat/pkg/backend"
	"github.com/dwern/popchat/pkg/chat"
	"github.com/dwern/popchat/pkg/config"
	"github.com/dwern/popchat/pkg/logger"
)

const sessionCookie = "popchat_session"

// janitorInterval is how often idle sessions are swept.
const janitorInterval = 5 * time.Minute

type session struct {
	store       *chat.Store
	coordinator *chat.Coordinator
	limiter     *rate.Limiter
	lastSeen    time.Time
}

// WidgetChannel serves the popup page and the chat API. Sessions are
// cookie-identified and expire after idleness.
type WidgetChannel struct {
	cfg       config.Config
	responder chat.Responder
	server    *http.Server

	mu       sync.Mutex
	sessions map[string]*session

	stopJanitor chan struct{}
}

// NewWidgetChannel builds the channel. responder may be nil, in which
// case a backend client is dialed from the configured endpoint.
func NewWidgetChannel(cfg config.Config, responder chat.Responder) *WidgetChannel {
	if responder == nil {
		responder = backend.New(cfg.Assistant.Endpoint)
	}
	return &WidgetChannel{
		cfg:         cfg,
		responder:   responder,
		sessions:    make(map[string]*session),
		stopJanitor: make(chan struct{}),
	}
}

// Start begins serving. It returns immediately; errors from the
// listener are logged, matching how the rest of the process treats a
// channel as fire-and-forget.
func (c *WidgetChannel) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Widget.Host, c.cfg.Widget.Port)
	c.server = &http.Server{Addr: addr, Handler: c.routes()}

	logger.InfoCF("channels", "widget channel listening", map[string]interface{}{
		"addr":     addr,
		"endpoint": c.cfg.Assistant.Endpoint,
	})

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("channels", "widget server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	go c.janitor()

	return nil
}

// Stop shuts the server down and stops the session janitor.
func (c *WidgetChannel) Stop(ctx context.Context) error {
	close(c.stopJanitor)
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

func (c *WidgetChannel) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handleUI)
	mux.HandleFunc("/chat/open", c.handleOpen)
	mux.HandleFunc("/chat/send", c.handleSend)
	mux.HandleFunc("/chat/poll", c.handlePoll)
	return c.withCORS(mux)
}

// withCORS allows the portfolio page to embed the widget from a
// different origin when one is configured.
func (c *WidgetChannel) withCORS(next http.Handler) http.Handler {
	origin := c.cfg.Widget.AllowedOrigin
	if origin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getSession finds the visitor's session or creates one, setting the
// cookie on creation.
func (c *WidgetChannel) getSession(w http.ResponseWriter, r *http.Request) *session {
	var id string
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		id = cookie.Value
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if id != "" {
		if s, ok := c.sessions[id]; ok {
			s.lastSeen = time.Now()
			return s
		}
	}

	id = uuid.NewString()
	store := chat.NewStore(c.cfg.Assistant.SystemPrompt)
	s := &session{
		store: store,
		coordinator: chat.NewCoordinator(store, c.responder,
			chat.WithHistoryWindow(c.cfg.Assistant.HistoryWindow),
			chat.WithErrorTexts(c.cfg.Assistant.FallbackText, c.cfg.Assistant.ConnErrText),
		),
		limiter:  rate.NewLimiter(rate.Limit(c.cfg.Widget.RatePerSecond), c.cfg.Widget.RateBurst),
		lastSeen: time.Now(),
	}
	c.sessions[id] = s

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logger.DebugCF("channels", "session created", map[string]interface{}{"session": id})
	return s
}

// janitor drops sessions idle past the configured TTL.
func (c *WidgetChannel) janitor() {
	ttl := time.Duration(c.cfg.Widget.SessionTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopJanitor:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for id, s := range c.sessions {
				if now.Sub(s.lastSeen) > ttl {
					delete(c.sessions, id)
				}
			}
			remaining := len(c.sessions)
			c.mu.Unlock()
			logger.DebugCF("channels", "session sweep done", map[string]interface{}{
				"remaining": remaining,
			})
		}
	}
}

type sendRequest struct {
	Message string `json:"message"`
}

type sendResponse struct {
	Reply string `json:"reply"`
	HTML  string `json:"html"`
}

type transcriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleOpen ensures a session exists, seeds the welcome greeting on a
// first open, and returns the visible transcript. Reopening an
// existing session never duplicates the greeting; the store's seeding
// guard takes care of that.
func (c *WidgetChannel) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := c.getSession(w, r)
	s.store.SeedWelcome(c.cfg.Assistant.Greeting)
	writeJSON(w, http.StatusOK, c.transcript(s))
}

func (c *WidgetChannel) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	s := c.getSession(w, r)

	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "slow down")
		return
	}

	err := s.coordinator.Submit(r.Context(), req.Message)
	switch err {
	case nil:
	case chat.ErrEmptyMessage:
		writeError(w, http.StatusBadRequest, "empty message")
		return
	case chat.ErrBusy:
		writeError(w, http.StatusConflict, "a reply is still in flight")
		return
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	visible := s.store.Visible()
	last := visible[len(visible)-1]
	writeJSON(w, http.StatusOK, sendResponse{
		Reply: last.Content,
		HTML:  RenderMarkdown(last.Content),
	})
}

func (c *WidgetChannel) handlePoll(w http.ResponseWriter, r *http.Request) {
	s := c.getSession(w, r)
	writeJSON(w, http.StatusOK, c.transcript(s))
}

// transcript projects the visible turns, rendering assistant Markdown
// to HTML. User turns are escaped, never rendered.
func (c *WidgetChannel) transcript(s *session) []transcriptTurn {
	visible := s.store.Visible()
	out := make([]transcriptTurn, 0, len(visible))
	for _, t := range visible {
		tt := transcriptTurn{Role: string(t.Role), Content: t.Content}
		if t.Role == chat.RoleAssistant {
			tt.HTML = RenderMarkdown(t.Content)
		} else {
			tt.HTML = EscapeText(t.Content)
		}
		out = append(out, tt)
	}
	return out
}

func (c *WidgetChannel) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, widgetPage(c.cfg.Widget))
}
