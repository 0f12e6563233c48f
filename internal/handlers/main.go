package handlers

import (
	"context"
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	"codingbuddy"
	"codingbuddy/internal/export"
	"codingbuddy/internal/models"
)

// LLM represents a streaming language model. It accepts a context and a sequence of messages,
// returning an iterator that yields response text fragments and potential errors.
type LLM interface {
	Chat(ctx context.Context, messages []models.Message) iter.Seq2[string, error]
}

// Store is the authoritative transcript of the running session. Handlers read and mutate it;
// the rendered view is always derived from it.
type Store interface {
	Messages(ctx context.Context) ([]models.Message, error)
	Append(ctx context.Context, message models.Message) error
	Update(ctx context.Context, message models.Message) error
	Clear(ctx context.Context) error
}

// Main handles the core functionality of the chat widget, managing server-sent events, HTML
// templates, and interactions between the LLM and the transcript Store.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	llm      LLM
	store    Store
	exporter export.Exporter
	pending  *pendingResponse

	logger *slog.Logger
}

const errLoggerKey = "err"

// pendingResponse is the single in-flight slot. A submission only proceeds when it can claim
// the slot, so rapid-fire or programmatic submissions cannot start a second stream regardless
// of the state of the UI controls.
type pendingResponse struct {
	mu        sync.Mutex
	messageID string
}

func (p *pendingResponse) acquire(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.messageID != "" {
		return false
	}
	p.messageID = messageID
	return true
}

func (p *pendingResponse) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messageID = ""
}

func (p *pendingResponse) active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.messageID != ""
}

func (p *pendingResponse) holds(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.messageID == messageID
}

// NewMain creates a new Main instance with the provided LLM, Store, and Exporter. It
// initializes the SSE server with default configurations and parses the required HTML
// templates from the embedded filesystem. The SSE server subscribes each client to the
// message topic it asks for, so streaming updates only reach the transcript entry they
// belong to.
func NewMain(llm LLM, store Store, exporter export.Exporter, logger *slog.Logger) (Main, error) {
	tmpl, err := template.ParseFS(
		codingbuddy.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				messageID := s.Req.URL.Query().Get("message_id")
				if messageID != "" {
					topics = append(topics, messageIDTopic(messageID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		llm:       llm,
		store:     store,
		exporter:  exporter,
		pending:   &pendingResponse{},
		logger:    logger.With(slog.String("module", "handlers")),
	}, nil
}

func messageIDTopic(messageID string) string {
	return fmt.Sprintf("message-%s", messageID)
}

// Shutdown gracefully terminates the Main instance's SSE server. It broadcasts a close message
// to all connected clients and waits up to 5 seconds for connections to terminate. After the
// timeout, any remaining connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	// The SSE spec requires data on every event, even a close marker.
	e.AppendData("bye")

	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
