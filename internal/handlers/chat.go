package handlers

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	"codingbuddy/internal/models"
)

type message struct {
	ID        string
	Role      string
	Content   template.HTML
	Timestamp time.Time

	StreamingState string
	Failed         bool
}

// SSE event types for real-time updates.
var (
	messagesSSEType     = sse.Type("messages")
	closeMessageSSEType = sse.Type("closeMessage")
)

// HandleChat processes a prompt submission through an HTTP POST request. It appends the user
// message and an empty assistant placeholder to the transcript, claims the in-flight slot, and
// starts the asynchronous stream that fills the placeholder through Server-Sent Events.
//
// The handler expects a "message" form field. Empty or whitespace-only submissions are
// rejected with 400, and a submission while a response is already streaming is rejected with
// 409. For successful requests it renders the two new message partials so the client can
// insert them into the transcript view.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	prompt := strings.TrimSpace(r.FormValue("message"))
	if prompt == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	userMsg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Text:      prompt,
		Timestamp: time.Now(),
	}
	// Empty placeholder for the streamed response, filled in chunk by chunk.
	aiMsg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Timestamp: time.Now(),
	}

	if !m.pending.acquire(aiMsg.ID) {
		m.logger.Warn("Rejected submission while a response is streaming")
		http.Error(w, "A response is already in progress", http.StatusConflict)
		return
	}

	if err := m.store.Append(r.Context(), userMsg); err != nil {
		m.pending.release()
		m.logger.Error("Failed to append user message",
			slog.String("message", fmt.Sprintf("%+v", userMsg)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.store.Append(r.Context(), aiMsg); err != nil {
		m.pending.release()
		m.logger.Error("Failed to append assistant placeholder",
			slog.String("message", fmt.Sprintf("%+v", aiMsg)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go m.streamResponse(aiMsg, userMsg)

	userContent, err := models.Render(userMsg.Text)
	if err != nil {
		m.logger.Error("Failed to render user message",
			slog.String("message", fmt.Sprintf("%+v", userMsg)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = m.templates.ExecuteTemplate(w, "user_message", message{
		ID:             userMsg.ID,
		Role:           string(userMsg.Role),
		Content:        userContent,
		Timestamp:      userMsg.Timestamp,
		StreamingState: models.StreamingStateEnded,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = m.templates.ExecuteTemplate(w, "ai_message", message{
		ID:             aiMsg.ID,
		Role:           string(aiMsg.Role),
		Timestamp:      aiMsg.Timestamp,
		StreamingState: models.StreamingStateLoading,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// streamResponse drives one completion stream into the placeholder message. Fragments are
// accumulated into a buffer that only ever grows; every fragment publishes the rendered
// cumulative text to the placeholder's SSE topic, in arrival order. Whatever the outcome, the
// in-flight slot is freed and a closeMessage event tells the client to re-enable its input.
// Deferred calls run last-in-first-out, so the slot is already free when the close event goes
// out and a client resubmitting on closeMessage cannot hit a spurious conflict.
func (m Main) streamResponse(placeholder, prompt models.Message) {
	defer func() {
		e := &sse.Message{Type: closeMessageSSEType}
		e.AppendData("bye")
		_ = m.sseSrv.Publish(e, messageIDTopic(placeholder.ID))
	}()
	defer m.pending.release()

	ctx := context.Background()

	var buf strings.Builder
	for fragment, err := range m.llm.Chat(ctx, []models.Message{prompt}) {
		if err != nil {
			m.logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			m.failPlaceholder(ctx, placeholder, err)
			return
		}

		buf.WriteString(fragment)
		placeholder.Text = buf.String()

		if err := m.store.Update(ctx, placeholder); err != nil {
			m.logger.Error("Failed to update placeholder",
				slog.String("message", fmt.Sprintf("%+v", placeholder)),
				slog.String(errLoggerKey, err.Error()))
			m.failPlaceholder(ctx, placeholder, err)
			return
		}

		rendered, err := models.Render(placeholder.Text)
		if err != nil {
			m.logger.Error("Failed to render placeholder",
				slog.String("message", fmt.Sprintf("%+v", placeholder)),
				slog.String(errLoggerKey, err.Error()))
			m.failPlaceholder(ctx, placeholder, err)
			return
		}

		msg := sse.Message{Type: messagesSSEType}
		msg.AppendData(string(rendered))
		if err := m.sseSrv.Publish(&msg, messageIDTopic(placeholder.ID)); err != nil {
			m.logger.Error("Failed to publish message",
				slog.String("messageID", placeholder.ID),
				slog.String(errLoggerKey, err.Error()))
			m.failPlaceholder(ctx, placeholder, err)
			return
		}
	}
}

// failPlaceholder records the stream failure on the placeholder and pushes a styled inline
// error to the client in place of model text.
func (m Main) failPlaceholder(ctx context.Context, placeholder models.Message, cause error) {
	placeholder.Text = "Error: " + cause.Error()
	placeholder.Failed = true
	if err := m.store.Update(ctx, placeholder); err != nil {
		m.logger.Error("Failed to record stream error",
			slog.String("messageID", placeholder.ID),
			slog.String(errLoggerKey, err.Error()))
	}

	msg := sse.Message{Type: messagesSSEType}
	msg.AppendData(fmt.Sprintf(`<p class="message-error">%s</p>`, html.EscapeString(placeholder.Text)))
	if err := m.sseSrv.Publish(&msg, messageIDTopic(placeholder.ID)); err != nil {
		m.logger.Error("Failed to publish stream error",
			slog.String("messageID", placeholder.ID),
			slog.String(errLoggerKey, err.Error()))
	}
}

// HandleClear wipes the whole transcript. Clearing while a response streams is rejected, since
// that would pull the placeholder out from under the stream.
func (m Main) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if m.pending.active() {
		http.Error(w, "A response is already in progress", http.StatusConflict)
		return
	}

	if err := m.store.Clear(r.Context()); err != nil {
		m.logger.Error("Failed to clear transcript", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err := m.templates.ExecuteTemplate(w, "chatbox", homePageData{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleMessage renders the current state of one transcript message. Clients call it after
// opening an event stream so that fragments published before the subscription was live, or a
// stream that already finished, are not lost.
func (m Main) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	messageID := r.URL.Query().Get("message_id")
	if messageID == "" {
		http.Error(w, "message_id is required", http.StatusBadRequest)
		return
	}

	messages, err := m.store.Messages(r.Context())
	if err != nil {
		m.logger.Error("Failed to load transcript", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	idx := slices.IndexFunc(messages, func(msg models.Message) bool {
		return msg.ID == messageID
	})
	if idx < 0 {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	msg := messages[idx]

	content, err := models.Render(msg.Text)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("message", fmt.Sprintf("%+v", msg)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state := models.StreamingStateEnded
	if m.pending.holds(msg.ID) {
		state = models.StreamingStateStreaming
	}
	tmpl := "user_message"
	if msg.Role == models.RoleAssistant {
		tmpl = "ai_message"
	}

	err = m.templates.ExecuteTemplate(w, tmpl, message{
		ID:             msg.ID,
		Role:           string(msg.Role),
		Content:        content,
		Timestamp:      msg.Timestamp,
		StreamingState: state,
		Failed:         msg.Failed,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleSSE hands the request to the SSE server, subscribing the client to the message topic
// from the query string.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}
