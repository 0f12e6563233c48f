package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"codingbuddy/internal/models"
	"codingbuddy/internal/transcript"
)

type homePageData struct {
	Messages     []message
	HasExport    bool
	ShowGreeting bool
}

// HandleHome renders the widget page with the current transcript. The export control is only
// rendered when the transcript holds at least one assistant message, and the greeting overlay
// only shows over an empty transcript.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	messages, err := m.store.Messages(r.Context())
	if err != nil {
		m.logger.Error("Failed to get messages", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	msgs := make([]message, len(messages))
	for i := range messages {
		content, err := models.Render(messages[i].Text)
		if err != nil {
			m.logger.Error("Failed to render message",
				slog.String("message", fmt.Sprintf("%+v", messages[i])),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		msgs[i] = message{
			ID:             messages[i].ID,
			Role:           string(messages[i].Role),
			Content:        content,
			Timestamp:      messages[i].Timestamp,
			StreamingState: models.StreamingStateEnded,
			Failed:         messages[i].Failed,
		}
	}

	data := homePageData{
		Messages:     msgs,
		HasExport:    transcript.HasAssistant(messages),
		ShowGreeting: len(messages) == 0,
	}

	err = m.templates.ExecuteTemplate(w, "home.html", data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
