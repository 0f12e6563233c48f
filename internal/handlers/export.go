package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codingbuddy/internal/export"
)

// HandleExport builds the Markdown export of the current transcript and serves it as a file
// download. An empty transcript is a precondition failure; the client surfaces the 409 body
// as a notification and no file is produced.
func (m Main) HandleExport(w http.ResponseWriter, r *http.Request) {
	messages, err := m.store.Messages(r.Context())
	if err != nil {
		m.logger.Error("Failed to get messages", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	doc, err := m.exporter.Build(messages)
	if err != nil {
		if errors.Is(err, export.ErrEmptyTranscript) {
			http.Error(w, "Nothing to export yet", http.StatusConflict)
			return
		}
		m.logger.Error("Failed to build export", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := export.Filename(time.Now())
	w.Header().Set("Content-Type", export.MIMEType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write([]byte(doc)); err != nil {
		m.logger.Error("Failed to write export", slog.String(errLoggerKey, err.Error()))
	}
}
