// Package transcript holds the authoritative conversation state. The rendered view is derived
// from it, never the other way around, so exporting and re-rendering never parse markup back
// into data.
package transcript

import (
	"context"
	"fmt"
	"sync"

	"codingbuddy/internal/models"
)

// Store manages the single transcript of the running session.
type Store interface {
	Messages(ctx context.Context) ([]models.Message, error)
	Append(ctx context.Context, message models.Message) error
	Update(ctx context.Context, message models.Message) error
	Clear(ctx context.Context) error
}

// HasAssistant reports whether at least one assistant message is present. The export control
// is shown exactly when this holds.
func HasAssistant(messages []models.Message) bool {
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			return true
		}
	}
	return false
}

// Memory is the default Store implementation. It keeps messages in insertion order and is safe
// for use from the request goroutines and the streaming goroutine.
type Memory struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewMemory creates an empty in-memory transcript store.
func NewMemory() *Memory {
	return &Memory{}
}

// Messages returns a copy of the transcript in insertion order.
func (m *Memory) Messages(context.Context) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// Append adds a message at the end of the transcript.
func (m *Memory) Append(_ context.Context, message models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, message)
	return nil
}

// Update replaces the stored message carrying the same ID. Messages are only ever updated
// while their response streams, so a missing ID means the transcript was cleared underneath
// a finished stream and is reported as an error.
func (m *Memory) Update(_ context.Context, message models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.messages {
		if m.messages[i].ID == message.ID {
			m.messages[i] = message
			return nil
		}
	}
	return fmt.Errorf("message %s not found", message.ID)
}

// Clear removes every message.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
	return nil
}
