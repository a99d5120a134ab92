// Package agenkit provides the core types shared by every stage of the
// multidisciplinary pipeline: messages exchanged with the inference backend,
// agent roles, per-agent results and the error taxonomy.
package agenkit

import (
	"fmt"
	"time"
)

// Message represents a message exchanged between an agent and its backend.
type Message struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewMessage creates a new message with the given role and content.
// NOTE: This function does not validate the message. Call Validate()
// explicitly before handing user-supplied content to a backend.
func NewMessage(role, content string) *Message {
	return &Message{
		Role:      role,
		Content:   content,
		Metadata:  make(map[string]interface{}),
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata adds metadata to the message and returns the message for chaining.
func (m *Message) WithMetadata(key string, value interface{}) *Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[key] = value
	return m
}

// ErrorText returns the backend error carried in the message metadata, if any.
func (m *Message) ErrorText() (string, bool) {
	if m == nil || m.Metadata == nil {
		return "", false
	}
	s, ok := m.Metadata["error"].(string)
	return s, ok
}

// Validate checks the message role and content size.
func (m *Message) Validate() error {
	if err := m.ValidateRole(); err != nil {
		return err
	}

	// Content validation - max 1MB
	maxContentSize := 1024 * 1024
	if len(m.Content) > maxContentSize {
		return fmt.Errorf("message content exceeds maximum size of %d bytes (got %d bytes)", maxContentSize, len(m.Content))
	}

	return nil
}

// ValidateRole checks the message role only. Content of any size passes.
func (m *Message) ValidateRole() error {
	if m.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}

	allowedRoles := map[string]bool{
		"user":      true,
		"assistant": true,
		"system":    true,
		"agent":     true,
	}
	if !allowedRoles[m.Role] {
		return fmt.Errorf("invalid message role: %s. Must be one of: user, assistant, system, agent", m.Role)
	}
	return nil
}
