package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction tells where an interaction came from.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	System   Direction = "system"
)

// PromptStatus tracks whether a logged prompt is still waiting for answers.
type PromptStatus string

const (
	PromptNone     PromptStatus = ""
	PromptActive   PromptStatus = "active"
	PromptResolved PromptStatus = "resolved"
)

// Message types recorded in the interaction log.
const (
	TypeText          = "text"
	TypeCallbackQuery = "callback_query"
	TypeUnknown       = "unknown"
	TypeMessage       = "message"
	TypePromptStart   = "prompt_start"
)

// Interaction represents one entry of the append-only history log
type Interaction struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Direction    Direction       `json:"direction"`
	ChatID       int64           `json:"chat_id"`
	UpdateID     *int            `json:"update_id,omitempty"`
	MessageType  string          `json:"message_type"`
	Content      json.RawMessage `json:"content"`
	IsPrompt     bool            `json:"is_prompt"`
	PromptStatus PromptStatus    `json:"prompt_status,omitempty"`
}

// NewInteraction serializes content and builds a record ready to be stored.
func NewInteraction(direction Direction, chatID int64, messageType string, content any) (*Interaction, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal interaction content: %w", err)
	}

	return &Interaction{
		Timestamp:   time.Now(),
		Direction:   direction,
		ChatID:      chatID,
		MessageType: messageType,
		Content:     raw,
	}, nil
}

// WithUpdateID attaches the remote update id of an incoming interaction.
func (i *Interaction) WithUpdateID(id int) *Interaction {
	i.UpdateID = &id
	return i
}
