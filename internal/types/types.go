package types

import (
	"botmesero-backend/internal/dialogue"
	"botmesero-backend/internal/models"
)

// EventRequest drives the dialogue over HTTP. Type is start, button or text;
// Data carries the callback token for button events.
type EventRequest struct {
	ChatID    string `json:"chatId,omitempty"`
	FirstName string `json:"firstName"`
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Text      string `json:"text,omitempty"`
}

type EventResponse struct {
	ChatID  string            `json:"chatId"`
	EventID string            `json:"eventId"`
	Renders []dialogue.Render `json:"renders"`
}

type HistoryResponse struct {
	ChatID string        `json:"chatId"`
	Turns  []models.Turn `json:"turns"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
