package dialogue

import "context"

// Button is one inline button; Data is the opaque callback token returned
// when it is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Button

// Renderer is how the controller talks back to a chat. Each inbound origin
// has its own implementation: a direct message replies with new messages, a
// button press edits the message that carried the button.
type Renderer interface {
	RenderText(ctx context.Context, text string) error
	RenderMarkdown(ctx context.Context, text string) error
	RenderButtons(ctx context.Context, text string, kb Keyboard) error
}

// Acknowledger is implemented by renderers whose transport expects button
// presses to be confirmed.
type Acknowledger interface {
	Acknowledge(ctx context.Context) error
}

type EventKind string

const (
	EventStart  EventKind = "start"
	EventButton EventKind = "button"
	EventText   EventKind = "text"
)

// Event is one inbound update. ChatID is empty when the transport could not
// tell where the update came from.
type Event struct {
	ID       string
	Kind     EventKind
	ChatID   string
	UserName string
	Data     string
	Text     string
}
