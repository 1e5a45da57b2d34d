package dialogue

import (
	"context"
	"sync"
)

// Render is one output captured by a Recorder.
type Render struct {
	Text     string   `json:"text"`
	Markdown bool     `json:"markdown,omitempty"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
	Edit     bool     `json:"edit,omitempty"`
}

// Recorder collects renders instead of delivering them. Edit marks renders
// produced for a button press, mirroring a transport that edits in place.
type Recorder struct {
	mu      sync.Mutex
	edit    bool
	acked   bool
	renders []Render
}

func NewRecorder(edit bool) *Recorder {
	return &Recorder{edit: edit}
}

func (r *Recorder) add(rd Render) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd.Edit = r.edit
	r.renders = append(r.renders, rd)
	return nil
}

func (r *Recorder) RenderText(_ context.Context, text string) error {
	return r.add(Render{Text: text})
}

func (r *Recorder) RenderMarkdown(_ context.Context, text string) error {
	return r.add(Render{Text: text, Markdown: true})
}

func (r *Recorder) RenderButtons(_ context.Context, text string, kb Keyboard) error {
	return r.add(Render{Text: text, Keyboard: kb})
}

// Acknowledge is only honoured for button-press recorders.
func (r *Recorder) Acknowledge(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edit {
		r.acked = true
	}
	return nil
}

func (r *Recorder) Acknowledged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

func (r *Recorder) Renders() []Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Render(nil), r.renders...)
}

// Last returns the most recent render, or the zero Render.
func (r *Recorder) Last() Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renders) == 0 {
		return Render{}
	}
	return r.renders[len(r.renders)-1]
}
