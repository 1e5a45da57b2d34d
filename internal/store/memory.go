package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"botmesero-backend/internal/models"
)

type chatHistory struct {
	turns    []models.Turn
	lastSeen time.Time
}

// MemoryHistory keeps conversation turns per chat in process memory. A chat's
// history is created on its first append and lives until Clear or until it
// sits idle longer than idleTTL. With maxTurns and idleTTL both zero history
// grows for the life of the process.
type MemoryHistory struct {
	mu       sync.RWMutex
	chats    map[string]*chatHistory
	maxTurns int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewMemoryHistory(maxTurns int, idleTTL time.Duration) *MemoryHistory {
	return &MemoryHistory{
		chats:    make(map[string]*chatHistory),
		maxTurns: maxTurns,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (m *MemoryHistory) Append(_ context.Context, chatID string, turn models.Turn) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.chats[chatID]
	if !ok {
		h = &chatHistory{turns: make([]models.Turn, 0, 16)}
		m.chats[chatID] = h
	}
	h.turns = append(h.turns, turn)
	h.lastSeen = m.now()
	if m.maxTurns > 0 && len(h.turns) > m.maxTurns {
		h.turns = append([]models.Turn(nil), h.turns[len(h.turns)-m.maxTurns:]...)
	}
	return nil
}

// History returns a copy of the chat's turns, oldest first.
func (m *MemoryHistory) History(_ context.Context, chatID string) ([]models.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.chats[chatID]
	if !ok {
		return nil, nil
	}
	out := make([]models.Turn, len(h.turns))
	copy(out, h.turns)
	return out, nil
}

func (m *MemoryHistory) Clear(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, chatID)
	return nil
}

// Len reports how many chats currently hold history.
func (m *MemoryHistory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chats)
}

// Sweep drops chats idle for longer than idleTTL and returns how many were
// removed. It is a no-op when idleTTL is zero.
func (m *MemoryHistory) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, h := range m.chats {
		if h.lastSeen.Before(cutoff) {
			delete(m.chats, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (m *MemoryHistory) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("evicted idle chat histories", "count", n)
			}
		}
	}
}
