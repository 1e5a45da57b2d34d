package dialogue

import "sync"

// chatLocks serializes events per chat. An entry lives only while some
// event holds or waits for it.
type chatLocks struct {
	mu    sync.Mutex
	chats map[string]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{chats: make(map[string]*chatLock)}
}

func (l *chatLocks) lock(chatID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.chats[chatID]
	if !ok {
		cl = &chatLock{}
		l.chats[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.chats, chatID)
		}
		l.mu.Unlock()
	}
}
