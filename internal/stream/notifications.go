package stream

import (
	"sync"
)

const notificationBuffer = 100

// NotificationHub retains the most recent notification payloads so
// the desk API can serve them without its own socket. Dropped on
// session teardown; nothing persists.
type NotificationHub struct {
	mu          sync.RWMutex
	items       []Notification
	unsubscribe func()
}

func NewNotificationHub(s *Stream) *NotificationHub {
	hub := &NotificationHub{
		items: make([]Notification, 0, notificationBuffer),
	}
	hub.unsubscribe = s.OnNotification(hub.add)
	return hub
}

func (h *NotificationHub) add(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, n)
	if len(h.items) > notificationBuffer {
		h.items = h.items[len(h.items)-notificationBuffer:]
	}
}

// Recent returns a copy of the retained notifications, newest last.
func (h *NotificationHub) Recent() []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Notification, len(h.items))
	copy(out, h.items)
	return out
}

func (h *NotificationHub) Close() {
	h.unsubscribe()
}
