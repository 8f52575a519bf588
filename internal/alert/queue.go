package alert

import (
	"sync"

	"crypto-advisor/internal/types"
)

const queueSize = 5

// Queue is the triggered-alert display buffer: newest first, unique ids, at most five
type Queue struct {
	mu    sync.Mutex
	items []types.Alert
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push prepends a; it reports false when a is already queued
func (q *Queue) Push(a types.Alert) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == a.ID {
			return false
		}
	}
	q.items = append([]types.Alert{a}, q.items...)
	if len(q.items) > queueSize {
		q.items = q.items[:queueSize]
	}
	return true
}

func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *Queue) Items() []types.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]types.Alert(nil), q.items...)
}
