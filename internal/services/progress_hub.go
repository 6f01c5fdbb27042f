package services

import (
	"sync"

	"bhiv/hr-platform/internal/models"
)

// ProgressHub fans workflow transitions out to live subscribers. Slow
// subscribers miss intermediate events rather than blocking the runner.
type ProgressHub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.ProgressEvent]struct{}
	buffer int
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs:   make(map[string]map[chan models.ProgressEvent]struct{}),
		buffer: 16,
	}
}

// Subscribe returns an event channel and a func that must be called to release it.
func (h *ProgressHub) Subscribe(workflowID string) (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent, h.buffer)

	h.mu.Lock()
	if h.subs[workflowID] == nil {
		h.subs[workflowID] = make(map[chan models.ProgressEvent]struct{})
	}
	h.subs[workflowID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[workflowID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, workflowID)
				}
			}
			close(ch)
		})
	}
}

func (h *ProgressHub) Publish(event models.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.WorkflowID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *ProgressHub) Subscribers(workflowID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[workflowID])
}
