package render

import (
	"sync"

	"floor-designer/internal/layout/service"
)

// Hub хранит проекции открытых раскладок.
type Hub struct {
	mu          sync.RWMutex
	projections map[string]*Projection
	unsubscribe map[string]func()
}

func NewHub() *Hub {
	return &Hub{
		projections: make(map[string]*Projection),
		unsubscribe: make(map[string]func()),
	}
}

// Track подписывает проекцию на хранилище раскладки. Повторный вызов заменяет подписку.
func (h *Hub) Track(store *service.Store) *Projection {
	p, unsubscribe := Attach(store)

	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.unsubscribe[store.LayoutID()]; ok {
		prev()
	}
	h.projections[store.LayoutID()] = p
	h.unsubscribe[store.LayoutID()] = unsubscribe
	return p
}

func (h *Hub) Get(layoutID string) (*Projection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.projections[layoutID]
	return p, ok
}

// Drop отписывает и забывает проекцию раскладки.
func (h *Hub) Drop(layoutID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if unsubscribe, ok := h.unsubscribe[layoutID]; ok {
		unsubscribe()
	}
	delete(h.projections, layoutID)
	delete(h.unsubscribe, layoutID)
}
