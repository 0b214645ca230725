package render

import (
	"sync"

	"floor-designer/internal/layout/service"
)

// ============================================================
// Projection
// ============================================================

// Projection подписана на хранилище и хранит последний снимок и его SVG.
// Только читает состояние.
type Projection struct {
	mu       sync.RWMutex
	renderer *Renderer
	view     service.View
	svg      string
	version  int
}

// Attach подписывает проекцию на хранилище и сразу строит первый снимок.
func Attach(store *service.Store) (*Projection, func()) {
	p := &Projection{renderer: NewRenderer(store.Space())}
	p.apply(store.View())
	unsubscribe := store.Subscribe(func(e service.Event) {
		p.apply(e.View)
	})
	return p, unsubscribe
}

func (p *Projection) apply(view service.View) {
	svg := p.renderer.Render(view)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = view
	p.svg = svg
	p.version++
}

func (p *Projection) SVG() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.svg
}

func (p *Projection) View() service.View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// Version растёт с каждым полученным событием.
func (p *Projection) Version() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}
