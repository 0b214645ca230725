package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"floor-designer/internal/common/clock"
	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
)

// ============================================================
// Layout Registry
// ============================================================

// LayoutRepository хранит раскладки и их объекты.
type LayoutRepository interface {
	Gateway
	ListItems(ctx context.Context, layoutID string) ([]models.ItemPayload, error)
	GetLayout(ctx context.Context, id string) (*models.Layout, error)
	ListLayouts(ctx context.Context) ([]models.Layout, error)
	CreateLayout(ctx context.Context, layout models.Layout) error
	RenameLayout(ctx context.Context, id, name string) error
	DeleteLayout(ctx context.Context, id string) error
}

// Editor объединяет хранилище открытой раскладки и контроллер ввода.
type Editor struct {
	Store *Store
	Input *InputController
}

type RegistryConfig struct {
	CellSize    float64
	MergePolicy MergePolicy
	Input       InputConfig
	Clock       clock.Clock
	// OnOpen вызывается для каждой впервые открытой раскладки (подписка потребителей).
	OnOpen func(*Editor)
}

type Registry struct {
	mu      sync.Mutex
	repo    LayoutRepository
	outbox  *Outbox
	logger  *log.Logger
	cfg     RegistryConfig
	editors map[string]*Editor
}

func NewRegistry(repo LayoutRepository, outbox *Outbox, logger *log.Logger, cfg RegistryConfig) *Registry {
	return &Registry{
		repo:    repo,
		outbox:  outbox,
		logger:  logger,
		cfg:     cfg,
		editors: make(map[string]*Editor),
	}
}

// Open возвращает редактор раскладки, загружая объекты из хранилища при первом обращении.
func (r *Registry) Open(ctx context.Context, layoutID string) (*Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ed, ok := r.editors[layoutID]; ok {
		return ed, nil
	}

	layout, err := r.repo.GetLayout(ctx, layoutID)
	if err != nil {
		return nil, err
	}
	payloads, err := r.repo.ListItems(ctx, layoutID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]models.PlacedItem, 0, len(payloads))
	for _, p := range payloads {
		item, err := models.FromPayload(p)
		if err != nil {
			r.logger.Warn("skipping malformed item", "layout", layoutID, "item", p.ID, "err", err)
			continue
		}
		items = append(items, item)
	}

	store := NewStore(Options{
		LayoutID:    layoutID,
		Space:       grid.New(layout.Bounds, r.cfg.CellSize),
		Items:       items,
		Outbox:      r.outbox,
		Logger:      r.logger,
		MergePolicy: r.cfg.MergePolicy,
	})
	ed := &Editor{
		Store: store,
		Input: NewInputController(store, r.cfg.Clock, r.cfg.Input),
	}
	r.editors[layoutID] = ed
	if r.cfg.OnOpen != nil {
		r.cfg.OnOpen(ed)
	}

	r.logger.Info("layout opened", "layout", layoutID, "items", len(items))
	return ed, nil
}

func (r *Registry) ListLayouts(ctx context.Context) ([]models.Layout, error) {
	return r.repo.ListLayouts(ctx)
}

func (r *Registry) CreateLayout(ctx context.Context, name string, bounds models.Bounds) (models.Layout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Layout{}, models.Invalid("name", "must not be empty")
	}
	if bounds.Width < 1 || bounds.Depth < 1 {
		return models.Layout{}, models.Invalid("bounds", "width and depth must be >= 1")
	}

	layout := models.Layout{ID: uuid.NewString(), Name: name, Bounds: bounds}
	if err := r.repo.CreateLayout(ctx, layout); err != nil {
		return models.Layout{}, fmt.Errorf("create layout: %w", err)
	}
	return layout, nil
}

func (r *Registry) RenameLayout(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Invalid("name", "must not be empty")
	}
	return r.repo.RenameLayout(ctx, id, name)
}

// DeleteLayout удаляет раскладку и закрывает её редактор.
func (r *Registry) DeleteLayout(ctx context.Context, id string) error {
	if err := r.repo.DeleteLayout(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.editors, id)
	r.mu.Unlock()
	return nil
}

// EnsureDefault создаёт раскладку, если хранилище пусто, и возвращает первую раскладку.
func (r *Registry) EnsureDefault(ctx context.Context, name string, bounds models.Bounds) (models.Layout, error) {
	layouts, err := r.repo.ListLayouts(ctx)
	if err != nil {
		return models.Layout{}, fmt.Errorf("list layouts: %w", err)
	}
	if len(layouts) > 0 {
		return layouts[0], nil
	}
	layout, err := r.CreateLayout(ctx, name, bounds)
	if err != nil {
		return models.Layout{}, err
	}
	r.logger.Info("default layout created", "layout", layout.ID, "bounds", fmt.Sprintf("%dx%d", bounds.Width, bounds.Depth))
	return layout, nil
}
