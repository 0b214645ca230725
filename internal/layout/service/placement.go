package service

import (
	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
)

// ============================================================
// Board
// ============================================================

// board открывает сессиям доступ к хранилищу. Методы вызываются под замком Store.
type board interface {
	items() []models.PlacedItem
	find(id string) (models.PlacedItem, bool)
	insert(item models.PlacedItem)
	relocate(id string, pos models.Position)
	replace(oldID string, item models.PlacedItem)
}

// ============================================================
// Placement Session
// ============================================================

type PlacementMode string

const (
	PlacementIdle     PlacementMode = "idle"
	PlacementPlacing  PlacementMode = "placing"
	PlacementDragging PlacementMode = "dragging"
)

// PlacementSession размещает новый объект из каталога или переносит существующий.
// Зафиксированная раскладка не меняется до Confirm/Release.
type PlacementSession struct {
	space    *grid.Space
	newID    func() string
	mode     PlacementMode
	draft    models.PlacedItem
	original models.Position
	valid    bool
}

func NewPlacementSession(space *grid.Space, newID func() string) *PlacementSession {
	return &PlacementSession{space: space, newID: newID, mode: PlacementIdle}
}

func (p *PlacementSession) Mode() PlacementMode {
	return p.mode
}

// Draft возвращает черновик (или переносимую копию) и признак допустимости позиции.
func (p *PlacementSession) Draft() (models.PlacedItem, bool, bool) {
	if p.mode == PlacementIdle {
		return models.PlacedItem{}, false, false
	}
	return p.draft.Clone(), p.valid, true
}

// StartPlacing создаёт черновик из шаблона каталога в позиции по умолчанию.
func (p *PlacementSession) StartPlacing(b board, entry models.CatalogEntry) (bool, error) {
	if p.mode != PlacementIdle {
		return false, nil
	}
	if err := grid.Validate(entry.Size); err != nil {
		return false, err
	}

	p.draft = models.PlacedItem{
		ID:        p.newID(),
		Type:      entry.Type,
		Name:      entry.Name,
		Size:      entry.Size,
		Color:     entry.Color,
		Mergeable: entry.Mergeable,
		Kind:      models.Standard{},
		Metadata:  models.CloneMetadata(entry.Metadata),
	}
	p.draft.Metadata["catalogId"] = entry.ID
	p.mode = PlacementPlacing
	p.valid = p.space.CanPlace(p.draft.Position, p.draft.Size, b.items())
	return true, nil
}

// UpdatePosition запоминает позицию-кандидата и пересчитывает допустимость.
func (p *PlacementSession) UpdatePosition(b board, pos models.Position) bool {
	switch p.mode {
	case PlacementPlacing:
		p.draft.Position = pos
		p.valid = p.space.CanPlace(pos, p.draft.Size, b.items())
	case PlacementDragging:
		p.draft.Position = pos
		p.valid = p.space.CanPlace(pos, p.draft.Size, grid.Without(b.items(), p.draft.ID))
	default:
		return false
	}
	return p.valid
}

// Confirm добавляет черновик в раскладку, если позиция допустима.
func (p *PlacementSession) Confirm(b board) (models.PlacedItem, bool) {
	if p.mode != PlacementPlacing {
		return models.PlacedItem{}, false
	}
	if !p.space.CanPlace(p.draft.Position, p.draft.Size, b.items()) {
		p.valid = false
		return models.PlacedItem{}, false
	}

	item := p.draft.Clone()
	b.insert(item)
	p.reset()
	return item, true
}

// Cancel отбрасывает черновик; перенос возвращается к исходной позиции.
func (p *PlacementSession) Cancel() bool {
	if p.mode == PlacementIdle {
		return false
	}
	p.reset()
	return true
}

// StartDrag начинает перенос. Объединённые объекты не переносятся.
func (p *PlacementSession) StartDrag(b board, id string) (bool, error) {
	if p.mode != PlacementIdle {
		return false, nil
	}
	item, ok := b.find(id)
	if !ok {
		return false, models.ErrItemNotFound
	}
	if item.IsMerged() {
		return false, nil
	}

	p.draft = item.Clone()
	p.original = item.Position
	p.valid = true
	p.mode = PlacementDragging
	return true, nil
}

// DraggedID возвращает идентификатор переносимого объекта.
func (p *PlacementSession) DraggedID() (string, bool) {
	if p.mode != PlacementDragging {
		return "", false
	}
	return p.draft.ID, true
}

// Release завершает перенос: позиция фиксируется, только если она допустима
// и отличается от исходной. Иначе объект остаётся на месте.
func (p *PlacementSession) Release(b board, pos models.Position) bool {
	if p.mode != PlacementDragging {
		return false
	}
	id := p.draft.ID
	committed := p.UpdatePosition(b, pos) && pos != p.original
	if committed {
		b.relocate(id, pos)
	}
	p.reset()
	return committed
}

func (p *PlacementSession) reset() {
	p.mode = PlacementIdle
	p.draft = models.PlacedItem{}
	p.original = models.Position{}
	p.valid = false
}
