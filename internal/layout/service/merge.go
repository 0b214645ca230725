package service

import (
	"fmt"

	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
)

// ============================================================
// Line Merge Session
// ============================================================

// MergePolicy определяет, что делать со слиянием, след которого пересекает чужие объекты.
type MergePolicy int

const (
	// MergeLenient сохраняет поведение «пропустить занятые клетки и продолжить»:
	// длина линии = якорь + принятые превью, даже если между ними была занятая клетка.
	MergeLenient MergePolicy = iota
	// MergeStrict отклоняет Confirm, если итоговый след нельзя разместить.
	MergeStrict
)

// MergeSession растягивает один одиночный объект в линию и фиксирует её как один объект.
type MergeSession struct {
	space     *grid.Space
	newID     func() string
	policy    MergePolicy
	expanding bool
	anchor    models.PlacedItem
	direction models.Direction
	previews  []models.PlacedItem
	cursor    *models.Position
}

func NewMergeSession(space *grid.Space, newID func() string, policy MergePolicy) *MergeSession {
	return &MergeSession{
		space:     space,
		newID:     newID,
		policy:    policy,
		direction: models.Horizontal,
	}
}

func (m *MergeSession) Expanding() bool {
	return m.expanding
}

func (m *MergeSession) AnchorID() (string, bool) {
	if !m.expanding {
		return "", false
	}
	return m.anchor.ID, true
}

func (m *MergeSession) Direction() models.Direction {
	return m.direction
}

// Previews возвращает копии превью; в раскладку они никогда не попадают.
func (m *MergeSession) Previews() []models.PlacedItem {
	out := make([]models.PlacedItem, 0, len(m.previews))
	for _, p := range m.previews {
		out = append(out, p.Clone())
	}
	return out
}

// Mergeable сообщает, можно ли начать слияние с этого объекта.
func Mergeable(item models.PlacedItem) bool {
	if !item.Mergeable {
		return false
	}
	switch item.Kind.(type) {
	case models.Merged:
		return false
	case nil, models.Standard, models.Associated:
		return true
	}
	return false
}

// Start делает объект якорем. Неподходящий якорь молча игнорируется.
func (m *MergeSession) Start(b board, id string) (bool, error) {
	if m.expanding {
		return false, nil
	}
	anchor, ok := b.find(id)
	if !ok {
		return false, models.ErrItemNotFound
	}
	if !Mergeable(anchor) {
		return false, nil
	}

	m.anchor = anchor.Clone()
	m.direction = models.Horizontal
	m.previews = nil
	m.cursor = nil
	m.expanding = true
	return true, nil
}

// Update пересчитывает превью по положению курсора.
func (m *MergeSession) Update(b board, cursor models.Position) {
	if !m.expanding {
		return
	}

	m.cursor = &cursor
	origin := m.anchor.Position
	dx := cursor.X - origin.X
	dz := cursor.Z - origin.Z

	// при равенстве выигрывает вертикаль
	direction, distance, sign := models.Vertical, abs(dz), signum(dz)
	if abs(dx) > abs(dz) {
		direction, distance, sign = models.Horizontal, abs(dx), signum(dx)
	}

	step := unitStep(m.anchor.Size, direction)
	count := distance / step
	others := grid.Without(b.items(), m.anchor.ID)

	m.direction = direction
	m.previews = m.previews[:0]
	for i := 1; i <= count; i++ {
		candidate := origin
		offset := sign * i * step
		if direction == models.Horizontal {
			candidate.X += offset
		} else {
			candidate.Z += offset
		}

		// занятые кандидаты пропускаются, сканирование продолжается
		if !m.space.CanPlace(candidate, m.anchor.Size, others) {
			continue
		}
		m.previews = append(m.previews, m.preview(i, candidate))
	}
}

// Confirm заменяет якорь одним объединённым объектом. Якорь и превью
// сверяются с текущей раскладкой; если якорь изменился, сессия отменяется.
func (m *MergeSession) Confirm(b board) (models.PlacedItem, bool) {
	if !m.expanding {
		return models.PlacedItem{}, false
	}
	current, ok := b.find(m.anchor.ID)
	if !ok || current.Position != m.anchor.Position || current.Size != m.anchor.Size || !Mergeable(current) {
		m.reset()
		return models.PlacedItem{}, false
	}
	m.anchor = current.Clone()
	if m.cursor != nil {
		m.Update(b, *m.cursor)
	}

	merged := m.build()
	if m.policy == MergeStrict {
		others := grid.Without(b.items(), m.anchor.ID)
		if !m.space.CanPlace(merged.Position, merged.Size, others) {
			return models.PlacedItem{}, false
		}
	}

	b.replace(m.anchor.ID, merged)
	m.reset()
	return merged.Clone(), true
}

// Cancel отбрасывает превью, якорь не меняется.
func (m *MergeSession) Cancel() bool {
	if !m.expanding {
		return false
	}
	m.reset()
	return true
}

func (m *MergeSession) build() models.PlacedItem {
	step := unitStep(m.anchor.Size, m.direction)
	length := 1 + len(m.previews)

	start := m.anchor.Position
	for _, p := range m.previews {
		if m.direction == models.Horizontal && p.Position.X < start.X {
			start.X = p.Position.X
		}
		if m.direction == models.Vertical && p.Position.Z < start.Z {
			start.Z = p.Position.Z
		}
	}

	size := m.anchor.Size
	if m.direction == models.Horizontal {
		size.Width = step * length
	} else {
		size.Depth = step * length
	}

	return models.PlacedItem{
		ID:        m.newID(),
		Type:      m.anchor.Type,
		Name:      m.anchor.Name,
		Position:  start,
		Size:      size,
		Rotation:  0,
		Color:     m.anchor.Color,
		Mergeable: m.anchor.Mergeable,
		Kind:      models.Merged{Direction: m.direction},
		Metadata:  models.CloneMetadata(m.anchor.Metadata),
	}
}

func (m *MergeSession) preview(i int, pos models.Position) models.PlacedItem {
	p := m.anchor.Clone()
	p.ID = fmt.Sprintf("preview-%d", i)
	p.Position = pos
	p.Rotation = 0
	p.Kind = models.Standard{}
	p.Metadata["preview"] = true
	return p
}

func (m *MergeSession) reset() {
	m.expanding = false
	m.anchor = models.PlacedItem{}
	m.direction = models.Horizontal
	m.previews = nil
	m.cursor = nil
}

// unitStep равен размеру якоря вдоль оси удлинения.
func unitStep(size models.Size, direction models.Direction) int {
	step := size.Depth
	if direction == models.Horizontal {
		step = size.Width
	}
	if step < 1 {
		return 1
	}
	return step
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func signum(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}
