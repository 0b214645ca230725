package grid

import (
	"math"

	"floor-designer/internal/layout/models"
)

// ============================================================
// Grid Space
// ============================================================

const DefaultCellSize = 40.0 // Размер клетки в пикселях для 2D-проекции

// Space задаёт систему координат зала и считает занятость клеток.
// Центр зала совпадает с началом координат сетки.
type Space struct {
	bounds   models.Bounds
	cellSize float64
}

func New(bounds models.Bounds, cellSize float64) *Space {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Space{bounds: bounds, cellSize: cellSize}
}

func (s *Space) Bounds() models.Bounds {
	return s.bounds
}

func (s *Space) CellSize() float64 {
	return s.cellSize
}

// halfExtent возвращает floor(W/2), floor(D/2).
func (s *Space) halfExtent() (int, int) {
	return s.bounds.Width / 2, s.bounds.Depth / 2
}

// ============================================================
// Coordinate transforms
// ============================================================

// PixelToGrid переводит пиксели холста (левый верхний угол = 0,0) в клетку сетки.
func (s *Space) PixelToGrid(px, py float64) (models.Position, error) {
	if math.IsNaN(px) || math.IsNaN(py) || math.IsInf(px, 0) || math.IsInf(py, 0) {
		return models.Position{}, models.Invalid("position", "coordinates must be finite")
	}
	hw, hd := s.halfExtent()
	return models.Position{
		X: int(math.Floor(px/s.cellSize)) - hw,
		Z: int(math.Floor(py/s.cellSize)) - hd,
	}, nil
}

// GridToPixel возвращает левый верхний угол клетки в пикселях.
func (s *Space) GridToPixel(p models.Position) (float64, float64) {
	hw, hd := s.halfExtent()
	return float64(p.X+hw) * s.cellSize, float64(p.Z+hd) * s.cellSize
}

// CanvasSize возвращает размер холста в пикселях со всеми допустимыми клетками.
func (s *Space) CanvasSize() (float64, float64) {
	hw, hd := s.halfExtent()
	return float64(2*hw+1) * s.cellSize, float64(2*hd+1) * s.cellSize
}

// ============================================================
// Occupancy
// ============================================================

func (s *Space) InBounds(x, z int) bool {
	hw, hd := s.halfExtent()
	return x >= -hw && x <= hw && z >= -hd && z <= hd
}

// OccupiedCells возвращает клетки width × depth начиная с pos.
func OccupiedCells(pos models.Position, size models.Size) []models.Cell {
	if size.Width < 1 || size.Depth < 1 {
		return nil
	}
	cells := make([]models.Cell, 0, size.Width*size.Depth)
	for dx := 0; dx < size.Width; dx++ {
		for dz := 0; dz < size.Depth; dz++ {
			cells = append(cells, models.Cell{X: pos.X + dx, Z: pos.Z + dz})
		}
	}
	return cells
}

// Validate проверяет размер объекта.
func Validate(size models.Size) error {
	if size.Width < 1 || size.Height < 1 || size.Depth < 1 {
		return models.Invalid("size", "every dimension must be >= 1")
	}
	return nil
}

// CanPlace проверяет, что объект целиком в зале и не пересекает existing.
func (s *Space) CanPlace(pos models.Position, size models.Size, existing []models.PlacedItem) bool {
	if Validate(size) != nil {
		return false
	}

	cells := OccupiedCells(pos, size)
	for _, c := range cells {
		if !s.InBounds(c.X, c.Z) {
			return false
		}
	}

	taken := occupancy(existing)
	for _, c := range cells {
		if _, ok := taken[c]; ok {
			return false
		}
	}
	return true
}

// Overlaps сообщает, пересекаются ли следы двух объектов.
func Overlaps(a, b models.PlacedItem) bool {
	if a.Position.X+a.Size.Width <= b.Position.X || b.Position.X+b.Size.Width <= a.Position.X {
		return false
	}
	if a.Position.Z+a.Size.Depth <= b.Position.Z || b.Position.Z+b.Size.Depth <= a.Position.Z {
		return false
	}
	return true
}

func occupancy(items []models.PlacedItem) map[models.Cell]struct{} {
	taken := make(map[models.Cell]struct{})
	for _, item := range items {
		for _, c := range OccupiedCells(item.Position, item.Size) {
			taken[c] = struct{}{}
		}
	}
	return taken
}

// Without возвращает items без объекта с идентификатором id.
func Without(items []models.PlacedItem, id string) []models.PlacedItem {
	out := make([]models.PlacedItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
