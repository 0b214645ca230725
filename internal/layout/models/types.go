package models

// ============================================================
// Grid primitives
// ============================================================

// Position задаёт целочисленные координаты сетки; Z это ось глубины.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Size в клетках, каждое измерение >= 1.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`
}

// Bounds задаёт размеры зала по X и Z.
type Bounds struct {
	Width int `json:"width"`
	Depth int `json:"depth"`
}

// Cell на плоскости XZ.
type Cell struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ============================================================
// Layout
// ============================================================

type PlacedItem struct {
	ID        string
	Type      string
	Name      string
	Position  Position
	Size      Size
	Rotation  int
	Color     string
	Mergeable bool
	Kind      Kind
	Metadata  map[string]any
}

// IsMerged сообщает, что объект получен слиянием линии.
func (i PlacedItem) IsMerged() bool {
	_, ok := i.Kind.(Merged)
	return ok
}

// Clone возвращает копию без общих ссылок на metadata.
func (i PlacedItem) Clone() PlacedItem {
	i.Metadata = CloneMetadata(i.Metadata)
	if i.Kind == nil {
		i.Kind = Standard{}
	}
	return i
}

type Layout struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Bounds Bounds       `json:"bounds"`
	Items  []PlacedItem `json:"-"`
}

// ============================================================
// External sources
// ============================================================

// CatalogEntry описывает шаблон каталога; для размещения он неизменяем.
type CatalogEntry struct {
	ID        string         `json:"id" toml:"id"`
	Type      string         `json:"type" toml:"type"`
	Name      string         `json:"name" toml:"name"`
	Size      Size           `json:"size" toml:"size"`
	Color     string         `json:"color" toml:"color"`
	Mergeable bool           `json:"mergeable" toml:"mergeable"`
	Metadata  map[string]any `json:"metadata,omitempty" toml:"metadata"`
}

type TableStatus struct {
	Status   string `json:"status"`
	Capacity int    `json:"capacity"`
}

// CloneMetadata возвращает поверхностную копию metadata, nil превращается в пустую карту.
func CloneMetadata(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	cp := make(map[string]any, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return cp
}
