package models

// ============================================================
// Wire payload
// ============================================================

// ItemPayload используется шлюзом хранения и HTTP.
// Вариант объекта кодируется флагами в Metadata.
type ItemPayload struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Position  Position       `json:"position"`
	Size      Size           `json:"size"`
	Rotation  int            `json:"rotation"`
	Color     string         `json:"color"`
	Mergeable bool           `json:"mergeable"`
	Metadata  map[string]any `json:"metadata"`
}

func ToPayload(item PlacedItem) ItemPayload {
	return ItemPayload{
		ID:        item.ID,
		Type:      item.Type,
		Name:      item.Name,
		Position:  item.Position,
		Size:      item.Size,
		Rotation:  item.Rotation,
		Color:     item.Color,
		Mergeable: item.Mergeable,
		Metadata:  EncodeKind(item.Kind, item.Metadata),
	}
}

func FromPayload(p ItemPayload) (PlacedItem, error) {
	kind, meta, err := DecodeKind(p.Metadata)
	if err != nil {
		return PlacedItem{}, Invalid("metadata", err.Error())
	}
	return PlacedItem{
		ID:        p.ID,
		Type:      p.Type,
		Name:      p.Name,
		Position:  p.Position,
		Size:      p.Size,
		Rotation:  p.Rotation,
		Color:     p.Color,
		Mergeable: p.Mergeable,
		Kind:      kind,
		Metadata:  meta,
	}, nil
}

func ToPayloads(items []PlacedItem) []ItemPayload {
	out := make([]ItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, ToPayload(item))
	}
	return out
}
