package models

import "fmt"

// ============================================================
// Item kinds
// ============================================================

type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// ParseDirection разбирает направление из metadata.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Horizontal, Vertical:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Kind закрыт: Standard, Merged или Associated.
type Kind interface {
	isKind()
}

type Standard struct{}

// Merged собран из линии одиночных мест.
type Merged struct {
	Direction Direction
}

// Associated привязан к столу во внешней системе.
type Associated struct {
	ExternalID string
}

func (Standard) isKind()   {}
func (Merged) isKind()     {}
func (Associated) isKind() {}

const (
	metaMerged    = "merged"
	metaDirection = "direction"
	metaTableID   = "tableId"
)

// EncodeKind записывает флаги варианта в копию metadata.
func EncodeKind(kind Kind, meta map[string]any) map[string]any {
	out := CloneMetadata(meta)
	delete(out, metaMerged)
	delete(out, metaDirection)
	delete(out, metaTableID)

	switch k := kind.(type) {
	case nil, Standard:
	case Merged:
		out[metaMerged] = true
		out[metaDirection] = string(k.Direction)
	case Associated:
		out[metaTableID] = k.ExternalID
	}
	return out
}

// DecodeKind извлекает вариант из metadata и возвращает metadata без служебных ключей.
func DecodeKind(meta map[string]any) (Kind, map[string]any, error) {
	rest := CloneMetadata(meta)

	var kind Kind = Standard{}
	if merged, _ := rest[metaMerged].(bool); merged {
		raw, _ := rest[metaDirection].(string)
		dir, err := ParseDirection(raw)
		if err != nil {
			return nil, nil, err
		}
		kind = Merged{Direction: dir}
	} else if id, ok := rest[metaTableID].(string); ok && id != "" {
		kind = Associated{ExternalID: id}
	}

	delete(rest, metaMerged)
	delete(rest, metaDirection)
	delete(rest, metaTableID)
	return kind, rest, nil
}
