package handlers

import (
	"floor-designer/internal/layout/models"
	"floor-designer/internal/layout/service"
)

// ============================================================
// Request / Response payloads
// ============================================================

type createLayoutRequest struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
	Depth int    `json:"depth"`
}

type renameLayoutRequest struct {
	Name string `json:"name"`
}

type addItemRequest struct {
	CatalogID string           `json:"catalogId"`
	Position  *models.Position `json:"position"`
	Rotation  int              `json:"rotation"`
}

type moveRequest struct {
	Position *models.Position `json:"position"`
}

type rotateRequest struct {
	Rotation *int `json:"rotation"`
}

type associateRequest struct {
	TableID string `json:"tableId"`
}

type selectRequest struct {
	ItemID string `json:"itemId"`
}

// eventRequest описывает событие ввода с холста. Координаты в пикселях.
type eventRequest struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ItemID    string  `json:"itemId"`
	Key       string  `json:"key"`
	CatalogID string  `json:"catalogId"`
}

type sessionPayload struct {
	Mode      string               `json:"mode"`
	Draft     *models.ItemPayload  `json:"draft,omitempty"`
	Valid     bool                 `json:"valid"`
	AnchorID  string               `json:"anchorId,omitempty"`
	Direction string               `json:"direction,omitempty"`
	Previews  []models.ItemPayload `json:"previews,omitempty"`
}

type layoutView struct {
	ID           string                        `json:"id"`
	Bounds       models.Bounds                 `json:"bounds"`
	Items        []models.ItemPayload          `json:"items"`
	Selected     string                        `json:"selected,omitempty"`
	Session      sessionPayload                `json:"session"`
	PersistError string                        `json:"persistError,omitempty"`
	Tables       map[string]models.TableStatus `json:"tables,omitempty"`
}

type mutationResponse struct {
	Applied bool       `json:"applied"`
	Layout  layoutView `json:"layout"`
}

func toLayoutView(v service.View, tables map[string]models.TableStatus) layoutView {
	out := layoutView{
		ID:           v.LayoutID,
		Bounds:       v.Bounds,
		Items:        models.ToPayloads(v.Items),
		Selected:     v.Selected,
		PersistError: v.PersistError,
		Tables:       tables,
		Session: sessionPayload{
			Mode:      string(v.Session.Mode),
			Valid:     v.Session.Valid,
			AnchorID:  v.Session.AnchorID,
			Direction: string(v.Session.Direction),
		},
	}
	if v.Session.Draft != nil {
		draft := models.ToPayload(*v.Session.Draft)
		out.Session.Draft = &draft
	}
	if len(v.Session.Previews) > 0 {
		out.Session.Previews = models.ToPayloads(v.Session.Previews)
	}
	return out
}
