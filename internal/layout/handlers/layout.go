package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"

	"floor-designer/internal/layout/catalog"
	"floor-designer/internal/layout/models"
	"floor-designer/internal/layout/render"
	"floor-designer/internal/layout/service"
	"floor-designer/internal/layout/tablestatus"
)

// ============================================================
// Layout Handler
// ============================================================

type LayoutHandler struct {
	registry *service.Registry
	catalog  *catalog.Catalog
	tables   tablestatus.Source
	hub      *render.Hub
	logger   *log.Logger
}

func NewLayoutHandler(registry *service.Registry, cat *catalog.Catalog, tables tablestatus.Source, hub *render.Hub, logger *log.Logger) *LayoutHandler {
	return &LayoutHandler{
		registry: registry,
		catalog:  cat,
		tables:   tables,
		hub:      hub,
		logger:   logger,
	}
}

// Register подключает маршруты редактора к роутеру.
func (h *LayoutHandler) Register(r fiber.Router) {
	r.Get("/catalog", h.Catalog)

	r.Get("/layouts", h.ListLayouts)
	r.Post("/layouts", h.CreateLayout)
	r.Get("/layouts/:id", h.GetLayout)
	r.Patch("/layouts/:id", h.RenameLayout)
	r.Delete("/layouts/:id", h.DeleteLayout)
	r.Get("/layouts/:id/svg", h.RenderSVG)

	r.Post("/layouts/:id/items", h.AddItem)
	r.Delete("/layouts/:id/items/:itemId", h.RemoveItem)
	r.Post("/layouts/:id/items/:itemId/move", h.MoveItem)
	r.Post("/layouts/:id/items/:itemId/rotate", h.RotateItem)
	r.Post("/layouts/:id/items/:itemId/associate", h.AssociateItem)
	r.Post("/layouts/:id/items/:itemId/dissociate", h.DissociateItem)

	r.Post("/layouts/:id/select", h.Select)
	r.Post("/layouts/:id/events", h.Event)

	r.Get("/layouts/:id/error", h.PersistError)
	r.Delete("/layouts/:id/error", h.ClearPersistError)
}

// Catalog отдаёт шаблоны, доступные для размещения.
func (h *LayoutHandler) Catalog(c fiber.Ctx) error {
	return c.JSON(h.catalog.Entries())
}

// ============================================================
// Layouts
// ============================================================

func (h *LayoutHandler) ListLayouts(c fiber.Ctx) error {
	layouts, err := h.registry.ListLayouts(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(layouts)
}

func (h *LayoutHandler) CreateLayout(c fiber.Ctx) error {
	var req createLayoutRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	layout, err := h.registry.CreateLayout(c.Context(), req.Name, models.Bounds{Width: req.Width, Depth: req.Depth})
	if err != nil {
		return h.fail(c, err)
	}
	h.logger.Info("layout created", "layout", layout.ID, "name", layout.Name)
	return c.Status(http.StatusCreated).JSON(layout)
}

// GetLayout отдаёт снимок раскладки со статусами привязанных столов.
func (h *LayoutHandler) GetLayout(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.view(c, ed))
}

func (h *LayoutHandler) RenameLayout(c fiber.Ctx) error {
	var req renameLayoutRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.registry.RenameLayout(c.Context(), c.Params("id"), req.Name); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *LayoutHandler) DeleteLayout(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.registry.DeleteLayout(c.Context(), id); err != nil {
		return h.fail(c, err)
	}
	h.hub.Drop(id)
	h.logger.Info("layout deleted", "layout", id)
	return c.SendStatus(http.StatusNoContent)
}

// RenderSVG отдаёт текущую 2D-проекцию раскладки.
func (h *LayoutHandler) RenderSVG(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	p, ok := h.hub.Get(ed.Store.LayoutID())
	if !ok {
		p = h.hub.Track(ed.Store)
	}

	c.Set(fiber.HeaderContentType, "image/svg+xml")
	c.Set(fiber.HeaderETag, strconv.Quote(strconv.Itoa(p.Version())))
	return c.SendString(p.SVG())
}

// ============================================================
// Items
// ============================================================

func (h *LayoutHandler) AddItem(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	var req addItemRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	entry, ok := h.catalog.Get(req.CatalogID)
	if !ok {
		return h.fail(c, models.Invalid("catalogId", "unknown catalog entry"))
	}
	if req.Position == nil {
		return h.fail(c, models.Invalid("position", "required"))
	}

	meta := models.CloneMetadata(entry.Metadata)
	meta["catalogId"] = entry.ID
	applied, err := ed.Store.AddItem(models.PlacedItem{
		Type:      entry.Type,
		Name:      entry.Name,
		Position:  *req.Position,
		Size:      entry.Size,
		Rotation:  req.Rotation,
		Color:     entry.Color,
		Mergeable: entry.Mergeable,
		Kind:      models.Standard{},
		Metadata:  meta,
	})
	if err != nil {
		return h.fail(c, err)
	}
	status := http.StatusOK
	if applied {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(h.mutation(c, ed, applied))
}

func (h *LayoutHandler) RemoveItem(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := ed.Store.RemoveItem(c.Params("itemId")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.mutation(c, ed, true))
}

func (h *LayoutHandler) MoveItem(c fiber.Ctx) error {
	var req moveRequest
	return h.mutate(c, &req, func(ed *service.Editor, itemID string) (bool, error) {
		if req.Position == nil {
			return false, models.Invalid("position", "required")
		}
		return ed.Store.MoveItem(itemID, *req.Position)
	})
}

func (h *LayoutHandler) RotateItem(c fiber.Ctx) error {
	var req rotateRequest
	return h.mutate(c, &req, func(ed *service.Editor, itemID string) (bool, error) {
		if req.Rotation == nil {
			return false, models.Invalid("rotation", "required")
		}
		return ed.Store.RotateItem(itemID, *req.Rotation)
	})
}

func (h *LayoutHandler) AssociateItem(c fiber.Ctx) error {
	var req associateRequest
	return h.mutate(c, &req, func(ed *service.Editor, itemID string) (bool, error) {
		return ed.Store.Associate(itemID, req.TableID)
	})
}

func (h *LayoutHandler) DissociateItem(c fiber.Ctx) error {
	return h.mutate(c, nil, func(ed *service.Editor, itemID string) (bool, error) {
		return ed.Store.Dissociate(itemID)
	})
}

func (h *LayoutHandler) Select(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	var req selectRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := ed.Store.Select(req.ItemID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.view(c, ed))
}

// ============================================================
// Input events
// ============================================================

// Event передаёт событие холста контроллеру ввода и возвращает новый снимок.
func (h *LayoutHandler) Event(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	var req eventRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	pointer := service.PointerEvent{X: req.X, Y: req.Y, ItemID: req.ItemID}
	switch req.Type {
	case "pointerdown":
		err = ed.Input.PointerDown(pointer)
	case "pointermove":
		err = ed.Input.PointerMove(pointer)
	case "pointerup":
		err = ed.Input.PointerUp(pointer)
	case "keydown":
		err = ed.Input.KeyDown(req.Key)
	case "tick":
		err = ed.Input.Tick()
	case "place":
		entry, ok := h.catalog.Get(req.CatalogID)
		if !ok {
			return h.fail(c, models.Invalid("catalogId", "unknown catalog entry"))
		}
		_, err = ed.Store.StartPlacing(entry)
	case "cancel":
		ed.Store.Cancel()
	default:
		return h.fail(c, models.Invalid("type", "unknown event type "+req.Type))
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.view(c, ed))
}

// ============================================================
// Persistence errors
// ============================================================

func (h *LayoutHandler) PersistError(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	msg := ""
	if perr := ed.Store.PersistError(); perr != nil {
		msg = perr.Error()
	}
	return c.JSON(fiber.Map{"error": msg})
}

func (h *LayoutHandler) ClearPersistError(c fiber.Ctx) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	ed.Store.ClearPersistError()
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Helpers
// ============================================================

// mutate открывает раскладку, разбирает тело в req (если задан) и применяет fn к объекту.
func (h *LayoutHandler) mutate(c fiber.Ctx, req any, fn func(ed *service.Editor, itemID string) (bool, error)) error {
	ed, err := h.registry.Open(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if req != nil {
		if err := decodeBody(c, req); err != nil {
			return h.fail(c, err)
		}
	}
	applied, err := fn(ed, c.Params("itemId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.mutation(c, ed, applied))
}

func (h *LayoutHandler) view(c fiber.Ctx, ed *service.Editor) layoutView {
	v := ed.Store.View()
	tables := tablestatus.Decorate(c.Context(), h.tables, v.Items)
	return toLayoutView(v, tables)
}

func (h *LayoutHandler) mutation(c fiber.Ctx, ed *service.Editor, applied bool) mutationResponse {
	return mutationResponse{Applied: applied, Layout: h.view(c, ed)}
}

func decodeBody(c fiber.Ctx, target any) error {
	if len(c.Body()) == 0 {
		return models.Invalid("body", "empty body")
	}
	if err := json.Unmarshal(c.Body(), target); err != nil {
		return models.Invalid("body", "invalid json")
	}
	return nil
}

// fail переводит ошибку домена в HTTP-ответ.
func (h *LayoutHandler) fail(c fiber.Ctx, err error) error {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, models.ErrLayoutNotFound), errors.Is(err, models.ErrItemNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
