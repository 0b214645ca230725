package service

import (
	"errors"
	"sync"
	"time"

	"floor-designer/internal/common/clock"
	"floor-designer/internal/layout/models"
)

// ============================================================
// Input Controller
// ============================================================

const (
	DefaultLongPress   = 500 * time.Millisecond
	DefaultDoubleClick = 300 * time.Millisecond
)

// PointerEvent в пикселях холста. ItemID указывает объект под курсором.
type PointerEvent struct {
	X      float64
	Y      float64
	ItemID string
}

type InputConfig struct {
	LongPress   time.Duration
	DoubleClick time.Duration
}

type press struct {
	itemID string
	cell   models.Position
	at     time.Time
}

// InputController переводит события указателя и клавиатуры в переходы сессий.
// Долгое нажатие и двойной клик начинают слияние линии; время берётся из clock.Clock.
type InputController struct {
	mu    sync.Mutex
	store *Store
	clock clock.Clock
	cfg   InputConfig

	press     *press
	lastDown  press
	mergeHeld bool
}

func NewInputController(store *Store, clk clock.Clock, cfg InputConfig) *InputController {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if cfg.LongPress <= 0 {
		cfg.LongPress = DefaultLongPress
	}
	if cfg.DoubleClick <= 0 {
		cfg.DoubleClick = DefaultDoubleClick
	}
	return &InputController{store: store, clock: clk, cfg: cfg}
}

func (c *InputController) PointerDown(ev PointerEvent) error {
	pos, err := c.store.Space().PixelToGrid(ev.X, ev.Y)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	switch c.store.View().Session.Mode {
	case ModePlacing:
		c.store.UpdatePlacement(pos)
		c.store.ConfirmPlacement()
		return nil
	case ModeExpanding:
		c.store.UpdateMerge(pos)
		c.store.ConfirmMerge()
		c.mergeHeld = false
		return nil
	case ModeDragging:
		return nil
	}

	if ev.ItemID == "" {
		c.press = nil
		return c.store.Select("")
	}

	if c.lastDown.itemID == ev.ItemID && now.Sub(c.lastDown.at) <= c.cfg.DoubleClick {
		c.lastDown = press{}
		c.press = nil
		_, err := c.store.StartMerge(ev.ItemID)
		return err
	}

	if err := c.store.Select(ev.ItemID); err != nil {
		return err
	}
	c.lastDown = press{itemID: ev.ItemID, at: now}
	c.press = &press{itemID: ev.ItemID, cell: pos, at: now}
	return nil
}

func (c *InputController) PointerMove(ev PointerEvent) error {
	pos, err := c.store.Space().PixelToGrid(ev.X, ev.Y)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLongPress(); err != nil {
		return err
	}

	switch c.store.View().Session.Mode {
	case ModePlacing, ModeDragging:
		c.store.UpdatePlacement(pos)
		return nil
	case ModeExpanding:
		c.store.UpdateMerge(pos)
		return nil
	}

	if c.press == nil || pos == c.press.cell {
		return nil
	}

	itemID := c.press.itemID
	c.press = nil
	started, err := c.store.StartDrag(itemID)
	if err != nil || !started {
		return err
	}
	c.store.UpdatePlacement(pos)
	return nil
}

func (c *InputController) PointerUp(ev PointerEvent) error {
	pos, err := c.store.Space().PixelToGrid(ev.X, ev.Y)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.press = nil
	switch c.store.View().Session.Mode {
	case ModeDragging:
		c.store.ReleaseDrag(pos)
	case ModeExpanding:
		if c.mergeHeld {
			c.store.UpdateMerge(pos)
			c.store.ConfirmMerge()
			c.mergeHeld = false
		}
	}
	return nil
}

// Tick проверяет долгое нажатие без движения указателя.
func (c *InputController) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkLongPress()
}

// KeyDown: Escape отменяет активную сессию, r поворачивает выделенный объект, Delete удаляет его.
func (c *InputController) KeyDown(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.store.View()
	switch key {
	case "Escape", "Esc":
		c.press = nil
		c.mergeHeld = false
		c.store.Cancel()
	case "r", "R":
		if view.Selected == "" || view.Session.Mode != ModeIdle {
			return nil
		}
		item, ok := c.store.Item(view.Selected)
		if !ok {
			return nil
		}
		_, err := c.store.RotateItem(item.ID, item.Rotation+90)
		return err
	case "Delete", "Backspace":
		if view.Selected == "" || view.Session.Mode != ModeIdle {
			return nil
		}
		c.press = nil
		if err := c.store.RemoveItem(view.Selected); err != nil && !errors.Is(err, models.ErrItemNotFound) {
			return err
		}
	}
	return nil
}

func (c *InputController) checkLongPress() error {
	if c.press == nil || c.clock.Now().Sub(c.press.at) < c.cfg.LongPress {
		return nil
	}
	itemID := c.press.itemID
	c.press = nil
	started, err := c.store.StartMerge(itemID)
	if started {
		c.mergeHeld = true
	}
	return err
}
