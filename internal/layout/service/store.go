package service

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
)

// ============================================================
// Events & Views
// ============================================================

type EventType string

const (
	EventLayoutChanged    EventType = "layout"
	EventSessionChanged   EventType = "session"
	EventSelectionChanged EventType = "selection"
)

type Event struct {
	Type EventType
	View View
}

// Listener получает события синхронно, после снятия замка.
type Listener func(Event)

type SessionMode string

const (
	ModeIdle      SessionMode = "idle"
	ModePlacing   SessionMode = "placing"
	ModeDragging  SessionMode = "dragging"
	ModeExpanding SessionMode = "expanding"
)

type SessionView struct {
	Mode      SessionMode
	Draft     *models.PlacedItem
	Valid     bool
	AnchorID  string
	Direction models.Direction
	Previews  []models.PlacedItem
}

// View содержит снимок состояния для отрисовки.
type View struct {
	LayoutID     string
	Bounds       models.Bounds
	Items        []models.PlacedItem
	Selected     string
	Session      SessionView
	PersistError string
}

// ============================================================
// Layout Store
// ============================================================

type Options struct {
	LayoutID    string
	Space       *grid.Space
	Items       []models.PlacedItem
	Outbox      *Outbox
	Logger      *log.Logger
	MergePolicy MergePolicy
	NewID       func() string
}

// Store владеет раскладкой и единственный меняет её.
// Все вызовы сериализуются замком.
type Store struct {
	mu         sync.Mutex
	layoutID   string
	space      *grid.Space
	list       []models.PlacedItem
	selected   string
	placement  *PlacementSession
	merge      *MergeSession
	outbox     *Outbox
	logger     *log.Logger
	newID      func() string
	persistErr error

	listeners []subscription
	nextSubID int
	pending   []Event
}

type subscription struct {
	id int
	fn Listener
}

func NewStore(opts Options) *Store {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	space := opts.Space
	if space == nil {
		space = grid.New(models.Bounds{Width: 20, Depth: 15}, grid.DefaultCellSize)
	}

	list := make([]models.PlacedItem, 0, len(opts.Items))
	for _, item := range opts.Items {
		list = append(list, item.Clone())
	}

	return &Store{
		layoutID:  opts.LayoutID,
		space:     space,
		list:      list,
		placement: NewPlacementSession(space, newID),
		merge:     NewMergeSession(space, newID, opts.MergePolicy),
		outbox:    opts.Outbox,
		logger:    logger.With("layout", opts.LayoutID),
		newID:     newID,
	}
}

func (s *Store) LayoutID() string {
	return s.layoutID
}

func (s *Store) Space() *grid.Space {
	return s.space
}

// Subscribe регистрирует потребителя; возвращённая функция отписывает его.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Store) Items() []models.PlacedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.list)
}

func (s *Store) Item(id string) (models.PlacedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.find(id)
	return item.Clone(), ok
}

// PersistError возвращает последнюю ошибку хранения.
func (s *Store) PersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

func (s *Store) ClearPersistError() {
	s.do(func() {
		if s.persistErr != nil {
			s.persistErr = nil
			s.notify(EventLayoutChanged)
		}
	})
}

// ============================================================
// Mutations
// ============================================================

// AddItem добавляет готовый объект. При конфликте размещения или активной сессии молча отказывает.
func (s *Store) AddItem(item models.PlacedItem) (ok bool, err error) {
	s.do(func() {
		if err = grid.Validate(item.Size); err != nil {
			return
		}
		if item.Kind == nil {
			item.Kind = models.Standard{}
		}
		if item.IsMerged() {
			item.Rotation = 0
		} else if item.Rotation, err = normalizeRotation(item.Rotation); err != nil {
			return
		}
		if item.ID == "" {
			item.ID = s.newID()
		}
		if _, exists := s.find(item.ID); exists {
			err = models.Invalid("id", "duplicate item id")
			return
		}
		if s.busy() {
			s.logger.Debug("add rejected: session active", "item", item.ID)
			return
		}
		if !s.space.CanPlace(item.Position, item.Size, s.list) {
			s.logger.Debug("add rejected: placement conflict", "item", item.ID)
			return
		}
		s.insert(item.Clone())
		ok = true
	})
	return ok, err
}

// RemoveItem удаляет объект; активные сессии, связанные с ним, отменяются.
func (s *Store) RemoveItem(id string) (err error) {
	s.do(func() {
		item, found := s.find(id)
		if !found {
			err = models.ErrItemNotFound
			return
		}
		if dragged, ok := s.placement.DraggedID(); ok && dragged == id {
			s.placement.Cancel()
			s.notify(EventSessionChanged)
		}
		if anchor, ok := s.merge.AnchorID(); ok && anchor == id {
			s.merge.Cancel()
			s.notify(EventSessionChanged)
		}

		s.list = grid.Without(s.list, id)
		s.persist(OpDelete, item)
		s.notify(EventLayoutChanged)

		if s.selected == id {
			s.selected = ""
			s.notify(EventSelectionChanged)
		}
	})
	return err
}

// MoveItem переносит необъединённый объект, если новая позиция допустима.
func (s *Store) MoveItem(id string, pos models.Position) (ok bool, err error) {
	s.do(func() {
		item, found := s.find(id)
		if !found {
			err = models.ErrItemNotFound
			return
		}
		if item.IsMerged() || item.Position == pos || s.busy() {
			return
		}
		if !s.space.CanPlace(pos, item.Size, grid.Without(s.list, id)) {
			return
		}
		s.relocate(id, pos)
		ok = true
	})
	return ok, err
}

// RotateItem задаёт поворот (кратный 90). Объединённые объекты не поворачиваются.
func (s *Store) RotateItem(id string, degrees int) (ok bool, err error) {
	s.do(func() {
		idx := s.index(id)
		if idx < 0 {
			err = models.ErrItemNotFound
			return
		}
		var rotation int
		if rotation, err = normalizeRotation(degrees); err != nil {
			return
		}
		item := s.list[idx]
		if item.IsMerged() || item.Rotation == rotation || s.busy() {
			return
		}
		item.Rotation = rotation
		s.list[idx] = item
		s.persist(OpUpdate, item)
		s.notify(EventLayoutChanged)
		ok = true
	})
	return ok, err
}

// Associate привязывает обычный объект к столу внешней системы.
func (s *Store) Associate(id, externalID string) (ok bool, err error) {
	if externalID == "" {
		return false, models.Invalid("tableId", "must not be empty")
	}
	s.do(func() {
		ok, err = s.setKind(id, models.Associated{ExternalID: externalID})
	})
	return ok, err
}

func (s *Store) Dissociate(id string) (ok bool, err error) {
	s.do(func() {
		ok, err = s.setKind(id, models.Standard{})
	})
	return ok, err
}

func (s *Store) setKind(id string, kind models.Kind) (bool, error) {
	idx := s.index(id)
	if idx < 0 {
		return false, models.ErrItemNotFound
	}
	if s.busy() {
		return false, nil
	}
	item := s.list[idx]
	switch current := item.Kind.(type) {
	case models.Merged:
		return false, nil
	case models.Associated:
		if next, same := kind.(models.Associated); same && next == current {
			return false, nil
		}
	case nil, models.Standard:
		if _, same := kind.(models.Standard); same {
			return false, nil
		}
	}
	item.Kind = kind
	s.list[idx] = item
	s.persist(OpUpdate, item)
	s.notify(EventLayoutChanged)
	return true, nil
}

// Select выделяет объект; пустой id снимает выделение.
func (s *Store) Select(id string) (err error) {
	s.do(func() {
		err = s.selectLocked(id)
	})
	return err
}

func (s *Store) selectLocked(id string) error {
	if id != "" {
		if _, ok := s.find(id); !ok {
			return models.ErrItemNotFound
		}
	}
	if s.selected == id {
		return nil
	}
	s.selected = id
	s.notify(EventSelectionChanged)
	return nil
}

// ============================================================
// Placement delegation
// ============================================================

func (s *Store) StartPlacing(entry models.CatalogEntry) (ok bool, err error) {
	s.do(func() {
		if s.merge.Expanding() {
			return
		}
		if ok, err = s.placement.StartPlacing(s, entry); ok {
			s.notify(EventSessionChanged)
		}
	})
	return ok, err
}

// UpdatePlacement двигает черновик (или переносимый объект) и возвращает допустимость позиции.
func (s *Store) UpdatePlacement(pos models.Position) (valid bool) {
	s.do(func() {
		if s.placement.Mode() == PlacementIdle {
			return
		}
		valid = s.placement.UpdatePosition(s, pos)
		s.notify(EventSessionChanged)
	})
	return valid
}

func (s *Store) ConfirmPlacement() (item models.PlacedItem, ok bool) {
	s.do(func() {
		if item, ok = s.placement.Confirm(s); ok {
			s.notify(EventSessionChanged)
			_ = s.selectLocked(item.ID)
		}
	})
	return item, ok
}

// StartDrag начинает перенос; для объединённого объекта это просто выделение.
func (s *Store) StartDrag(id string) (ok bool, err error) {
	s.do(func() {
		if s.merge.Expanding() || s.placement.Mode() != PlacementIdle {
			return
		}
		if ok, err = s.placement.StartDrag(s, id); err != nil {
			return
		}
		err = s.selectLocked(id)
		if ok {
			s.notify(EventSessionChanged)
		}
	})
	return ok, err
}

func (s *Store) ReleaseDrag(pos models.Position) (committed bool) {
	s.do(func() {
		if s.placement.Mode() != PlacementDragging {
			return
		}
		committed = s.placement.Release(s, pos)
		s.notify(EventSessionChanged)
	})
	return committed
}

// ============================================================
// Merge delegation
// ============================================================

func (s *Store) StartMerge(id string) (ok bool, err error) {
	s.do(func() {
		if s.placement.Mode() != PlacementIdle {
			return
		}
		if ok, err = s.merge.Start(s, id); ok {
			_ = s.selectLocked(id)
			s.notify(EventSessionChanged)
		}
	})
	return ok, err
}

func (s *Store) UpdateMerge(cursor models.Position) {
	s.do(func() {
		if !s.merge.Expanding() {
			return
		}
		s.merge.Update(s, cursor)
		s.notify(EventSessionChanged)
	})
}

func (s *Store) ConfirmMerge() (item models.PlacedItem, ok bool) {
	s.do(func() {
		expanding := s.merge.Expanding()
		item, ok = s.merge.Confirm(s)
		if ok || expanding && !s.merge.Expanding() {
			s.notify(EventSessionChanged)
		}
	})
	return item, ok
}

// Cancel отменяет активную сессию, если она есть.
func (s *Store) Cancel() (ok bool) {
	s.do(func() {
		if s.placement.Cancel() || s.merge.Cancel() {
			ok = true
			s.notify(EventSessionChanged)
		}
	})
	return ok
}

// ============================================================
// board (вызывается под замком)
// ============================================================

func (s *Store) items() []models.PlacedItem {
	return s.list
}

func (s *Store) find(id string) (models.PlacedItem, bool) {
	if idx := s.index(id); idx >= 0 {
		return s.list[idx], true
	}
	return models.PlacedItem{}, false
}

func (s *Store) index(id string) int {
	for i, item := range s.list {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) insert(item models.PlacedItem) {
	s.list = append(s.list, item)
	s.persist(OpCreate, item)
	s.notify(EventLayoutChanged)
}

func (s *Store) relocate(id string, pos models.Position) {
	idx := s.index(id)
	if idx < 0 {
		return
	}
	s.list[idx].Position = pos
	s.persist(OpUpdate, s.list[idx])
	s.notify(EventLayoutChanged)
}

func (s *Store) replace(oldID string, item models.PlacedItem) {
	if old, ok := s.find(oldID); ok {
		s.list = grid.Without(s.list, oldID)
		s.persist(OpDelete, old)
	}
	s.list = append(s.list, item)
	s.persist(OpCreate, item)
	s.notify(EventLayoutChanged)

	if s.selected == oldID {
		s.selected = item.ID
		s.notify(EventSelectionChanged)
	}
}

// ============================================================
// Helpers
// ============================================================

// busy: пока открыта сессия размещения или слияния, прямые правки раскладки не применяются.
func (s *Store) busy() bool {
	return s.merge.Expanding() || s.placement.Mode() != PlacementIdle
}

// do выполняет fn под замком и рассылает накопленные события после его снятия.
func (s *Store) do(fn func()) {
	s.mu.Lock()
	fn()
	events := s.pending
	s.pending = nil
	listeners := append([]subscription(nil), s.listeners...)
	s.mu.Unlock()

	for _, e := range events {
		for _, sub := range listeners {
			sub.fn(e)
		}
	}
}

func (s *Store) notify(t EventType) {
	s.pending = append(s.pending, Event{Type: t, View: s.viewLocked()})
}

func (s *Store) persist(op CommandOp, item models.PlacedItem) {
	if s.outbox == nil {
		return
	}
	cmd := Command{
		Op:       op,
		LayoutID: s.layoutID,
		Item:     models.ToPayload(item),
		OnError:  s.recordPersistError,
	}
	if err := s.outbox.Enqueue(cmd); err != nil {
		s.persistErr = err
	}
}

func (s *Store) recordPersistError(err error) {
	s.do(func() {
		s.persistErr = err
		s.notify(EventLayoutChanged)
	})
}

func (s *Store) viewLocked() View {
	v := View{
		LayoutID: s.layoutID,
		Bounds:   s.space.Bounds(),
		Items:    cloneItems(s.list),
		Selected: s.selected,
		Session:  SessionView{Mode: ModeIdle},
	}
	if s.persistErr != nil {
		v.PersistError = s.persistErr.Error()
	}

	switch {
	case s.placement.Mode() != PlacementIdle:
		draft, valid, _ := s.placement.Draft()
		v.Session.Mode = ModePlacing
		if s.placement.Mode() == PlacementDragging {
			v.Session.Mode = ModeDragging
		}
		v.Session.Draft = &draft
		v.Session.Valid = valid
	case s.merge.Expanding():
		anchor, _ := s.merge.AnchorID()
		v.Session.Mode = ModeExpanding
		v.Session.AnchorID = anchor
		v.Session.Direction = s.merge.Direction()
		v.Session.Previews = s.merge.Previews()
		v.Session.Valid = true
	}
	return v
}

func cloneItems(items []models.PlacedItem) []models.PlacedItem {
	out := make([]models.PlacedItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out
}

func normalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, models.Invalid("rotation", "must be a multiple of 90")
	}
	r := degrees % 360
	if r < 0 {
		r += 360
	}
	return r, nil
}
