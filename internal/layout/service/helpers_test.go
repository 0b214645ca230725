package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
)

// room 20x15 => x in [-10,10], z in [-7,7]
var testBounds = models.Bounds{Width: 20, Depth: 15}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func seatEntry() models.CatalogEntry {
	return models.CatalogEntry{
		ID:        "seat-single",
		Type:      "seat",
		Name:      "Single seat",
		Size:      models.Size{Width: 1, Height: 1, Depth: 1},
		Color:     "#8B4513",
		Mergeable: true,
	}
}

func seatAt(id string, x, z int) models.PlacedItem {
	return models.PlacedItem{
		ID:        id,
		Type:      "seat",
		Name:      "Single seat",
		Position:  models.Position{X: x, Z: z},
		Size:      models.Size{Width: 1, Height: 1, Depth: 1},
		Mergeable: true,
		Kind:      models.Standard{},
	}
}

func blockAt(id string, x, z int) models.PlacedItem {
	item := seatAt(id, x, z)
	item.Type = "decor"
	item.Mergeable = false
	return item
}

type recordingGateway struct {
	mu       sync.Mutex
	commands []Command
	fail     error
}

func (g *recordingGateway) record(op CommandOp, layoutID string, item models.ItemPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands = append(g.commands, Command{Op: op, LayoutID: layoutID, Item: item})
	return g.fail
}

func (g *recordingGateway) CreateItem(_ context.Context, layoutID string, item models.ItemPayload) error {
	return g.record(OpCreate, layoutID, item)
}

func (g *recordingGateway) UpdateItem(_ context.Context, layoutID string, item models.ItemPayload) error {
	return g.record(OpUpdate, layoutID, item)
}

func (g *recordingGateway) DeleteItem(_ context.Context, layoutID, itemID string) error {
	return g.record(OpDelete, layoutID, models.ItemPayload{ID: itemID})
}

func (g *recordingGateway) ops() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.commands))
	for _, c := range g.commands {
		out = append(out, string(c.Op)+":"+c.Item.ID)
	}
	return out
}

type fixture struct {
	store   *Store
	outbox  *Outbox
	gateway *recordingGateway
	events  []Event
}

func newFixture(t *testing.T, items ...models.PlacedItem) *fixture {
	t.Helper()
	return newFixtureWithPolicy(t, MergeLenient, items...)
}

func newFixtureWithPolicy(t *testing.T, policy MergePolicy, items ...models.PlacedItem) *fixture {
	t.Helper()
	f := &fixture{gateway: &recordingGateway{}}
	f.outbox = NewOutbox(f.gateway, 64, quietLogger())
	f.store = NewStore(Options{
		LayoutID:    "hall",
		Space:       grid.New(testBounds, 40),
		Items:       items,
		Outbox:      f.outbox,
		Logger:      quietLogger(),
		MergePolicy: policy,
		NewID:       sequentialIDs("item"),
	})
	f.store.Subscribe(func(e Event) { f.events = append(f.events, e) })
	return f
}

func (f *fixture) flush() {
	f.outbox.Flush(context.Background())
}

// requireInvariants проверяет отсутствие пересечений и выход за границы.
func requireInvariants(t *testing.T, s *Store) {
	t.Helper()
	items := s.Items()
	for i := range items {
		for _, c := range grid.OccupiedCells(items[i].Position, items[i].Size) {
			require.True(t, s.Space().InBounds(c.X, c.Z), "item %s cell %v out of bounds", items[i].ID, c)
		}
		for j := i + 1; j < len(items); j++ {
			require.False(t, grid.Overlaps(items[i], items[j]), "items %s and %s overlap", items[i].ID, items[j].ID)
		}
	}
}

var errBoom = errors.New("disk full")
