package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floor-designer/internal/layout/models"
)

func TestAddItem(t *testing.T) {
	f := newFixture(t)

	ok, err := f.store.AddItem(seatAt("", 0, 0))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.store.AddItem(seatAt("", 0, 0))
	require.NoError(t, err)
	assert.False(t, ok, "conflicting add is a silent no-op")
	assert.Len(t, f.store.Items(), 1)

	_, err = f.store.AddItem(models.PlacedItem{Size: models.Size{Width: 1, Height: 0, Depth: 1}})
	assert.True(t, models.IsValidation(err))

	bad := seatAt("x", 3, 3)
	bad.Rotation = 45
	_, err = f.store.AddItem(bad)
	assert.True(t, models.IsValidation(err))

	_, err = f.store.AddItem(seatAt("item-1", 5, 5))
	assert.True(t, models.IsValidation(err), "duplicate id")
}

func TestMoveItemOntoOccupiedCellIsNoop(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0), seatAt("b", 1, 0))

	ok, err := f.store.MoveItem("a", models.Position{X: 1, Z: 0})
	require.NoError(t, err)
	assert.False(t, ok)
	item, _ := f.store.Item("a")
	assert.Equal(t, models.Position{X: 0, Z: 0}, item.Position)

	ok, err = f.store.MoveItem("a", models.Position{X: -10, Z: -7})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.MoveItem("a", models.Position{X: -11, Z: 0})
	require.NoError(t, err)
	assert.False(t, ok, "out of bounds")

	_, err = f.store.MoveItem("ghost", models.Position{})
	assert.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestRotateItem(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0))

	ok, err := f.store.RotateItem("a", 90)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.RotateItem("a", -90)
	require.NoError(t, err)
	assert.True(t, ok)
	item, _ := f.store.Item("a")
	assert.Equal(t, 270, item.Rotation)

	_, err = f.store.RotateItem("a", 30)
	assert.True(t, models.IsValidation(err))
}

func TestMergedItemIsImmutable(t *testing.T) {
	f := newFixture(t, seatAt("anchor", 0, 0))
	_, err := f.store.StartMerge("anchor")
	require.NoError(t, err)
	f.store.UpdateMerge(models.Position{X: 2, Z: 0})
	merged, ok := f.store.ConfirmMerge()
	require.True(t, ok)
	f.flush()
	before := f.store.Items()
	opsBefore := len(f.gateway.ops())

	ok, err = f.store.MoveItem(merged.ID, models.Position{X: 0, Z: 3})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.RotateItem(merged.ID, 90)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.StartDrag(merged.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.StartMerge(merged.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.Associate(merged.ID, "T-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, before, f.store.Items())
	f.flush()
	assert.Len(t, f.gateway.ops(), opsBefore)

	require.NoError(t, f.store.Select(merged.ID))
	require.NoError(t, f.store.RemoveItem(merged.ID))
	assert.Empty(t, f.store.Items())
	assert.Empty(t, f.store.View().Selected)
}

func TestRemoveItemCancelsDependentSession(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0))
	_, err := f.store.StartDrag("a")
	require.NoError(t, err)

	require.NoError(t, f.store.RemoveItem("a"))
	assert.Equal(t, ModeIdle, f.store.View().Session.Mode)
	assert.ErrorIs(t, f.store.RemoveItem("a"), models.ErrItemNotFound)
}

func TestSessionsAreExclusive(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0))

	_, err := f.store.StartPlacing(seatEntry())
	require.NoError(t, err)
	ok, err := f.store.StartMerge("a")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.store.StartDrag("a")
	require.NoError(t, err)
	assert.False(t, ok)

	f.store.Cancel()
	_, err = f.store.StartMerge("a")
	require.NoError(t, err)
	ok, err = f.store.StartPlacing(seatEntry())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssociate(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0))

	ok, err := f.store.Associate("a", "T-12")
	require.NoError(t, err)
	assert.True(t, ok)
	item, _ := f.store.Item("a")
	assert.Equal(t, models.Associated{ExternalID: "T-12"}, item.Kind)

	ok, err = f.store.Associate("a", "T-12")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.store.Associate("a", "")
	assert.True(t, models.IsValidation(err))

	ok, err = f.store.Dissociate("a")
	require.NoError(t, err)
	assert.True(t, ok)
	item, _ = f.store.Item("a")
	assert.Equal(t, models.Standard{}, item.Kind)

	f.flush()
	ops := f.gateway.ops()
	assert.Equal(t, []string{"update:a", "update:a"}, ops)
	assert.Equal(t, "T-12", f.gateway.commands[0].Item.Metadata["tableId"])
}

func TestSelect(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0))

	require.NoError(t, f.store.Select("a"))
	assert.Equal(t, "a", f.store.View().Selected)
	assert.ErrorIs(t, f.store.Select("ghost"), models.ErrItemNotFound)
	assert.Equal(t, "a", f.store.View().Selected)
	require.NoError(t, f.store.Select(""))
	assert.Empty(t, f.store.View().Selected)

	var selections int
	for _, e := range f.events {
		if e.Type == EventSelectionChanged {
			selections++
		}
	}
	assert.Equal(t, 2, selections)
}

func TestEventsFollowMutations(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.AddItem(seatAt("a", 0, 0))
	require.NoError(t, err)
	require.NotEmpty(t, f.events)
	last := f.events[len(f.events)-1]
	assert.Equal(t, EventLayoutChanged, last.Type)
	require.Len(t, last.View.Items, 1)

	f.events = nil
	_, err = f.store.MoveItem("a", models.Position{X: 1, Z: 1})
	require.NoError(t, err)
	require.Len(t, f.events, 1)
	assert.Equal(t, models.Position{X: 1, Z: 1}, f.events[0].View.Items[0].Position)
}

func TestPersistenceFailureKeepsMutation(t *testing.T) {
	f := newFixture(t)
	f.gateway.fail = errBoom

	ok, err := f.store.AddItem(seatAt("a", 0, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, f.store.PersistError(), "persistence is asynchronous")

	f.flush()
	assert.ErrorIs(t, f.store.PersistError(), errBoom)
	assert.Len(t, f.store.Items(), 1, "in-memory mutation is never rolled back")
	assert.Contains(t, f.store.View().PersistError, "disk full")

	f.store.ClearPersistError()
	assert.NoError(t, f.store.PersistError())
}

func TestOutboxOverflowIsRecorded(t *testing.T) {
	gw := &recordingGateway{}
	outbox := NewOutbox(gw, 1, quietLogger())
	store := NewStore(Options{LayoutID: "hall", Outbox: outbox, Logger: quietLogger()})

	_, err := store.AddItem(seatAt("a", 0, 0))
	require.NoError(t, err)
	_, err = store.AddItem(seatAt("b", 1, 0))
	require.NoError(t, err)

	assert.ErrorIs(t, store.PersistError(), ErrOutboxFull)
	assert.Len(t, store.Items(), 2)

	outbox.Flush(context.Background())
	assert.Equal(t, []string{"create:a"}, gw.ops())
}

// Случайная последовательность операций, включая слияния, не нарушает границы и непересечение.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := newFixtureWithPolicy(t, MergeStrict)
	entries := []models.CatalogEntry{
		seatEntry(),
		{ID: "table-4", Type: "table", Size: models.Size{Width: 2, Height: 1, Depth: 2}},
		{ID: "bar", Type: "bar", Size: models.Size{Width: 3, Height: 1, Depth: 1}},
	}
	randPos := func() models.Position {
		return models.Position{X: rng.Intn(25) - 12, Z: rng.Intn(19) - 9}
	}
	randID := func() string {
		items := f.store.Items()
		if len(items) == 0 {
			return ""
		}
		return items[rng.Intn(len(items))].ID
	}

	for i := 0; i < 500; i++ {
		switch rng.Intn(7) {
		case 0:
			if ok, _ := f.store.StartPlacing(entries[rng.Intn(len(entries))]); ok {
				f.store.UpdatePlacement(randPos())
				f.store.ConfirmPlacement()
				f.store.Cancel()
			}
		case 1:
			if id := randID(); id != "" {
				_, _ = f.store.MoveItem(id, randPos())
			}
		case 2:
			if id := randID(); id != "" {
				if ok, _ := f.store.StartDrag(id); ok {
					f.store.UpdatePlacement(randPos())
					f.store.ReleaseDrag(randPos())
				}
			}
		case 3:
			if id := randID(); id != "" {
				_, _ = f.store.RotateItem(id, 90*rng.Intn(4))
			}
		case 4:
			if id := randID(); id != "" && rng.Intn(4) == 0 {
				_ = f.store.RemoveItem(id)
			}
		case 5:
			_, _ = f.store.AddItem(models.PlacedItem{Type: "decor", Position: randPos(), Size: models.Size{Width: 1, Height: 1, Depth: 1}})
		case 6:
			if id := randID(); id != "" {
				if ok, _ := f.store.StartMerge(id); ok {
					f.store.UpdateMerge(randPos())
					if rng.Intn(2) == 0 {
						_, _ = f.store.MoveItem(id, randPos())
						_, _ = f.store.AddItem(models.PlacedItem{Type: "decor", Position: randPos(), Size: models.Size{Width: 1, Height: 1, Depth: 1}})
					}
					if _, confirmed := f.store.ConfirmMerge(); !confirmed {
						f.store.Cancel()
					}
				}
			}
		}
		requireInvariants(t, f.store)
	}
}

func TestLayoutEditsWaitForActiveSession(t *testing.T) {
	f := newFixture(t, seatAt("anchor", 0, 0), seatAt("other", 0, 3))

	ok, err := f.store.StartMerge("anchor")
	require.NoError(t, err)
	require.True(t, ok)
	f.store.UpdateMerge(models.Position{X: 3, Z: 0})

	ok, err = f.store.MoveItem("anchor", models.Position{X: 5, Z: 5})
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.store.MoveItem("other", models.Position{X: 0, Z: 0})
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.store.AddItem(seatAt("late", 1, 0))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.store.RotateItem("other", 90)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.store.Associate("other", "T-1")
	require.NoError(t, err)
	assert.False(t, ok)

	merged, ok := f.store.ConfirmMerge()
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 0, Z: 0}, merged.Position)
	assert.Equal(t, 4, merged.Size.Width)
	requireInvariants(t, f.store)

	_, err = f.store.StartPlacing(seatEntry())
	require.NoError(t, err)
	ok, err = f.store.MoveItem("other", models.Position{X: 5, Z: 5})
	require.NoError(t, err)
	assert.False(t, ok)

	f.store.Cancel()
	ok, err = f.store.MoveItem("other", models.Position{X: 5, Z: 5})
	require.NoError(t, err)
	assert.True(t, ok)
}
