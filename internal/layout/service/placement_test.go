package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floor-designer/internal/layout/models"
)

func TestPlaceItemOnEmptyCell(t *testing.T) {
	f := newFixture(t)

	ok, err := f.store.StartPlacing(seatEntry())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, f.store.Items(), "draft must not be in the layout")

	assert.True(t, f.store.UpdatePlacement(models.Position{X: 0, Z: 0}))
	item, ok := f.store.ConfirmPlacement()
	require.True(t, ok)

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, models.Position{X: 0, Z: 0}, items[0].Position)
	assert.Equal(t, "seat-single", items[0].Metadata["catalogId"])
	assert.Equal(t, ModeIdle, f.store.View().Session.Mode)
	assert.Equal(t, item.ID, f.store.View().Selected)
}

func TestPlaceItemOnOccupiedCellIsNoop(t *testing.T) {
	f := newFixture(t, seatAt("existing", 0, 0))

	_, err := f.store.StartPlacing(seatEntry())
	require.NoError(t, err)
	assert.False(t, f.store.UpdatePlacement(models.Position{X: 0, Z: 0}))

	_, ok := f.store.ConfirmPlacement()
	assert.False(t, ok)
	assert.Len(t, f.store.Items(), 1)

	view := f.store.View()
	assert.Equal(t, ModePlacing, view.Session.Mode, "failed confirm keeps the session open")
	assert.False(t, view.Session.Valid)

	assert.True(t, f.store.UpdatePlacement(models.Position{X: 1, Z: 0}))
	_, ok = f.store.ConfirmPlacement()
	assert.True(t, ok)
	assert.Len(t, f.store.Items(), 2)
	requireInvariants(t, f.store)
}

func TestPlaceOutOfBoundsIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.StartPlacing(seatEntry())
	require.NoError(t, err)

	assert.False(t, f.store.UpdatePlacement(models.Position{X: 11, Z: 0}))
	_, ok := f.store.ConfirmPlacement()
	assert.False(t, ok)
	assert.Empty(t, f.store.Items())
}

func TestStartPlacingValidatesSize(t *testing.T) {
	f := newFixture(t)
	entry := seatEntry()
	entry.Size.Width = 0

	ok, err := f.store.StartPlacing(entry)
	assert.False(t, ok)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, ModeIdle, f.store.View().Session.Mode)
}

func TestCancelPlacingDiscardsDraft(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.StartPlacing(seatEntry())
	require.NoError(t, err)
	f.store.UpdatePlacement(models.Position{X: 3, Z: 3})

	assert.True(t, f.store.Cancel())
	assert.Empty(t, f.store.Items())
	assert.Equal(t, ModeIdle, f.store.View().Session.Mode)

	f.flush()
	assert.Empty(t, f.gateway.ops())
}

func TestDragCommitsValidPosition(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0), seatAt("b", 2, 0))

	ok, err := f.store.StartDrag("a")
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, f.store.UpdatePlacement(models.Position{X: 0, Z: 0}), "own cell is not a conflict")
	assert.True(t, f.store.UpdatePlacement(models.Position{X: 0, Z: 3}))
	item, _ := f.store.Item("a")
	assert.Equal(t, models.Position{X: 0, Z: 0}, item.Position, "drag does not mutate the layout before release")

	assert.True(t, f.store.ReleaseDrag(models.Position{X: 0, Z: 3}))
	item, _ = f.store.Item("a")
	assert.Equal(t, models.Position{X: 0, Z: 3}, item.Position)

	f.flush()
	assert.Equal(t, []string{"update:a"}, f.gateway.ops())
}

func TestDragReleaseOnConflictReverts(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0), seatAt("b", 2, 0))

	_, err := f.store.StartDrag("a")
	require.NoError(t, err)
	assert.False(t, f.store.UpdatePlacement(models.Position{X: 2, Z: 0}))
	assert.False(t, f.store.ReleaseDrag(models.Position{X: 2, Z: 0}))

	item, _ := f.store.Item("a")
	assert.Equal(t, models.Position{X: 0, Z: 0}, item.Position)
	assert.Equal(t, ModeIdle, f.store.View().Session.Mode)
	requireInvariants(t, f.store)
}

func TestCancelDragRestoresOriginal(t *testing.T) {
	f := newFixture(t, seatAt("a", 0, 0))
	before := f.store.Items()

	_, err := f.store.StartDrag("a")
	require.NoError(t, err)
	for x := 1; x <= 5; x++ {
		f.store.UpdatePlacement(models.Position{X: x, Z: 1})
	}
	assert.True(t, f.store.Cancel())
	assert.Equal(t, before, f.store.Items())
}

func TestDragMergedItemOnlySelects(t *testing.T) {
	merged := seatAt("long", 0, 0)
	merged.Size.Width = 3
	merged.Kind = models.Merged{Direction: models.Horizontal}
	f := newFixture(t, merged)

	ok, err := f.store.StartDrag("long")
	require.NoError(t, err)
	assert.False(t, ok)

	view := f.store.View()
	assert.Equal(t, ModeIdle, view.Session.Mode)
	assert.Equal(t, "long", view.Selected)
}

func TestStartDragUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.StartDrag("ghost")
	assert.ErrorIs(t, err, models.ErrItemNotFound)
}
