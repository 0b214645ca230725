package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKind(t *testing.T) {
	meta := map[string]any{"seats": 4, "merged": false, "tableId": "stale"}

	out := EncodeKind(Merged{Direction: Vertical}, meta)
	assert.Equal(t, map[string]any{"seats": 4, "merged": true, "direction": "vertical"}, out)
	assert.Equal(t, "stale", meta["tableId"], "input metadata is not modified")

	out = EncodeKind(Associated{ExternalID: "T-3"}, nil)
	assert.Equal(t, map[string]any{"tableId": "T-3"}, out)

	out = EncodeKind(Standard{}, meta)
	assert.Equal(t, map[string]any{"seats": 4}, out)
}

func TestDecodeKind(t *testing.T) {
	tests := []struct {
		name    string
		meta    map[string]any
		want    Kind
		rest    map[string]any
		wantErr bool
	}{
		{"empty", nil, Standard{}, map[string]any{}, false},
		{"merged", map[string]any{"merged": true, "direction": "horizontal", "x": 1}, Merged{Direction: Horizontal}, map[string]any{"x": 1}, false},
		{"associated", map[string]any{"tableId": "T-9"}, Associated{ExternalID: "T-9"}, map[string]any{}, false},
		{"merged wins over table", map[string]any{"merged": true, "direction": "vertical", "tableId": "T-9"}, Merged{Direction: Vertical}, map[string]any{}, false},
		{"empty table id", map[string]any{"tableId": ""}, Standard{}, map[string]any{}, false},
		{"bad direction", map[string]any{"merged": true, "direction": "diagonal"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, rest, err := DecodeKind(tt.meta)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestFromPayloadRejectsBadMetadata(t *testing.T) {
	_, err := FromPayload(ItemPayload{ID: "x", Metadata: map[string]any{"merged": true}})
	assert.True(t, IsValidation(err))
}

func TestPayloadKeepsKind(t *testing.T) {
	item := PlacedItem{
		ID:       "bench",
		Size:     Size{Width: 3, Height: 1, Depth: 1},
		Kind:     Merged{Direction: Horizontal},
		Metadata: map[string]any{"catalogId": "seat-single"},
	}
	back, err := FromPayload(ToPayload(item))
	require.NoError(t, err)
	assert.Equal(t, item, back)
}
