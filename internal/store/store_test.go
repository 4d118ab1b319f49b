package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, KeyToken, "abc"))
	v, ok, err := m.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, m.Delete(ctx, KeyToken))
	_, ok, _ = m.Get(ctx, KeyToken)
	assert.False(t, ok)

	// deleting a missing key is fine
	assert.NoError(t, m.Delete(ctx, "missing"))
	assert.NoError(t, m.Close())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	tests := []struct {
		name     string
		setup    func()
		wantOK   bool
		wantErr  bool
		wantVals []string
	}{
		{
			name:   "missing key",
			setup:  func() {},
			wantOK: false,
		},
		{
			name: "round trip",
			setup: func() {
				require.NoError(t, SetJSON(ctx, m, KeyFavorites, []string{"France", "Japan"}))
			},
			wantOK:   true,
			wantVals: []string{"France", "Japan"},
		},
		{
			name: "corrupt value",
			setup: func() {
				require.NoError(t, m.Set(ctx, KeyFavorites, "{not-a-list"))
			},
			wantOK:  true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			var got []string
			ok, err := GetJSON(ctx, m, KeyFavorites, &got)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr {
				assert.True(t, IsCorrupt(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVals, got)
		})
	}
}
