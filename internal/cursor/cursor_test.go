package cursor

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 3, 394939} {
		got, err := CursorToOffset(OffsetToCursor(offset))
		require.NoError(t, err)
		assert.Equal(t, offset, got)
	}
}

func TestOffsetToCursor_Format(t *testing.T) {
	assert.Equal(t, "YXJyYXljb25uZWN0aW9uOjA=", OffsetToCursor(0))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("arrayconnection:12")), OffsetToCursor(12))
}

func TestOffsetToCursor_Monotonic(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c := OffsetToCursor(i)
		assert.False(t, seen[c], "cursor %d repeated", i)
		seen[c] = true
	}
}

func TestCursorToOffset_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not base64", "***"},
		{"wrong prefix", base64.StdEncoding.EncodeToString([]byte("cursor:1"))},
		{"not a number", base64.StdEncoding.EncodeToString([]byte("arrayconnection:abc"))},
		{"negative", base64.StdEncoding.EncodeToString([]byte("arrayconnection:-1"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CursorToOffset(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestAfterOffset(t *testing.T) {
	offset, ok, err := AfterOffset("")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, offset)

	offset, ok, err = AfterOffset(OffsetToCursor(3))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, offset)

	_, _, err = AfterOffset("garbage!")
	assert.Error(t, err)
}
