package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTripAndEmpty(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2025, 3, 20, 8, 0, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("not-base64!")
	assert.Error(t, err)
}

func TestTrim(t *testing.T) {
	ids := []int{1, 2, 3}
	cursorOf := func(i int) Cursor { return Cursor{CreatedAt: time.Unix(int64(i), 0)} }

	page, next := Trim(ids, 2, cursorOf)
	assert.Equal(t, []int{1, 2}, page)
	require.NotNil(t, next)
	assert.Equal(t, time.Unix(2, 0), next.CreatedAt)

	page, next = Trim(ids, 5, cursorOf)
	assert.Equal(t, ids, page)
	assert.Nil(t, next)
}
