package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func TestFlagCache(t *testing.T) {
	c := NewFlagCache(time.Minute, time.Minute)

	_, ok := c.All()
	assert.False(t, ok)

	c.SetAll([]types.FeatureFlag{{Name: "a"}, {Name: "b"}})
	c.Set(types.FeatureFlag{Name: "a", Title: "A"})

	all, ok := c.All()
	require.True(t, ok)
	assert.Len(t, all, 2)

	one, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", one.Title)

	c.Invalidate("a")
	_, ok = c.All()
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestFlagCache_Expires(t *testing.T) {
	c := NewFlagCache(10*time.Millisecond, time.Minute)
	c.Set(types.FeatureFlag{Name: "short"})
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("short")
	assert.False(t, ok)
}
