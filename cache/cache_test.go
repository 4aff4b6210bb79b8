package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	AssetID string `json:"assetId"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "lazy:abc", Key("lazy", "abc"))
	assert.Equal(t, "abc", Key("", "abc"))
}

func TestNilRedisClientIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewCache[entry](nil, "lazy")

	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "a", &entry{AssetID: "x"}))
	assert.NoError(t, c.Delete(ctx, "a"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	var c ICache[entry] = NewMemory[entry]()

	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "a", &entry{AssetID: "x"}))
	v, err = c.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "x", v.AssetID)

	require.NoError(t, c.Delete(ctx, "a"))
	v, _ = c.Get(ctx, "a")
	assert.Nil(t, v)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory[entry]()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "a", &entry{AssetID: "x"}, time.Minute))
	now = now.Add(2 * time.Minute)

	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)
}
