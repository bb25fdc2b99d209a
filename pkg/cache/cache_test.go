package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(context.Background(), 10*time.Millisecond)
	t.Cleanup(c.Close)
	return c
}

func TestMemoryCacheGetSetDel(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t)

	_, err := c.Get(ctx, "metatypes:1")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "metatypes:1", []byte(`{"name":"Asset"}`), time.Minute))
	got, err := c.Get(ctx, "metatypes:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Asset"}`, string(got))

	require.NoError(t, c.Del(ctx, "metatypes:1"))
	_, err = c.Get(ctx, "metatypes:1")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 5*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return err == ErrMiss
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCacheFlushByPattern(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t)

	for _, k := range []string{"metatypes:1", "metatypes:1:keys", "metatypes:2", "metatype_relationships:1"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, c.FlushByPattern(ctx, "metatypes:1*"))

	_, err := c.Get(ctx, "metatypes:1")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, "metatypes:1:keys")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, "metatypes:2")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "metatype_relationships:1")
	assert.NoError(t, err)

	assert.Error(t, c.FlushByPattern(ctx, "["))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t)

	type row struct {
		Name string `json:"name"`
	}
	_, ok, err := GetJSON[row](ctx, c, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, "row", row{Name: "Asset"}, time.Minute))
	v, ok, err := GetJSON[row](ctx, c, "row")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Asset", v.Name)
}

func TestMetricsWrapper(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "memory")
	require.NoError(t, err)
	c := WithMetrics(newMemory(t), m)

	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Del(ctx, "a"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sets))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deletes))

	_, err = NewMetrics(reg, "memory")
	require.Error(t, err)
}
