package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("owner", "alice"))
	require.NoError(t, store.Set("owner", "bob"))

	val, ok := store.Get("owner")
	assert.True(t, ok)
	assert.Equal(t, "bob", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("storage.backend", "sqlite"))
	require.NoError(t, store.Set("retrieval.top_k", int64(5)))
	require.NoError(t, store.Set("segmenter.max_chunk_size", 500.0))
	require.NoError(t, store.Set("debug", true))
	require.NoError(t, store.Set("tags", []any{"a", 1, "b"}))

	assert.Equal(t, "sqlite", store.GetString("storage.backend"))
	assert.Equal(t, "", store.GetString("retrieval.top_k"))
	assert.Equal(t, 5, store.GetInt("retrieval.top_k"))
	assert.Equal(t, 500, store.GetInt("segmenter.max_chunk_size"))
	assert.Equal(t, 0, store.GetInt("storage.backend"))
	assert.True(t, store.GetBool("debug"))
	assert.False(t, store.GetBool("storage.backend"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("tags"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_GetFloat(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("ratio", 0.5))
	require.NoError(t, store.Set("count", 3))
	require.NoError(t, store.Set("wide", int64(7)))
	require.NoError(t, store.Set("name", "x"))

	assert.InDelta(t, 0.5, store.GetFloat("ratio"), 1e-9)
	assert.InDelta(t, 3.0, store.GetFloat("count"), 1e-9)
	assert.InDelta(t, 7.0, store.GetFloat("wide"), 1e-9)
	assert.Zero(t, store.GetFloat("name"))
	assert.Zero(t, store.GetFloat("missing"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key%d", i), i)
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key%d", i)))
	}
}
