package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("answers.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("answers.model", "gpt-4.1"))

	val, ok := store.Get("answers.model")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4.1", val)

	_, ok = store.Get("answers.site_name")
	assert.False(t, ok)
}

func TestNewConfigStoreFrom_CopiesValues(t *testing.T) {
	seed := map[string]any{"answers.max_posts": 10}
	store := NewConfigStoreFrom(seed)

	seed["answers.max_posts"] = 99

	assert.Equal(t, 10, store.GetInt("answers.max_posts"))
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"answers.site_name": "Docs",
		"answers.max_posts": 12,
	})

	assert.Equal(t, "Docs", store.GetString("answers.site_name"))
	assert.Equal(t, "", store.GetString("answers.max_posts"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_GetInt(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"int":     42,
		"int64":   int64(43),
		"float":   float64(44.7),
		"string":  " 45 ",
		"garbage": "forty-six",
		"bool":    true,
	})

	tests := []struct {
		key      string
		expected int
	}{
		{"int", 42},
		{"int64", 43},
		{"float", 44},
		{"string", 45},
		{"garbage", 0},
		{"bool", 0},
		{"missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, store.GetInt(tt.key))
		})
	}
}

func TestConfigStore_GetBool(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"native":  true,
		"string":  "true",
		"garbage": "yes please",
		"int":     1,
	})

	assert.True(t, store.GetBool("native"))
	assert.True(t, store.GetBool("string"))
	assert.False(t, store.GetBool("garbage"))
	assert.False(t, store.GetBool("int"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"native":    []string{"post", "page"},
		"decoded":   []any{"post", 3, "faq"},
		"multiline": "rival\n\n  competitor \n",
		"int":       5,
	})

	assert.Equal(t, []string{"post", "page"}, store.GetStringSlice("native"))
	assert.Equal(t, []string{"post", "faq"}, store.GetStringSlice("decoded"))
	assert.Equal(t, []string{"rival", "competitor"}, store.GetStringSlice("multiline"))
	assert.Nil(t, store.GetStringSlice("int"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SaveLoadArePersistenceFree(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("answers.enabled", true))

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	assert.True(t, store.GetBool("answers.enabled"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("answers.max_posts", n)
			_ = store.GetInt("answers.max_posts")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("answers.max_posts")
	assert.True(t, ok)
}
