//go:build !integration && !e2e
// +build !integration,!e2e

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

func TestCacheKey_Deterministic(t *testing.T) {
	key1 := CacheKey("protocol text", models.AnalysisComprehensive, []string{"consort", "spirit"}, models.ProviderOpenAI)
	key2 := CacheKey("protocol text", models.AnalysisComprehensive, []string{"consort", "spirit"}, models.ProviderOpenAI)
	assert.Equal(t, key1, key2)
}

func TestCacheKey_GuidelineOrderInsensitive(t *testing.T) {
	key1 := CacheKey("protocol text", models.AnalysisComprehensive, []string{"consort", "spirit"}, models.ProviderOpenAI)
	key2 := CacheKey("protocol text", models.AnalysisComprehensive, []string{"spirit", "consort"}, models.ProviderOpenAI)
	key3 := CacheKey("protocol text", models.AnalysisComprehensive, []string{"SPIRIT", "Consort"}, models.ProviderOpenAI)
	assert.Equal(t, key1, key2)
	assert.Equal(t, key1, key3)
}

func TestCacheKey_Sensitivity(t *testing.T) {
	base := CacheKey("protocol text", models.AnalysisComprehensive, []string{"consort"}, models.ProviderOpenAI)

	assert.NotEqual(t, base, CacheKey("other text", models.AnalysisComprehensive, []string{"consort"}, models.ProviderOpenAI))
	assert.NotEqual(t, base, CacheKey("protocol text", models.AnalysisClarity, []string{"consort"}, models.ProviderOpenAI))
	assert.NotEqual(t, base, CacheKey("protocol text", models.AnalysisComprehensive, []string{"spirit"}, models.ProviderOpenAI))
	assert.NotEqual(t, base, CacheKey("protocol text", models.AnalysisComprehensive, []string{"consort"}, models.ProviderAnthropic))
}

func TestAnalysisCache_PutGet(t *testing.T) {
	cache := NewAnalysisCache(10, time.Minute, zap.NewNop())

	result := &models.AnalysisResult{OverallScore: 85}
	cache.Put("key1", result)

	got, ok := cache.Get("key1")
	require.True(t, ok)
	assert.Equal(t, 85.0, got.OverallScore)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestAnalysisCache_GetReturnsIsolatedCopy(t *testing.T) {
	cache := NewAnalysisCache(10, time.Minute, zap.NewNop())

	cache.Put("key1", &models.AnalysisResult{
		OverallScore: 85,
		Metadata:     models.ResultMetadata{Provider: models.ProviderOpenAI},
	})

	first, ok := cache.Get("key1")
	require.True(t, ok)
	first.Metadata.RequestedProvider = models.ProviderAnthropic
	first.Metadata.FallbackUsed = true

	second, ok := cache.Get("key1")
	require.True(t, ok)
	assert.Empty(t, second.Metadata.RequestedProvider)
	assert.False(t, second.Metadata.FallbackUsed)
}

func TestAnalysisCache_TTLExpiry(t *testing.T) {
	cache := NewAnalysisCache(10, 10*time.Millisecond, zap.NewNop())

	cache.Put("key1", &models.AnalysisResult{OverallScore: 85})
	_, ok := cache.Get("key1")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get("key1")
	assert.False(t, ok, "entry should expire after TTL")
}

func TestAnalysisCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := NewAnalysisCache(2, time.Minute, zap.NewNop())

	cache.Put("first", &models.AnalysisResult{OverallScore: 1})
	time.Sleep(2 * time.Millisecond)
	cache.Put("second", &models.AnalysisResult{OverallScore: 2})
	time.Sleep(2 * time.Millisecond)
	cache.Put("third", &models.AnalysisResult{OverallScore: 3})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("first")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.Get("second")
	assert.True(t, ok)
	_, ok = cache.Get("third")
	assert.True(t, ok)
}

func TestAnalysisCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := NewAnalysisCache(2, time.Minute, zap.NewNop())

	cache.Put("a", &models.AnalysisResult{OverallScore: 1})
	cache.Put("b", &models.AnalysisResult{OverallScore: 2})
	cache.Put("a", &models.AnalysisResult{OverallScore: 10})

	assert.Equal(t, 2, cache.Size())
	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10.0, got.OverallScore)
}

func TestAnalysisCache_Clear(t *testing.T) {
	cache := NewAnalysisCache(10, time.Minute, zap.NewNop())
	cache.Put("a", &models.AnalysisResult{})
	cache.Put("b", &models.AnalysisResult{})

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
