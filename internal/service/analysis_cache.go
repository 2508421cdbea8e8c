package service

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

// CacheKey derives the stable cache key for an analysis: content hash,
// analysis type, sorted guideline identifiers and provider identity.
// Provider is part of the key because different providers may legitimately
// produce different scores for the same protocol.
func CacheKey(protocolText string, analysisType models.AnalysisType, guidelineIDs []string, provider models.ProviderIdentity) string {
	ids := make([]string, len(guidelineIDs))
	for i, id := range guidelineIDs {
		ids[i] = strings.ToLower(id)
	}
	sort.Strings(ids)

	contentHash := md5.Sum([]byte(protocolText))
	return hex.EncodeToString(contentHash[:]) + ":" + string(analysisType) + ":" + strings.Join(ids, ",") + ":" + string(provider)
}

// analysisCacheEntry stores a cached result with its insertion time.
type analysisCacheEntry struct {
	result    *models.AnalysisResult
	timestamp time.Time
}

// AnalysisCache memoizes analysis results to avoid redundant provider calls.
// Entries expire after the configured TTL; when full, the oldest-inserted
// entry is evicted.
type AnalysisCache struct {
	cache   map[string]*analysisCacheEntry
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration
	logger  *zap.Logger
}

// NewAnalysisCache creates an AnalysisCache.
func NewAnalysisCache(maxSize int, ttl time.Duration, logger *zap.Logger) *AnalysisCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &AnalysisCache{
		cache:   make(map[string]*analysisCacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger,
	}
}

// Get retrieves a cached result if it exists and has not exceeded its TTL.
// The caller receives a shallow copy: request-scoped metadata can be
// restamped on it without mutating the cached entry.
func (c *AnalysisCache) Get(key string) (*models.AnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}

	age := time.Since(entry.timestamp)
	if age > c.ttl {
		// Expired — cleaned up lazily on the next Put at capacity
		return nil, false
	}

	keyPreview := key
	if len(keyPreview) > 12 {
		keyPreview = keyPreview[:12]
	}
	c.logger.Debug("analysis cache hit",
		zap.String("key", keyPreview),
		zap.Duration("age", age))

	result := *entry.result
	return &result, true
}

// Put stores a result in the cache.
func (c *AnalysisCache) Put(key string, result *models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict oldest if at capacity and key is new
	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxSize {
		c.evictOldest()
	}

	c.cache[key] = &analysisCacheEntry{
		result:    result,
		timestamp: time.Now(),
	}
}

// Clear removes all entries from the cache.
func (c *AnalysisCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*analysisCacheEntry)
}

// Size returns the current number of entries.
func (c *AnalysisCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// evictOldest removes the oldest entry. Must be called with lock held.
func (c *AnalysisCache) evictOldest() {
	if len(c.cache) == 0 {
		return
	}
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, v := range c.cache {
		if first || v.timestamp.Before(oldestTime) {
			oldestKey = k
			oldestTime = v.timestamp
			first = false
		}
	}
	delete(c.cache, oldestKey)
}
