package service

import (
	"sync"
	"time"

	"github.com/user/protoscribe-go/internal/models"
)

// ProviderBudget holds the per-minute request and token limits for one
// provider. A zero limit means unlimited.
type ProviderBudget struct {
	RequestsPerMinute int
	TokensPerMinute   int
}

// minuteBucket accumulates request and token counts for one minute window.
type minuteBucket struct {
	requests int
	tokens   int
}

// ProviderRateLimiter enforces per-provider request-per-minute and
// token-per-minute budgets with per-minute buckets. It is an advisory,
// in-process limiter: its job is to keep a single process from tripping
// vendor-side throttling, not to coordinate across a cluster.
type ProviderRateLimiter struct {
	mu      sync.Mutex
	budgets map[models.ProviderIdentity]ProviderBudget
	buckets map[models.ProviderIdentity]map[int64]*minuteBucket
	now     func() time.Time
}

// NewProviderRateLimiter creates a limiter with the given per-provider budgets.
func NewProviderRateLimiter(budgets map[models.ProviderIdentity]ProviderBudget) *ProviderRateLimiter {
	return &ProviderRateLimiter{
		budgets: budgets,
		buckets: make(map[models.ProviderIdentity]map[int64]*minuteBucket),
		now:     time.Now,
	}
}

// CheckAndReserve returns false if adding one request with estimatedTokens
// would exceed either budget for the current minute. Otherwise it reserves
// the capacity atomically and returns true.
func (rl *ProviderRateLimiter) CheckAndReserve(provider models.ProviderIdentity, estimatedTokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	budget, ok := rl.budgets[provider]
	if !ok {
		return true
	}

	minute := rl.now().Unix() / 60

	providerBuckets := rl.buckets[provider]
	if providerBuckets == nil {
		providerBuckets = make(map[int64]*minuteBucket)
		rl.buckets[provider] = providerBuckets
	}

	bucket := providerBuckets[minute]
	if bucket == nil {
		bucket = &minuteBucket{}
		providerBuckets[minute] = bucket
		rl.pruneLocked(providerBuckets, minute)
	}

	if budget.RequestsPerMinute > 0 && bucket.requests+1 > budget.RequestsPerMinute {
		return false
	}
	if budget.TokensPerMinute > 0 && bucket.tokens+estimatedTokens > budget.TokensPerMinute {
		return false
	}

	bucket.requests++
	bucket.tokens += estimatedTokens
	return true
}

// Usage reports the current minute's consumed requests and tokens.
func (rl *ProviderRateLimiter) Usage(provider models.ProviderIdentity) (requests, tokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	minute := rl.now().Unix() / 60
	if bucket := rl.buckets[provider][minute]; bucket != nil {
		return bucket.requests, bucket.tokens
	}
	return 0, 0
}

// pruneLocked drops buckets older than a few minutes to bound memory.
// Must be called with the lock held.
func (rl *ProviderRateLimiter) pruneLocked(buckets map[int64]*minuteBucket, currentMinute int64) {
	for m := range buckets {
		if currentMinute-m > 3 {
			delete(buckets, m)
		}
	}
}
