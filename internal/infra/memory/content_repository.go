package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"assessment-engine/internal/domain"
)

// ContentLoader fetches test content from a backing store.
type ContentLoader interface {
	LoadTest(ctx context.Context, testID string) (domain.Test, error)
	LoadQuestions(ctx context.Context, testID string) ([]domain.Question, error)
}

// ContentRepository caches test-plus-questions bundles with TTL to avoid
// repeated backing-store hits while many students poll the same test.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type testContent struct {
	test      domain.Test
	questions []domain.Question
}

type cachedContent struct {
	content   testContent
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (r *ContentRepository) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	content, err := r.get(ctx, testID)
	if err != nil {
		return domain.Test{}, err
	}
	return content.test, nil
}

func (r *ContentRepository) GetQuestions(ctx context.Context, testID string) ([]domain.Question, error) {
	content, err := r.get(ctx, testID)
	if err != nil {
		return nil, err
	}
	return content.questions, nil
}

func (r *ContentRepository) get(ctx context.Context, testID string) (testContent, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(testID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return testContent{}, err
		}
		questions, err := r.loader.LoadQuestions(ctx, testID)
		if err != nil {
			return testContent{}, err
		}

		content := testContent{test: test, questions: questions}
		r.mu.Lock()
		r.cache[testID] = cachedContent{
			content:   content,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return testContent{}, err
	}
	return result.(testContent), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
