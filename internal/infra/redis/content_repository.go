package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
)

// ContentRepository caches test-plus-questions bundles in Redis as JSON
// (key exam:{testID}:content) and falls back to a loader on cache miss.
type ContentRepository struct {
	client *redis.Client
	loader memory.ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

type contentBundle struct {
	Test      domain.Test       `json:"test"`
	Questions []domain.Question `json:"questions"`
}

func NewContentRepository(client *redis.Client, loader memory.ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	bundle, err := r.get(ctx, testID)
	if err != nil {
		return domain.Test{}, err
	}
	return bundle.Test, nil
}

func (r *ContentRepository) GetQuestions(ctx context.Context, testID string) ([]domain.Question, error) {
	bundle, err := r.get(ctx, testID)
	if err != nil {
		return nil, err
	}
	return bundle.Questions, nil
}

func (r *ContentRepository) get(ctx context.Context, testID string) (contentBundle, error) {
	key := r.key(testID)

	if bundle, ok := r.fromCache(ctx, key); ok {
		return bundle, nil
	}

	result, err, _ := r.sf.Do(testID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bundle, ok := r.fromCache(ctx, key); ok {
			return bundle, nil
		}

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return contentBundle{}, err
		}
		questions, err := r.loader.LoadQuestions(ctx, testID)
		if err != nil {
			return contentBundle{}, err
		}

		bundle := contentBundle{Test: test, Questions: questions}
		if raw, err := json.Marshal(bundle); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return bundle, nil
	})
	if err != nil {
		return contentBundle{}, err
	}
	return result.(contentBundle), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, key string) (contentBundle, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return contentBundle{}, false
	}
	var bundle contentBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return contentBundle{}, false
	}
	return bundle, true
}

func (r *ContentRepository) key(testID string) string {
	return "exam:" + testID + ":content"
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
