package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"studysphere-tracker/internal/domain"
)

// PassageLoader fetches the passage catalog from a backing store.
type PassageLoader interface {
	LoadPassages(ctx context.Context) ([]domain.Passage, error)
}

// PassageIndex caches the passage→subject index in Redis and falls back to a
// loader on cache miss:
//
//	HSET passages:subjects {passageID} {subject}
//
// Only the fields progress aggregation needs are cached; titles are dropped.
type PassageIndex struct {
	client *redis.Client
	loader PassageLoader
	key    string
	ttl    time.Duration
	sf     singleflight.Group
	logger *zap.Logger
	rnd    *rand.Rand
}

func NewPassageIndex(client *redis.Client, loader PassageLoader, prefix string, ttl time.Duration, logger *zap.Logger) *PassageIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PassageIndex{
		logger: logger,
		client: client,
		loader: loader,
		key:    prefix + "passages:subjects",
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *PassageIndex) Passages(ctx context.Context) ([]domain.Passage, error) {
	subjects, err := p.client.HGetAll(ctx, p.key).Result()
	if err == nil && len(subjects) > 0 {
		return passagesFromIndex(subjects), nil
	}

	result, err, _ := p.sf.Do(p.key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		subjects, err := p.client.HGetAll(ctx, p.key).Result()
		if err == nil && len(subjects) > 0 {
			return passagesFromIndex(subjects), nil
		}

		passages, err := p.loader.LoadPassages(ctx)
		if err != nil {
			return nil, err
		}
		if len(passages) == 0 {
			// an empty hash is indistinguishable from a miss; don't cache
			return passages, nil
		}

		fields := make(map[string]interface{}, len(passages))
		for _, passage := range passages {
			// first catalog entry wins on duplicate ids
			if _, dup := fields[passage.ID]; !dup {
				fields[passage.ID] = passage.Subject
			}
		}
		pipe := p.client.TxPipeline()
		pipe.Del(ctx, p.key)
		pipe.HSet(ctx, p.key, fields)
		if ttl := p.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, p.key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			// the loaded catalog is still served
			p.logger.Debug("passage index fill failed", zap.String("key", p.key), zap.Error(err))
		}

		return passages, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Passage), nil
}

// Invalidate removes the cached index.
func (p *PassageIndex) Invalidate(ctx context.Context) error {
	return p.client.Del(ctx, p.key).Err()
}

func passagesFromIndex(subjects map[string]string) []domain.Passage {
	passages := make([]domain.Passage, 0, len(subjects))
	for id, subject := range subjects {
		passages = append(passages, domain.Passage{ID: id, Subject: subject})
	}
	return passages
}

func (p *PassageIndex) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	jitterMax := int64(p.ttl) / 10
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}
