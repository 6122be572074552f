package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const batchStampLayout = "20060102-150405"

// BatchIDGenerator returns ids shaped BATCH-YYYYMMDD-HHMMSS-NNNN for batches
// generated at the given instant.
type BatchIDGenerator interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

type RandomBatchIDGenerator struct{}

func (RandomBatchIDGenerator) Next(_ context.Context, at time.Time) (string, error) {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("BATCH-%s-%s", at.Format(batchStampLayout), suffix), nil
}

// RedisBatchIDGenerator numbers the batches of each second with a shared
// counter, so replicas never hand out the same id.
type RedisBatchIDGenerator struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisBatchIDGenerator(client redis.Cmdable) *RedisBatchIDGenerator {
	return &RedisBatchIDGenerator{
		client: client,
		prefix: "reimbursement:batch-seq:",
		ttl:    time.Minute,
	}
}

func (g *RedisBatchIDGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	stamp := at.Format(batchStampLayout)
	key := g.prefix + stamp

	n, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate batch sequence: %w", err)
	}
	if n == 1 {
		if err := g.client.Expire(ctx, key, g.ttl).Err(); err != nil {
			return "", fmt.Errorf("failed to expire batch sequence: %w", err)
		}
	}
	if n > 9999 {
		return "", fmt.Errorf("batch sequence for %s exhausted", stamp)
	}

	return fmt.Sprintf("BATCH-%s-%04d", stamp, n), nil
}
