package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sheetcheck/internal/models"
)

const progressTTL = time.Hour

// ProgressKey is the Redis key holding the transient progress of one run.
func ProgressKey(runID int) string {
	return fmt.Sprintf("validation:progress:%d", runID)
}

// ProgressPublisher writes run progress to Redis so the web side can poll it
// while the worker executes. A nil Redis client disables publishing.
type ProgressPublisher struct {
	redis *redis.Client
}

func NewProgressPublisher(redisClient *redis.Client) *ProgressPublisher {
	return &ProgressPublisher{redis: redisClient}
}

// Publish stores the current progress with a TTL. Publish failures are
// ignored: progress is advisory and must never fail a run.
func (p *ProgressPublisher) Publish(ctx context.Context, progress models.RunProgress) {
	if p.redis == nil {
		return
	}
	payload, err := json.Marshal(progress)
	if err != nil {
		return
	}
	p.redis.Set(ctx, ProgressKey(progress.RunID), payload, progressTTL)
}

// Get reads the stored progress for a run. Returns nil when nothing is
// published, which callers treat as "not currently processing".
func (p *ProgressPublisher) Get(ctx context.Context, runID int) (*models.RunProgress, error) {
	if p.redis == nil {
		return nil, nil
	}
	payload, err := p.redis.Get(ctx, ProgressKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run progress: %w", err)
	}
	var progress models.RunProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode run progress: %w", err)
	}
	return &progress, nil
}
