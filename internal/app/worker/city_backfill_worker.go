package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/platform/geocoding"
)

// CityResolver looks up and stores the city of one conference.
type CityResolver interface {
	ResolveCity(ctx context.Context, conferenceID int64) error
}

// IDSource hands out queued conference ids.
type IDSource interface {
	Name() string
	Dequeue(ctx context.Context, timeout time.Duration) (int64, error)
}

// CityBackfillWorker drains the backfill queue. Lookups are serialized across
// instances with a Redis lock so replicas together stay inside the geocoder's
// rate limit.
type CityBackfillWorker struct {
	rdb         *redis.Client
	source      IDSource
	resolver    CityResolver
	lockKey     string
	lockTTL     time.Duration
	pollTimeout time.Duration
}

func NewCityBackfillWorker(rdb *redis.Client, source IDSource, resolver CityResolver, lockKey string) *CityBackfillWorker {
	return &CityBackfillWorker{
		rdb:         rdb,
		source:      source,
		resolver:    resolver,
		lockKey:     lockKey,
		lockTTL:     30 * time.Second,
		pollTimeout: 5 * time.Second,
	}
}

var releaseLock = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

// Start blocks until ctx is cancelled.
func (w *CityBackfillWorker) Start(ctx context.Context) {
	slog.Info("City backfill worker started", "queue", w.source.Name())
	for {
		if ctx.Err() != nil {
			slog.Info("City backfill worker stopping")
			return
		}

		id, err := w.source.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				// poll timeout, nothing queued
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				slog.Info("City backfill worker stopping")
				return
			default:
				slog.Error("Failed to pop from backfill queue", "queue", w.source.Name(), "error", err)
				sleep(ctx, 5*time.Second)
			}
			continue
		}

		w.processWithLock(ctx, id)
	}
}

func (w *CityBackfillWorker) processWithLock(ctx context.Context, id int64) {
	lockValue := uuid.NewString()
	for {
		ok, err := w.rdb.SetNX(ctx, w.lockKey, lockValue, w.lockTTL).Result()
		if err != nil {
			slog.Error("Failed to acquire backfill lock", "conference_id", id, "error", err)
			return
		}
		if ok {
			break
		}
		// Another instance is mid-lookup.
		if !sleep(ctx, time.Second) {
			return
		}
	}

	defer func() {
		// Release on a fresh context so shutdown does not strand the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, w.rdb, []string{w.lockKey}, lockValue).Err(); err != nil {
			slog.Error("Failed to release backfill lock", "key", w.lockKey, "error", err)
		}
	}()

	w.process(ctx, id)
}

// process resolves one conference. Failures are logged and dropped; the
// scheduled rescan queues the conference again later.
func (w *CityBackfillWorker) process(ctx context.Context, id int64) {
	err := w.resolver.ResolveCity(ctx, id)
	switch {
	case err == nil:
		slog.Info("Conference city backfilled", "conference_id", id)
	case errors.Is(err, common.ErrNotFound):
		slog.Info("Conference deleted before city backfill", "conference_id", id)
	case errors.Is(err, geocoding.ErrNoCity):
		slog.Warn("No city at conference coordinates", "conference_id", id)
	default:
		slog.Error("City backfill failed", "conference_id", id, "error", err)
	}
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
