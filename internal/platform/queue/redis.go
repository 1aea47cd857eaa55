package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect returns a client after checking the server answers PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	slog.Info("Successfully connected to Redis", "addr", addr)
	return rdb, nil
}

// IDQueue is a FIFO of numeric ids kept in a Redis list: LPUSH to enqueue, BRPOP to take.
type IDQueue struct {
	rdb  *redis.Client
	name string
}

func NewIDQueue(rdb *redis.Client, name string) *IDQueue {
	return &IDQueue{rdb: rdb, name: name}
}

func (q *IDQueue) Name() string { return q.name }

func (q *IDQueue) Enqueue(ctx context.Context, id int64) error {
	if err := q.rdb.LPush(ctx, q.name, id).Err(); err != nil {
		return fmt.Errorf("enqueue %d on %s: %w", id, q.name, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next id. It returns redis.Nil when the
// wait timed out with nothing queued.
func (q *IDQueue) Dequeue(ctx context.Context, timeout time.Duration) (int64, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		return 0, err
	}
	// res is [queueName, value]
	if len(res) < 2 {
		return 0, fmt.Errorf("unexpected BRPOP reply from %s: %v", q.name, res)
	}
	id, err := strconv.ParseInt(res[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed id %q on %s: %w", res[1], q.name, err)
	}
	return id, nil
}
