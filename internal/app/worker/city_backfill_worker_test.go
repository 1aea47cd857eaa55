package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/platform/geocoding"
	"github.com/neiios/dam-project-server/internal/testutil"
)

type recordingResolver struct {
	mu   sync.Mutex
	ids  []int64
	errs map[int64]error
}

func (r *recordingResolver) ResolveCity(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return r.errs[id]
}

func (r *recordingResolver) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

// sliceSource hands out ids and then reports timeouts like an empty Redis list.
type sliceSource struct {
	mu  sync.Mutex
	ids []int64
}

func (s *sliceSource) Name() string { return "test" }

func (s *sliceSource) Dequeue(ctx context.Context, timeout time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	if len(s.ids) == 0 {
		s.mu.Unlock()
		time.Sleep(timeout)
		return 0, redis.Nil
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	s.mu.Unlock()
	return id, nil
}

func TestProcessToleratesEveryOutcome(t *testing.T) {
	resolver := &recordingResolver{errs: map[int64]error{
		2: common.ErrNotFound,
		3: geocoding.ErrNoCity,
		4: errors.New("upstream 502"),
	}}
	w := NewCityBackfillWorker(nil, &sliceSource{}, resolver, "lock")

	for id := int64(1); id <= 4; id++ {
		assert.NotPanics(t, func() { w.process(context.Background(), id) })
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, resolver.seen())
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Minute))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}

func TestStartDrainsQueue(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)

	resolver := &recordingResolver{}
	source := &sliceSource{ids: []int64{10, 11, 12}}
	w := NewCityBackfillWorker(rdb, source, resolver, "city_backfill_lock")
	w.pollTimeout = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(resolver.seen()) == 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, []int64{10, 11, 12}, resolver.seen())
	assert.False(t, mr.Exists("city_backfill_lock"), "lock released after each lookup")
}

func TestProcessWithLockWaitsForHolder(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	require.NoError(t, mr.Set("city_backfill_lock", "other-instance"))

	resolver := &recordingResolver{}
	w := NewCityBackfillWorker(rdb, &sliceSource{}, resolver, "city_backfill_lock")

	done := make(chan struct{})
	go func() {
		w.processWithLock(context.Background(), 42)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, resolver.seen(), "lookup must wait while another instance holds the lock")

	mr.Del("city_backfill_lock")
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lookup did not run after the lock was freed")
	}
	assert.Equal(t, []int64{42}, resolver.seen())
	assert.False(t, mr.Exists("city_backfill_lock"))
}

func TestProcessWithLockGivesUpOnCancel(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	require.NoError(t, mr.Set("city_backfill_lock", "other-instance"))

	resolver := &recordingResolver{}
	w := NewCityBackfillWorker(rdb, &sliceSource{}, resolver, "city_backfill_lock")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.processWithLock(ctx, 42)

	assert.Empty(t, resolver.seen())
	got, err := mr.Get("city_backfill_lock")
	require.NoError(t, err)
	assert.Equal(t, "other-instance", got, "a foreign lock is never released")
}

func TestReleaseLockOnlyDeletesOwnValue(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("lock", "owner"))

	n, err := releaseLock.Run(ctx, rdb, []string{"lock"}, "intruder").Int()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, mr.Exists("lock"))

	n, err = releaseLock.Run(ctx, rdb, []string{"lock"}, "owner").Int()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, mr.Exists("lock"))
}
