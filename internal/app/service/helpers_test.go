package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neiios/dam-project-server/internal/common/security"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/domain/policy"
	"github.com/neiios/dam-project-server/internal/domain/repository"
	"github.com/neiios/dam-project-server/internal/platform/metrics"
	"github.com/neiios/dam-project-server/internal/testutil"
)

const testSecret = "test-secret-key-that-is-32-bytes!"

type fakeGeocoder struct {
	mu    sync.Mutex
	city  string
	err   error
	calls int
}

func (g *fakeGeocoder) ReverseCity(context.Context, float64, float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.city, g.err
}

func (g *fakeGeocoder) set(city string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.city, g.err = city, err
}

var errGeocoderDown = errors.New("geocoder unavailable")

type fakeQueue struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *fakeQueue) queued() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int64(nil), q.ids...)
}

// testEnv wires every service against one SQLite database.
type testEnv struct {
	db        *sql.DB
	geocoder  *fakeGeocoder
	queue     *fakeQueue
	metrics   *metrics.Metrics
	tokens    *security.TokenAuth
	auth      *AuthService
	confs     *ConferenceService
	tracks    *TrackService
	articles  *ArticleService
	questions *QuestionService

	admin *policy.Principal
	alice *policy.Principal
	bob   *policy.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	userRepo := repository.NewPgUserRepository(db)
	confRepo := repository.NewPgConferenceRepository(db)
	trackRepo := repository.NewPgTrackRepository(db)
	articleRepo := repository.NewPgArticleRepository(db)
	questionRepo := repository.NewPgQuestionRepository(db)

	tokens, err := security.NewTokenAuth([]byte(testSecret), time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		geocoder: &fakeGeocoder{city: "Vilnius"},
		queue:    &fakeQueue{},
		metrics:  metrics.New(),
		tokens:   tokens,
	}
	env.auth = NewAuthService(userRepo, tokens)
	env.confs = NewConferenceService(db, confRepo, trackRepo, articleRepo, questionRepo, env.geocoder, env.queue, env.metrics)
	env.tracks = NewTrackService(db, confRepo, trackRepo, articleRepo, questionRepo)
	env.articles = NewArticleService(confRepo, trackRepo, articleRepo)
	env.questions = NewQuestionService(questionRepo, confRepo, articleRepo, env.metrics)

	env.admin = principalOf(testutil.InsertUser(t, db, "admin", model.RoleAdmin))
	env.alice = principalOf(testutil.InsertUser(t, db, "alice", model.RoleUser))
	env.bob = principalOf(testutil.InsertUser(t, db, "bob", model.RoleUser))
	return env
}

func principalOf(u *model.User) *policy.Principal {
	return &policy.Principal{ID: u.ID, Role: u.Role}
}

func (e *testEnv) conference(t *testing.T, name string) *model.Conference {
	t.Helper()
	c, err := e.confs.CreateConference(context.Background(), e.admin, ConferenceInput{
		Name:        name,
		Latitude:    54.6872,
		Longitude:   25.2797,
		StartDate:   testutil.Day(2025, time.March, 1, 0),
		EndDate:     testutil.Day(2025, time.March, 3, 0),
		Description: "About " + name,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) track(t *testing.T, conferenceID int64, name string) *model.Track {
	t.Helper()
	tr, err := e.tracks.CreateTrack(context.Background(), e.admin, conferenceID, TrackInput{Name: name})
	require.NoError(t, err)
	return tr
}

func (e *testEnv) article(t *testing.T, conferenceID, trackID int64, title, authors string, start time.Time) *model.Article {
	t.Helper()
	a, err := e.articles.CreateArticle(context.Background(), e.admin, conferenceID, trackID, ArticleInput{
		Title:     title,
		Authors:   authors,
		Abstract:  "Abstract of " + title,
		StartDate: start,
		EndDate:   start.Add(45 * time.Minute),
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n))
	return n
}
