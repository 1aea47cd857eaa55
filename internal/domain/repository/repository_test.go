package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/testutil"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholders(1, 1))
	assert.Equal(t, "$3, $4, $5", placeholders(3, 3))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%quantum%", likePattern("Quantum"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b\\c%`, likePattern(`a_b\c`))
}

func newConference(t *testing.T, repo ConferenceRepository, name string) *model.Conference {
	t.Helper()
	c := &model.Conference{
		Name:        name,
		Slug:        name,
		StartDate:   testutil.Day(2025, time.June, 1, 0),
		EndDate:     testutil.Day(2025, time.June, 2, 0),
		Description: name,
	}
	require.NoError(t, repo.Create(context.Background(), nil, c))
	return c
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPgUserRepository(db)
	ctx := context.Background()

	u := &model.User{Name: "Ann", Email: "ann@example.com", HashedPassword: "x", Role: model.RoleUser, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, u))
	assert.Positive(t, u.ID)

	got, err := repo.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.FindByID(ctx, u.ID+1)
	assert.ErrorIs(t, err, common.ErrNotFound)

	dup := *u
	assert.ErrorIs(t, repo.Create(ctx, &dup), common.ErrConflict)
}

func TestTrackListByConferences(t *testing.T) {
	db := testutil.NewDB(t)
	confs := NewPgConferenceRepository(db)
	tracks := NewPgTrackRepository(db)
	ctx := context.Background()

	a := newConference(t, confs, "a")
	b := newConference(t, confs, "b")
	c := newConference(t, confs, "c")
	for _, conf := range []*model.Conference{a, b, c, a} {
		require.NoError(t, tracks.Create(ctx, nil, &model.Track{ConferenceID: conf.ID, Name: "t"}))
	}

	got, err := tracks.ListByConferences(ctx, []int64{a.ID, c.ID})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	none, err := tracks.ListByConferences(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWithTxRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	confs := NewPgConferenceRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		c := &model.Conference{Name: "tx", Slug: "tx", Description: "tx",
			StartDate: testutil.Day(2025, time.June, 1, 0), EndDate: testutil.Day(2025, time.June, 1, 0)}
		if err := confs.Create(ctx, tx, c); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := confs.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConferenceCityLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	confs := NewPgConferenceRepository(db)
	ctx := context.Background()

	c := newConference(t, confs, "nocity")
	ids, err := confs.ListMissingCity(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids)

	require.NoError(t, confs.SetCity(ctx, c.ID, "Tallinn"))
	got, err := confs.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.City)
	assert.Equal(t, "Tallinn", *got.City)

	ids, err = confs.ListMissingCity(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.ErrorIs(t, confs.SetCity(ctx, c.ID+1, "Nowhere"), common.ErrNotFound)
}

func TestQuestionAnswerTransition(t *testing.T) {
	db := testutil.NewDB(t)
	confs := NewPgConferenceRepository(db)
	questions := NewPgQuestionRepository(db)
	ctx := context.Background()
	user := testutil.InsertUser(t, db, "asker", model.RoleUser)
	c := newConference(t, confs, "q")

	q := &model.Question{Kind: model.KindConference, TargetID: c.ID, UserID: user.ID, Question: "why?"}
	require.NoError(t, questions.Create(ctx, q))
	assert.Equal(t, model.QuestionPending, q.Status)

	answered, err := questions.Answer(ctx, model.KindConference, q.ID, "because", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, answered.IsAnswered())

	_, err = questions.Answer(ctx, model.KindConference, q.ID, "again", time.Now().UTC())
	assert.ErrorIs(t, err, common.ErrConflict)

	status := model.QuestionAnswered
	list, err := questions.List(ctx, QuestionFilter{Kind: model.KindConference, Status: &status})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := questions.CountByTarget(ctx, model.KindConference, c.ID, model.QuestionPending)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDateRangeConstraints(t *testing.T) {
	db := testutil.NewDB(t)
	confs := NewPgConferenceRepository(db)
	tracks := NewPgTrackRepository(db)
	articles := NewPgArticleRepository(db)
	ctx := context.Background()

	start := testutil.Day(2025, time.June, 2, 0)
	before := testutil.Day(2025, time.June, 1, 0)

	err := confs.Create(ctx, nil, &model.Conference{Name: "bad", Slug: "bad", Description: "bad", StartDate: start, EndDate: before})
	assert.Error(t, err, "conference ending before it starts")

	c := newConference(t, confs, "ok")
	err = tracks.Create(ctx, nil, &model.Track{ConferenceID: c.ID, Name: "bad", StartDate: &start, EndDate: &before})
	assert.Error(t, err, "track ending before it starts")

	tr := &model.Track{ConferenceID: c.ID, Name: "open", StartDate: &start}
	require.NoError(t, tracks.Create(ctx, nil, tr))

	err = articles.Create(ctx, nil, &model.Article{ConferenceID: c.ID, TrackID: tr.ID, Title: "bad", Authors: "a", Abstract: "a", StartDate: start, EndDate: before})
	assert.Error(t, err, "article ending before it starts")

	require.NoError(t, articles.Create(ctx, nil, &model.Article{ConferenceID: c.ID, TrackID: tr.ID, Title: "ok", Authors: "a", Abstract: "a", StartDate: start, EndDate: start}))
}
