package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/testutil"
)

func TestTrackCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.conference(t, "Tracks")
	room := "A1"
	start := testutil.Day(2025, time.March, 1, 9*time.Hour)
	end := testutil.Day(2025, time.March, 1, 17*time.Hour)

	tr, err := env.tracks.CreateTrack(ctx, env.admin, c.ID, TrackInput{
		Name: "Systems", Room: &room, Description: "Low level", StartDate: &start, EndDate: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, tr.ConferenceID)

	got, err := env.tracks.GetTrack(ctx, c.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Systems", got.Name)
	require.NotNil(t, got.StartDate)
	assert.True(t, got.StartDate.Equal(start))

	updated, err := env.tracks.UpdateTrack(ctx, env.admin, c.ID, tr.ID, TrackInput{Name: "Systems & Infra"})
	require.NoError(t, err)
	assert.Equal(t, "Systems & Infra", updated.Name)
	assert.Nil(t, updated.Room)

	list, err := env.tracks.ListTracks(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Systems & Infra", list[0].Name)
}

func TestTrackScopedByConference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c1 := env.conference(t, "One")
	c2 := env.conference(t, "Two")
	tr := env.track(t, c1.ID, "Only in one")

	_, err := env.tracks.GetTrack(ctx, c2.ID, tr.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = env.tracks.UpdateTrack(ctx, env.admin, c2.ID, tr.ID, TrackInput{Name: "hijack"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, env.tracks.DeleteTrack(ctx, env.admin, c2.ID, tr.ID), common.ErrNotFound)

	_, err = env.tracks.ListTracks(ctx, c2.ID+100)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = env.tracks.CreateTrack(ctx, env.admin, c2.ID+100, TrackInput{Name: "nowhere"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTrackValidationAndPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.conference(t, "Rules")
	start := testutil.Day(2025, time.March, 2, 0)
	end := testutil.Day(2025, time.March, 1, 0)

	_, err := env.tracks.CreateTrack(ctx, env.admin, c.ID, TrackInput{Name: "bad", StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, common.ErrValidation)

	// One date alone is fine.
	_, err = env.tracks.CreateTrack(ctx, env.admin, c.ID, TrackInput{Name: "open ended", StartDate: &start})
	assert.NoError(t, err)

	_, err = env.tracks.CreateTrack(ctx, env.alice, c.ID, TrackInput{Name: "mine"})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestDeleteTrackCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.conference(t, "Cascade")
	doomed := env.track(t, c.ID, "Doomed")
	kept := env.track(t, c.ID, "Kept")
	a := env.article(t, c.ID, doomed.ID, "Gone", "X", testutil.Day(2025, time.March, 1, 0))
	b := env.article(t, c.ID, kept.ID, "Stays", "Y", testutil.Day(2025, time.March, 1, 0))
	_, err := env.questions.Ask(ctx, env.alice, model.KindArticle, a.ID, "q1")
	require.NoError(t, err)
	_, err = env.questions.Ask(ctx, env.alice, model.KindArticle, b.ID, "q2")
	require.NoError(t, err)
	_, err = env.questions.Ask(ctx, env.alice, model.KindConference, c.ID, "q3")
	require.NoError(t, err)

	require.NoError(t, env.tracks.DeleteTrack(ctx, env.admin, c.ID, doomed.ID))

	assert.Equal(t, 1, env.count(t, "tracks"))
	assert.Equal(t, 1, env.count(t, "articles"))
	assert.Equal(t, 2, env.count(t, "questions"))
	_, err = env.articles.GetArticle(ctx, c.ID, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.conference(t, "Schedule")
	tr := env.track(t, c.ID, "Main")
	start, err := time.Parse(time.RFC3339, "2025-03-01T09:00:00Z")
	require.NoError(t, err)
	a := env.article(t, c.ID, tr.ID, "Opening", "Chair", start)

	schedule, err := env.tracks.GetSchedule(ctx, c.ID, tr.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"2025-03-01"}, schedule.Dates())
	require.Len(t, schedule["2025-03-01"], 1)
	assert.Equal(t, a.ID, schedule["2025-03-01"][0].ID)
}

func TestGetScheduleGroupsAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.conference(t, "Two days")
	tr := env.track(t, c.ID, "Main")
	late := env.article(t, c.ID, tr.ID, "Day one late", "A", testutil.Day(2025, time.March, 1, 15*time.Hour))
	second := env.article(t, c.ID, tr.ID, "Day two", "B", testutil.Day(2025, time.March, 2, 9*time.Hour))
	early := env.article(t, c.ID, tr.ID, "Day one early", "C", testutil.Day(2025, time.March, 1, 9*time.Hour))

	schedule, err := env.tracks.GetSchedule(ctx, c.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-01", "2025-03-02"}, schedule.Dates())
	day1 := schedule["2025-03-01"]
	require.Len(t, day1, 2)
	assert.Equal(t, early.ID, day1[0].ID)
	assert.Equal(t, late.ID, day1[1].ID)
	assert.Equal(t, second.ID, schedule["2025-03-02"][0].ID)

	raw, err := json.Marshal(schedule)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(raw), "2025-03-01"), strings.Index(string(raw), "2025-03-02"))

	empty := env.track(t, c.ID, "Empty")
	s, err := env.tracks.GetSchedule(ctx, c.ID, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, s)
}
