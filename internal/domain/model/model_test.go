package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, time.UTC)
}

func TestBuildSchedule(t *testing.T) {
	articles := []Article{
		{ID: 4, Title: "closing", StartDate: at(2, 16)},
		{ID: 3, Title: "late", StartDate: at(1, 15)},
		{ID: 1, Title: "keynote", StartDate: at(1, 9)},
		{ID: 2, Title: "parallel", StartDate: at(1, 9)},
		// 23:30 in UTC-2 is the next day in UTC.
		{ID: 5, Title: "offset", StartDate: time.Date(2025, time.March, 2, 23, 30, 0, 0, time.FixedZone("", -2*3600))},
	}

	schedule := BuildSchedule(articles)
	require.Equal(t, []string{"2025-03-01", "2025-03-02", "2025-03-03"}, schedule.Dates())

	var firstDay []int64
	for _, a := range schedule["2025-03-01"] {
		firstDay = append(firstDay, a.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, firstDay)
	assert.Len(t, schedule["2025-03-02"], 1)
	assert.Equal(t, int64(5), schedule["2025-03-03"][0].ID)
}

func TestBuildScheduleEmpty(t *testing.T) {
	schedule := BuildSchedule(nil)
	assert.Empty(t, schedule)
	assert.Empty(t, schedule.Dates())
	assert.NotNil(t, schedule)
}

func TestQuestionKindValid(t *testing.T) {
	assert.True(t, KindConference.Valid())
	assert.True(t, KindArticle.Valid())
	assert.False(t, QuestionKind("track").Valid())
	assert.False(t, QuestionKind("").Valid())
}
