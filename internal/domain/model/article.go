package model

import (
	"sort"
	"time"
)

type Article struct {
	ID           int64     `json:"id"`
	ConferenceID int64     `json:"conference_id"`
	TrackID      int64     `json:"track_id"`
	Title        string    `json:"title"`
	Authors      string    `json:"authors"`
	Abstract     string    `json:"abstract"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// ScheduleDateLayout is the key format of a Schedule.
const ScheduleDateLayout = "2006-01-02"

// Schedule groups articles by the UTC calendar date of their start.
// encoding/json writes map keys sorted, so the wire form is ordered by date.
type Schedule map[string][]Article

// BuildSchedule groups articles by start date; each day is ordered by start time, then id.
func BuildSchedule(articles []Article) Schedule {
	schedule := Schedule{}
	for _, a := range articles {
		day := a.StartDate.UTC().Format(ScheduleDateLayout)
		schedule[day] = append(schedule[day], a)
	}
	for _, day := range schedule {
		sort.SliceStable(day, func(i, j int) bool {
			if !day[i].StartDate.Equal(day[j].StartDate) {
				return day[i].StartDate.Before(day[j].StartDate)
			}
			return day[i].ID < day[j].ID
		})
	}
	return schedule
}

// Dates returns the schedule's days in ascending order.
func (s Schedule) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
