package model

import "time"

type Track struct {
	ID           int64      `json:"id"`
	ConferenceID int64      `json:"conference_id"`
	Name         string     `json:"name"`
	Room         *string    `json:"room,omitempty"`
	Description  string     `json:"description"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Articles     []Article  `json:"articles,omitempty"`
}
