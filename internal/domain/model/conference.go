package model

import "time"

type Conference struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Location    *string   `json:"location,omitempty"` // free-text venue
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	City        *string   `json:"city,omitempty"` // derived by reverse geocoding
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Tracks      []Track   `json:"tracks,omitempty"`
}

// ConferenceLocation is the coordinates-only projection of a conference.
type ConferenceLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      *string `json:"city,omitempty"`
}
