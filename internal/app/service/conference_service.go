package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gosimple/slug"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/domain/policy"
	"github.com/neiios/dam-project-server/internal/domain/repository"
	"github.com/neiios/dam-project-server/internal/platform/geocoding"
	"github.com/neiios/dam-project-server/internal/platform/metrics"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 1000
)

// CityQueue receives conferences whose city could not be resolved at write time.
type CityQueue interface {
	Enqueue(ctx context.Context, conferenceID int64) error
}

type ConferenceService struct {
	db           *sql.DB
	confRepo     repository.ConferenceRepository
	trackRepo    repository.TrackRepository
	articleRepo  repository.ArticleRepository
	questionRepo repository.QuestionRepository
	geocoder     geocoding.Geocoder
	cityQueue    CityQueue
	metrics      *metrics.Metrics
}

func NewConferenceService(
	db *sql.DB,
	confRepo repository.ConferenceRepository,
	trackRepo repository.TrackRepository,
	articleRepo repository.ArticleRepository,
	questionRepo repository.QuestionRepository,
	geocoder geocoding.Geocoder,
	cityQueue CityQueue,
	m *metrics.Metrics,
) *ConferenceService {
	return &ConferenceService{
		db:           db,
		confRepo:     confRepo,
		trackRepo:    trackRepo,
		articleRepo:  articleRepo,
		questionRepo: questionRepo,
		geocoder:     geocoder,
		cityQueue:    cityQueue,
		metrics:      m,
	}
}

type ConferenceInput struct {
	Name        string
	Location    *string
	Latitude    float64
	Longitude   float64
	StartDate   time.Time
	EndDate     time.Time
	Description string
	ImageURL    *string
}

func (in ConferenceInput) validate() error {
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("conference start date must not be after its end date: %w", common.ErrValidation)
	}
	return nil
}

func (in ConferenceInput) apply(c *model.Conference) {
	c.Name = in.Name
	c.Slug = slug.Make(in.Name)
	c.Location = in.Location
	c.Latitude = in.Latitude
	c.Longitude = in.Longitude
	c.StartDate = in.StartDate.UTC()
	c.EndDate = in.EndDate.UTC()
	c.Description = in.Description
	c.ImageURL = in.ImageURL
}

// Pagination converts a 1-based page into limit/offset. A page whose offset
// does not fit in an int is clamped to math.MaxInt, which is past any data.
func Pagination(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page-1 > math.MaxInt/pageSize {
		return pageSize, math.MaxInt
	}
	return pageSize, (page - 1) * pageSize
}

// ListConferences returns one page of conferences, each with its tracks.
func (s *ConferenceService) ListConferences(ctx context.Context, page, pageSize int) ([]model.Conference, error) {
	limit, offset := Pagination(page, pageSize)
	conferences, err := s.confRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conferences: %w", err)
	}
	if len(conferences) == 0 {
		return conferences, nil
	}

	ids := make([]int64, len(conferences))
	for i, c := range conferences {
		ids[i] = c.ID
	}
	tracks, err := s.trackRepo.ListByConferences(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	byConference := make(map[int64][]model.Track, len(conferences))
	for _, t := range tracks {
		byConference[t.ConferenceID] = append(byConference[t.ConferenceID], t)
	}
	for i := range conferences {
		conferences[i].Tracks = byConference[conferences[i].ID]
	}
	return conferences, nil
}

// GetConference returns the conference with its tracks and every track's articles.
func (s *ConferenceService) GetConference(ctx context.Context, id int64) (*model.Conference, error) {
	conf, err := s.confRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tracks, err := s.trackRepo.ListByConference(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	articles, err := s.articleRepo.List(ctx, repository.ArticleFilter{ConferenceID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	byTrack := make(map[int64][]model.Article, len(tracks))
	for _, a := range articles {
		byTrack[a.TrackID] = append(byTrack[a.TrackID], a)
	}
	for i := range tracks {
		tracks[i].Articles = byTrack[tracks[i].ID]
	}
	conf.Tracks = tracks
	return conf, nil
}

func (s *ConferenceService) GetConferenceLocation(ctx context.Context, id int64) (*model.ConferenceLocation, error) {
	conf, err := s.confRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ConferenceLocation{Latitude: conf.Latitude, Longitude: conf.Longitude, City: conf.City}, nil
}

// CreateConference stores a conference and tries to resolve its city. A failed
// lookup never fails the request: the city stays empty and the conference is
// queued for the backfill worker.
func (s *ConferenceService) CreateConference(ctx context.Context, p *policy.Principal, in ConferenceInput) (*model.Conference, error) {
	if err := policy.Evaluate(p, policy.ActionCreate, policy.Resource{Kind: policy.ResourceConference}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	conf := &model.Conference{}
	in.apply(conf)

	city, lookupErr := s.geocoder.ReverseCity(ctx, conf.Latitude, conf.Longitude)
	if lookupErr == nil {
		conf.City = &city
		s.metrics.GeocodeLookups.WithLabelValues(metrics.OutcomeResolved).Inc()
	} else {
		s.metrics.GeocodeLookups.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.WarnContext(ctx, "Reverse geocoding failed; city left empty",
			"latitude", conf.Latitude, "longitude", conf.Longitude, "error", lookupErr)
	}

	if err := s.confRepo.Create(ctx, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to create conference: %w", err)
	}

	if lookupErr != nil && !errors.Is(lookupErr, geocoding.ErrNoCity) {
		s.enqueueCity(ctx, conf.ID)
	}
	return conf, nil
}

// UpdateConference replaces every mutable field. The slug follows the new name.
func (s *ConferenceService) UpdateConference(ctx context.Context, p *policy.Principal, id int64, in ConferenceInput) (*model.Conference, error) {
	if err := policy.Evaluate(p, policy.ActionUpdate, policy.Resource{Kind: policy.ResourceConference}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	conf := &model.Conference{ID: id}
	in.apply(conf)
	if err := s.confRepo.Update(ctx, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to update conference %d: %w", id, err)
	}
	return s.confRepo.FindByID(ctx, id)
}

// DeleteConference removes the conference and everything under it in one
// transaction: article questions, conference requests, articles, tracks.
func (s *ConferenceService) DeleteConference(ctx context.Context, p *policy.Principal, id int64) error {
	if err := policy.Evaluate(p, policy.ActionDelete, policy.Resource{Kind: policy.ResourceConference}); err != nil {
		return err
	}

	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.questionRepo.DeleteForConferenceArticles(ctx, tx, id); err != nil {
			return err
		}
		if err := s.questionRepo.DeleteByTarget(ctx, tx, model.KindConference, id); err != nil {
			return err
		}
		if err := s.articleRepo.DeleteByConference(ctx, tx, id); err != nil {
			return err
		}
		if err := s.trackRepo.DeleteByConference(ctx, tx, id); err != nil {
			return err
		}
		return s.confRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete conference %d: %w", id, err)
	}
	return nil
}

// ResolveCity retries the lookup for a conference still missing its city.
func (s *ConferenceService) ResolveCity(ctx context.Context, id int64) error {
	conf, err := s.confRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if conf.City != nil {
		return nil
	}

	city, err := s.geocoder.ReverseCity(ctx, conf.Latitude, conf.Longitude)
	if err != nil {
		s.metrics.CityBackfills.WithLabelValues(metrics.OutcomeFailed).Inc()
		return fmt.Errorf("reverse geocoding conference %d: %w", id, err)
	}
	if err := s.confRepo.SetCity(ctx, id, city); err != nil {
		return err
	}
	s.metrics.CityBackfills.WithLabelValues(metrics.OutcomeResolved).Inc()
	return nil
}

// EnqueueMissingCities queues up to limit conferences that still have no city.
func (s *ConferenceService) EnqueueMissingCities(ctx context.Context, limit int) (int, error) {
	ids, err := s.confRepo.ListMissingCity(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list conferences missing a city: %w", err)
	}
	queued := 0
	for _, id := range ids {
		if s.enqueueCity(ctx, id) {
			queued++
		}
	}
	return queued, nil
}

func (s *ConferenceService) enqueueCity(ctx context.Context, id int64) bool {
	if s.cityQueue == nil {
		return false
	}
	if err := s.cityQueue.Enqueue(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to queue conference for city backfill", "conference_id", id, "error", err)
		return false
	}
	s.metrics.CityBackfills.WithLabelValues(metrics.OutcomeQueued).Inc()
	return true
}
