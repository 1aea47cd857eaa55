package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/domain/policy"
	"github.com/neiios/dam-project-server/internal/domain/repository"
)

type TrackService struct {
	db           *sql.DB
	confRepo     repository.ConferenceRepository
	trackRepo    repository.TrackRepository
	articleRepo  repository.ArticleRepository
	questionRepo repository.QuestionRepository
}

func NewTrackService(
	db *sql.DB,
	confRepo repository.ConferenceRepository,
	trackRepo repository.TrackRepository,
	articleRepo repository.ArticleRepository,
	questionRepo repository.QuestionRepository,
) *TrackService {
	return &TrackService{
		db:           db,
		confRepo:     confRepo,
		trackRepo:    trackRepo,
		articleRepo:  articleRepo,
		questionRepo: questionRepo,
	}
}

type TrackInput struct {
	Name        string
	Room        *string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
}

func (in TrackInput) validate() error {
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("track start date must not be after its end date: %w", common.ErrValidation)
	}
	return nil
}

func (in TrackInput) apply(t *model.Track) {
	t.Name = in.Name
	t.Room = in.Room
	t.Description = in.Description
	t.StartDate = utcPtr(in.StartDate)
	t.EndDate = utcPtr(in.EndDate)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *TrackService) ListTracks(ctx context.Context, conferenceID int64) ([]model.Track, error) {
	if _, err := s.confRepo.FindByID(ctx, conferenceID); err != nil {
		return nil, err
	}
	tracks, err := s.trackRepo.ListByConference(ctx, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

// GetTrack returns the track with its articles. The track must belong to the conference.
func (s *TrackService) GetTrack(ctx context.Context, conferenceID, trackID int64) (*model.Track, error) {
	track, err := s.trackRepo.FindByID(ctx, conferenceID, trackID)
	if err != nil {
		return nil, err
	}
	articles, err := s.articleRepo.List(ctx, repository.ArticleFilter{ConferenceID: conferenceID, TrackID: trackID})
	if err != nil {
		return nil, fmt.Errorf("failed to list track articles: %w", err)
	}
	track.Articles = articles
	return track, nil
}

// GetSchedule groups a track's articles by the UTC date they start on.
func (s *TrackService) GetSchedule(ctx context.Context, conferenceID, trackID int64) (model.Schedule, error) {
	track, err := s.GetTrack(ctx, conferenceID, trackID)
	if err != nil {
		return nil, err
	}
	return model.BuildSchedule(track.Articles), nil
}

func (s *TrackService) CreateTrack(ctx context.Context, p *policy.Principal, conferenceID int64, in TrackInput) (*model.Track, error) {
	if err := policy.Evaluate(p, policy.ActionCreate, policy.Resource{Kind: policy.ResourceTrack}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.confRepo.FindByID(ctx, conferenceID); err != nil {
		return nil, err
	}

	track := &model.Track{ConferenceID: conferenceID}
	in.apply(track)
	if err := s.trackRepo.Create(ctx, nil, track); err != nil {
		return nil, fmt.Errorf("failed to create track: %w", err)
	}
	return track, nil
}

func (s *TrackService) UpdateTrack(ctx context.Context, p *policy.Principal, conferenceID, trackID int64, in TrackInput) (*model.Track, error) {
	if err := policy.Evaluate(p, policy.ActionUpdate, policy.Resource{Kind: policy.ResourceTrack}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	track := &model.Track{ID: trackID, ConferenceID: conferenceID}
	in.apply(track)
	if err := s.trackRepo.Update(ctx, nil, track); err != nil {
		return nil, fmt.Errorf("failed to update track %d: %w", trackID, err)
	}
	return track, nil
}

// DeleteTrack removes the track, its articles and their questions atomically.
func (s *TrackService) DeleteTrack(ctx context.Context, p *policy.Principal, conferenceID, trackID int64) error {
	if err := policy.Evaluate(p, policy.ActionDelete, policy.Resource{Kind: policy.ResourceTrack}); err != nil {
		return err
	}
	if _, err := s.trackRepo.FindByID(ctx, conferenceID, trackID); err != nil {
		return err
	}

	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.questionRepo.DeleteForTrackArticles(ctx, tx, trackID); err != nil {
			return err
		}
		if err := s.articleRepo.DeleteByTrack(ctx, tx, trackID); err != nil {
			return err
		}
		return s.trackRepo.Delete(ctx, tx, conferenceID, trackID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete track %d: %w", trackID, err)
	}
	return nil
}
