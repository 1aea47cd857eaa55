package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/domain/policy"
	"github.com/neiios/dam-project-server/internal/domain/repository"
)

type ArticleService struct {
	confRepo    repository.ConferenceRepository
	trackRepo   repository.TrackRepository
	articleRepo repository.ArticleRepository
}

func NewArticleService(
	confRepo repository.ConferenceRepository,
	trackRepo repository.TrackRepository,
	articleRepo repository.ArticleRepository,
) *ArticleService {
	return &ArticleService{confRepo: confRepo, trackRepo: trackRepo, articleRepo: articleRepo}
}

type ArticleInput struct {
	Title     string
	Authors   string
	Abstract  string
	StartDate time.Time
	EndDate   time.Time
}

func (in ArticleInput) validate() error {
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("article start date must not be after its end date: %w", common.ErrValidation)
	}
	return nil
}

func (in ArticleInput) apply(a *model.Article) {
	a.Title = in.Title
	a.Authors = in.Authors
	a.Abstract = in.Abstract
	a.StartDate = in.StartDate.UTC()
	a.EndDate = in.EndDate.UTC()
}

// ListArticlesQuery paginates only when both Page and PageSize are set.
type ListArticlesQuery struct {
	Page       *int
	PageSize   *int
	SearchTerm string
}

// ListArticles returns the conference's articles ordered by id, optionally
// filtered by a case-insensitive match on title or authors.
func (s *ArticleService) ListArticles(ctx context.Context, conferenceID int64, q ListArticlesQuery) ([]model.Article, error) {
	if _, err := s.confRepo.FindByID(ctx, conferenceID); err != nil {
		return nil, err
	}

	filter := repository.ArticleFilter{
		ConferenceID: conferenceID,
		SearchTerm:   strings.TrimSpace(q.SearchTerm),
	}
	if q.Page != nil && q.PageSize != nil {
		filter.Limit, filter.Offset = Pagination(*q.Page, *q.PageSize)
	}

	articles, err := s.articleRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (s *ArticleService) ListTrackArticles(ctx context.Context, conferenceID, trackID int64) ([]model.Article, error) {
	if _, err := s.trackRepo.FindByID(ctx, conferenceID, trackID); err != nil {
		return nil, err
	}
	articles, err := s.articleRepo.List(ctx, repository.ArticleFilter{ConferenceID: conferenceID, TrackID: trackID})
	if err != nil {
		return nil, fmt.Errorf("failed to list track articles: %w", err)
	}
	return articles, nil
}

func (s *ArticleService) GetArticle(ctx context.Context, conferenceID, articleID int64) (*model.Article, error) {
	return s.articleRepo.FindByID(ctx, conferenceID, articleID)
}

// CreateArticle adds an article to a track. A track of another conference reads
// as not found.
func (s *ArticleService) CreateArticle(ctx context.Context, p *policy.Principal, conferenceID, trackID int64, in ArticleInput) (*model.Article, error) {
	if err := policy.Evaluate(p, policy.ActionCreate, policy.Resource{Kind: policy.ResourceArticle}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.trackRepo.FindByID(ctx, conferenceID, trackID); err != nil {
		return nil, fmt.Errorf("track %d in conference %d: %w", trackID, conferenceID, err)
	}

	article := &model.Article{ConferenceID: conferenceID, TrackID: trackID}
	in.apply(article)
	if err := s.articleRepo.Create(ctx, nil, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}
	return article, nil
}

func (s *ArticleService) UpdateArticle(ctx context.Context, p *policy.Principal, conferenceID, articleID int64, in ArticleInput) (*model.Article, error) {
	if err := policy.Evaluate(p, policy.ActionUpdate, policy.Resource{Kind: policy.ResourceArticle}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	article := &model.Article{ID: articleID, ConferenceID: conferenceID}
	in.apply(article)
	if err := s.articleRepo.Update(ctx, nil, article); err != nil {
		return nil, fmt.Errorf("failed to update article %d: %w", articleID, err)
	}
	return s.articleRepo.FindByID(ctx, conferenceID, articleID)
}

// DeleteArticle removes the article only; its questions stay behind until the
// orphan sweep runs.
func (s *ArticleService) DeleteArticle(ctx context.Context, p *policy.Principal, conferenceID, articleID int64) error {
	if err := policy.Evaluate(p, policy.ActionDelete, policy.Resource{Kind: policy.ResourceArticle}); err != nil {
		return err
	}
	if err := s.articleRepo.Delete(ctx, nil, conferenceID, articleID); err != nil {
		return fmt.Errorf("failed to delete article %d: %w", articleID, err)
	}
	return nil
}
