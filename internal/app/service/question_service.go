package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/domain/policy"
	"github.com/neiios/dam-project-server/internal/domain/repository"
	"github.com/neiios/dam-project-server/internal/platform/metrics"
)

// plainText strips every tag; questions and answers are stored as plain text.
var plainText = bluemonday.StrictPolicy()

// QuestionService handles both conference requests and article questions. The
// kind decides which target is checked and which policy resource applies.
type QuestionService struct {
	questionRepo repository.QuestionRepository
	confRepo     repository.ConferenceRepository
	articleRepo  repository.ArticleRepository
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewQuestionService(
	questionRepo repository.QuestionRepository,
	confRepo repository.ConferenceRepository,
	articleRepo repository.ArticleRepository,
	m *metrics.Metrics,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		confRepo:     confRepo,
		articleRepo:  articleRepo,
		metrics:      m,
		now:          time.Now,
	}
}

func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

func (s *QuestionService) ensureTarget(ctx context.Context, kind model.QuestionKind, targetID int64) error {
	switch kind {
	case model.KindConference:
		_, err := s.confRepo.FindByID(ctx, targetID)
		return err
	case model.KindArticle:
		ok, err := s.articleRepo.Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("article %d: %w", targetID, common.ErrNotFound)
		}
		return nil
	}
	return fmt.Errorf("unknown question kind %q: %w", kind, common.ErrBadRequest)
}

// Ask records a pending question from p about the target.
func (s *QuestionService) Ask(ctx context.Context, p *policy.Principal, kind model.QuestionKind, targetID int64, text string) (*model.Question, error) {
	if err := policy.Evaluate(p, policy.ActionCreate, policy.QuestionResource(kind, 0)); err != nil {
		return nil, err
	}
	clean := sanitizeText(text)
	if clean == "" {
		return nil, fmt.Errorf("question text is empty: %w", common.ErrValidation)
	}
	if err := s.ensureTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}

	q := &model.Question{
		Kind:      kind,
		TargetID:  targetID,
		UserID:    p.ID,
		Question:  clean,
		CreatedAt: s.now().UTC(),
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	s.metrics.QuestionsAsked.WithLabelValues(string(kind)).Inc()
	return q, nil
}

// List returns the target's questions: all of them for an admin, the caller's
// own otherwise.
func (s *QuestionService) List(ctx context.Context, p *policy.Principal, kind model.QuestionKind, targetID int64) ([]model.Question, error) {
	if p == nil {
		return nil, common.ErrUnauthorized
	}
	filter := repository.QuestionFilter{Kind: kind, TargetID: &targetID}
	if !policy.Permit(p, policy.ActionReadAll, policy.QuestionResource(kind, 0)) {
		if err := policy.Evaluate(p, policy.ActionReadOwn, policy.QuestionResource(kind, p.ID)); err != nil {
			return nil, err
		}
		filter.UserID = &p.ID
	}
	if err := s.ensureTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}
	return s.questionRepo.List(ctx, filter)
}

// ListAll returns every question of the kind across all targets. Admin only.
func (s *QuestionService) ListAll(ctx context.Context, p *policy.Principal, kind model.QuestionKind) ([]model.Question, error) {
	if err := policy.Evaluate(p, policy.ActionReadAll, policy.QuestionResource(kind, 0)); err != nil {
		return nil, err
	}
	return s.questionRepo.List(ctx, repository.QuestionFilter{Kind: kind})
}

// ListAnswered is the public view of an article's answered questions.
func (s *QuestionService) ListAnswered(ctx context.Context, articleID int64) ([]model.Question, error) {
	if err := policy.Evaluate(nil, policy.ActionReadPublic, policy.QuestionResource(model.KindArticle, 0)); err != nil {
		return nil, err
	}
	if err := s.ensureTarget(ctx, model.KindArticle, articleID); err != nil {
		return nil, err
	}
	answered := model.QuestionAnswered
	return s.questionRepo.List(ctx, repository.QuestionFilter{
		Kind:     model.KindArticle,
		TargetID: &articleID,
		Status:   &answered,
	})
}

// CountAnswered is the public number of answered questions on an article.
func (s *QuestionService) CountAnswered(ctx context.Context, articleID int64) (int64, error) {
	if err := policy.Evaluate(nil, policy.ActionReadPublic, policy.QuestionResource(model.KindArticle, 0)); err != nil {
		return 0, err
	}
	if err := s.ensureTarget(ctx, model.KindArticle, articleID); err != nil {
		return 0, err
	}
	return s.questionRepo.CountByTarget(ctx, model.KindArticle, articleID, model.QuestionAnswered)
}

// Get returns one question. When targetID is given the question must belong to
// that target. Regular users only see their own.
func (s *QuestionService) Get(ctx context.Context, p *policy.Principal, kind model.QuestionKind, id int64, targetID *int64) (*model.Question, error) {
	if p == nil {
		return nil, common.ErrUnauthorized
	}
	q, err := s.questionRepo.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if targetID != nil && q.TargetID != *targetID {
		return nil, fmt.Errorf("question %d is not under target %d: %w", id, *targetID, common.ErrNotFound)
	}
	if policy.Permit(p, policy.ActionReadAll, policy.QuestionResource(kind, q.UserID)) {
		return q, nil
	}
	if err := policy.Evaluate(p, policy.ActionReadOwn, policy.QuestionResource(kind, q.UserID)); err != nil {
		return nil, err
	}
	return q, nil
}

// Answer moves a pending question to answered. A second answer is a conflict.
func (s *QuestionService) Answer(ctx context.Context, p *policy.Principal, kind model.QuestionKind, id int64, text string) (*model.Question, error) {
	if err := policy.Evaluate(p, policy.ActionAnswer, policy.QuestionResource(kind, 0)); err != nil {
		return nil, err
	}
	clean := sanitizeText(text)
	if clean == "" {
		return nil, fmt.Errorf("answer text is empty: %w", common.ErrValidation)
	}

	q, err := s.questionRepo.Answer(ctx, kind, id, clean, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.metrics.QuestionsAnswered.WithLabelValues(string(kind)).Inc()
	return q, nil
}

// Delete removes a question in either state. Admin only.
func (s *QuestionService) Delete(ctx context.Context, p *policy.Principal, kind model.QuestionKind, id int64) error {
	if err := policy.Evaluate(p, policy.ActionDelete, policy.QuestionResource(kind, 0)); err != nil {
		return err
	}
	return s.questionRepo.Delete(ctx, nil, kind, id)
}

// SweepOrphans deletes article questions left behind by deleted articles.
func (s *QuestionService) SweepOrphans(ctx context.Context) (int64, error) {
	n, err := s.questionRepo.DeleteOrphaned(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep orphaned questions: %w", err)
	}
	s.metrics.OrphansSwept.Add(float64(n))
	return n, nil
}
