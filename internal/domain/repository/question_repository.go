package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

// QuestionFilter narrows List. Nil pointers match everything.
type QuestionFilter struct {
	Kind     model.QuestionKind
	TargetID *int64
	UserID   *int64
	Status   *model.QuestionStatus
}

type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	FindByID(ctx context.Context, kind model.QuestionKind, id int64) (*model.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]model.Question, error)
	CountByTarget(ctx context.Context, kind model.QuestionKind, targetID int64, status model.QuestionStatus) (int64, error)
	Answer(ctx context.Context, kind model.QuestionKind, id int64, answer string, answeredAt time.Time) (*model.Question, error)
	Delete(ctx context.Context, tx *sql.Tx, kind model.QuestionKind, id int64) error

	DeleteByTarget(ctx context.Context, tx *sql.Tx, kind model.QuestionKind, targetID int64) error
	DeleteForConferenceArticles(ctx context.Context, tx *sql.Tx, conferenceID int64) error
	DeleteForTrackArticles(ctx context.Context, tx *sql.Tx, trackID int64) error
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type pgQuestionRepository struct {
	db *sql.DB
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{db: db}
}

const questionColumns = `id, kind, target_id, user_id, question, answer, status, created_at, answered_at`

func scanQuestion(row interface{ Scan(...any) error }, q *model.Question) error {
	return row.Scan(&q.ID, &q.Kind, &q.TargetID, &q.UserID, &q.Question, &q.Answer, &q.Status, &q.CreatedAt, &q.AnsweredAt)
}

// Create stores a new pending question. Kind, target, user and text come from q.
func (r *pgQuestionRepository) Create(ctx context.Context, q *model.Question) error {
	q.Status = model.QuestionPending
	q.Answer = nil
	q.AnsweredAt = nil
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO questions (kind, target_id, user_id, question, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, q.Kind, q.TargetID, q.UserID, q.Question, q.Status, q.CreatedAt).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) FindByID(ctx context.Context, kind model.QuestionKind, id int64) (*model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1 AND kind = $2`
	q := &model.Question{}
	if err := scanQuestion(r.db.QueryRowContext(ctx, query, id, kind), q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindByID: %w", err)
	}
	return q, nil
}

func (r *pgQuestionRepository) List(ctx context.Context, f QuestionFilter) ([]model.Question, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + questionColumns + ` FROM questions WHERE kind = $1`)
	args := []any{f.Kind}
	argID := 2

	if f.TargetID != nil {
		query.WriteString(fmt.Sprintf(" AND target_id = $%d", argID))
		args = append(args, *f.TargetID)
		argID++
	}
	if f.UserID != nil {
		query.WriteString(fmt.Sprintf(" AND user_id = $%d", argID))
		args = append(args, *f.UserID)
		argID++
	}
	if f.Status != nil {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argID))
		args = append(args, *f.Status)
	}
	query.WriteString(" ORDER BY id ASC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.List query: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.List scan: %w", err)
		}
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.List rows.Err: %w", err)
	}
	return questions, nil
}

func (r *pgQuestionRepository) CountByTarget(ctx context.Context, kind model.QuestionKind, targetID int64, status model.QuestionStatus) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM questions WHERE kind = $1 AND target_id = $2 AND status = $3`
	if err := r.db.QueryRowContext(ctx, query, kind, targetID, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgQuestionRepository.CountByTarget: %w", err)
	}
	return n, nil
}

// Answer moves a pending question to answered in a single statement, so two
// concurrent answers cannot both succeed. A question that exists but is already
// answered yields ErrConflict.
func (r *pgQuestionRepository) Answer(ctx context.Context, kind model.QuestionKind, id int64, answer string, answeredAt time.Time) (*model.Question, error) {
	query := `UPDATE questions SET answer = $1, status = $2, answered_at = $3
              WHERE id = $4 AND kind = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, answer, model.QuestionAnswered, answeredAt, id, kind, model.QuestionPending)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.Answer: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.Answer: %w", err)
	}

	q, err := r.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("question %d is already answered: %w", id, common.ErrConflict)
	}
	return q, nil
}

func (r *pgQuestionRepository) Delete(ctx context.Context, tx *sql.Tx, kind model.QuestionKind, id int64) error {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM questions WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.Delete: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.Delete: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgQuestionRepository) DeleteByTarget(ctx context.Context, tx *sql.Tx, kind model.QuestionKind, targetID int64) error {
	_, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM questions WHERE kind = $1 AND target_id = $2`, kind, targetID)
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.DeleteByTarget: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) DeleteForConferenceArticles(ctx context.Context, tx *sql.Tx, conferenceID int64) error {
	query := `DELETE FROM questions WHERE kind = $1
              AND target_id IN (SELECT id FROM articles WHERE conference_id = $2)`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, model.KindArticle, conferenceID); err != nil {
		return fmt.Errorf("pgQuestionRepository.DeleteForConferenceArticles: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) DeleteForTrackArticles(ctx context.Context, tx *sql.Tx, trackID int64) error {
	query := `DELETE FROM questions WHERE kind = $1
              AND target_id IN (SELECT id FROM articles WHERE track_id = $2)`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, model.KindArticle, trackID); err != nil {
		return fmt.Errorf("pgQuestionRepository.DeleteForTrackArticles: %w", err)
	}
	return nil
}

// DeleteOrphaned removes article questions whose article no longer exists.
func (r *pgQuestionRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	query := `DELETE FROM questions WHERE kind = $1
              AND NOT EXISTS (SELECT 1 FROM articles a WHERE a.id = questions.target_id)`
	res, err := r.db.ExecContext(ctx, query, model.KindArticle)
	if err != nil {
		return 0, fmt.Errorf("pgQuestionRepository.DeleteOrphaned: %w", err)
	}
	return rowsAffected(res)
}
