package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

// ArticleFilter narrows List. Limit <= 0 disables pagination.
type ArticleFilter struct {
	ConferenceID int64
	TrackID      int64 // 0 means any track
	SearchTerm   string
	Limit        int
	Offset       int
}

type ArticleRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *model.Article) error
	Update(ctx context.Context, tx *sql.Tx, a *model.Article) error
	Delete(ctx context.Context, tx *sql.Tx, conferenceID, articleID int64) error
	DeleteByTrack(ctx context.Context, tx *sql.Tx, trackID int64) error
	DeleteByConference(ctx context.Context, tx *sql.Tx, conferenceID int64) error
	FindByID(ctx context.Context, conferenceID, articleID int64) (*model.Article, error)
	Exists(ctx context.Context, articleID int64) (bool, error)
	List(ctx context.Context, filter ArticleFilter) ([]model.Article, error)
}

type pgArticleRepository struct {
	db *sql.DB
}

func NewPgArticleRepository(db *sql.DB) ArticleRepository {
	return &pgArticleRepository{db: db}
}

const articleColumns = `id, conference_id, track_id, title, authors, abstract, start_date, end_date`

func scanArticle(row interface{ Scan(...any) error }, a *model.Article) error {
	return row.Scan(&a.ID, &a.ConferenceID, &a.TrackID, &a.Title, &a.Authors, &a.Abstract, &a.StartDate, &a.EndDate)
}

func (r *pgArticleRepository) Create(ctx context.Context, tx *sql.Tx, a *model.Article) error {
	query := `INSERT INTO articles (conference_id, track_id, title, authors, abstract, start_date, end_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		a.ConferenceID, a.TrackID, a.Title, a.Authors, a.Abstract, a.StartDate, a.EndDate,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("pgArticleRepository.Create: %w", err)
	}
	return nil
}

// Update replaces the article's content; it never moves an article between tracks.
func (r *pgArticleRepository) Update(ctx context.Context, tx *sql.Tx, a *model.Article) error {
	query := `UPDATE articles SET title = $1, authors = $2, abstract = $3, start_date = $4, end_date = $5
              WHERE id = $6 AND conference_id = $7`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		a.Title, a.Authors, a.Abstract, a.StartDate, a.EndDate, a.ID, a.ConferenceID)
	if err != nil {
		return fmt.Errorf("pgArticleRepository.Update: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgArticleRepository.Update: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgArticleRepository) Delete(ctx context.Context, tx *sql.Tx, conferenceID, articleID int64) error {
	res, err := pick(r.db, tx).ExecContext(ctx,
		`DELETE FROM articles WHERE id = $1 AND conference_id = $2`, articleID, conferenceID)
	if err != nil {
		return fmt.Errorf("pgArticleRepository.Delete: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgArticleRepository.Delete: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgArticleRepository) DeleteByTrack(ctx context.Context, tx *sql.Tx, trackID int64) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM articles WHERE track_id = $1`, trackID); err != nil {
		return fmt.Errorf("pgArticleRepository.DeleteByTrack: %w", err)
	}
	return nil
}

func (r *pgArticleRepository) DeleteByConference(ctx context.Context, tx *sql.Tx, conferenceID int64) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM articles WHERE conference_id = $1`, conferenceID); err != nil {
		return fmt.Errorf("pgArticleRepository.DeleteByConference: %w", err)
	}
	return nil
}

func (r *pgArticleRepository) FindByID(ctx context.Context, conferenceID, articleID int64) (*model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1 AND conference_id = $2`
	a := &model.Article{}
	if err := scanArticle(r.db.QueryRowContext(ctx, query, articleID, conferenceID), a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgArticleRepository.FindByID: %w", err)
	}
	return a, nil
}

func (r *pgArticleRepository) Exists(ctx context.Context, articleID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE id = $1`, articleID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("pgArticleRepository.Exists: %w", err)
	}
	return true, nil
}

// List returns the conference's articles ordered by id. The search term matches
// title or authors case-insensitively.
func (r *pgArticleRepository) List(ctx context.Context, f ArticleFilter) ([]model.Article, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + articleColumns + ` FROM articles WHERE conference_id = $1`)
	args := []any{f.ConferenceID}
	argID := 2

	if f.TrackID > 0 {
		query.WriteString(fmt.Sprintf(" AND track_id = $%d", argID))
		args = append(args, f.TrackID)
		argID++
	}

	if f.SearchTerm != "" {
		query.WriteString(fmt.Sprintf(` AND (LOWER(title) LIKE $%d ESCAPE '\' OR LOWER(authors) LIKE $%d ESCAPE '\')`, argID, argID+1))
		likeTerm := likePattern(f.SearchTerm)
		args = append(args, likeTerm, likeTerm)
		argID += 2
	}

	query.WriteString(" ORDER BY id ASC")
	if f.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgArticleRepository.List query: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		var a model.Article
		if err := scanArticle(rows, &a); err != nil {
			return nil, fmt.Errorf("pgArticleRepository.List scan: %w", err)
		}
		articles = append(articles, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgArticleRepository.List rows.Err: %w", err)
	}
	return articles, nil
}
