package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

// TrackRepository scopes every keyed lookup by conference so a track id from
// another conference reads as not found.
type TrackRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *model.Track) error
	Update(ctx context.Context, tx *sql.Tx, t *model.Track) error
	Delete(ctx context.Context, tx *sql.Tx, conferenceID, trackID int64) error
	DeleteByConference(ctx context.Context, tx *sql.Tx, conferenceID int64) error
	FindByID(ctx context.Context, conferenceID, trackID int64) (*model.Track, error)
	ListByConference(ctx context.Context, conferenceID int64) ([]model.Track, error)
	ListByConferences(ctx context.Context, conferenceIDs []int64) ([]model.Track, error)
}

type pgTrackRepository struct {
	db *sql.DB
}

func NewPgTrackRepository(db *sql.DB) TrackRepository {
	return &pgTrackRepository{db: db}
}

const trackColumns = `id, conference_id, name, room, description, start_date, end_date`

func scanTrack(row interface{ Scan(...any) error }, t *model.Track) error {
	return row.Scan(&t.ID, &t.ConferenceID, &t.Name, &t.Room, &t.Description, &t.StartDate, &t.EndDate)
}

func (r *pgTrackRepository) Create(ctx context.Context, tx *sql.Tx, t *model.Track) error {
	query := `INSERT INTO tracks (conference_id, name, room, description, start_date, end_date)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		t.ConferenceID, t.Name, t.Room, t.Description, t.StartDate, t.EndDate,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("pgTrackRepository.Create: %w", err)
	}
	return nil
}

func (r *pgTrackRepository) Update(ctx context.Context, tx *sql.Tx, t *model.Track) error {
	query := `UPDATE tracks SET name = $1, room = $2, description = $3, start_date = $4, end_date = $5
              WHERE id = $6 AND conference_id = $7`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		t.Name, t.Room, t.Description, t.StartDate, t.EndDate, t.ID, t.ConferenceID)
	if err != nil {
		return fmt.Errorf("pgTrackRepository.Update: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgTrackRepository.Update: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTrackRepository) Delete(ctx context.Context, tx *sql.Tx, conferenceID, trackID int64) error {
	res, err := pick(r.db, tx).ExecContext(ctx,
		`DELETE FROM tracks WHERE id = $1 AND conference_id = $2`, trackID, conferenceID)
	if err != nil {
		return fmt.Errorf("pgTrackRepository.Delete: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgTrackRepository.Delete: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTrackRepository) DeleteByConference(ctx context.Context, tx *sql.Tx, conferenceID int64) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM tracks WHERE conference_id = $1`, conferenceID); err != nil {
		return fmt.Errorf("pgTrackRepository.DeleteByConference: %w", err)
	}
	return nil
}

func (r *pgTrackRepository) FindByID(ctx context.Context, conferenceID, trackID int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = $1 AND conference_id = $2`
	t := &model.Track{}
	if err := scanTrack(r.db.QueryRowContext(ctx, query, trackID, conferenceID), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTrackRepository.FindByID: %w", err)
	}
	return t, nil
}

func (r *pgTrackRepository) ListByConference(ctx context.Context, conferenceID int64) ([]model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE conference_id = $1 ORDER BY id ASC`
	return r.list(ctx, "ListByConference", query, conferenceID)
}

// ListByConferences loads the tracks of several conferences in one round trip.
func (r *pgTrackRepository) ListByConferences(ctx context.Context, conferenceIDs []int64) ([]model.Track, error) {
	if len(conferenceIDs) == 0 {
		return []model.Track{}, nil
	}
	args := make([]any, len(conferenceIDs))
	for i, id := range conferenceIDs {
		args[i] = id
	}
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE conference_id IN (` +
		placeholders(1, len(conferenceIDs)) + `) ORDER BY id ASC`
	return r.list(ctx, "ListByConferences", query, args...)
}

func (r *pgTrackRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Track, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTrackRepository.%s query: %w", op, err)
	}
	defer rows.Close()

	tracks := []model.Track{}
	for rows.Next() {
		var t model.Track
		if err := scanTrack(rows, &t); err != nil {
			return nil, fmt.Errorf("pgTrackRepository.%s scan: %w", op, err)
		}
		tracks = append(tracks, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTrackRepository.%s rows.Err: %w", op, err)
	}
	return tracks, nil
}
