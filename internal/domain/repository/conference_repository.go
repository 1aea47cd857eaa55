package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

type ConferenceRepository interface {
	Create(ctx context.Context, tx *sql.Tx, c *model.Conference) error
	Update(ctx context.Context, tx *sql.Tx, c *model.Conference) error
	Delete(ctx context.Context, tx *sql.Tx, id int64) error
	FindByID(ctx context.Context, id int64) (*model.Conference, error)
	List(ctx context.Context, limit, offset int) ([]model.Conference, error)

	SetCity(ctx context.Context, id int64, city string) error
	ListMissingCity(ctx context.Context, limit int) ([]int64, error)
}

type pgConferenceRepository struct {
	db *sql.DB
}

func NewPgConferenceRepository(db *sql.DB) ConferenceRepository {
	return &pgConferenceRepository{db: db}
}

const conferenceColumns = `id, name, slug, location, latitude, longitude, city, start_date, end_date, description, image_url`

func scanConference(row interface{ Scan(...any) error }, c *model.Conference) error {
	return row.Scan(&c.ID, &c.Name, &c.Slug, &c.Location, &c.Latitude, &c.Longitude, &c.City,
		&c.StartDate, &c.EndDate, &c.Description, &c.ImageURL)
}

func (r *pgConferenceRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Conference) error {
	query := `INSERT INTO conferences (name, slug, location, latitude, longitude, city, start_date, end_date, description, image_url)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		c.Name, c.Slug, c.Location, c.Latitude, c.Longitude, c.City, c.StartDate, c.EndDate, c.Description, c.ImageURL,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.Create: %w", err)
	}
	return nil
}

// Update replaces every mutable column. The derived city is left untouched.
func (r *pgConferenceRepository) Update(ctx context.Context, tx *sql.Tx, c *model.Conference) error {
	query := `UPDATE conferences SET
                name = $1, slug = $2, location = $3, latitude = $4, longitude = $5,
                start_date = $6, end_date = $7, description = $8, image_url = $9
              WHERE id = $10`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		c.Name, c.Slug, c.Location, c.Latitude, c.Longitude, c.StartDate, c.EndDate, c.Description, c.ImageURL, c.ID)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.Update: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.Update: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgConferenceRepository) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM conferences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.Delete: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.Delete: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgConferenceRepository) FindByID(ctx context.Context, id int64) (*model.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE id = $1`
	c := &model.Conference{}
	if err := scanConference(r.db.QueryRowContext(ctx, query, id), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgConferenceRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *pgConferenceRepository) List(ctx context.Context, limit, offset int) ([]model.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgConferenceRepository.List query: %w", err)
	}
	defer rows.Close()

	conferences := []model.Conference{}
	for rows.Next() {
		var c model.Conference
		if err := scanConference(rows, &c); err != nil {
			return nil, fmt.Errorf("pgConferenceRepository.List scan: %w", err)
		}
		conferences = append(conferences, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgConferenceRepository.List rows.Err: %w", err)
	}
	return conferences, nil
}

func (r *pgConferenceRepository) SetCity(ctx context.Context, id int64, city string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conferences SET city = $1 WHERE id = $2`, city, id)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.SetCity: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("pgConferenceRepository.SetCity: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListMissingCity returns ids of conferences whose city was never resolved.
func (r *pgConferenceRepository) ListMissingCity(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM conferences WHERE city IS NULL ORDER BY id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("pgConferenceRepository.ListMissingCity query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgConferenceRepository.ListMissingCity scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgConferenceRepository.ListMissingCity rows.Err: %w", err)
	}
	return ids, nil
}
