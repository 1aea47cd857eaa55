// Package testutil opens throwaway SQLite databases carrying the same schema as
// the Postgres migrations, so repositories and services can be tested without a
// database server.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neiios/dam-project-server/internal/common/security"
	"github.com/neiios/dam-project-server/internal/domain/model"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// schema mirrors internal/platform/database/migrations in SQLite syntax.
const schema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
    created_at DATETIME NOT NULL
);

CREATE TABLE conferences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    location TEXT,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    city TEXT,
    start_date DATETIME NOT NULL,
    end_date DATETIME NOT NULL,
    description TEXT NOT NULL,
    image_url TEXT,
    CHECK (start_date <= end_date)
);

CREATE INDEX idx_conferences_missing_city ON conferences (id) WHERE city IS NULL;

CREATE TABLE tracks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conference_id INTEGER NOT NULL REFERENCES conferences(id),
    name TEXT NOT NULL,
    room TEXT,
    description TEXT NOT NULL DEFAULT '',
    start_date DATETIME,
    end_date DATETIME,
    CHECK (start_date IS NULL OR end_date IS NULL OR start_date <= end_date)
);

CREATE INDEX idx_tracks_conference ON tracks (conference_id);

CREATE TABLE articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conference_id INTEGER NOT NULL REFERENCES conferences(id),
    track_id INTEGER NOT NULL REFERENCES tracks(id),
    title TEXT NOT NULL,
    authors TEXT NOT NULL,
    abstract TEXT NOT NULL,
    start_date DATETIME NOT NULL,
    end_date DATETIME NOT NULL,
    CHECK (start_date <= end_date)
);

CREATE INDEX idx_articles_conference ON articles (conference_id);
CREATE INDEX idx_articles_track ON articles (track_id);

CREATE TABLE questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL CHECK (kind IN ('conference', 'article')),
    target_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL REFERENCES users(id),
    question TEXT NOT NULL,
    answer TEXT,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'answered')),
    created_at DATETIME NOT NULL,
    answered_at DATETIME,
    CHECK ((status = 'answered') = (answer IS NOT NULL))
);

CREATE INDEX idx_questions_target ON questions (kind, target_id);
CREATE INDEX idx_questions_user ON questions (user_id);
`

// NewDB returns a migrated SQLite database that is removed when the test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = db.Exec(schema)
	require.NoError(t, err, "apply test schema")
	return db
}

// Day returns midnight UTC of the given date plus an optional clock offset.
func Day(year int, month time.Month, day int, clock time.Duration) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(clock)
}

// InsertUser stores a user with the given role and returns it.
func InsertUser(t *testing.T, db *sql.DB, name, role string) *model.User {
	t.Helper()

	hash, err := security.HashPassword("secret-" + name)
	require.NoError(t, err)

	u := &model.User{
		Name:           name,
		Email:          name + "@example.com",
		HashedPassword: hash,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	err = db.QueryRowContext(context.Background(),
		`INSERT INTO users (name, email, hashed_password, role, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Name, u.Email, u.HashedPassword, u.Role, u.CreatedAt,
	).Scan(&u.ID)
	require.NoError(t, err)
	return u
}
