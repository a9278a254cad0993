// Package store keeps a local SQLite log of fetched feed snapshots. It exists
// for debugging and audit: removed posts stay addressable by id after they
// disappear from the rendered feed. The reconcile path never reads from it;
// the backend stays the sole system of record.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opengrove/groupfeed/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id INTEGER NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_posts (
		snapshot_id INTEGER REFERENCES snapshots(id),
		post_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		author_id INTEGER,
		author_name TEXT,
		created_at DATETIME,
		likes INTEGER,
		comments INTEGER,
		shares INTEGER,
		moderation_status TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_group ON snapshots(group_id, fetched_at);
	CREATE INDEX IF NOT EXISTS idx_snapshot_posts_post ON snapshot_posts(post_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot records one fetched feed for a group.
func (s *Store) SaveSnapshot(groupID int64, posts []*types.Post) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO snapshots (group_id, fetched_at) VALUES (?, ?)`,
		groupID, time.Now().UTC())
	if err != nil {
		return err
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, p := range posts {
		_, err := tx.Exec(`
			INSERT INTO snapshot_posts (snapshot_id, post_id, kind, author_id, author_name,
				created_at, likes, comments, shares, moderation_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, snapshotID, p.ID, string(p.Kind), p.Author.ID, p.Author.Name,
			p.CreatedAt, p.Metrics.Likes, p.Metrics.Comments, p.Metrics.Shares,
			string(p.Moderation.Status))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SnapshotPost is one row of a stored snapshot.
type SnapshotPost struct {
	PostID           int64
	Kind             string
	AuthorID         int64
	AuthorName       string
	CreatedAt        time.Time
	Likes            int
	Comments         int
	Shares           int
	ModerationStatus string
}

// LatestSnapshot returns the most recent stored feed for a group.
func (s *Store) LatestSnapshot(groupID int64) ([]SnapshotPost, time.Time, error) {
	var snapshotID int64
	var fetchedAt time.Time
	err := s.db.QueryRow(`
		SELECT id, fetched_at FROM snapshots
		WHERE group_id = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`, groupID).Scan(&snapshotID, &fetchedAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	rows, err := s.db.Query(`
		SELECT post_id, kind, author_id, author_name, created_at,
			likes, comments, shares, moderation_status
		FROM snapshot_posts
		WHERE snapshot_id = ?
		ORDER BY created_at DESC
	`, snapshotID)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var posts []SnapshotPost
	for rows.Next() {
		var p SnapshotPost
		err := rows.Scan(&p.PostID, &p.Kind, &p.AuthorID, &p.AuthorName, &p.CreatedAt,
			&p.Likes, &p.Comments, &p.Shares, &p.ModerationStatus)
		if err != nil {
			return nil, time.Time{}, err
		}
		posts = append(posts, p)
	}

	return posts, fetchedAt, rows.Err()
}

// PruneSnapshots deletes snapshots older than the cutoff.
func (s *Store) PruneSnapshots(olderThan time.Time) error {
	_, err := s.db.Exec(`
		DELETE FROM snapshot_posts WHERE snapshot_id IN
			(SELECT id FROM snapshots WHERE fetched_at < ?)
	`, olderThan)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM snapshots WHERE fetched_at < ?`, olderThan)
	return err
}
