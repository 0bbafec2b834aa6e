package disccache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"deckhand/internal/config"
	"deckhand/internal/protocol"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the cache with "deckhand cache clear" afterwards.
const schemaVersion = 1

// ErrSchemaMismatch indicates the cache database was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("disccache: schema version mismatch")

// Disc is one cached disc.
type Disc struct {
	ID          int64
	Name        string
	Fingerprint string
	TrackCount  int
	TotalTime   time.Duration
	UpdatedAt   time.Time
}

// Track is one cached track name.
type Track struct {
	Number     int
	Title      string
	RecordedAt time.Time
}

// Fingerprint derives the cache identity of a disc from its name and table
// of contents shape. Recording or erasing a track changes the shape, which
// correctly invalidates the cached names.
func Fingerprint(name string, toc protocol.TOC) string {
	return fmt.Sprintf("%s|%d-%d|%02d:%02d", name, toc.FirstTrack, toc.LastTrack, toc.TotalMin, toc.TotalSec)
}

// Store persists disc contents in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database.
func Open(cfg config.Cache) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: cfg.Path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'deckhand cache clear')",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RememberDisc stores or refreshes a disc identified by its name and table
// of contents. Track names recorded under a previous shape are dropped with
// the stale disc row.
func (s *Store) RememberDisc(ctx context.Context, name string, toc protocol.TOC) (*Disc, error) {
	fingerprint := Fingerprint(name, toc)
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO discs (name, fingerprint, track_count, total_seconds, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(fingerprint) DO UPDATE SET
             name = excluded.name,
             track_count = excluded.track_count,
             total_seconds = excluded.total_seconds,
             updated_at = excluded.updated_at`,
		name,
		fingerprint,
		toc.Tracks(),
		int(toc.Total().Seconds()),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("remember disc: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		if disc, err := s.discByID(ctx, id); err == nil {
			return disc, nil
		}
	}
	disc, ok, err := s.LookupDisc(ctx, name, toc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("disccache: disc vanished after upsert")
	}
	return disc, nil
}

// RememberTrack stores one track name for a cached disc.
func (s *Store) RememberTrack(ctx context.Context, discID int64, number int, title string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracks (disc_id, number, title, recorded_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(disc_id, number) DO UPDATE SET
             title = excluded.title,
             recorded_at = excluded.recorded_at`,
		discID,
		number,
		title,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("remember track: %w", err)
	}
	return nil
}

// LookupDisc finds a cached disc whose identity matches the loaded one.
func (s *Store) LookupDisc(ctx context.Context, name string, toc protocol.TOC) (*Disc, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, fingerprint, track_count, total_seconds, updated_at
         FROM discs WHERE fingerprint = ?`,
		Fingerprint(name, toc),
	)
	disc, err := scanDisc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup disc: %w", err)
	}
	return disc, true, nil
}

func (s *Store) discByID(ctx context.Context, id int64) (*Disc, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, fingerprint, track_count, total_seconds, updated_at
         FROM discs WHERE id = ?`,
		id,
	)
	disc, err := scanDisc(row)
	if err != nil {
		return nil, fmt.Errorf("disc by id: %w", err)
	}
	return disc, nil
}

// Tracks returns the cached track names of one disc in track order.
func (s *Store) Tracks(ctx context.Context, discID int64) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, title, recorded_at FROM tracks WHERE disc_id = ? ORDER BY number`,
		discID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tracks []Track
	for rows.Next() {
		var track Track
		var recorded string
		if err := rows.Scan(&track.Number, &track.Title, &recorded); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// Forget drops one disc and its tracks from the cache.
func (s *Store) Forget(ctx context.Context, discID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM discs WHERE id = ?`, discID); err != nil {
		return fmt.Errorf("forget disc: %w", err)
	}
	return nil
}

// Clear drops every cached disc.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM discs`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// All returns every cached disc, most recently updated first.
func (s *Store) All(ctx context.Context) ([]Disc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, fingerprint, track_count, total_seconds, updated_at
         FROM discs ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list discs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var discs []Disc
	for rows.Next() {
		disc, err := scanDisc(rows)
		if err != nil {
			return nil, fmt.Errorf("scan disc: %w", err)
		}
		discs = append(discs, *disc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discs: %w", err)
	}
	return discs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDisc(row rowScanner) (*Disc, error) {
	var disc Disc
	var totalSeconds int
	var updated string
	if err := row.Scan(&disc.ID, &disc.Name, &disc.Fingerprint, &disc.TrackCount, &totalSeconds, &updated); err != nil {
		return nil, err
	}
	disc.TotalTime = time.Duration(totalSeconds) * time.Second
	disc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &disc, nil
}
