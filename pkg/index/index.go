// Package index maintains a SQLite index over a skills corpus so that hosts
// can list and search skill descriptions without re-reading every descriptor.
package index

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/skillhubdev/skillhub/pkg/logger"
	"github.com/skillhubdev/skillhub/pkg/skill"
)

// DefaultDBPath returns the default path for the corpus index database
func DefaultDBPath() (string, error) {
	if basePath := os.Getenv("SKILLHUB_BASE_PATH"); basePath != "" {
		return filepath.Join(basePath, "index.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillhub", "index.db"), nil
}

// Index is a SQLite-backed corpus index
type Index struct {
	dbPath string
	db     *sqlx.DB
}

// SkillRow is an indexed skill descriptor
type SkillRow struct {
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Directory   string    `db:"directory" json:"directory"`
	Version     string    `db:"version" json:"version,omitempty"`
	RefCount    int       `db:"ref_count" json:"refCount"`
	IndexedAt   time.Time `db:"indexed_at" json:"indexedAt"`
}

// RefRow is an indexed reference file
type RefRow struct {
	Skill string `db:"skill" json:"skill"`
	Path  string `db:"path" json:"path"`
	Title string `db:"title" json:"title"`
	Bytes int64  `db:"bytes" json:"bytes"`
}

// Match is one search result
type Match struct {
	Skill       string `json:"skill"`
	Description string `json:"description"`
	Kind        string `json:"kind"` // "skill" or "reference"
	Path        string `json:"path,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Open opens or creates the index database at dbPath
func Open(ctx context.Context, dbPath string) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := configureDatabase(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure database")
	}

	idx := &Index{dbPath: dbPath, db: db}

	if err := idx.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return idx, nil
}

// configureDatabase sets up SQLite pragmas for WAL mode operation
func configureDatabase(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=1000",
		"PRAGMA temp_store=memory",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}

	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return errors.Wrap(err, "failed to query journal mode")
	}
	if strings.ToLower(journalMode) != "wal" {
		return errors.Errorf("WAL mode not enabled, current mode: %s", journalMode)
	}

	return nil
}

func (i *Index) initializeSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS skills (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			directory TEXT NOT NULL,
			version TEXT NOT NULL DEFAULT '',
			indexed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ref_files (
			skill TEXT NOT NULL REFERENCES skills(name) ON DELETE CASCADE,
			path TEXT NOT NULL,
			title TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			PRIMARY KEY (skill, path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ref_files_skill ON ref_files(skill)`,
	}

	for _, stmt := range schema {
		if _, err := i.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create schema")
		}
	}

	return nil
}

// Close closes the underlying database
func (i *Index) Close() error {
	return i.db.Close()
}

// Rebuild replaces the index contents with the given corpus in a single
// transaction. A failed rebuild leaves the previous index intact.
func (i *Index) Rebuild(ctx context.Context, skills map[string]*skill.Skill) error {
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := i.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ref_files"); err != nil {
		return errors.Wrap(err, "failed to clear reference rows")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM skills"); err != nil {
		return errors.Wrap(err, "failed to clear skill rows")
	}

	now := time.Now().UTC()
	for _, name := range names {
		s := skills[name]

		_, err := tx.ExecContext(ctx,
			"INSERT INTO skills (name, description, directory, version, indexed_at) VALUES (?, ?, ?, ?, ?)",
			s.Name, s.Description, s.Directory, s.Version, now)
		if err != nil {
			return errors.Wrapf(err, "failed to index skill '%s'", s.Name)
		}

		for _, ref := range s.References {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO ref_files (skill, path, title, bytes) VALUES (?, ?, ?, ?)",
				s.Name, ref.Path, ref.Title, int64(len(ref.Content)))
			if err != nil {
				return errors.Wrapf(err, "failed to index reference '%s' of skill '%s'", ref.Path, s.Name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit index rebuild")
	}

	logger.G(ctx).WithField("skills", len(names)).Debug("Rebuilt corpus index")

	return nil
}

// List returns all indexed skills with their reference counts, sorted by name
func (i *Index) List(ctx context.Context) ([]SkillRow, error) {
	var rows []SkillRow
	err := i.db.SelectContext(ctx, &rows, `
		SELECT s.name, s.description, s.directory, s.version, s.indexed_at,
		       COUNT(r.path) AS ref_count
		FROM skills s
		LEFT JOIN ref_files r ON r.skill = s.name
		GROUP BY s.name
		ORDER BY s.name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list indexed skills")
	}
	return rows, nil
}

// Get returns one indexed skill and its reference rows
func (i *Index) Get(ctx context.Context, name string) (*SkillRow, []RefRow, error) {
	var row SkillRow
	err := i.db.GetContext(ctx, &row, `
		SELECT s.name, s.description, s.directory, s.version, s.indexed_at,
		       COUNT(r.path) AS ref_count
		FROM skills s
		LEFT JOIN ref_files r ON r.skill = s.name
		WHERE s.name = ?
		GROUP BY s.name`, name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "skill '%s' not found in index", name)
	}

	var refs []RefRow
	err = i.db.SelectContext(ctx, &refs,
		"SELECT skill, path, title, bytes FROM ref_files WHERE skill = ? ORDER BY path", name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load reference rows")
	}

	return &row, refs, nil
}

// Search finds skills and reference files whose name, description, or title
// contains the query, case-insensitively. Skill matches come first.
func (i *Index) Search(ctx context.Context, query string) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query cannot be empty")
	}

	pattern := "%" + strings.ToLower(query) + "%"

	var matches []Match

	var skillRows []SkillRow
	err := i.db.SelectContext(ctx, &skillRows, `
		SELECT name, description, directory, version, indexed_at, 0 AS ref_count
		FROM skills
		WHERE LOWER(name) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY name`, pattern, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search skills")
	}
	for _, row := range skillRows {
		matches = append(matches, Match{
			Skill:       row.Name,
			Description: row.Description,
			Kind:        "skill",
		})
	}

	var refRows []RefRow
	err = i.db.SelectContext(ctx, &refRows, `
		SELECT r.skill, r.path, r.title, r.bytes
		FROM ref_files r
		WHERE LOWER(r.title) LIKE ? OR LOWER(r.path) LIKE ?
		ORDER BY r.skill, r.path`, pattern, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search reference files")
	}
	for _, row := range refRows {
		matches = append(matches, Match{
			Skill: row.Skill,
			Kind:  "reference",
			Path:  row.Path,
			Title: row.Title,
		})
	}

	return matches, nil
}
