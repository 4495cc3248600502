package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InMemory is the path that opens a RAM-resident database. Scans default to
// it so the tool never writes to the filesystem it is inspecting.
const InMemory = ":memory:"

// Store is the SQLite data access layer for scan results.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at path. File-backed databases get WAL
// mode; the in-memory database is pinned to a single connection, since each
// pooled connection would otherwise see its own empty database.
func NewStore(path string) (*Store, error) {
	dsn := path
	if path != InMemory {
		dsn = path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == InMemory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS environments (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  base_kind       TEXT NOT NULL,
  base_path       TEXT,
  scanned_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS env_versions (
  id              INTEGER PRIMARY KEY,
  env_id          INTEGER NOT NULL REFERENCES environments(id),
  package         TEXT NOT NULL,
  version         TEXT NOT NULL,
  UNIQUE(env_id, package)
);

CREATE INDEX IF NOT EXISTS idx_environments_base_kind ON environments(base_kind);
CREATE INDEX IF NOT EXISTS idx_env_versions_env ON env_versions(env_id);
CREATE INDEX IF NOT EXISTS idx_env_versions_package ON env_versions(package, version);
`

// --- Environment operations ---

func (s *Store) InsertEnvironment(e *Environment) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO environments (path, base_kind, base_path, scanned_at) VALUES (?, ?, ?, ?)",
		e.Path, e.BaseKind, e.BasePath, e.ScannedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert environment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return id, nil
}

func (s *Store) EnvironmentByPath(path string) (*Environment, error) {
	e := &Environment{}
	err := s.db.QueryRow(
		"SELECT id, path, base_kind, base_path, scanned_at FROM environments WHERE path = ?", path,
	).Scan(&e.ID, &e.Path, &e.BaseKind, &e.BasePath, &e.ScannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("environment by path: %w", err)
	}
	return e, nil
}

func (s *Store) Environments() ([]*Environment, error) {
	rows, err := s.db.Query(
		"SELECT id, path, base_kind, base_path, scanned_at FROM environments ORDER BY path",
	)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	defer rows.Close()
	var envs []*Environment
	for rows.Next() {
		e := &Environment{}
		if err := rows.Scan(&e.ID, &e.Path, &e.BaseKind, &e.BasePath, &e.ScannedAt); err != nil {
			return nil, fmt.Errorf("scan environment: %w", err)
		}
		envs = append(envs, e)
	}
	return envs, rows.Err()
}

func (s *Store) CountEnvironments() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM environments").Scan(&n); err != nil {
		return 0, fmt.Errorf("count environments: %w", err)
	}
	return n, nil
}

// --- Version operations ---

func (s *Store) InsertVersion(v *Version) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO env_versions (env_id, package, version) VALUES (?, ?, ?)",
		v.EnvID, v.Package, v.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	v.ID = id
	return id, nil
}

func (s *Store) VersionsByEnv(envID int64) (map[string]string, error) {
	rows, err := s.db.Query(
		"SELECT package, version FROM env_versions WHERE env_id = ?", envID,
	)
	if err != nil {
		return nil, fmt.Errorf("versions by env: %w", err)
	}
	defer rows.Close()
	versions := make(map[string]string)
	for rows.Next() {
		var pkg, ver string
		if err := rows.Scan(&pkg, &ver); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions[pkg] = ver
	}
	return versions, rows.Err()
}
