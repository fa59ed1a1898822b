// Package library caches the list of installed games reported by the backend.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	_ "modernc.org/sqlite"
)

// Executable kinds stored with each game.
const (
	KindUnknown = "unknown"
	KindMissing = "missing"
)

// Game is one installed game.
type Game struct {
	GameID      string    `json:"game_id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	InstallPath string    `json:"install_path"`
	Executable  string    `json:"executable"`
	ExecKind    string    `json:"exec_kind,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Cache wraps the installed-games table.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init library schema: %w", err)
	}
	return &Cache{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS installed_games (
    game_id TEXT PRIMARY KEY,
    name TEXT,
    version TEXT,
    install_path TEXT,
    executable TEXT,
    exec_kind TEXT,
    updated_at INTEGER NOT NULL
);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Replace swaps the cached list for games in one transaction.
func (c *Cache) Replace(ctx context.Context, games []Game) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installed_games`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO installed_games
(game_id, name, version, install_path, executable, exec_kind, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(game_id) DO UPDATE SET
    name = excluded.name,
    version = excluded.version,
    install_path = excluded.install_path,
    executable = excluded.executable,
    exec_kind = excluded.exec_kind,
    updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := c.now().UnixMilli()
	for _, g := range games {
		if g.GameID == "" {
			continue
		}
		kind := g.ExecKind
		if kind == "" {
			kind = ClassifyExecutable(g.InstallPath, g.Executable)
		}
		if _, err := stmt.ExecContext(ctx, g.GameID, g.Name, g.Version, g.InstallPath, g.Executable, kind, now); err != nil {
			return fmt.Errorf("failed to cache %s: %w", g.GameID, err)
		}
	}
	return tx.Commit()
}

// SetVersion records a new installed version for one game.
func (c *Cache) SetVersion(ctx context.Context, gameID, version string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE installed_games SET version = ?, updated_at = ? WHERE game_id = ?`,
		version, c.now().UnixMilli(), gameID)
	return err
}

// List returns the cached games ordered by name.
func (c *Cache) List(ctx context.Context) ([]Game, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT game_id, name, version, install_path, executable, exec_kind, updated_at
FROM installed_games ORDER BY name, game_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Get returns one cached game.
func (c *Cache) Get(ctx context.Context, gameID string) (Game, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT game_id, name, version, install_path, executable, exec_kind, updated_at
FROM installed_games WHERE game_id = ?`, gameID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, false, nil
	}
	if err != nil {
		return Game{}, false, err
	}
	return g, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (Game, error) {
	var g Game
	var name, version, path, exe, kind sql.NullString
	var updated int64
	if err := row.Scan(&g.GameID, &name, &version, &path, &exe, &kind, &updated); err != nil {
		return Game{}, err
	}
	g.Name = name.String
	g.Version = version.String
	g.InstallPath = path.String
	g.Executable = exe.String
	g.ExecKind = kind.String
	g.UpdatedAt = time.UnixMilli(updated)
	return g, nil
}

// ClassifyExecutable sniffs the game's executable and returns its MIME type,
// KindMissing if it cannot be read, or KindUnknown for unrecognised content.
func ClassifyExecutable(installPath, executable string) string {
	if executable == "" {
		return KindMissing
	}
	path := executable
	if !filepath.IsAbs(path) && installPath != "" {
		path = filepath.Join(installPath, executable)
	}
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return KindMissing
	}
	if kind == filetype.Unknown {
		return KindUnknown
	}
	return kind.MIME.Value
}
