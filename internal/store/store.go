package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknownTable is returned by Preview for names that are not previewable.
var ErrUnknownTable = errors.New("unknown table")

// Stats holds the aggregate counters shown by the stats command.
type Stats struct {
	Suggestions      int64
	Titles           int64
	PendingMemories  int64
	DefaultReactions int64
	CustomReactions  int64
}

// EmojiUsage is one row of emojis_custom.
type EmojiUsage struct {
	ID   string
	Name string
	Uses int
}

// Table describes one table of the database.
type Table struct {
	Name string
	SQL  string
	Rows int64
}

// Preview holds the first rows of a table, rendered as strings.
type Preview struct {
	Table   string
	Columns []string
	Rows    [][]string
}

// Store wraps the bot database.
type Store struct {
	db      *sql.DB
	path    string
	allowed []string
	now     func() time.Time
}

// Open opens the database at path. allowed restricts which tables Preview may
// read; an empty list allows every non-internal table.
func Open(ctx context.Context, path string, allowed []string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}
	return &Store{db: db, path: path, allowed: allowed, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the tables the admin commands read, if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS suggestions (
  id INTEGER PRIMARY KEY,
  author_id INTEGER NOT NULL DEFAULT 0,
  title TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS used_titles (
  title TEXT PRIMARY KEY,
  used_at INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE TABLE IF NOT EXISTS memories (
  id INTEGER PRIMARY KEY,
  user_id INTEGER NOT NULL DEFAULT 0,
  body TEXT NOT NULL DEFAULT '',
  due_at INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'Pending'
);`,
		`CREATE TABLE IF NOT EXISTS emojis_default (
  Emoji TEXT PRIMARY KEY,
  Uses INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE TABLE IF NOT EXISTS emojis_custom (
  EmojiID TEXT PRIMARY KEY,
  Name TEXT NOT NULL,
  Uses INTEGER NOT NULL DEFAULT 0
);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Stats returns the aggregate counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM suggestions`, &st.Suggestions},
		{`SELECT COUNT(*) FROM used_titles`, &st.Titles},
		{`SELECT COUNT(*) FROM memories WHERE status != 'Past'`, &st.PendingMemories},
		{`SELECT COALESCE(SUM(Uses), 0) FROM emojis_default`, &st.DefaultReactions},
		{`SELECT COALESCE(SUM(Uses), 0) FROM emojis_custom`, &st.CustomReactions},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("query stats: %w", err)
		}
	}
	return st, nil
}

// EmojiUsage returns recorded usage for the given emoji ids, least used first.
func (s *Store) EmojiUsage(ctx context.Context, ids []string) ([]EmojiUsage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT EmojiID, Name, Uses FROM emojis_custom
WHERE EmojiID IN (` + placeholders(len(ids)) + `)
ORDER BY Uses ASC`
	return s.queryEmojis(ctx, query, stringArgs(ids))
}

// RandomEmojis returns up to n random recorded emojis among ids.
func (s *Store) RandomEmojis(ctx context.Context, ids []string, n int) ([]EmojiUsage, error) {
	if len(ids) == 0 || n <= 0 {
		return nil, nil
	}
	query := `SELECT EmojiID, Name, Uses FROM emojis_custom
WHERE EmojiID IN (` + placeholders(len(ids)) + `)
ORDER BY RANDOM()
LIMIT ?`
	args := append(stringArgs(ids), n)
	return s.queryEmojis(ctx, query, args)
}

func (s *Store) queryEmojis(ctx context.Context, query string, args []any) ([]EmojiUsage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query emojis: %w", err)
	}
	defer rows.Close()

	var out []EmojiUsage
	for rows.Next() {
		var e EmojiUsage
		if err := rows.Scan(&e.ID, &e.Name, &e.Uses); err != nil {
			return nil, fmt.Errorf("scan emoji: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query emojis: %w", err)
	}
	return out, nil
}

// Tables lists every table with its DDL and row count.
func (s *Store) Tables(ctx context.Context) ([]Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, COALESCE(sql, '') FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.SQL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list tables: %w", err)
	}
	rows.Close()

	// Counted after the cursor is closed; the pool holds a single connection.
	for i := range tables {
		query := `SELECT COUNT(*) FROM ` + quoteIdent(tables[i].Name)
		if err := s.db.QueryRowContext(ctx, query).Scan(&tables[i].Rows); err != nil {
			return nil, fmt.Errorf("count %s: %w", tables[i].Name, err)
		}
	}
	return tables, nil
}

// Previewable returns the names Preview accepts, in catalogue order.
func (s *Store) Previewable(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if len(s.allowed) > 0 && !slices.Contains(s.allowed, name) {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Preview returns the first limit rows of table.
func (s *Store) Preview(ctx context.Context, table string, limit int) (Preview, error) {
	names, err := s.Previewable(ctx)
	if err != nil {
		return Preview{}, err
	}
	table = strings.TrimSpace(table)
	if !slices.Contains(names, table) {
		return Preview{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM `+quoteIdent(table)+` LIMIT ?`, limit)
	if err != nil {
		return Preview{}, fmt.Errorf("preview %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Preview{}, fmt.Errorf("preview %s: %w", table, err)
	}
	p := Preview{Table: table, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Preview{}, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		p.Rows = append(p.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Preview{}, fmt.Errorf("preview %s: %w", table, err)
	}
	return p, nil
}

// Backup writes a consistent copy of the database into dir and returns its
// path.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	dest := filepath.Join(dir, fmt.Sprintf("%s-%s.db", base, s.now().UTC().Format("20060102-150405")))
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return dest, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
