// Package sqlite is the durable side of the account store. The engine treats
// the in-memory store as the record of truth; this collaborator loads it at
// startup and receives best-effort saves around it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/authgate/internal/account"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	unique_id        TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	type             TEXT NOT NULL DEFAULT 'unknown',
	authenticated    INTEGER NOT NULL DEFAULT 0,
	last_seen        DATETIME,
	playtime_seconds INTEGER NOT NULL DEFAULT 0
);
`

// Store persists accounts in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates, if needed) the database at path. Use ":memory:"
// for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadAccounts reads every persisted account, for seeding the in-memory store.
func (s *Store) LoadAccounts(ctx context.Context) ([]*account.Account, error) {
	query := `
		SELECT unique_id, name, type, authenticated, last_seen, playtime_seconds
		FROM accounts
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []*account.Account
	for rows.Next() {
		var (
			rawID    string
			name     string
			rawType  string
			authed   bool
			lastSeen sql.NullTime
			playtime int64
		)
		if err := rows.Scan(&rawID, &name, &rawType, &authed, &lastSeen, &playtime); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse account id %q: %w", rawID, err)
		}

		var seen time.Time
		if lastSeen.Valid {
			seen = lastSeen.Time
		}

		out = append(out, account.Restore(id, name, parseType(rawType), authed, seen, time.Duration(playtime)*time.Second))
	}
	return out, rows.Err()
}

// SaveAccount upserts one account snapshot.
func (s *Store) SaveAccount(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (unique_id, name, type, authenticated, last_seen, playtime_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			authenticated = excluded.authenticated,
			last_seen = excluded.last_seen,
			playtime_seconds = excluded.playtime_seconds
	`

	var lastSeen any
	if seen := a.LastSeen(); !seen.IsZero() {
		lastSeen = seen
	}

	_, err := s.db.ExecContext(ctx, query,
		a.UniqueID().String(),
		a.Name(),
		a.Type().String(),
		a.Authenticated(),
		lastSeen,
		int64(a.Playtime()/time.Second),
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func parseType(s string) account.Type {
	switch s {
	case "premium":
		return account.TypePremium
	case "cracked":
		return account.TypeCracked
	default:
		return account.TypeUnknown
	}
}
