package app

import (
	"database/sql"
	"fmt"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS private_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  author TEXT NOT NULL,
  recipient TEXT NOT NULL,
  body TEXT NOT NULL,
  ts INTEGER NOT NULL
);
`

// AuditLog retains every private message in a flat, uncapped table. It is
// backed by an in-memory database: nothing survives the process.
type AuditLog struct {
	db *sql.DB
}

func NewAuditLog() (*AuditLog, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// a pooled :memory: handle would open a fresh empty db per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &AuditLog{db: db}, nil
}

func (a *AuditLog) Record(pm domain.PrivateMessage) error {
	_, err := a.db.Exec(
		"INSERT INTO private_log (author, recipient, body, ts) VALUES (?, ?, ?, ?)",
		pm.Author, pm.Recipient, pm.Body, pm.Timestamp.Unix(),
	)
	if err != nil {
		log.Error().Err(err).Str("module", "app.audit").Msg("record private message")
		return fmt.Errorf("record private message: %w", err)
	}
	return nil
}

// CountFor reports how many private messages a user has sent.
func (a *AuditLog) CountFor(author string) (int, error) {
	var n int
	err := a.db.QueryRow("SELECT COUNT(*) FROM private_log WHERE author = ?", author).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count private messages: %w", err)
	}
	return n, nil
}

func (a *AuditLog) Close() error {
	return a.db.Close()
}
