// Package archive persists notification history and conflict resolutions
// that fall out of the in-memory working set. The live sync state is
// rebuilt from the server on every start; this database only keeps what the
// server no longer returns, so the user can still scroll old alerts.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cvconnect/interviewsync/internal/model"
)

// Archive is a local SQLite database of evicted notifications and
// deferred-consistency conflict records.
type Archive struct {
	db *sqlx.DB
}

// Open opens (or creates) the archive database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func Open(dbPath string) (*Archive, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	a := &Archive{db: db}
	if err := a.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (a *Archive) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := a.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = a.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := a.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// AppendNotifications stores notifications evicted from the in-memory
// working set. Re-archiving an id already present replaces the row, so an
// eviction after a re-ingest keeps the latest read state.
func (a *Archive) AppendNotifications(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
INSERT OR REPLACE INTO notification_history
	(id, type, related_entity_id, message, read, created_at, scheduled_date)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, n := range notifications {
		var scheduled interface{}
		if n.ScheduledDate != nil {
			scheduled = n.ScheduledDate.UTC()
		}
		if _, err := tx.ExecContext(ctx, q,
			n.ID, string(n.Type), n.RelatedEntityID, n.Message,
			boolToInt(n.Read), n.CreatedAt.UTC(), scheduled,
		); err != nil {
			return fmt.Errorf("archiving notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive tx: %w", err)
	}
	return nil
}

// RecordConflict logs a deferred-consistency resolution: the user's
// response was kept visible while the server still reported the stale
// pre-transition status.
func (a *Archive) RecordConflict(
	ctx context.Context,
	interviewID string,
	proposed model.InterviewStatus,
	server model.InterviewStatus,
) error {
	const q = `
INSERT INTO conflict_log (id, interview_id, proposed_status, server_status)
VALUES (?, ?, ?, ?)`

	_, err := a.db.ExecContext(ctx, q,
		uuid.NewString(), interviewID, string(proposed), string(server))
	if err != nil {
		return fmt.Errorf("recording conflict for interview %s: %w", interviewID, err)
	}
	return nil
}

// historyRow is the scan target for notification_history.
type historyRow struct {
	ID              string       `db:"id"`
	Type            string       `db:"type"`
	RelatedEntityID string       `db:"related_entity_id"`
	Message         string       `db:"message"`
	Read            int          `db:"read"`
	CreatedAt       time.Time    `db:"created_at"`
	ScheduledDate   sql.NullTime `db:"scheduled_date"`
	ArchivedAt      time.Time    `db:"archived_at"`
}

// RecentHistory returns the most recently created archived notifications,
// newest first.
func (a *Archive) RecentHistory(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit < 1 {
		limit = 50
	}

	var rows []historyRow
	const q = `
SELECT id, type, related_entity_id, message, read, created_at, scheduled_date, archived_at
FROM notification_history
ORDER BY created_at DESC
LIMIT ?`

	if err := a.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("querying notification history: %w", err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n := model.Notification{
			ID:              r.ID,
			Type:            model.NotificationType(r.Type),
			RelatedEntityID: r.RelatedEntityID,
			Message:         r.Message,
			Read:            r.Read != 0,
			CreatedAt:       r.CreatedAt,
		}
		if r.ScheduledDate.Valid {
			t := r.ScheduledDate.Time
			n.ScheduledDate = &t
		}
		out = append(out, n)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
