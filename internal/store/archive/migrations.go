package archive

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_history (
	id                TEXT PRIMARY KEY,
	type              TEXT NOT NULL,
	related_entity_id TEXT NOT NULL DEFAULT '',
	message           TEXT NOT NULL,
	read              INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL,
	scheduled_date    DATETIME,
	archived_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conflict_log (
	id              TEXT PRIMARY KEY,
	interview_id    TEXT NOT NULL,
	proposed_status TEXT NOT NULL,
	server_status   TEXT NOT NULL,
	resolved_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_history_created_at
	ON notification_history(created_at);
CREATE INDEX IF NOT EXISTS idx_conflict_interview
	ON conflict_log(interview_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
