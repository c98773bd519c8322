package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create kv",
		SQL: `
			CREATE TABLE kv (
				key         TEXT PRIMARY KEY,
				value       TEXT NOT NULL,
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "create conversations and messages",
		SQL: `
			CREATE TABLE conversations (
				id          TEXT PRIMARY KEY,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE messages (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role             TEXT NOT NULL,
				content          TEXT NOT NULL,
				tool_call_id     TEXT NOT NULL DEFAULT '',
				tool_calls       TEXT,
				created_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_conversation ON messages (conversation_id, id);
		`,
	},
	{
		Version: 3,
		Name:    "create creators with FTS5",
		SQL: `
			CREATE TABLE creators (
				id               TEXT PRIMARY KEY,
				handle           TEXT NOT NULL,
				name             TEXT NOT NULL DEFAULT '',
				platform         TEXT NOT NULL,
				niche            TEXT NOT NULL DEFAULT '',
				followers        INTEGER NOT NULL DEFAULT 0,
				engagement_rate  REAL NOT NULL DEFAULT 0,
				location         TEXT NOT NULL DEFAULT '',
				email            TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_creators_platform ON creators (platform);

			CREATE VIRTUAL TABLE creators_fts USING fts5(
				handle,
				name,
				niche,
				location,
				content='creators',
				content_rowid='rowid'
			);

			CREATE TRIGGER creators_ai AFTER INSERT ON creators BEGIN
				INSERT INTO creators_fts(rowid, handle, name, niche, location)
				VALUES (new.rowid, new.handle, new.name, new.niche, new.location);
			END;

			CREATE TRIGGER creators_ad AFTER DELETE ON creators BEGIN
				INSERT INTO creators_fts(creators_fts, rowid, handle, name, niche, location)
				VALUES ('delete', old.rowid, old.handle, old.name, old.niche, old.location);
			END;

			CREATE TRIGGER creators_au AFTER UPDATE ON creators BEGIN
				INSERT INTO creators_fts(creators_fts, rowid, handle, name, niche, location)
				VALUES ('delete', old.rowid, old.handle, old.name, old.niche, old.location);
				INSERT INTO creators_fts(rowid, handle, name, niche, location)
				VALUES (new.rowid, new.handle, new.name, new.niche, new.location);
			END;
		`,
	},
}
