package store

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

CREATE TABLE IF NOT EXISTS categories (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	created_at       DATETIME NOT NULL,
	name             TEXT NOT NULL,
	note             TEXT NOT NULL DEFAULT '',
	deadline_date    TEXT,
	deadline_time    TEXT,
	start_after_date TEXT,
	start_after_time TEXT,
	scheduled_date   TEXT,
	scheduled_time   TEXT,
	category_id      TEXT REFERENCES categories(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS task_recurrences (
	id       TEXT PRIMARY KEY,
	task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	start    TEXT NOT NULL,
	type     INTEGER NOT NULL,
	step     INTEGER NOT NULL CHECK (step >= 1),
	week     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS task_completions (
	id       TEXT PRIMARY KEY,
	task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	done_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task_skips (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	skipped_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task_paths (
	ancestor    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	descendant  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depth       INTEGER NOT NULL CHECK (depth >= 1),
	PRIMARY KEY (ancestor, descendant)
);

CREATE INDEX IF NOT EXISTS idx_tasks_name ON tasks(name);
CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id);
CREATE INDEX IF NOT EXISTS idx_task_recurrences_task ON task_recurrences(task_id);
CREATE INDEX IF NOT EXISTS idx_task_completions_task ON task_completions(task_id, done_at);
CREATE INDEX IF NOT EXISTS idx_task_skips_task ON task_skips(task_id, skipped_at);
CREATE INDEX IF NOT EXISTS idx_task_paths_descendant ON task_paths(descendant, depth);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
