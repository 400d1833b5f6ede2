package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database.
// These run on startup to ensure tables exist.
// Users must be created before subscriptions due to foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    total_amount REAL NOT NULL,
    currency TEXT NOT NULL,
    billing_cycle TEXT NOT NULL,
    split_strategy TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS contributors (
    id TEXT PRIMARY KEY,
    subscription_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    split_value REAL,
    calculated_amount REAL NOT NULL DEFAULT 0,
    settlement_status TEXT NOT NULL DEFAULT 'pending',
    submitted_at INTEGER,
    approved_at INTEGER,
    paid_at INTEGER,
    last_reminder_at INTEGER,
    created_at INTEGER NOT NULL,
    UNIQUE (subscription_id, member_id),
    FOREIGN KEY (subscription_id) REFERENCES subscriptions(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS invites (
    token TEXT PRIMARY KEY,
    subscription_id TEXT NOT NULL,
    issued_by TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    redeemed_by TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (subscription_id) REFERENCES subscriptions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contributors_subscription_id ON contributors(subscription_id);
CREATE INDEX IF NOT EXISTS idx_contributors_member_id ON contributors(member_id);
CREATE INDEX IF NOT EXISTS idx_invites_subscription_id ON invites(subscription_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
