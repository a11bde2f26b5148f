package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    promptpay_id TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS trip_members (
    trip_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (trip_id, user_id),
    FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    trip_id TEXT NOT NULL,
    title TEXT NOT NULL,
    total_amount REAL NOT NULL,
    paid_by_user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS bill_shares (
    id TEXT PRIMARY KEY,
    bill_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount_share REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'unpaid',
    amount_paid REAL NOT NULL DEFAULT 0,
    is_confirmed INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    bill_share_id TEXT NOT NULL,
    amount REAL NOT NULL,
    method TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (bill_share_id) REFERENCES bill_shares(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payment_proofs (
    id TEXT PRIMARY KEY,
    bill_id TEXT NOT NULL,
    creditor_id TEXT NOT NULL,
    debtor_user_id TEXT NOT NULL,
    amount REAL NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    slip_qr TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    slip_check TEXT NOT NULL DEFAULT '',
    slip_amount REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS debt_summaries (
    debt_id TEXT PRIMARY KEY,
    trip_id TEXT NOT NULL,
    debtor_user TEXT NOT NULL,
    creditor_user TEXT NOT NULL,
    amount_owed REAL NOT NULL DEFAULT 0,
    amount_paid REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    last_update INTEGER NOT NULL,
    UNIQUE (trip_id, debtor_user, creditor_user)
);

CREATE TABLE IF NOT EXISTS friend_requests (
    id TEXT PRIMARY KEY,
    from_user_id TEXT NOT NULL,
    to_user_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS friendships (
    user_id TEXT NOT NULL,
    friend_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, friend_id)
);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    ref_id TEXT NOT NULL DEFAULT '',
    read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trip_members_user_id ON trip_members(user_id);
CREATE INDEX IF NOT EXISTS idx_bills_trip_id ON bills(trip_id);
CREATE INDEX IF NOT EXISTS idx_bill_shares_bill_id ON bill_shares(bill_id);
CREATE INDEX IF NOT EXISTS idx_bill_shares_user_id ON bill_shares(user_id);
CREATE INDEX IF NOT EXISTS idx_payments_bill_share_id ON payments(bill_share_id);
CREATE INDEX IF NOT EXISTS idx_payment_proofs_creditor ON payment_proofs(creditor_id);
CREATE INDEX IF NOT EXISTS idx_payment_proofs_debtor ON payment_proofs(debtor_user_id);
CREATE INDEX IF NOT EXISTS idx_debt_summaries_debtor ON debt_summaries(debtor_user);
CREATE INDEX IF NOT EXISTS idx_debt_summaries_creditor ON debt_summaries(creditor_user);
CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
