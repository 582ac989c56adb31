package auth_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    provider TEXT NOT NULL,
    username TEXT,
    name TEXT,
    user_role TEXT NOT NULL,
    password_hash TEXT,
    external_id TEXT,
    avatar TEXT,
    blood_type TEXT,
    weight TEXT,
    height TEXT,
    last_checkup TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_users_email_provider UNIQUE (email, provider)
);`

// usernames only collide among password accounts
const sqliteCreateLocalUsernameIndex = `CREATE UNIQUE INDEX uq_users_local_username
    ON users (username) WHERE provider = 'local';`

func setupUsersDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)
	_, err = bunDB.Exec(sqliteCreateLocalUsernameIndex)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}
