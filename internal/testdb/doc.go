// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests obtain a connection with Open, which skips the test when no database
// URL is configured and applies the embedded migrations once per process.
// WithTx runs the test body in a transaction that is always rolled back, so
// tests can share the schema and run in parallel:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		users := postgres.NewPostgresUserStore(tx, bcrypt.MinCost, logger)
//		...
//	})
package testdb
