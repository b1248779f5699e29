// Package postgres is a [goAccount.UserStore] backed by PostgreSQL through
// pgx. The schema ships as embedded golang-migrate migrations; see
// [NewMigrator].
package postgres
