// Package dialect names the supported database dialects and defines the
// minimal driver contract shared by relmap packages.
//
//   - Postgres: PostgreSQL, "$n" placeholders, identifiers read back with a
//     returning clause
//   - MySQL: MySQL and MariaDB
//   - SQLite: SQLite through modernc.org/sqlite
//
// The dialect name is also the database/sql driver name relmap expects to be
// registered for it.
package dialect
