// Package sqlite persists unified entries in an embedded SQLite
// database. Schema changes ship as embedded migrations applied on open.
package sqlite
