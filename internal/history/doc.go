// Package history persists a record of every merge run in SQLite.
//
// Each run stores its root, output folder, summary counts and status, and one
// row per task outcome. The database lives at <state_dir>/history.db and is
// opened in WAL mode so the status and history commands can read while a run
// is writing. Writes retry briefly on SQLITE_BUSY.
package history
