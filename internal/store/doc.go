// Package store persists built spaxel tables. A dataset file keeps the
// survey's legacy .hd5 name but is a SQLite database holding the table
// schema, the column values and the run provenance. Writes are
// idempotent on the table fingerprint, so rebuilding an identical table
// never duplicates a dataset.
package store
