// Package store persists counseling records in SQLite. Records are
// append-only from the pipeline's perspective; listing is paginated and
// sorted newest first.
package store
