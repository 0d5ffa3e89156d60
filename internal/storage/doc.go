// Package storage persists the append-only network performance time
// series and serves the query paths the diagnostic engine reads:
// latest record per path and all records for a path since a cutoff.
package storage
