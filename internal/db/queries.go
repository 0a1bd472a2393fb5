package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.CaplogError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// InsertDataset stores a dataset and all of its observations in one transaction.
// Either everything is persisted or nothing is.
func InsertDataset(db *sql.DB, ds *capacity.Dataset, obs []capacity.Observation) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	var seed sql.NullInt64
	if ds.Seed != nil {
		seed = sql.NullInt64{Int64: int64(*ds.Seed), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO datasets (id, name, years, seed, observation_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, toNullString(ds.Name), ds.Years, seed, ds.ObservationCount, ds.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations (id, dataset_id, ts, state, category, note)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i := range obs {
		o := &obs[i]
		var category sql.NullString
		if c := o.Category(); c != capacity.CategoryNone {
			category = sql.NullString{String: string(c), Valid: true}
		}
		if _, err := stmt.Exec(o.ID, ds.ID, o.Timestamp, string(o.State), category, toNullString(o.Note)); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetDatasetByID retrieves a dataset by its ULID.
func GetDatasetByID(db *sql.DB, id string) (*capacity.Dataset, error) {
	row := db.QueryRow(`
		SELECT id, name, years, seed, observation_count, created_at
		FROM datasets WHERE id = ?`, id)

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return ds, nil
}

// GetDatasetByName retrieves a dataset by its unique name.
func GetDatasetByName(db *sql.DB, name string) (*capacity.Dataset, error) {
	row := db.QueryRow(`
		SELECT id, name, years, seed, observation_count, created_at
		FROM datasets WHERE name = ?`, name)

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return ds, nil
}

// ListDatasets returns dataset summaries newest-first with the total count.
func ListDatasets(db *sql.DB, limit, offset int) ([]capacity.Dataset, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM datasets`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT id, name, years, seed, observation_count, created_at
		FROM datasets
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var datasets []capacity.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		datasets = append(datasets, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return datasets, total, nil
}

// ObservationFilter narrows ListObservations results.
// Zero values mean "no restriction".
type ObservationFilter struct {
	State    capacity.State
	Category capacity.Category
	Since    int64 // inclusive lower bound, epoch ms
	Until    int64 // inclusive upper bound, epoch ms
	Limit    int
	Offset   int
}

// ListObservations returns a page of a dataset's observations newest-first,
// plus the total count matching the filter.
func ListObservations(db *sql.DB, datasetID string, f ObservationFilter) ([]capacity.Observation, int, error) {
	where := "dataset_id = ?"
	args := []any{datasetID}

	if f.State != "" {
		where += " AND state = ?"
		args = append(args, string(f.State))
	}
	if f.Category != capacity.CategoryNone {
		where += " AND category = ?"
		args = append(args, string(f.Category))
	}
	if f.Since > 0 {
		where += " AND ts >= ?"
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		where += " AND ts <= ?"
		args = append(args, f.Until)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM observations WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := "SELECT id, ts, state, category, note FROM observations WHERE " + where +
		" ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := db.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var obs []capacity.Observation
	for rows.Next() {
		o, err := ScanObservation(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		obs = append(obs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return obs, total, nil
}

// DatasetStats aggregates one dataset's observations.
type DatasetStats struct {
	Total      int            `json:"total"`
	ByState    map[string]int `json:"by_state"`
	ByCategory map[string]int `json:"by_category"`
	ByWeekday  [7]int         `json:"by_weekday"` // 0 = Sunday
	WithNote   int            `json:"with_note"`
	OldestTS   int64          `json:"oldest_ts"`
	NewestTS   int64          `json:"newest_ts"`
}

// StatsForDataset computes aggregate counts for a dataset.
func StatsForDataset(db *sql.DB, datasetID string) (*DatasetStats, error) {
	stats := &DatasetStats{
		ByState:    make(map[string]int),
		ByCategory: make(map[string]int),
	}

	err := db.QueryRow(`
		SELECT COUNT(*), COUNT(note), COALESCE(MIN(ts), 0), COALESCE(MAX(ts), 0)
		FROM observations WHERE dataset_id = ?`, datasetID).
		Scan(&stats.Total, &stats.WithNote, &stats.OldestTS, &stats.NewestTS)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT state, COUNT(*) FROM observations
		WHERE dataset_id = ? GROUP BY state`, datasetID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		stats.ByState[state] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	catRows, err := db.Query(`
		SELECT category, COUNT(*) FROM observations
		WHERE dataset_id = ? AND category IS NOT NULL GROUP BY category`, datasetID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var category string
		var count int
		if err := catRows.Scan(&category, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		stats.ByCategory[category] = count
	}
	if err := catRows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// SQLite's %w weekday matches the simulator's Sunday = 0 convention.
	wdRows, err := db.Query(`
		SELECT CAST(strftime('%w', ts/1000, 'unixepoch') AS INTEGER), COUNT(*)
		FROM observations WHERE dataset_id = ? GROUP BY 1`, datasetID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer wdRows.Close()
	for wdRows.Next() {
		var weekday, count int
		if err := wdRows.Scan(&weekday, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		if weekday >= 0 && weekday < 7 {
			stats.ByWeekday[weekday] = count
		}
	}
	if err := wdRows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return stats, nil
}

// StreamObservations returns a cursor over a dataset's observations
// newest-first, for export streaming. The caller must Close the rows.
func StreamObservations(ctx context.Context, db *sql.DB, datasetID string) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, ts, state, category, note FROM observations
		WHERE dataset_id = ? ORDER BY ts DESC, id DESC`, datasetID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanObservation scans one observation row from an id/ts/state/category/note cursor.
func ScanObservation(rows *sql.Rows) (*capacity.Observation, error) {
	var o capacity.Observation
	var category, note sql.NullString

	if err := rows.Scan(&o.ID, &o.Timestamp, (*string)(&o.State), &category, &note); err != nil {
		return nil, err
	}

	o.Tags = []string{}
	if category.Valid {
		o.Tags = []string{category.String}
	}
	if note.Valid {
		o.Note = &note.String
	}
	return &o, nil
}

// DeleteDataset removes a dataset; observations cascade.
func DeleteDataset(db *sql.DB, id string) error {
	result, err := db.Exec(`DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeOlderThan removes datasets created before cutoff (Unix seconds)
// and returns how many were deleted.
func PurgeOlderThan(db *sql.DB, cutoff int64) (int, error) {
	result, err := db.Exec(`DELETE FROM datasets WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(affected), nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

// scanDataset scans one dataset row.
func scanDataset(s scanner) (*capacity.Dataset, error) {
	var ds capacity.Dataset
	var name sql.NullString
	var seed sql.NullInt64

	if err := s.Scan(&ds.ID, &name, &ds.Years, &seed, &ds.ObservationCount, &ds.CreatedAt); err != nil {
		return nil, err
	}

	if name.Valid {
		ds.Name = &name.String
	}
	if seed.Valid {
		u := uint64(seed.Int64)
		ds.Seed = &u
	}
	return &ds, nil
}

// toNullString converts an optional string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
