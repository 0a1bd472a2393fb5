package ops

import (
	"database/sql"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/db"
)

// millisPerDay converts the oldest/newest span into whole days.
const millisPerDay = 24 * 60 * 60 * 1000

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	ID   string // addressing: exactly one of ID or Name
	Name string
}

// StatsOutput contains the result of the Stats operation.
type StatsOutput struct {
	Dataset  capacity.Dataset `json:"dataset"`
	Stats    db.DatasetStats  `json:"stats"`
	SpanDays int              `json:"span_days"`
}

// Stats computes aggregate counts for one dataset.
func Stats(database *sql.DB, input StatsInput) (*StatsOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Name)
	if err != nil {
		return nil, err
	}

	ds, err := resolveDataset(database, addr)
	if err != nil {
		return nil, err
	}

	stats, err := db.StatsForDataset(database, ds.ID)
	if err != nil {
		return nil, err
	}

	spanDays := 0
	if stats.Total > 0 {
		spanDays = int((stats.NewestTS-stats.OldestTS)/millisPerDay) + 1
	}

	return &StatsOutput{
		Dataset:  *ds,
		Stats:    *stats,
		SpanDays: spanDays,
	}, nil
}
