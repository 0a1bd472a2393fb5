package ops

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
// Exactly one mode: address a single dataset (ID or Name), or
// purge every dataset older than OlderThanDays.
type PurgeInput struct {
	ID            string
	Name          string
	OlderThanDays *int
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes datasets and their observations.
func Purge(database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	hasAddress := input.ID != "" || input.Name != ""

	if hasAddress && input.OlderThanDays != nil {
		return nil, errors.NewInvalidArgument("specify a dataset or older_than_days, not both")
	}

	if hasAddress {
		addr, err := ValidateAddress(input.ID, input.Name)
		if err != nil {
			return nil, err
		}
		ds, err := resolveDataset(database, addr)
		if err != nil {
			return nil, err
		}
		if err := db.DeleteDataset(database, ds.ID); err != nil {
			return nil, err
		}
		return &PurgeOutput{
			Purged:  1,
			Message: fmt.Sprintf("Permanently deleted dataset %s", ds.Label()),
		}, nil
	}

	if input.OlderThanDays == nil {
		return nil, errors.NewInvalidArgument("must specify a dataset or older_than_days")
	}
	if *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidArgument("older_than_days must not be negative")
	}

	cutoff := time.Now().Add(-time.Duration(*input.OlderThanDays) * 24 * time.Hour).Unix()
	count, err := db.PurgeOlderThan(database, cutoff)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, *input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for an age-based purge.
func formatPurgeMessage(count, olderThanDays int) string {
	if count == 0 {
		return "No datasets to purge"
	}

	datasetWord := "dataset"
	if count > 1 {
		datasetWord = "datasets"
	}
	return fmt.Sprintf("Permanently deleted %d %s (seeded more than %d days ago)",
		count, datasetWord, olderThanDays)
}
