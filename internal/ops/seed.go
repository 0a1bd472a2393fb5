package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
	"github.com/fernwell/caplog/internal/simulate"
)

// SeedInput contains parameters for the Seed operation.
type SeedInput struct {
	Years int     // 0 means the configured default
	Name  *string // optional unique label
	Seed  *uint64 // optional fixed random seed, recorded on the dataset
}

// SeedOutput contains the result of the Seed operation.
type SeedOutput struct {
	DatasetID    string  `json:"dataset_id"`
	Name         *string `json:"name,omitempty"`
	Years        int     `json:"years"`
	Observations int     `json:"observations"`
	CreatedAt    int64   `json:"created_at"`
}

// Seed generates a synthetic capacity log and persists it as a new dataset.
// The generate-and-insert is all-or-nothing: a name collision or storage
// failure leaves nothing behind.
func Seed(database *sql.DB, cfg *config.Config, input SeedInput) (*SeedOutput, error) {
	years := input.Years
	if years == 0 && cfg != nil {
		years = cfg.DefaultYears
	}

	var name *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, errors.NewInvalidArgument("name must not be empty (omit it for unnamed datasets)")
		}
		name = &trimmed
	}

	pools, err := poolsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	opts := []simulate.Option{simulate.WithPools(pools)}
	if input.Seed != nil {
		opts = append(opts, simulate.WithRand(simulate.NewSource(*input.Seed)))
	}

	obs, err := simulate.New(opts...).Generate(years)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ds := &capacity.Dataset{
		ID:               id,
		Name:             name,
		Years:            years,
		Seed:             input.Seed,
		ObservationCount: len(obs),
		CreatedAt:        time.Now().Unix(),
	}

	if err := db.InsertDataset(database, ds, obs); err != nil {
		if err == db.ErrUniqueConstraint && name != nil {
			return nil, errors.NewNameAlreadyExists(*name)
		}
		return nil, err
	}

	return &SeedOutput{
		DatasetID:    ds.ID,
		Name:         ds.Name,
		Years:        ds.Years,
		Observations: ds.ObservationCount,
		CreatedAt:    ds.CreatedAt,
	}, nil
}
