package ops

import (
	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/simulate"
)

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	Years int     // 0 means the configured default
	Seed  *uint64 // optional fixed random seed
	Limit int     // optional: keep only the newest N observations
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	Years        int                    `json:"years"`
	Count        int                    `json:"count"` // total before any truncation
	Observations []capacity.Observation `json:"observations"`
}

// Generate produces a synthetic capacity log without persisting anything.
// This is the pure simulator contract; Seed wraps it with storage.
func Generate(cfg *config.Config, input GenerateInput) (*GenerateOutput, error) {
	years := input.Years
	if years == 0 && cfg != nil {
		years = cfg.DefaultYears
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

	total := len(obs)
	if input.Limit > 0 && input.Limit < total {
		// Already sorted newest-first, so the head is the newest slice.
		obs = obs[:input.Limit]
	}

	return &GenerateOutput{
		Years:        years,
		Count:        total,
		Observations: obs,
	}, nil
}
