package ops

import (
	"database/sql"
	"fmt"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID   string // addressing: exactly one of ID or Name
	Name string

	State    string // optional filter: resourced|stretched|depleted
	Category string // optional filter: sensory|demand|social
	Since    int64  // optional inclusive lower bound, epoch ms
	Until    int64  // optional inclusive upper bound, epoch ms

	Limit  int // default: 100, max: 500
	Offset int // default: 0
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	Dataset    capacity.Dataset       `json:"dataset"`
	Items      []capacity.Observation `json:"items"`
	Pagination Pagination             `json:"pagination"`
	Sort       string                 `json:"sort"`
}

// Fetch retrieves one dataset's observations newest-first, with filters.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Name)
	if err != nil {
		return nil, err
	}

	if input.State != "" && !capacity.ValidState(capacity.State(input.State)) {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("unknown state %q", input.State))
	}
	if input.Category != "" && !capacity.ValidCategory(capacity.Category(input.Category)) {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("unknown category %q", input.Category))
	}
	if input.Since < 0 || input.Until < 0 {
		return nil, errors.NewInvalidArgument("since and until must be epoch milliseconds")
	}
	if input.Since > 0 && input.Until > 0 && input.Since > input.Until {
		return nil, errors.NewInvalidArgument("since must not be after until")
	}

	ds, err := resolveDataset(database, addr)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	if limit > MaxFetchLimit {
		limit = MaxFetchLimit
	}
	offset := max(input.Offset, 0)

	items, total, err := db.ListObservations(database, ds.ID, db.ObservationFilter{
		State:    capacity.State(input.State),
		Category: capacity.Category(input.Category),
		Since:    input.Since,
		Until:    input.Until,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []capacity.Observation{}
	}

	return &FetchOutput{
		Dataset: *ds,
		Items:   items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "timestamp_desc",
	}, nil
}
