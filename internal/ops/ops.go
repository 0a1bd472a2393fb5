package ops

import (
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit  = 20
	MaxListLimit      = 100
	DefaultFetchLimit = 100
	MaxFetchLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Address represents a validated dataset address.
type Address struct {
	ByID bool
	ID   string
	Name string
}

// ValidateAddress validates addressing parameters and returns an Address.
// Rules:
// - Must specify exactly one addressing mode: id OR name
// - If both provided → ErrAmbiguousAddressing
// - If neither provided → ErrInvalidArgument
func ValidateAddress(id, name string) (*Address, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	if id != "" && name != "" {
		return nil, errors.NewAmbiguousAddressing()
	}
	if id == "" && name == "" {
		return nil, errors.NewInvalidArgument("must specify either id or name")
	}

	if id != "" {
		return &Address{ByID: true, ID: id}, nil
	}
	return &Address{Name: name}, nil
}

// resolveDataset looks up the dataset an Address points at.
func resolveDataset(database *sql.DB, addr *Address) (*capacity.Dataset, error) {
	if addr.ByID {
		return db.GetDatasetByID(database, addr.ID)
	}
	return db.GetDatasetByName(database, addr.Name)
}

// poolsFromConfig returns the note pools the config selects:
// a custom YAML file when note_pools_path is set, built-ins otherwise.
func poolsFromConfig(cfg *config.Config) (capacity.NotePools, error) {
	if cfg == nil || cfg.NotePoolsPath == "" {
		return capacity.DefaultPools(), nil
	}
	pools, err := capacity.LoadPools(cfg.NotePoolsPath)
	if err != nil {
		return capacity.NotePools{}, errors.NewInvalidArgument(err.Error())
	}
	return pools, nil
}

// generateULID generates a new ULID for a dataset.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
