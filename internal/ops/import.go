package ops

import (
	"bufio"
	"cmp"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
)

// maxImportBytes caps import file size (64 MiB).
const maxImportBytes = 64 << 20

// maxImportLineBytes caps a single JSONL line (1 MiB).
const maxImportLineBytes = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string  // required: JSONL file produced by Export
	Name *string // optional label for the new dataset

	// BaseDir is the caplog home directory; set by the caller, not request data.
	BaseDir string `json:"-"`
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	DatasetID    string  `json:"dataset_id"`
	Name         *string `json:"name,omitempty"`
	Observations int     `json:"observations"`
}

// Import reads a JSONL export file and stores it as a new dataset.
// The whole file is validated before anything touches the database, so a
// malformed line imports nothing.
func Import(database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidArgument("path is required")
	}
	if err := validateExchangePath(input.Path, cfg, input.BaseDir); err != nil {
		return nil, err
	}

	var name *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, errors.NewInvalidArgument("name must not be empty (omit it for unnamed datasets)")
		}
		name = &trimmed
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		return nil, errors.NewInvalidDatasetFile(0, fmt.Sprintf("cannot read file: %v", err))
	}
	if info.Size() > maxImportBytes {
		return nil, errors.NewInvalidDatasetFile(0, fmt.Sprintf("file exceeds %d bytes", maxImportBytes))
	}

	file, err := os.Open(input.Path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer file.Close()

	header, obs, err := parseExportFile(file)
	if err != nil {
		return nil, err
	}

	// Re-establish the ordering contract regardless of file order.
	slices.SortFunc(obs, func(a, b capacity.Observation) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ds := &capacity.Dataset{
		ID:               id,
		Name:             name,
		Years:            header.Years,
		ObservationCount: len(obs),
		CreatedAt:        time.Now().Unix(),
	}

	if err := db.InsertDataset(database, ds, obs); err != nil {
		if err == db.ErrUniqueConstraint && name != nil {
			return nil, errors.NewNameAlreadyExists(*name)
		}
		return nil, err
	}

	return &ImportOutput{
		DatasetID:    ds.ID,
		Name:         ds.Name,
		Observations: ds.ObservationCount,
	}, nil
}

// parseExportFile reads the header line and every observation line,
// validating each record against the storage contract.
func parseExportFile(file *os.File) (*ExportHeader, []capacity.Observation, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, errors.NewInternal(err)
		}
		return nil, nil, errors.NewInvalidDatasetFile(0, "file is empty")
	}

	var header ExportHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil || !header.CaplogExport {
		return nil, nil, errors.NewInvalidDatasetFile(1, "missing caplog export header")
	}
	if header.SchemaVersion != ExportSchemaVersion {
		return nil, nil, errors.NewInvalidDatasetFile(1,
			fmt.Sprintf("unsupported schema version %q", header.SchemaVersion))
	}

	var obs []capacity.Observation
	seen := make(map[string]bool)
	line := 1
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var o capacity.Observation
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, nil, errors.NewInvalidDatasetFile(line, "malformed JSON record")
		}
		if err := validateRecord(&o); err != nil {
			return nil, nil, errors.NewInvalidDatasetFile(line, err.Error())
		}
		if seen[o.ID] {
			return nil, nil, errors.NewInvalidDatasetFile(line, fmt.Sprintf("duplicate id %s", o.ID))
		}
		seen[o.ID] = true

		if o.Tags == nil {
			o.Tags = []string{}
		}
		obs = append(obs, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.NewInternal(err)
	}

	if len(obs) == 0 {
		return nil, nil, errors.NewInvalidDatasetFile(0, "no observation records")
	}
	return &header, obs, nil
}

// validateRecord checks one observation against the storage contract.
func validateRecord(o *capacity.Observation) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("missing id")
	}
	if !capacity.ValidState(o.State) {
		return fmt.Errorf("unknown state %q", o.State)
	}
	if o.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive epoch milliseconds")
	}
	if len(o.Tags) > 1 {
		return fmt.Errorf("at most one tag is allowed")
	}
	if len(o.Tags) == 1 && !capacity.ValidCategory(capacity.Category(o.Tags[0])) {
		return fmt.Errorf("unknown tag %q", o.Tags[0])
	}
	return nil
}
