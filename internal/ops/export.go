package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
)

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	ID   string // addressing: exactly one of ID or Name
	Name string

	// Path is the target file; default: <BaseDir>/exports/<label>-<timestamp>.jsonl
	Path string

	// BaseDir is the caplog home directory; set by the caller, not request data.
	BaseDir string `json:"-"`
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	CaplogExport  bool    `json:"_caplog_export"`
	SchemaVersion string  `json:"schema_version"`
	ExportedAt    int64   `json:"exported_at"`
	DatasetID     string  `json:"dataset_id"`
	Name          *string `json:"name,omitempty"`
	Years         int     `json:"years"`
}

// Export writes one dataset to a JSONL file: a header line, then one
// observation per line, newest first. The file appears atomically or not
// at all.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Name)
	if err != nil {
		return nil, err
	}

	ds, err := resolveDataset(database, addr)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		exportPath = filepath.Join(input.BaseDir, "exports",
			fmt.Sprintf("%s-%s.jsonl", ds.Label(), now.Format("20060102-150405")))
	}

	// Validate all paths, defaults included: a dataset label could otherwise
	// smuggle separators into the exports directory.
	if err := validateExchangePath(exportPath, cfg, input.BaseDir); err != nil {
		return nil, err
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve any existing
	// file on failure.
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	header := ExportHeader{
		CaplogExport:  true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
		DatasetID:     ds.ID,
		Name:          ds.Name,
		Years:         ds.Years,
	}
	if err := writeJSONLine(file, header); err != nil {
		return nil, err
	}

	rows, err := db.StreamObservations(ctx, database, ds.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("export")
		default:
		}

		o, err := db.ScanObservation(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := writeJSONLine(file, o); err != nil {
			return nil, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := file.Close(); err != nil {
		file = nil
		return nil, errors.NewInternal(err)
	}
	file = nil

	if err := os.Rename(tempPath, exportPath); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export file: %w", err))
	}
	success = true

	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: header.ExportedAt,
	}, nil
}

// writeJSONLine marshals v and writes it followed by a newline.
func writeJSONLine(file *os.File, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// validateExchangePath checks an export/import path: must be absolute after
// cleaning, carry a .jsonl extension, and sit inside the exports directory or
// a configured allowed root (unless allow_unsafe_paths is set).
func validateExchangePath(path string, cfg *config.Config, baseDir string) error {
	cleaned, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInternal(err)
	}

	if strings.ToLower(filepath.Ext(cleaned)) != ".jsonl" {
		return errors.NewPathNotAllowed(path, "file must have a .jsonl extension")
	}

	if cfg != nil && cfg.AllowUnsafePaths {
		return nil
	}

	roots := []string{filepath.Join(baseDir, "exports")}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				roots = append(roots, filepath.Clean(p))
			}
		}
	}

	for _, root := range roots {
		if pathWithinRoot(cleaned, root) {
			return nil
		}
	}
	return errors.NewPathNotAllowed(path, "outside exports directory and allowed_paths")
}

// pathWithinRoot reports whether path sits at or below root.
func pathWithinRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
