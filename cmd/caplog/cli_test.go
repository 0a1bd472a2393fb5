package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/ops"
)

// setupTest creates a temporary database and base directory for testing.
func setupTest(t *testing.T) (*sql.DB, string) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database, baseDir
}

// captureStdout runs fn while capturing everything written to stdout.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), runErr
}

// seedDataset stores a small fixed-seed dataset directly through ops.
func seedDataset(t *testing.T, database *sql.DB, name string) *ops.SeedOutput {
	t.Helper()
	seed := uint64(7)
	input := ops.SeedInput{Years: 1, Seed: &seed}
	if name != "" {
		input.Name = &name
	}
	output, err := ops.Seed(database, config.DefaultConfig(), input)
	if err != nil {
		t.Fatalf("failed to seed test dataset: %v", err)
	}
	return output
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{
			name:     "valid days",
			input:    "30d",
			expected: 30,
		},
		{
			name:     "zero days",
			input:    "0d",
			expected: 0,
		},
		{
			name:     "large number",
			input:    "365d",
			expected: 365,
		},
		{
			name:        "negative days",
			input:       "-7d",
			expectError: true,
		},
		{
			name:        "no suffix",
			input:       "7",
			expectError: true,
		},
		{
			name:        "wrong suffix",
			input:       "7h",
			expectError: true,
		},
		{
			name:        "invalid number",
			input:       "abcd",
			expectError: true,
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

// TestCLISeed tests the seed command.
func TestCLISeed(t *testing.T) {
	database, baseDir := setupTest(t)
	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"caplog", "seed", "--years=1", "--seed=42", "--name=cli-seed"})
	})
	if err != nil {
		t.Fatalf("seed command failed: %v", err)
	}

	var output ops.SeedOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}

	if output.DatasetID == "" {
		t.Error("expected non-empty dataset ID")
	}
	if output.Name == nil || *output.Name != "cli-seed" {
		t.Errorf("expected name=cli-seed, got %v", output.Name)
	}
	if output.Observations < 366 {
		t.Errorf("expected at least one observation per day, got %d", output.Observations)
	}
}

// TestCLIGenerate tests the generate command.
func TestCLIGenerate(t *testing.T) {
	database, baseDir := setupTest(t)
	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"caplog", "generate", "--years=1", "--seed=42", "--limit=5"})
	})
	if err != nil {
		t.Fatalf("generate command failed: %v", err)
	}

	var output ops.GenerateOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if len(output.Observations) != 5 {
		t.Errorf("expected 5 observations, got %d", len(output.Observations))
	}
	if output.Count < 366 {
		t.Errorf("expected untruncated count, got %d", output.Count)
	}

	// Nothing should be stored
	listOutput, err := ops.List(database, ops.ListInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if listOutput.Pagination.Total != 0 {
		t.Errorf("expected 0 stored datasets, got %d", listOutput.Pagination.Total)
	}
}

// TestCLIList tests the list command.
func TestCLIList(t *testing.T) {
	database, baseDir := setupTest(t)
	for _, name := range []string{"list-a", "list-b", "list-c"} {
		seedDataset(t, database, name)
	}

	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"caplog", "list"})
	})
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	var output ops.ListOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if len(output.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(output.Items))
	}
	if output.Pagination.Total != 3 {
		t.Errorf("expected total=3, got %d", output.Pagination.Total)
	}
}

// TestCLIFetch tests the fetch command.
func TestCLIFetch(t *testing.T) {
	database, baseDir := setupTest(t)
	seeded := seedDataset(t, database, "fetch-test")

	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	t.Run("fetch by name", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "fetch", "--name=fetch-test", "--limit=10"})
		})
		if err != nil {
			t.Fatalf("fetch command failed: %v", err)
		}

		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}

		if output.Dataset.ID != seeded.DatasetID {
			t.Errorf("expected dataset ID=%s, got %s", seeded.DatasetID, output.Dataset.ID)
		}
		if len(output.Items) != 10 {
			t.Errorf("expected 10 items, got %d", len(output.Items))
		}
	})

	t.Run("fetch by id with filter", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "fetch", "--state=depleted", seeded.DatasetID})
		})
		if err != nil {
			t.Fatalf("fetch command failed: %v", err)
		}

		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}

		for i, o := range output.Items {
			if o.State != "depleted" {
				t.Errorf("item[%d] state=%s, want depleted", i, o.State)
			}
		}
	})
}

// TestCLIStats tests the stats command in both formats.
func TestCLIStats(t *testing.T) {
	database, baseDir := setupTest(t)
	seeded := seedDataset(t, database, "stats-test")

	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	t.Run("json format", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "stats", "--name=stats-test"})
		})
		if err != nil {
			t.Fatalf("stats command failed: %v", err)
		}

		var output ops.StatsOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}

		if output.Stats.Total != seeded.Observations {
			t.Errorf("expected total=%d, got %d", seeded.Observations, output.Stats.Total)
		}
	})

	t.Run("table format", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "stats", "--format=table", "--name=stats-test"})
		})
		if err != nil {
			t.Fatalf("stats command failed: %v", err)
		}

		for _, want := range []string{"STATE", "CATEGORY", "WEEKDAY", "resourced", "Sunday"} {
			if !strings.Contains(out, want) {
				t.Errorf("table output missing %q", want)
			}
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "stats", "--format=yaml", "--name=stats-test"})
		})
		if err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

// TestCLIExportImport tests the export and import commands.
func TestCLIExportImport(t *testing.T) {
	database, baseDir := setupTest(t)
	seeded := seedDataset(t, database, "export-test")

	app := newCLIApp(database, config.DefaultConfig(), baseDir)
	exportPath := filepath.Join(baseDir, "exports", "export.jsonl")

	t.Run("export", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "export", "--path=" + exportPath, "--name=export-test"})
		})
		if err != nil {
			t.Fatalf("export command failed: %v", err)
		}

		var output ops.ExportOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}

		if output.Count != seeded.Observations {
			t.Errorf("expected count=%d, got %d", seeded.Observations, output.Count)
		}
		if output.Path != exportPath {
			t.Errorf("expected path=%s, got %s", exportPath, output.Path)
		}
	})

	// Create new database for import test
	database2, baseDir2 := setupTest(t)
	cfg2 := config.DefaultConfig()
	cfg2.AllowedPaths = []string{filepath.Join(baseDir, "exports")}
	app2 := newCLIApp(database2, cfg2, baseDir2)

	t.Run("import", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app2.Run([]string{"caplog", "import", "--path=" + exportPath, "--name=copy"})
		})
		if err != nil {
			t.Fatalf("import command failed: %v", err)
		}

		var output ops.ImportOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}

		if output.Observations != seeded.Observations {
			t.Errorf("expected observations=%d, got %d", seeded.Observations, output.Observations)
		}
	})
}

// TestCLIPurge tests the purge command.
func TestCLIPurge(t *testing.T) {
	database, baseDir := setupTest(t)
	seedDataset(t, database, "purge-test")

	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"caplog", "purge", "--name=purge-test"})
	})
	if err != nil {
		t.Fatalf("purge command failed: %v", err)
	}

	var output ops.PurgeOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if output.Purged != 1 {
		t.Errorf("expected purged=1, got %d", output.Purged)
	}
}

// TestCLIReport tests the report command.
func TestCLIReport(t *testing.T) {
	database, baseDir := setupTest(t)
	seedDataset(t, database, "report-test")

	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	t.Run("markdown", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "report", "--name=report-test"})
		})
		if err != nil {
			t.Fatalf("report command failed: %v", err)
		}

		if !strings.Contains(out, "# Capacity report: report-test") {
			t.Error("missing report title")
		}
		if !strings.Contains(out, "## States") {
			t.Error("missing states section")
		}
	})

	t.Run("html", func(t *testing.T) {
		out, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "report", "--html", "--name=report-test"})
		})
		if err != nil {
			t.Fatalf("report command failed: %v", err)
		}

		if !strings.Contains(out, "<h1>") {
			t.Error("missing rendered heading")
		}
	})
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	database, baseDir := setupTest(t)
	app := newCLIApp(database, config.DefaultConfig(), baseDir)

	t.Run("fetch not found returns error", func(t *testing.T) {
		_, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "fetch", "--name=nonexistent"})
		})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("seed negative years returns error", func(t *testing.T) {
		_, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "seed", "--years=-1"})
		})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("invalid duration format returns error", func(t *testing.T) {
		_, err := captureStdout(t, func() error {
			return app.Run([]string{"caplog", "purge", "--older-than=invalid"})
		})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"caplog"},
			expected: false,
		},
		{
			name:     "seed command",
			args:     []string{"caplog", "seed"},
			expected: true,
		},
		{
			name:     "fetch command",
			args:     []string{"caplog", "fetch"},
			expected: true,
		},
		{
			name:     "report command",
			args:     []string{"caplog", "report"},
			expected: true,
		},
		{
			name:     "help flag",
			args:     []string{"caplog", "--help"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"caplog", "--version"},
			expected: true,
		},
		{
			name:     "short help flag",
			args:     []string{"caplog", "-h"},
			expected: true,
		},
		{
			name:     "short version flag",
			args:     []string{"caplog", "-v"},
			expected: true,
		},
		{
			name:     "unknown arg defaults to MCP",
			args:     []string{"caplog", "--unknown"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore os.Args
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"caplog"},
			expected: false,
		},
		{
			name:     "help flag",
			args:     []string{"caplog", "--help"},
			expected: true,
		},
		{
			name:     "short help flag",
			args:     []string{"caplog", "-h"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"caplog", "--version"},
			expected: true,
		},
		{
			name:     "short version flag",
			args:     []string{"caplog", "-v"},
			expected: true,
		},
		{
			name:     "help subcommand",
			args:     []string{"caplog", "help"},
			expected: true,
		},
		{
			name:     "seed command is not help",
			args:     []string{"caplog", "seed"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
