package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/db"
	"github.com/fernwell/caplog/internal/errors"
)

func TestSeed_CreatesDataset(t *testing.T) {
	database := testDB(t)

	out, err := Seed(database, config.DefaultConfig(), SeedInput{
		Years: 1,
		Name:  stringPtr("baseline"),
		Seed:  uint64Ptr(42),
	})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if out.DatasetID == "" {
		t.Error("DatasetID is empty")
	}
	if out.Name == nil || *out.Name != "baseline" {
		t.Errorf("Name = %v, want baseline", out.Name)
	}
	if out.Years != 1 {
		t.Errorf("Years = %d, want 1", out.Years)
	}
	if out.Observations < 366 || out.Observations > 4*366 {
		t.Errorf("Observations = %d, outside plausible range", out.Observations)
	}

	ds, err := db.GetDatasetByID(database, out.DatasetID)
	if err != nil {
		t.Fatalf("GetDatasetByID failed: %v", err)
	}
	if ds.ObservationCount != out.Observations {
		t.Errorf("stored count = %d, want %d", ds.ObservationCount, out.Observations)
	}
	if ds.Seed == nil || *ds.Seed != 42 {
		t.Errorf("stored seed = %v, want 42", ds.Seed)
	}
}

func TestSeed_DefaultYearsFromConfig(t *testing.T) {
	database := testDB(t)

	cfg := config.DefaultConfig()
	cfg.DefaultYears = 1

	out, err := Seed(database, cfg, SeedInput{Seed: uint64Ptr(3)})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if out.Years != 1 {
		t.Errorf("Years = %d, want config default 1", out.Years)
	}
	if out.Name != nil {
		t.Errorf("Name = %v, want nil for unnamed dataset", out.Name)
	}
}

func TestSeed_InvalidYears(t *testing.T) {
	database := testDB(t)

	_, err := Seed(database, config.DefaultConfig(), SeedInput{Years: -1})
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestSeed_EmptyName(t *testing.T) {
	database := testDB(t)

	_, err := Seed(database, config.DefaultConfig(), SeedInput{Years: 1, Name: stringPtr("   ")})
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestSeed_DuplicateName(t *testing.T) {
	database := testDB(t)
	seedFixture(t, database, "dupe")

	_, err := Seed(database, config.DefaultConfig(), SeedInput{
		Years: 1,
		Name:  stringPtr("dupe"),
		Seed:  uint64Ptr(8),
	})
	if !errors.Is(err, errors.ErrNameAlreadyExists) {
		t.Errorf("error = %v, want NAME_ALREADY_EXISTS", err)
	}

	// The failed seed must not leave a dataset behind.
	items, total, err := db.ListDatasets(database, 10, 0)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("total = %d, len = %d, want 1 dataset", total, len(items))
	}
}

func TestSeed_UnnamedDuplicatesAllowed(t *testing.T) {
	database := testDB(t)
	seedFixture(t, database, "")
	seedFixture(t, database, "")

	_, total, err := db.ListDatasets(database, 10, 0)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 unnamed datasets", total)
	}
}

func TestSeed_FixedSeedIsReproducible(t *testing.T) {
	database := testDB(t)

	a := seedFixture(t, database, "a")
	b := seedFixture(t, database, "b")

	if a.Observations != b.Observations {
		t.Errorf("observation counts differ: %d vs %d", a.Observations, b.Observations)
	}

	itemsA, _, err := db.ListObservations(database, a.DatasetID, db.ObservationFilter{Limit: 5})
	if err != nil {
		t.Fatalf("ListObservations failed: %v", err)
	}
	itemsB, _, err := db.ListObservations(database, b.DatasetID, db.ObservationFilter{Limit: 5})
	if err != nil {
		t.Fatalf("ListObservations failed: %v", err)
	}

	for i := range itemsA {
		if itemsA[i].State != itemsB[i].State {
			t.Errorf("item %d: state %s vs %s", i, itemsA[i].State, itemsB[i].State)
		}
	}
}

func TestSeed_CustomNotePools(t *testing.T) {
	database := testDB(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "pools.yaml")
	yaml := "general:\n  - custom note\nsensory:\n  - custom sensory\ndemand:\n  - custom demand\nsocial:\n  - custom social\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.NotePoolsPath = path

	out, err := Seed(database, cfg, SeedInput{Years: 1, Seed: uint64Ptr(11)})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	items, _, err := db.ListObservations(database, out.DatasetID, db.ObservationFilter{Limit: MaxFetchLimit})
	if err != nil {
		t.Fatalf("ListObservations failed: %v", err)
	}
	for _, o := range items {
		if o.Note == nil {
			continue
		}
		switch *o.Note {
		case "custom note", "custom sensory", "custom demand", "custom social":
		default:
			t.Fatalf("note %q not from the custom pools", *o.Note)
		}
	}
}

func TestSeed_BadNotePoolsPath(t *testing.T) {
	database := testDB(t)

	cfg := config.DefaultConfig()
	cfg.NotePoolsPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Seed(database, cfg, SeedInput{Years: 1})
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("error = %v, want INVALID_ARGUMENT", err)
	}
}
