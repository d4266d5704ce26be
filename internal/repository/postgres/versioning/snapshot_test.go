package versioning

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/repository/postgres"
)

// testRepoConfig connects to the database named by TEST_DATABASE_URL and
// provisions a throwaway schema. Tests using it skip when the variable is
// unset, so the suite stays runnable without a database.
func testRepoConfig(t *testing.T) *postgres.RepositoryConfig {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	tables := postgres.NewTableNames("test_")
	if err := postgres.CreateSchema(ctx, pool, tables); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if err := postgres.DropSchema(context.Background(), pool, tables); err != nil {
			t.Errorf("drop schema: %v", err)
		}
	})

	return &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// A re-save must replace the row wholesale, id included: the branch's base
// marker records the id of the latest snapshot, so a stale id would leave the
// marker pointing at a row that no longer exists under that id.
func TestSnapshotSaveReplacesID(t *testing.T) {
	config := testRepoConfig(t)
	ctx := context.Background()

	branches := NewBranchRepository(config)
	snapshots := NewSnapshotRepository(config)

	branch := &models.Branch{
		ID:        uuid.NewString(),
		ProjectID: uuid.NewString(),
		Name:      "feature",
		State:     models.BranchStateDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := branches.Create(ctx, branch); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	first := &models.BranchSnapshot{
		ID:       uuid.NewString(),
		BranchID: branch.ID,
		Entries: map[string]models.SnapshotEntry{
			"alpha": {ContentID: uuid.NewString(), VersionID: uuid.NewString(), Checksum: "c1"},
		},
		CapturedAt: time.Now(),
	}
	if err := snapshots.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := &models.BranchSnapshot{
		ID:         uuid.NewString(),
		BranchID:   branch.ID,
		Entries:    map[string]models.SnapshotEntry{},
		CapturedAt: time.Now(),
	}
	if err := snapshots.Save(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := snapshots.GetByBranch(ctx, branch.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("snapshot id = %s, want the re-saved id %s", got.ID, second.ID)
	}
	if len(got.Entries) != 0 {
		t.Errorf("entries = %v, want replaced with empty set", got.Entries)
	}
}
