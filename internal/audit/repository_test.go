package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/qrauto/internal/infrastructure/database"
	"github.com/nerrad567/qrauto/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	started := time.Date(2026, 10, 16, 9, 30, 0, 123_000_000, time.UTC)
	run := &Run{
		ID:             "run-1",
		Source:         SourceText,
		Status:         StatusAborted,
		FailureStage:   "execute",
		FailureKind:    "safety_abort",
		Reason:         "pointer in corner",
		StepsTotal:     3,
		StepsCompleted: 1,
		Description:    "label run",
		BeforeSnapshot: "/tmp/before.png",
		AfterSnapshot:  "/tmp/after.png",
		StartedAt:      started,
		CompletedAt:    started.Add(1500 * time.Millisecond),
		Duration:       1500 * time.Millisecond,
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.StartedAt.Equal(run.StartedAt) || !got.CompletedAt.Equal(run.CompletedAt) {
		t.Errorf("timestamps = %v, %v; want %v, %v", got.StartedAt, got.CompletedAt, run.StartedAt, run.CompletedAt)
	}
	got.StartedAt, got.CompletedAt = run.StartedAt, run.CompletedAt
	if *got != *run {
		t.Errorf("Get() = %+v\nwant %+v", *got, *run)
	}
}

func TestSQLiteRepository_CreateFillsDefaults(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	run := &Run{Source: SourceCamera, Status: StatusNotAcquired}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if run.ID == "" || run.StartedAt.IsZero() {
		t.Fatalf("defaults not filled: %+v", run)
	}

	got, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.BeforeSnapshot != "" || got.FailureKind != "" {
		t.Errorf("NULL columns not read back as empty: %+v", got)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Get() error = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteRepository_CreateRejectsUnknownStatus(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.Create(context.Background(), &Run{Source: SourceText, Status: "exploded"})
	if err == nil {
		t.Error("Create() accepted a status outside the schema")
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	fixtures := []Run{
		{ID: "a", Source: SourceCamera, Status: StatusCompleted, StartedAt: base},
		{ID: "b", Source: SourceText, Status: StatusFailed, StartedAt: base.Add(time.Minute)},
		{ID: "c", Source: SourceText, Status: StatusCompleted, StartedAt: base.Add(2 * time.Minute)},
		{ID: "d", Source: SourceSerial, Status: StatusNotAcquired, StartedAt: base.Add(3 * time.Minute)},
	}
	for i := range fixtures {
		if err := repo.Create(ctx, &fixtures[i]); err != nil {
			t.Fatalf("Create(%s) error = %v", fixtures[i].ID, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"d", "c", "b", "a"}},
		{"by source", Filter{Source: SourceText}, []string{"c", "b"}},
		{"by status", Filter{Status: StatusCompleted}, []string{"c", "a"}},
		{"source and status", Filter{Source: SourceText, Status: StatusFailed}, []string{"b"}},
		{"limit", Filter{Limit: 2}, []string{"d", "c"}},
		{"no match", Filter{Source: SourceMQTT}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("List() returned %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].ID != id {
					t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
				}
			}
		})
	}
}
