package usecase

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dsedash/scenariodb/internal/database"
	"github.com/dsedash/scenariodb/internal/diff"
	"github.com/dsedash/scenariodb/internal/jobs"
	"github.com/dsedash/scenariodb/internal/schema"
	"github.com/dsedash/scenariodb/internal/services"
)

func setupScenarios(t *testing.T, settings Settings) (*Scenarios, *database.Context) {
	t.Helper()
	t.Setenv("SCENARIODB_DIR", t.TempDir())

	dbCtx, err := database.CreateDatabase(filepath.Join(t.TempDir(), "scenarios.db"))
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() {
		if err := database.CloseDatabase(dbCtx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	u := NewScenarios(dbCtx, schema.Default(), settings)
	if err := u.Create(context.Background(), "Base"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	statements := []string{
		`INSERT INTO product_margin (scenario_name, product, margin, size) VALUES ('Base', 'apple', 1.5, 2.0), ('Base', 'pear', 1.0, 1.0)`,
		`INSERT INTO demand (scenario_name, product, customer, demand) VALUES ('Base', 'apple', 'acme', 10), ('Base', 'pear', 'acme', 5)`,
	}
	for _, stmt := range statements {
		if _, err := dbCtx.DB.Exec(stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	return u, dbCtx
}

func demandSnapshot(t *testing.T, u *Scenarios) []diff.Row {
	t.Helper()
	data, err := u.ReadTable(context.Background(), "Base", "Demand")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	return data.Rows
}

func editedCopy(rows []diff.Row, idx int, column string, value any) []diff.Row {
	out := make([]diff.Row, len(rows))
	for i, row := range rows {
		cp := diff.Row{}
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	out[idx][column] = value
	return out
}

func TestCaptureAndCommit(t *testing.T) {
	u, _ := setupScenarios(t, Settings{Transactional: true})
	ctx := context.Background()

	previous := demandSnapshot(t, u)
	first := editedCopy(previous, 0, "demand", 12.0)

	res, err := u.CaptureDiff(CaptureInput{Session: "s1", Timestamp: 1, Scenario: "Base", Table: "Demand", Data: first, Previous: previous})
	if err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}
	if len(res.Diffs) != 1 || res.Pending != 1 {
		t.Fatalf("unexpected capture result: %+v", res)
	}

	second := editedCopy(first, 1, "demand", 8.0)
	if _, err := u.CaptureDiff(CaptureInput{Session: "s1", Timestamp: 2, Scenario: "Base", Table: "Demand", Data: second, Previous: first}); err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}
	if got := len(u.Pending("s1")); got != 2 {
		t.Fatalf("expected 2 pending batches, got %d", got)
	}
	if got := len(u.Pending("s2")); got != 0 {
		t.Fatalf("expected sessions isolated, got %d pending in s2", got)
	}

	n, err := u.Commit(ctx, "s1")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updates committed, got %d", n)
	}
	if got := len(u.Pending("s1")); got != 0 {
		t.Fatalf("expected store cleared after commit, got %d", got)
	}

	rows := demandSnapshot(t, u)
	if rows[0]["demand"] != int64(12) || rows[1]["demand"] != int64(8) {
		t.Fatalf("unexpected demand after commit: %v", rows)
	}
}

func TestCommitKeyAndValueChange(t *testing.T) {
	u, _ := setupScenarios(t, Settings{Transactional: true})
	ctx := context.Background()

	previous := demandSnapshot(t, u)
	edited := editedCopy(previous, 1, "customer", "beta")
	edited[1]["demand"] = 6.0

	res, err := u.CaptureDiff(CaptureInput{Session: "s", Timestamp: 1, Scenario: "Base", Table: "Demand", Data: edited, Previous: previous})
	if err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}
	if len(res.Diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %+v", res.Diffs)
	}

	n, err := u.Commit(ctx, "s")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updates committed, got %d", n)
	}

	rows := demandSnapshot(t, u)
	got := map[string]any{}
	for _, row := range rows {
		got[row["product"].(string)+"/"+row["customer"].(string)] = row["demand"]
	}
	if len(got) != 2 || got["apple/acme"] != int64(10) || got["pear/beta"] != int64(6) {
		t.Fatalf("unexpected demand after commit: %v", rows)
	}
}

func TestCaptureDefaultTimestamp(t *testing.T) {
	u, _ := setupScenarios(t, Settings{Transactional: true})

	previous := demandSnapshot(t, u)
	first := editedCopy(previous, 0, "demand", 11.0)
	second := editedCopy(first, 1, "demand", 4.0)

	a, err := u.CaptureDiff(CaptureInput{Session: "s", Scenario: "Base", Table: "Demand", Data: first, Previous: previous})
	if err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}
	b, err := u.CaptureDiff(CaptureInput{Session: "s", Scenario: "Base", Table: "Demand", Data: second, Previous: first})
	if err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}
	if b.Timestamp <= a.Timestamp {
		t.Fatalf("expected increasing timestamps, got %d then %d", a.Timestamp, b.Timestamp)
	}
	if b.Pending != 2 {
		t.Fatalf("expected both batches kept, got %d pending", b.Pending)
	}
}

func TestCommitFailureKeepsPending(t *testing.T) {
	u, dbCtx := setupScenarios(t, Settings{Transactional: true})
	ctx := context.Background()

	previous := demandSnapshot(t, u)
	edited := editedCopy(previous, 0, "demand", 20.0)
	if _, err := u.CaptureDiff(CaptureInput{Session: "s", Timestamp: 1, Scenario: "Base", Table: "Demand", Data: edited, Previous: previous}); err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}

	if _, err := dbCtx.DB.Exec(`DELETE FROM demand WHERE product = 'apple'`); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := u.Commit(ctx, "s"); !errors.Is(err, services.ErrRowNotResolved) {
		t.Fatalf("expected ErrRowNotResolved, got %v", err)
	}
	if got := len(u.Pending("s")); got != 1 {
		t.Fatalf("expected pending batch kept after failed commit, got %d", got)
	}

	u.Discard("s")
	if got := len(u.Pending("s")); got != 0 {
		t.Fatalf("expected no pending batches after discard, got %d", got)
	}
}

func TestCaptureKeyed(t *testing.T) {
	u, _ := setupScenarios(t, Settings{Transactional: true})

	previous := demandSnapshot(t, u)
	data := []diff.Row{
		{"product": "pear", "customer": "acme", "demand": 6.0},
		{"product": "plum", "customer": "acme", "demand": 1.0},
	}

	res, err := u.CaptureDiff(CaptureInput{Session: "k", Timestamp: 1, Scenario: "Base", Table: "demand", Data: data, Previous: previous, Keyed: true})
	if err != nil {
		t.Fatalf("CaptureDiff failed: %v", err)
	}
	if len(res.Diffs) != 1 || res.Inserted != 1 || res.Deleted != 1 {
		t.Fatalf("unexpected keyed result: %+v", res)
	}
}

func TestCaptureUnknownTable(t *testing.T) {
	u, _ := setupScenarios(t, Settings{Transactional: true})

	_, err := u.CaptureDiff(CaptureInput{Session: "s", Table: "Nope"})
	if !errors.Is(err, services.ErrUnknownTableOrColumn) {
		t.Fatalf("expected ErrUnknownTableOrColumn, got %v", err)
	}
}

func TestRunModel(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	queue := jobs.NewQueue(context.Background(), 1)
	t.Cleanup(func() { _ = queue.Shutdown() })

	u, _ := setupScenarios(t, Settings{
		Transactional: true,
		ModelCommand:  []string{"sh", "-c", `echo "solving $SCENARIO_NAME"`},
		DSN:           "sqlite://scenarios.db",
		Queue:         queue,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := u.RunModel(ctx, "Base")
	if err != nil {
		t.Fatalf("RunModel failed: %v", err)
	}

	job, err := u.WaitJob(ctx, id)
	if err != nil {
		t.Fatalf("WaitJob failed: %v", err)
	}
	if job.Status != jobs.StatusSucceeded {
		t.Fatalf("expected job to succeed, got %+v", job)
	}

	content, verified, err := u.JobLog(id)
	if err != nil {
		t.Fatalf("JobLog failed: %v", err)
	}
	if strings.TrimSpace(content) != "solving Base" || !verified {
		t.Fatalf("unexpected log %q verified=%v", content, verified)
	}

	if _, err := u.RunModel(ctx, "Missing"); !errors.Is(err, services.ErrScenarioNotFound) {
		t.Fatalf("expected ErrScenarioNotFound, got %v", err)
	}
	if got := len(u.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}

func TestRunModelWithoutQueue(t *testing.T) {
	u, _ := setupScenarios(t, Settings{Transactional: true})

	if _, err := u.RunModel(context.Background(), "Base"); !errors.Is(err, jobs.ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}
