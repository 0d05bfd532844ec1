package usecase

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dsedash/scenariodb/internal/database"
	"github.com/dsedash/scenariodb/internal/diff"
	"github.com/dsedash/scenariodb/internal/filesystem"
	"github.com/dsedash/scenariodb/internal/jobs"
	"github.com/dsedash/scenariodb/internal/schema"
	"github.com/dsedash/scenariodb/internal/services"
)

// Settings wires the optional parts of Scenarios.
type Settings struct {
	Transactional bool
	// ModelCommand is run for RunModel; DSN is handed to it.
	ModelCommand []string
	DSN          string
	Queue        *jobs.Queue
}

// Scenarios is the entry point shared by the CLI and the MCP server.
type Scenarios struct {
	service  *services.ScenarioService
	sessions *diff.Sessions
	settings Settings
}

// NewScenarios builds the facade over dbCtx using the tables in registry.
func NewScenarios(dbCtx *database.Context, registry *schema.Registry, settings Settings) *Scenarios {
	opts := services.DefaultOptions()
	opts.Transactional = settings.Transactional
	return &Scenarios{
		service:  services.NewScenarioService(dbCtx, registry, opts),
		sessions: diff.NewSessions(),
		settings: settings,
	}
}

// Schema returns the table registry in use.
func (u *Scenarios) Schema() *schema.Registry {
	return u.service.Schema()
}

// CaptureInput describes one edit event on a displayed table.
type CaptureInput struct {
	Session string
	// Timestamp keys the batch; zero picks the next free one for the session.
	Timestamp int64
	Scenario  string
	Table     string
	Data      []diff.Row
	Previous  []diff.Row
	// Keyed matches rows by index columns instead of position.
	Keyed bool
}

// CaptureResult reports what a capture recorded.
type CaptureResult struct {
	Timestamp int64
	Diffs     []diff.CellDiff
	Pending   int
	Inserted  int
	Deleted   int
}

// CaptureDiff compares two snapshots of a displayed table and records the
// changed cells as the batch for input.Timestamp in the session's store.
// A zero timestamp never replaces an earlier batch.
func (u *Scenarios) CaptureDiff(input CaptureInput) (*CaptureResult, error) {
	t, ok := u.Schema().Lookup(input.Table)
	if !ok || t.Shared {
		return nil, fmt.Errorf("%w: table %q", services.ErrUnknownTableOrColumn, input.Table)
	}

	opts := diff.Options{
		IndexColumns: t.IndexColumns,
		Columns:      t.Columns(),
		TableName:    t.DBName,
		ScenarioName: input.Scenario,
	}

	result := &CaptureResult{}
	if input.Keyed {
		keyed, err := diff.ComputeKeyed(input.Data, input.Previous, opts)
		if err != nil {
			return nil, err
		}
		result.Diffs = keyed.Changes
		result.Inserted = len(keyed.Inserted)
		result.Deleted = len(keyed.Deleted)
	} else {
		diffs, err := diff.Compute(input.Data, input.Previous, opts)
		if err != nil {
			return nil, err
		}
		result.Diffs = diffs
	}

	store := u.sessions.Get(input.Session)
	if input.Timestamp == 0 {
		result.Timestamp = store.CaptureNext(time.Now().UnixMilli(), result.Diffs)
	} else {
		result.Timestamp = input.Timestamp
		store.Capture(input.Timestamp, result.Diffs)
	}
	result.Pending = store.Len()
	return result, nil
}

// Pending returns the batches awaiting commit for session.
func (u *Scenarios) Pending(session string) []diff.Batch {
	return u.sessions.Get(session).Batches()
}

// PendingStore exposes the session store, for callers that persist it.
func (u *Scenarios) PendingStore(session string) *diff.Store {
	return u.sessions.Get(session)
}

// Commit writes the pending edits of session in one unit of work. The
// pending edits are kept when the write fails.
func (u *Scenarios) Commit(ctx context.Context, session string) (int, error) {
	return u.sessions.Get(session).Commit(func(updates []diff.DbCellUpdate) error {
		_, err := u.service.UpdateCellChanges(ctx, updates)
		return err
	})
}

// Discard drops the pending edits of session.
func (u *Scenarios) Discard(session string) {
	u.sessions.Get(session).Discard()
}

// CloseSession forgets session entirely.
func (u *Scenarios) CloseSession(session string) {
	u.sessions.Drop(session)
}

// ApplyUpdates writes updates directly, bypassing any session.
func (u *Scenarios) ApplyUpdates(ctx context.Context, updates []diff.DbCellUpdate) (int64, error) {
	return u.service.UpdateCellChanges(ctx, updates)
}

// Create adds an empty scenario.
func (u *Scenarios) Create(ctx context.Context, name string) error {
	return u.service.CreateScenario(ctx, name)
}

// Duplicate copies source into target, generating a name when target is empty.
func (u *Scenarios) Duplicate(ctx context.Context, source, target string) (string, error) {
	return u.service.DuplicateScenario(ctx, source, target)
}

// Rename moves every row of source to target.
func (u *Scenarios) Rename(ctx context.Context, source, target string) error {
	return u.service.RenameScenario(ctx, source, target)
}

// Delete removes a scenario and returns the number of rows deleted.
func (u *Scenarios) Delete(ctx context.Context, name string) (int64, error) {
	return u.service.DeleteScenario(ctx, name)
}

// List returns the scenario names.
func (u *Scenarios) List(ctx context.Context) ([]string, error) {
	return u.service.ListScenarios(ctx)
}

// Summaries returns row counts per table for each scenario.
func (u *Scenarios) Summaries(ctx context.Context) ([]services.ScenarioSummary, error) {
	return u.service.ScenarioSummaries(ctx)
}

// ReadTable returns the rows of table for scenario.
func (u *Scenarios) ReadTable(ctx context.Context, scenario, table string) (*services.TableData, error) {
	return u.service.ReadTable(ctx, scenario, table)
}

// VerifySchema checks the database against the table registry.
func (u *Scenarios) VerifySchema(ctx context.Context) error {
	return u.service.VerifySchema(ctx)
}

// RunModel queues the configured model command for scenario and returns the
// job id.
func (u *Scenarios) RunModel(ctx context.Context, scenario string) (string, error) {
	if u.settings.Queue == nil {
		return "", jobs.ErrNoCommand
	}
	names, err := u.service.ListScenarios(ctx)
	if err != nil {
		return "", err
	}
	if !slices.Contains(names, scenario) {
		return "", fmt.Errorf("%w: %q", services.ErrScenarioNotFound, scenario)
	}

	fn, err := jobs.CommandFunc(u.settings.ModelCommand, scenario, u.settings.DSN, openRunLog)
	if err != nil {
		return "", err
	}
	return u.settings.Queue.Push(scenario, fn)
}

func openRunLog(jobID string) (io.WriteCloser, error) {
	return filesystem.CreateRunLog(jobID)
}

// Job returns the job with id.
func (u *Scenarios) Job(id string) (jobs.Job, error) {
	if u.settings.Queue == nil {
		return jobs.Job{}, jobs.ErrNotFound
	}
	return u.settings.Queue.Get(id)
}

// Jobs lists the queued, running and finished jobs.
func (u *Scenarios) Jobs() []jobs.Job {
	if u.settings.Queue == nil {
		return nil
	}
	return u.settings.Queue.List()
}

// WaitJob blocks until job id finishes or ctx is done.
func (u *Scenarios) WaitJob(ctx context.Context, id string) (jobs.Job, error) {
	if u.settings.Queue == nil {
		return jobs.Job{}, jobs.ErrNotFound
	}
	return u.settings.Queue.Wait(ctx, id)
}

// CancelJob stops job id.
func (u *Scenarios) CancelJob(id string) error {
	if u.settings.Queue == nil {
		return jobs.ErrNotFound
	}
	return u.settings.Queue.Cancel(id)
}

// JobLog returns the output of a job and whether it matches its recorded hash.
func (u *Scenarios) JobLog(id string) (string, bool, error) {
	path := filesystem.GetRunLogPath(id)
	content, err := filesystem.ReadRunLog(path)
	if err != nil {
		return "", false, err
	}
	ok, err := filesystem.VerifyRunLog(path, "")
	if err != nil {
		return "", false, err
	}
	return content, ok, nil
}
