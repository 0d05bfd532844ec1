package mcp

import (
	"context"
	"fmt"
	"time"

	golog "github.com/ipfs/go-log/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dsedash/scenariodb/internal/diff"
	"github.com/dsedash/scenariodb/internal/jobs"
	"github.com/dsedash/scenariodb/internal/usecase"
)

var log = golog.Logger("mcp")

const defaultSession = "default"

// Server exposes scenario management as MCP tools.
type Server struct {
	server *mcp.Server
	uc     *usecase.Scenarios
}

// NewServer creates a new MCP server instance
func NewServer(uc *usecase.Scenarios, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "scenariodb",
		Version: version,
	}, nil)

	s := &Server{
		server: mcpServer,
		uc:     uc,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scenario_list",
		Description: "List scenarios with the row count of each table",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scenario_duplicate",
		Description: "Copy every row of a scenario into a new scenario",
	}, s.handleDuplicate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scenario_rename",
		Description: "Rename a scenario",
	}, s.handleRename)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scenario_delete",
		Description: "Delete a scenario and all of its rows",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "table_read",
		Description: "Read the rows of one table for a scenario",
	}, s.handleReadTable)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "table_capture_diff",
		Description: "Record the cells that differ between two snapshots of a table as pending edits",
	}, s.handleCaptureDiff)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "changes_pending",
		Description: "Show the pending edits of a session",
	}, s.handlePending)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "changes_commit",
		Description: "Write the pending edits of a session to the database",
	}, s.handleCommit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "changes_discard",
		Description: "Drop the pending edits of a session",
	}, s.handleDiscard)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "model_run",
		Description: "Run the optimization model for a scenario",
	}, s.handleRunModel)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "job_status",
		Description: "Get the status and output of a model run",
	}, s.handleJobStatus)
}

// ListInput is the input of scenario_list.
type ListInput struct{}

// ListOutput is the result of scenario_list.
type ListOutput struct {
	Scenarios []ScenarioInfo `json:"scenarios"`
}

// ScenarioInfo summarizes one scenario.
type ScenarioInfo struct {
	Name   string           `json:"name"`
	Tables map[string]int64 `json:"tables"`
}

// DuplicateInput is the input of scenario_duplicate.
type DuplicateInput struct {
	Source string `json:"source" jsonschema:"the scenario to copy"`
	Target string `json:"target,omitempty" jsonschema:"name of the copy, generated from the source name when empty"`
}

// DuplicateOutput is the result of scenario_duplicate.
type DuplicateOutput struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// RenameInput is the input of scenario_rename.
type RenameInput struct {
	Source string `json:"source" jsonschema:"the scenario to rename"`
	Target string `json:"target" jsonschema:"the new name"`
}

// DeleteInput is the input of scenario_delete.
type DeleteInput struct {
	Name string `json:"name" jsonschema:"the scenario to delete"`
}

// MessageOutput is the result of tools that report a count.
type MessageOutput struct {
	Message string `json:"message"`
	Count   int64  `json:"count,omitempty"`
}

// ReadTableInput is the input of table_read.
type ReadTableInput struct {
	Scenario string `json:"scenario" jsonschema:"the scenario to read"`
	Table    string `json:"table" jsonschema:"logical or database table name"`
}

// ReadTableOutput is the result of table_read.
type ReadTableOutput struct {
	Table   string     `json:"table"`
	Columns []string   `json:"columns"`
	Rows    []diff.Row `json:"rows"`
}

// CaptureDiffInput is the input of table_capture_diff.
type CaptureDiffInput struct {
	Session   string     `json:"session,omitempty" jsonschema:"edit session, default when empty"`
	Timestamp int64      `json:"timestamp,omitempty" jsonschema:"edit event time in unix milliseconds; when zero, now or just after the session's latest event"`
	Scenario  string     `json:"scenario" jsonschema:"the scenario the table belongs to"`
	Table     string     `json:"table" jsonschema:"logical or database table name"`
	Data      []diff.Row `json:"data" jsonschema:"the table after the edit"`
	Previous  []diff.Row `json:"previous" jsonschema:"the table before the edit"`
	Keyed     bool       `json:"keyed,omitempty" jsonschema:"match rows by index columns instead of position"`
}

// CaptureDiffOutput is the result of table_capture_diff.
type CaptureDiffOutput struct {
	Timestamp int64           `json:"timestamp"`
	Diffs     []diff.CellDiff `json:"diffs"`
	Pending   int             `json:"pending"`
	Inserted  int             `json:"inserted,omitempty"`
	Deleted   int             `json:"deleted,omitempty"`
}

// SessionInput names the edit session of the changes_* tools.
type SessionInput struct {
	Session string `json:"session,omitempty" jsonschema:"edit session, default when empty"`
}

// PendingOutput is the result of changes_pending.
type PendingOutput struct {
	Batches []diff.Batch        `json:"batches"`
	Updates []diff.DbCellUpdate `json:"updates"`
}

// RunModelInput is the input of model_run.
type RunModelInput struct {
	Scenario string `json:"scenario" jsonschema:"the scenario to solve"`
	Wait     bool   `json:"wait,omitempty" jsonschema:"block until the run finishes"`
}

// JobOutput describes a model job.
type JobOutput struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	CreatedAt  string `json:"createdAt"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	Log        string `json:"log,omitempty"`
	Verified   bool   `json:"verified,omitempty"`
}

func newJobOutput(job jobs.Job) JobOutput {
	out := JobOutput{
		ID:        job.ID,
		Scenario:  job.Scenario,
		Status:    string(job.Status),
		Message:   job.Message,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if !job.StartedAt.IsZero() {
		out.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if !job.FinishedAt.IsZero() {
		out.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	return out
}

// JobStatusInput is the input of job_status.
type JobStatusInput struct {
	ID string `json:"id" jsonschema:"the job id returned by model_run"`
}

func sessionName(session string) string {
	if session == "" {
		return defaultSession
	}
	return session
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	summaries, err := s.uc.Summaries(ctx)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list scenarios: %w", err)
	}

	out := ListOutput{Scenarios: make([]ScenarioInfo, 0, len(summaries))}
	for _, summary := range summaries {
		info := ScenarioInfo{Name: summary.Name, Tables: make(map[string]int64, len(summary.Tables))}
		for _, tc := range summary.Tables {
			info.Tables[tc.Table] = tc.Rows
		}
		out.Scenarios = append(out.Scenarios, info)
	}
	return nil, out, nil
}

func (s *Server) handleDuplicate(ctx context.Context, req *mcp.CallToolRequest, input DuplicateInput) (*mcp.CallToolResult, DuplicateOutput, error) {
	name, err := s.uc.Duplicate(ctx, input.Source, input.Target)
	if err != nil {
		return nil, DuplicateOutput{}, fmt.Errorf("failed to duplicate scenario: %w", err)
	}
	return nil, DuplicateOutput{
		Message: fmt.Sprintf("Duplicated '%s' as '%s'", input.Source, name),
		Name:    name,
	}, nil
}

func (s *Server) handleRename(ctx context.Context, req *mcp.CallToolRequest, input RenameInput) (*mcp.CallToolResult, MessageOutput, error) {
	if err := s.uc.Rename(ctx, input.Source, input.Target); err != nil {
		return nil, MessageOutput{}, fmt.Errorf("failed to rename scenario: %w", err)
	}
	return nil, MessageOutput{Message: fmt.Sprintf("Renamed '%s' to '%s'", input.Source, input.Target)}, nil
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, MessageOutput, error) {
	count, err := s.uc.Delete(ctx, input.Name)
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil, MessageOutput{
		Message: fmt.Sprintf("Deleted scenario '%s'", input.Name),
		Count:   count,
	}, nil
}

func (s *Server) handleReadTable(ctx context.Context, req *mcp.CallToolRequest, input ReadTableInput) (*mcp.CallToolResult, ReadTableOutput, error) {
	data, err := s.uc.ReadTable(ctx, input.Scenario, input.Table)
	if err != nil {
		return nil, ReadTableOutput{}, fmt.Errorf("failed to read table: %w", err)
	}
	out := ReadTableOutput{Table: data.Table.Name, Columns: data.Columns, Rows: data.Rows}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = []diff.Row{}
	}
	return nil, out, nil
}

func (s *Server) handleCaptureDiff(ctx context.Context, req *mcp.CallToolRequest, input CaptureDiffInput) (*mcp.CallToolResult, CaptureDiffOutput, error) {
	result, err := s.uc.CaptureDiff(usecase.CaptureInput{
		Session:   sessionName(input.Session),
		Timestamp: input.Timestamp,
		Scenario:  input.Scenario,
		Table:     input.Table,
		Data:      input.Data,
		Previous:  input.Previous,
		Keyed:     input.Keyed,
	})
	if err != nil {
		return nil, CaptureDiffOutput{}, fmt.Errorf("failed to capture diff: %w", err)
	}

	log.Debugw("captured diff", "session", sessionName(input.Session), "table", input.Table, "cells", len(result.Diffs))
	diffs := result.Diffs
	if diffs == nil {
		diffs = []diff.CellDiff{}
	}
	return nil, CaptureDiffOutput{
		Timestamp: result.Timestamp,
		Diffs:     diffs,
		Pending:   result.Pending,
		Inserted:  result.Inserted,
		Deleted:   result.Deleted,
	}, nil
}

func (s *Server) handlePending(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, PendingOutput, error) {
	store := s.uc.PendingStore(sessionName(input.Session))
	out := PendingOutput{Batches: store.Batches(), Updates: store.Updates()}
	if out.Batches == nil {
		out.Batches = []diff.Batch{}
	}
	if out.Updates == nil {
		out.Updates = []diff.DbCellUpdate{}
	}
	return nil, out, nil
}

func (s *Server) handleCommit(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, MessageOutput, error) {
	n, err := s.uc.Commit(ctx, sessionName(input.Session))
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("failed to commit changes: %w", err)
	}
	if n == 0 {
		return nil, MessageOutput{Message: "No pending changes"}, nil
	}
	return nil, MessageOutput{
		Message: fmt.Sprintf("Committed %d change(s)", n),
		Count:   int64(n),
	}, nil
}

func (s *Server) handleDiscard(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, MessageOutput, error) {
	s.uc.Discard(sessionName(input.Session))
	return nil, MessageOutput{Message: "Discarded pending changes"}, nil
}

func (s *Server) handleRunModel(ctx context.Context, req *mcp.CallToolRequest, input RunModelInput) (*mcp.CallToolResult, JobOutput, error) {
	id, err := s.uc.RunModel(ctx, input.Scenario)
	if err != nil {
		return nil, JobOutput{}, fmt.Errorf("failed to run model: %w", err)
	}

	if !input.Wait {
		job, err := s.uc.Job(id)
		if err != nil {
			return nil, JobOutput{}, err
		}
		return nil, newJobOutput(job), nil
	}

	job, err := s.uc.WaitJob(ctx, id)
	if err != nil {
		return nil, JobOutput{}, fmt.Errorf("failed to wait for job: %w", err)
	}
	return s.jobOutput(job)
}

func (s *Server) handleJobStatus(ctx context.Context, req *mcp.CallToolRequest, input JobStatusInput) (*mcp.CallToolResult, JobOutput, error) {
	job, err := s.uc.Job(input.ID)
	if err != nil {
		return nil, JobOutput{}, fmt.Errorf("failed to get job: %w", err)
	}
	return s.jobOutput(job)
}

func (s *Server) jobOutput(job jobs.Job) (*mcp.CallToolResult, JobOutput, error) {
	out := newJobOutput(job)
	if job.Status == jobs.StatusWaiting {
		return nil, out, nil
	}

	content, verified, err := s.uc.JobLog(job.ID)
	if err != nil {
		// no log when the command never started
		log.Debugw("run log unavailable", "job", job.ID, "error", err)
		return nil, out, nil
	}
	out.Log = content
	out.Verified = verified
	return nil, out, nil
}
