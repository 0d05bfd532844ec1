package main

import (
	"context"
	"fmt"

	golog "github.com/ipfs/go-log/v2"

	"github.com/dsedash/scenariodb/internal/config"
	"github.com/dsedash/scenariodb/internal/database"
	"github.com/dsedash/scenariodb/internal/jobs"
	"github.com/dsedash/scenariodb/internal/schema"
	"github.com/dsedash/scenariodb/internal/usecase"
)

// env is what a command needs to talk to the store.
type env struct {
	cfg   *config.Config
	dbCtx *database.Context
	queue *jobs.Queue
	uc    *usecase.Scenarios
}

// openEnv loads the config, applies the global flags and opens the store.
// The job queue is only started when withQueue is set and a model command
// is configured.
func openEnv(ctx context.Context, withQueue bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsnFlag != "" {
		cfg.DSN = dsnFlag
	}
	if schemaFlag != "" {
		cfg.Schema = schemaFlag
	}
	if noTransactions {
		disabled := false
		cfg.Transactions = &disabled
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return nil, err
	}

	var (
		registry *schema.Registry
		dbCtx    *database.Context
	)
	if cfg.Schema != "" {
		registry, err = schema.LoadFile(cfg.Schema)
		if err != nil {
			return nil, err
		}
		dbCtx, err = database.ConnectDatabase(cfg.DSN)
	} else {
		registry = schema.Default()
		dbCtx, err = database.CreateDatabase(cfg.DSN)
	}
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, dbCtx: dbCtx}
	settings := usecase.Settings{
		Transactional: cfg.TransactionsEnabled(),
		ModelCommand:  cfg.ModelCommand,
		DSN:           cfg.ResolveDSN(),
	}
	if withQueue && len(cfg.ModelCommand) > 0 {
		e.queue = jobs.NewQueue(ctx, cfg.Workers)
		settings.Queue = e.queue
	}
	e.uc = usecase.NewScenarios(dbCtx, registry, settings)
	return e, nil
}

func (e *env) Close() error {
	if e.queue != nil {
		if err := e.queue.Shutdown(); err != nil {
			return err
		}
	}
	return database.CloseDatabase(e.dbCtx)
}

func setupLogging(level string) error {
	lvl, err := golog.LevelFromString(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	golog.SetAllLoggers(lvl)
	return nil
}
