package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
	"github.com/scholarlyreport/scholarly/internal/source"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Refresh and re-render the report on a cron schedule",
	Long: `Schedule runs until interrupted. On every tick of the cron expression
(schedule in scholarly.yml, default "0 3 * * 1") it refreshes every stored
author, renders the report and, with --publish, uploads it.

A run that is still going when the next tick fires is skipped. A blocked
fetch ends the refresh early; the report is still rendered from the
stored files.

With --serve the report and API are served as well and reloaded after
each run.`,
	RunE: runSchedule,
}

var (
	scheduleRunNow  bool
	schedulePublish bool
	scheduleServe   bool
	scheduleNoFetch bool
)

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run once immediately before waiting for the schedule")
	scheduleCmd.Flags().BoolVar(&schedulePublish, "publish", false, "Upload the report after each run")
	scheduleCmd.Flags().BoolVar(&scheduleServe, "serve", false, "Also serve the report and API")
	scheduleCmd.Flags().BoolVar(&scheduleNoFetch, "no-fetch", false, "Only re-render from the stored files")
	rootCmd.AddCommand(scheduleCmd)
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	runner, cfg, logger := mustNewRunner()
	defer logger.Sync()

	if schedulePublish && cfg.S3.Bucket == "" {
		exitWithError(ExitConfigError, "--publish needs s3.bucket in %s", config.ProjectFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server
	if scheduleServe {
		srv = newServer(runner, cfg.OutputDir, logger)
		if err := srv.reload(); err != nil {
			exitWithError(exitCodeFor(err), "loading data: %v", err)
		}
	}

	job := &scheduledJob{runner: runner, cfg: cfg, logger: logger, srv: srv}

	cl := cronLogger{sugar: logger.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(cfg.Schedule, func() { job.run(ctx) }); err != nil {
		exitWithError(ExitConfigError, "invalid schedule %q: %v", cfg.Schedule, err)
	}

	if scheduleRunNow {
		job.run(ctx)
	}

	c.Start()
	logger.Info("scheduler started", zap.String("schedule", cfg.Schedule))

	if srv != nil {
		if err := listen(ctx, cfg.ServeAddr, newRouter(srv, logger), logger); err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	} else {
		<-ctx.Done()
	}

	// Wait for a running job to finish.
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
	return nil
}

// scheduledJob is one refresh, render and publish cycle.
type scheduledJob struct {
	runner *pipeline.Runner
	cfg    *config.Config
	logger *zap.Logger
	srv    *server
}

func (j *scheduledJob) run(ctx context.Context) {
	j.logger.Info("scheduled run started")

	if !scheduleNoFetch {
		res, err := fetchRegistered(ctx, j.runner, j.cfg, j.logger)
		switch {
		case err != nil && source.IsBlocked(err):
			j.logger.Warn("access blocked, rendering stored data", zap.Error(err))
		case err != nil && ctx.Err() != nil:
			j.logger.Info("scheduled run cancelled")
			return
		case err != nil:
			j.logger.Error("refresh failed", zap.Error(err))
		}
		if res != nil {
			j.logger.Info("refresh finished",
				zap.Int("fetched", len(res.Fetched)),
				zap.Int("failed", len(res.Failures)))
		}
	}

	rep, err := j.runner.Report()
	if err != nil {
		j.logger.Error("report failed", zap.Error(err))
		return
	}
	if j.srv != nil {
		j.srv.set(rep.Load.Store)
	}

	if schedulePublish {
		if _, err := publishReport(ctx, j.cfg, j.logger); err != nil {
			j.logger.Error("publish failed", zap.Error(err))
			return
		}
	}
	j.logger.Info("scheduled run finished",
		zap.Int("authors", rep.Report.Authors),
		zap.Int("publications", rep.Report.Publications))
}
