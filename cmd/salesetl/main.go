// Command salesetl runs one invocation of the resumable batch ETL
// pipeline: Bronze->Silver, then Silver->Gold, against the
// configuration file named by -config. Exit code 0 on clean
// completion, non-zero on any uncaught failure — ported from
// cmd/cc-backend/main.go's flag-then-initialize-then-run shape and
// signal wiring.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/salesetl/pipeline/internal/config"
	"github.com/salesetl/pipeline/internal/metrics"
	"github.com/salesetl/pipeline/internal/orchestrator"
	"github.com/salesetl/pipeline/internal/pipelinelog"
	"github.com/salesetl/pipeline/internal/taskmanager"
)

func main() {
	cliInit()

	pipelinelog.SetLevel(flagLogLevel)
	pipelinelog.SetDateTime(flagLogDate)

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		pipelinelog.Fatalf("config: %v", err)
	}

	counters := metrics.New(flagMetricsAddr != "" || cfg.Metrics.ListenAddr != "")
	metricsAddr := flagMetricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.ListenAddr
	}
	if metricsAddr != "" {
		go func() {
			if err := counters.Serve(metricsAddr); err != nil {
				pipelinelog.Errorf("metrics: server stopped: %v", err)
			}
		}()
		pipelinelog.Infof("metrics: serving at %s/metrics", metricsAddr)
	}

	tm, err := taskmanager.Start(cfg.Output.OutputDir, cfg.Retention)
	if err != nil {
		pipelinelog.Fatalf("taskmanager: %v", err)
	}
	defer tm.Stop()

	orch, err := orchestrator.New(cfg, counters)
	if err != nil {
		pipelinelog.Fatalf("orchestrator: %v", err)
	}
	defer orch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		pipelinelog.Info("received stop signal, finishing in-flight chunk/file")
		cancel()
	}()

	if err := orch.Run(ctx); err != nil {
		pipelinelog.Errorf("pipeline run failed: %v", err)
		os.Exit(1)
	}

	summary := counters.Summary()
	pipelinelog.Infof("pipeline run complete: rows_read=%d rows_cleaned=%d rows_rejected=%d rows_duplicate=%d chunks_written=%d files_aggregated=%d",
		summary.RowsRead, summary.RowsCleaned, summary.RowsRejected, summary.RowsDuplicate, summary.ChunksWritten, summary.FilesAggregated)
}
