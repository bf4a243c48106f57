// Package orchestrator drives the two sequential phases of a pipeline
// run: Bronze→Silver (clean/transform + idempotent Silver write, with
// a checkpoint saved strictly after each successful write) and
// Silver→Gold (dedup + streaming aggregation, with a checkpoint saved
// after each fully-aggregated file, finalized by one Gold write).
// Ported from original_source/src/pipeline_orchestrator.py's
// run_pipeline control flow and cmd/cc-backend/main.go's
// construct-everything-then-run shape.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/salesetl/pipeline/internal/aggregate"
	"github.com/salesetl/pipeline/internal/checkpoint"
	"github.com/salesetl/pipeline/internal/clean"
	"github.com/salesetl/pipeline/internal/config"
	"github.com/salesetl/pipeline/internal/dedup"
	"github.com/salesetl/pipeline/internal/ingest"
	"github.com/salesetl/pipeline/internal/metrics"
	"github.com/salesetl/pipeline/internal/model"
	"github.com/salesetl/pipeline/internal/pipelinelog"
	"github.com/salesetl/pipeline/internal/writer"
)

// Orchestrator owns every collaborator needed to run both phases. All
// services are injected through the constructor — no package-level
// global state.
type Orchestrator struct {
	cfg *config.Config

	bronzeCheckpoint *checkpoint.Store
	silverCheckpoint *checkpoint.Store

	dedupIndex *dedup.Index
	counters   *metrics.Counters

	silverWriter *writer.SilverWriter
	goldWriter   *writer.GoldWriter
}

// New wires every collaborator from cfg. The dedup index and both
// checkpoint stores are opened here; call Close when done.
func New(cfg *config.Config, counters *metrics.Counters) (*Orchestrator, error) {
	bronzePath, silverPath := checkpointPaths(cfg.Pipeline)

	var bronzeCP, silverCP *checkpoint.Store
	var err error
	if cfg.Pipeline.EnableCheckpoint {
		bronzeCP, err = checkpoint.Open(bronzePath)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: open bronze checkpoint: %w", err)
		}
		silverCP, err = checkpoint.Open(silverPath)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: open silver checkpoint: %w", err)
		}
	} else {
		bronzeCP, _ = checkpoint.Open("")
		silverCP, _ = checkpoint.Open("")
	}

	dedupPath := fmt.Sprintf("%s/dedup/order_id.db", cfg.Output.OutputDir)
	if err := ensureDir(dedupPath); err != nil {
		return nil, err
	}
	dedupIndex, err := dedup.Open(dedupPath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open dedup index: %w", err)
	}

	sw, err := writer.NewSilverWriter(cfg.Output.OutputDir)
	if err != nil {
		dedupIndex.Close()
		return nil, fmt.Errorf("orchestrator: init silver writer: %w", err)
	}
	gw, err := writer.NewGoldWriter(cfg.Output.OutputDir, cfg.Output.Format)
	if err != nil {
		dedupIndex.Close()
		return nil, fmt.Errorf("orchestrator: init gold writer: %w", err)
	}

	return &Orchestrator{
		cfg:              cfg,
		bronzeCheckpoint: bronzeCP,
		silverCheckpoint: silverCP,
		dedupIndex:       dedupIndex,
		counters:         counters,
		silverWriter:     sw,
		goldWriter:       gw,
	}, nil
}

// Close releases the dedup index handle.
func (o *Orchestrator) Close() error {
	return o.dedupIndex.Close()
}

// Run executes Phase 1 then Phase 2 in sequence. Any uncaught error
// aborts the run; ctx is checked for cancellation between chunks and
// between files (spec.md §5: no partial-chunk shutdown).
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.runPhase1(ctx); err != nil {
		return fmt.Errorf("phase 1 (bronze->silver): %w", err)
	}
	if err := o.runPhase2(ctx); err != nil {
		return fmt.Errorf("phase 2 (silver->gold): %w", err)
	}
	return nil
}

func (o *Orchestrator) runPhase1(ctx context.Context) error {
	files, err := ingest.ResolveFiles(o.cfg.Input.InputType, o.cfg.Input.InputPath, o.cfg.Input.FilePattern)
	if err != nil {
		return err
	}

	cp := o.bronzeCheckpoint.Get()
	seq := ingest.NewBronzeSeq(files, o.cfg.Pipeline.ChunkSize, cp)

	rowsEmitted := 0
	maxRows := o.cfg.Pipeline.MaxRows

	for {
		select {
		case <-ctx.Done():
			pipelinelog.Info("phase 1: cooperative stop requested, exiting after last completed chunk")
			return nil
		default:
		}

		chunk, ok, err := seq.Next()
		if err != nil {
			return fmt.Errorf("ingest chunk: %w", err)
		}
		if !ok {
			break
		}

		o.counters.AddRowsRead(len(chunk.Rows))

		cleanRows := make([]model.CleanRecord, 0, len(chunk.Rows))
		for _, raw := range chunk.Rows {
			result := clean.Transform(raw)
			if !result.IsValid {
				reason := model.RejectReason("unknown")
				if len(result.Errors) > 0 {
					reason = result.Errors[0]
				}
				o.counters.IncRowRejected(reason)
				continue
			}
			o.counters.IncRowCleaned()
			cleanRows = append(cleanRows, result.Row)
		}

		if _, err := o.silverWriter.WriteChunk(chunk.File, chunk.ChunkIndex, cleanRows); err != nil {
			return fmt.Errorf("write silver chunk: %w", err)
		}
		o.counters.IncChunkWritten()

		if err := o.bronzeCheckpoint.Save(model.Checkpoint{File: chunk.File, ChunkIndex: chunk.ChunkIndex + 1}); err != nil {
			return fmt.Errorf("save bronze checkpoint: %w", err)
		}

		rowsEmitted += len(chunk.Rows)
		if maxRows >= 0 && rowsEmitted >= maxRows {
			pipelinelog.Infof("phase 1: max_rows=%d reached, stopping ingestion", maxRows)
			break
		}
	}
	return nil
}

func (o *Orchestrator) runPhase2(ctx context.Context) error {
	cp := o.silverCheckpoint.Get()
	seq, err := ingest.NewSilverSeq(o.cfg.Output.OutputDir, cp)
	if err != nil {
		return err
	}

	agg := aggregate.New(o.cfg.Anomaly.TopN)

	for {
		select {
		case <-ctx.Done():
			pipelinelog.Info("phase 2: cooperative stop requested, exiting after last completed file")
			return nil
		default:
		}

		file, ok, err := seq.Next()
		if err != nil {
			return fmt.Errorf("read silver file: %w", err)
		}
		if !ok {
			break
		}

		for _, row := range file.Rows {
			wasDup, err := o.dedupIndex.TestAndMark(row.OrderID)
			if err != nil {
				return fmt.Errorf("dedup test-and-mark %q: %w", row.OrderID, err)
			}
			if wasDup {
				o.counters.IncRowDuplicate()
				continue
			}
			agg.Add(row)
		}

		o.counters.IncFileAggregated()
		if err := o.silverCheckpoint.Save(model.Checkpoint{File: file.File, ChunkIndex: 0}); err != nil {
			return fmt.Errorf("save silver checkpoint: %w", err)
		}
	}

	result := agg.Finalize()
	if err := o.goldWriter.WriteAll(result); err != nil {
		return fmt.Errorf("write gold tables: %w", err)
	}
	return nil
}

func checkpointPaths(p config.PipelineConfig) (bronze, silver string) {
	if p.BronzeCheckpoint != "" || p.SilverCheckpoint != "" {
		return p.BronzeCheckpoint, p.SilverCheckpoint
	}
	if p.CheckpointFile != "" {
		return p.CheckpointFile + ".bronze", p.CheckpointFile + ".silver"
	}
	return "", ""
}

func ensureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o750)
}
