package orchestrator

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salesetl/pipeline/internal/config"
	"github.com/salesetl/pipeline/internal/metrics"
)

func writeBronzeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write([]string{"order_id", "product_name", "category", "quantity", "unit_price", "discount_percent", "region", "sale_date", "customer_email"}))
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
}

func baseConfig(t *testing.T, inputDir, outputDir string) *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{ChunkSize: 2, MaxRows: -1, EnableCheckpoint: true,
			BronzeCheckpoint: filepath.Join(outputDir, "bronze.json"),
			SilverCheckpoint: filepath.Join(outputDir, "silver.json")},
		Input:   config.InputConfig{InputType: "directory", InputPath: inputDir, FilePattern: "*.csv"},
		Output:  config.OutputConfig{OutputDir: outputDir, Format: "csv"},
		Anomaly: config.AnomalyConfig{TopN: 5, HighRevenueThreshold: 10000},
	}
}

// End-to-end smoke test: a full Bronze->Silver->Gold run over a small
// fixture produces a non-duplicated, aggregated Gold monthly table.
func TestRunProducesGoldOutput(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeBronzeCSV(t, filepath.Join(inputDir, "orders_1.csv"), [][]string{
		{"ORD-1", "Widget", "electronics", "2", "10", "0.1", "north", "2024-01-05", "a@b.com"},
		{"ORD-2", "Gadget", "fashion", "1", "20", "0", "south", "2024-01-06", "b@c.com"},
		{"", "Bad", "fashion", "1", "20", "0", "south", "2024-01-06", "b@c.com"}, // hard-fail, missing order_id
	})

	cfg := baseConfig(t, inputDir, outputDir)
	counters := metrics.New(false)

	orch, err := New(cfg, counters)
	require.NoError(t, err)
	defer orch.Close()

	require.NoError(t, orch.Run(context.Background()))

	summary := counters.Summary()
	require.Equal(t, 3, summary.RowsRead)
	require.Equal(t, 2, summary.RowsCleaned)
	require.Equal(t, 1, summary.RowsRejected)

	goldPath := filepath.Join(outputDir, "gold", "monthly_sales_summary.csv")
	_, err = os.Stat(goldPath)
	require.NoError(t, err)
}

// Running the same Bronze input twice, with checkpoints cleared but
// the dedup index persisted, must not double-count the second run's
// already-seen order_ids.
func TestRunIsIdempotentUnderDedup(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeBronzeCSV(t, filepath.Join(inputDir, "orders_1.csv"), [][]string{
		{"ORD-1", "Widget", "electronics", "2", "10", "0.1", "north", "2024-01-05", "a@b.com"},
	})

	cfg := baseConfig(t, inputDir, outputDir)
	counters := metrics.New(false)

	orch, err := New(cfg, counters)
	require.NoError(t, err)
	require.NoError(t, orch.Run(context.Background()))
	require.NoError(t, orch.Close())

	// Clear checkpoints to force a full re-run of phase 1 and phase 2,
	// but reuse the same output dir so the dedup index is preserved.
	require.NoError(t, os.Remove(cfg.Pipeline.BronzeCheckpoint))
	require.NoError(t, os.Remove(cfg.Pipeline.SilverCheckpoint))

	counters2 := metrics.New(false)
	orch2, err := New(cfg, counters2)
	require.NoError(t, err)
	defer orch2.Close()
	require.NoError(t, orch2.Run(context.Background()))

	require.Equal(t, 1, counters2.Summary().RowsDuplicate)
}
