// Package writer implements the Silver chunk writer (idempotent CSV
// per chunk) and the Gold table writer (full-overwrite or upsert,
// always via temp-and-rename, in CSV or Parquet).
package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/salesetl/pipeline/internal/model"
)

// SilverWriter writes one Silver chunk file per call, named
// <basename(source without .csv)>_chunk_<NNNN>.csv under
// <outputDir>/silver/.
type SilverWriter struct {
	dir string
}

// NewSilverWriter ensures <outputDir>/silver exists and returns a
// writer rooted there.
func NewSilverWriter(outputDir string) (*SilverWriter, error) {
	dir := filepath.Join(outputDir, "silver")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("writer: mkdir %q: %w", dir, err)
	}
	return &SilverWriter{dir: dir}, nil
}

// ChunkFileName computes the Silver file name for a given source file
// and chunk index, zero-padded to 4 digits.
func ChunkFileName(sourceFile string, chunkIndex int) string {
	base := filepath.Base(sourceFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_chunk_%04d.csv", base, chunkIndex)
}

// WriteChunk writes rows to the Silver file for (sourceFile,
// chunkIndex). An empty row list is a no-op (spec.md §4.6). Rewriting
// the same chunk with identical input produces a byte-identical file:
// the header is always model.SilverColumns and rows are written in
// input order, with no non-deterministic formatting.
func (w *SilverWriter) WriteChunk(sourceFile string, chunkIndex int, rows []model.CleanRecord) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	path := filepath.Join(w.dir, ChunkFileName(sourceFile, chunkIndex))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("writer: open %q: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(model.SilverColumns); err != nil {
		return "", fmt.Errorf("writer: write header %q: %w", path, err)
	}
	for _, row := range rows {
		if err := cw.Write(row.ToRow()); err != nil {
			return "", fmt.Errorf("writer: write row %q: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("writer: flush %q: %w", path, err)
	}

	return path, nil
}
