// Package ingest resolves Bronze input files and exposes two
// lazy, forward-only sequences over them: a chunked Bronze sequence
// (Phase 1 input) and a per-file Silver sequence (Phase 2 input). Both
// are pull-based iterators per the "Generator-based ingestion" design
// note: finite, non-restartable, reconstruct for a fresh pass.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/salesetl/pipeline/internal/model"
)

// ResolveFiles returns the sorted, lexicographically-stable list of
// Bronze input files for the given input mode. file mode yields
// [inputPath] if it exists; directory mode enumerates filePattern
// under inputPath and fails on an empty match.
func ResolveFiles(inputType, inputPath, filePattern string) ([]string, error) {
	switch inputType {
	case "file":
		if _, err := os.Stat(inputPath); err != nil {
			return nil, fmt.Errorf("ingest: input file %q: %w", inputPath, err)
		}
		return []string{inputPath}, nil
	case "directory":
		matches, err := filepath.Glob(filepath.Join(inputPath, filePattern))
		if err != nil {
			return nil, fmt.Errorf("ingest: glob %q under %q: %w", filePattern, inputPath, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("ingest: no files matching %q under %q", filePattern, inputPath)
		}
		sort.Strings(matches)
		return matches, nil
	default:
		return nil, fmt.Errorf("ingest: unknown input_type %q", inputType)
	}
}

// BronzeSeq is a lazy sequence of Chunk envelopes spanning the resolved
// Bronze files, honoring a resume checkpoint.
type BronzeSeq struct {
	files     []string
	fileIdx   int
	chunkSize int
	cp        model.Checkpoint

	f             *os.File
	r             *csv.Reader
	header        []string
	curFile       string
	curChunkIndex int
	skipRemaining int
	opened        bool
	exhausted     bool
	lastOpenErr   error
}

// NewBronzeSeq builds a Bronze sequence over the already-resolved,
// sorted file list, resuming from cp.
func NewBronzeSeq(files []string, chunkSize int, cp model.Checkpoint) *BronzeSeq {
	return &BronzeSeq{files: files, chunkSize: chunkSize, cp: cp}
}

// Next returns the next chunk, or ok=false once the sequence is
// exhausted.
func (b *BronzeSeq) Next() (model.Chunk, bool, error) {
	for {
		if b.exhausted {
			return model.Chunk{}, false, nil
		}

		if !b.opened {
			if !b.openNextFile() {
				b.exhausted = true
				return model.Chunk{}, false, nil
			}
		}

		rows, readErr := b.readRows(b.chunkSize)
		if len(rows) == 0 {
			b.closeCurrent()
			if readErr != nil && readErr != io.EOF {
				return model.Chunk{}, false, readErr
			}
			continue
		}

		chunk := model.Chunk{File: b.curFile, ChunkIndex: b.curChunkIndex, Rows: rows}
		b.curChunkIndex++

		if readErr == io.EOF || len(rows) < b.chunkSize {
			b.closeCurrent()
		}

		if readErr != nil && readErr != io.EOF {
			return chunk, true, readErr
		}
		return chunk, true, nil
	}
}

func (b *BronzeSeq) openNextFile() bool {
	for b.fileIdx < len(b.files) {
		file := b.files[b.fileIdx]
		b.fileIdx++

		if b.cp.File != "" && file < b.cp.File {
			continue
		}

		f, err := os.Open(file)
		if err != nil {
			// Surfaced on the next readRows call via a synthetic EOF-free error path.
			b.lastOpenErr = fmt.Errorf("ingest: open %q: %w", file, err)
			return true
		}

		r := csv.NewReader(f)
		r.FieldsPerRecord = -1

		header, err := r.Read()
		if err != nil {
			f.Close()
			b.lastOpenErr = fmt.Errorf("ingest: read header %q: %w", file, err)
			return true
		}

		b.f = f
		b.r = r
		b.header = header
		b.curFile = file
		b.opened = true

		if file == b.cp.File {
			b.curChunkIndex = b.cp.ChunkIndex
			b.skipRemaining = b.cp.ChunkIndex * b.chunkSize
		} else {
			b.curChunkIndex = 0
			b.skipRemaining = 0
		}
		return true
	}
	return false
}

func (b *BronzeSeq) readRows(n int) ([]model.RawRecord, error) {
	if b.lastOpenErr != nil {
		err := b.lastOpenErr
		b.lastOpenErr = nil
		return nil, err
	}

	for b.skipRemaining > 0 {
		if _, err := b.r.Read(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("ingest: skip rows in %q: %w", b.curFile, err)
		}
		b.skipRemaining--
	}

	rows := make([]model.RawRecord, 0, n)
	for len(rows) < n {
		fields, err := b.r.Read()
		if err == io.EOF {
			return rows, io.EOF
		}
		if err != nil {
			return rows, fmt.Errorf("ingest: read row in %q: %w", b.curFile, err)
		}
		rows = append(rows, rawRecordFromFields(b.header, fields))
	}
	return rows, nil
}

func (b *BronzeSeq) closeCurrent() {
	if b.f != nil {
		b.f.Close()
	}
	b.f, b.r, b.opened = nil, nil, false
}

func rawRecordFromFields(header, fields []string) model.RawRecord {
	rec := make(model.RawRecord, len(header))
	for i, name := range header {
		if i < len(fields) {
			rec[name] = fields[i]
		} else {
			rec[name] = ""
		}
	}
	return rec
}

// SilverSeq is a lazy sequence of fully-loaded Silver files, one clean
// record per row, for Phase 2 aggregation.
type SilverSeq struct {
	files []string
	idx   int
	cp    model.Checkpoint
}

// NewSilverSeq enumerates <outputDir>/silver/*.csv in sorted order,
// resuming from cp (files <= cp.File are treated as already
// aggregated and skipped).
func NewSilverSeq(outputDir string, cp model.Checkpoint) (*SilverSeq, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "silver", "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("ingest: glob silver files: %w", err)
	}
	sort.Strings(matches)
	return &SilverSeq{files: matches, cp: cp}, nil
}

// Next loads and returns the next unprocessed Silver file, or
// ok=false once exhausted.
func (s *SilverSeq) Next() (model.SilverFile, bool, error) {
	for s.idx < len(s.files) {
		file := s.files[s.idx]
		s.idx++

		if s.cp.File != "" && file <= s.cp.File {
			continue
		}

		rows, err := readCleanCSV(file)
		if err != nil {
			return model.SilverFile{}, false, err
		}
		return model.SilverFile{File: file, Rows: rows}, true, nil
	}
	return model.SilverFile{}, false, nil
}

func readCleanCSV(path string) ([]model.CleanRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open silver file %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read header of %q: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var rows []model.CleanRecord
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read row of %q: %w", path, err)
		}
		rows = append(rows, model.FromRow(col, fields))
	}
	return rows, nil
}
