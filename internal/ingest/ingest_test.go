package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/salesetl/pipeline/internal/model"
)

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

func TestResolveFilesFileMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	writeCSV(t, path, "order_id\n1\n")

	files, err := ResolveFiles("file", path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Errorf("files = %v, want [%s]", files, path)
	}
}

func TestResolveFilesDirectoryMode(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "b.csv"), "order_id\n1\n")
	writeCSV(t, filepath.Join(dir, "a.csv"), "order_id\n1\n")

	files, err := ResolveFiles("directory", dir, "*.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want 2 entries", files)
	}
	if filepath.Base(files[0]) != "a.csv" || filepath.Base(files[1]) != "b.csv" {
		t.Errorf("files = %v, want sorted [a.csv b.csv]", files)
	}
}

func TestResolveFilesDirectoryModeEmptyFails(t *testing.T) {
	dir := t.TempDir()
	if _, err := ResolveFiles("directory", dir, "*.csv"); err == nil {
		t.Fatal("expected error for empty match")
	}
}

// S4: chunk_size=2 over a 5-row file yields chunks of [2, 2, 1].
func TestBronzeSeqChunking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	writeCSV(t, path, "order_id,quantity\n1,1\n2,1\n3,1\n4,1\n5,1\n")

	seq := NewBronzeSeq([]string{path}, 2, model.Checkpoint{})

	var sizes []int
	for {
		chunk, ok, err := seq.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		sizes = append(sizes, len(chunk.Rows))
	}

	want := []int{2, 2, 1}
	if len(sizes) != len(want) {
		t.Fatalf("chunk sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("chunk %d size = %d, want %d", i, sizes[i], want[i])
		}
	}
}

// S5: resuming from a mid-file checkpoint skips already-emitted rows.
func TestBronzeSeqResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	writeCSV(t, path, "order_id,quantity\n1,1\n2,1\n3,1\n4,1\n5,1\n")

	cp := model.Checkpoint{File: path, ChunkIndex: 1}
	seq := NewBronzeSeq([]string{path}, 2, cp)

	chunk, ok, err := seq.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a chunk")
	}
	if chunk.ChunkIndex != 1 {
		t.Errorf("chunk index = %d, want 1", chunk.ChunkIndex)
	}
	if len(chunk.Rows) != 2 || chunk.Rows[0]["order_id"] != "3" {
		t.Errorf("rows = %+v, want first row order_id=3", chunk.Rows)
	}
}

func TestBronzeSeqRawFieldsMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	writeCSV(t, path, "order_id,quantity\n7,3\n")

	seq := NewBronzeSeq([]string{path}, 10, model.Checkpoint{})
	chunk, ok, err := seq.Next()
	if err != nil || !ok {
		t.Fatalf("unexpected: ok=%v err=%v", ok, err)
	}
	if chunk.Rows[0]["order_id"] != "7" || chunk.Rows[0]["quantity"] != "3" {
		t.Errorf("row = %+v", chunk.Rows[0])
	}
}
