package taskmanager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/salesetl/pipeline/internal/config"
)

func TestStartDisabledDoesNotTouchArchive(t *testing.T) {
	outputDir := t.TempDir()
	archiveDir := filepath.Join(outputDir, "gold-archive", "2024-01-01")
	if err := os.MkdirAll(archiveDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := Start(outputDir, config.RetentionConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop()

	if _, err := os.Stat(archiveDir); err != nil {
		t.Errorf("expected archive dir to survive disabled manager: %v", err)
	}
}

func TestSweepDeletesOldDirectories(t *testing.T) {
	outputDir := t.TempDir()
	archiveDir := filepath.Join(outputDir, "gold-archive")
	oldDir := filepath.Join(archiveDir, "old-run")
	newDir := filepath.Join(archiveDir, "new-run")
	if err := os.MkdirAll(oldDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(newDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(oldDir, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	sweep(outputDir, config.RetentionConfig{Enabled: true, MaxAgeDays: 1, Policy: "delete"})

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Errorf("expected old-run to be deleted, stat err = %v", err)
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Errorf("expected new-run to survive: %v", err)
	}
}

func TestSweepMovesDirectoriesUnderMovePolicy(t *testing.T) {
	outputDir := t.TempDir()
	archiveDir := filepath.Join(outputDir, "gold-archive")
	oldDir := filepath.Join(archiveDir, "old-run")
	if err := os.MkdirAll(oldDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(oldDir, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	moveTarget := filepath.Join(outputDir, "cold-storage")
	sweep(outputDir, config.RetentionConfig{Enabled: true, MaxAgeDays: 1, Policy: "move", MoveTarget: moveTarget})

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Errorf("expected old-run to be moved out, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(moveTarget, "old-run")); err != nil {
		t.Errorf("expected old-run under move target: %v", err)
	}
}

func TestSweepMissingArchiveDirIsNoOp(t *testing.T) {
	outputDir := t.TempDir()
	sweep(outputDir, config.RetentionConfig{Enabled: true, MaxAgeDays: 1, Policy: "delete"})
}
