// Package taskmanager implements the optional, disabled-by-default
// background retention sweep (§4.8 of SPEC_FULL.md): a daily job that
// deletes or moves per-run Gold output directories older than a
// configured age threshold. Ported from the teacher's
// internal/taskManager/retentionService.go / compressionService.go
// gocron.DailyJob registration shape, retargeted from job-archive
// retention onto Gold-directory retention. Strictly additive: the
// core single-run pipeline contract never depends on this package.
package taskmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/salesetl/pipeline/internal/config"
	"github.com/salesetl/pipeline/internal/pipelinelog"
)

// Manager owns the gocron scheduler running the retention sweep.
type Manager struct {
	scheduler gocron.Scheduler
}

// Start constructs a scheduler and, if cfg.Enabled, registers the
// daily retention sweep over <outputDir>/gold-archive/<date>/. The
// scheduler is always returned started; callers call Stop to shut it
// down.
func Start(outputDir string, cfg config.RetentionConfig) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("taskmanager: create scheduler: %w", err)
	}

	m := &Manager{scheduler: s}

	if !cfg.Enabled {
		pipelinelog.Info("taskmanager: retention sweep disabled")
		s.Start()
		return m, nil
	}

	pipelinelog.Infof("taskmanager: registering retention sweep (policy=%s, max_age_days=%d)", cfg.Policy, cfg.MaxAgeDays)

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() { sweep(outputDir, cfg) }),
	)
	if err != nil {
		return nil, fmt.Errorf("taskmanager: register retention job: %w", err)
	}

	s.Start()
	return m, nil
}

// Stop shuts the scheduler down, waiting for any in-flight job.
func (m *Manager) Stop() error {
	return m.scheduler.Shutdown()
}

func sweep(outputDir string, cfg config.RetentionConfig) {
	archiveDir := filepath.Join(outputDir, "gold-archive")
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if !os.IsNotExist(err) {
			pipelinelog.Warnf("taskmanager: retention sweep: read %q: %v", archiveDir, err)
		}
		return
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.MaxAgeDays)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			pipelinelog.Warnf("taskmanager: retention sweep: stat %q: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		src := filepath.Join(archiveDir, entry.Name())
		switch cfg.Policy {
		case "move":
			dst := filepath.Join(cfg.MoveTarget, entry.Name())
			if err := os.MkdirAll(cfg.MoveTarget, 0o750); err != nil {
				pipelinelog.Errorf("taskmanager: retention sweep: mkdir %q: %v", cfg.MoveTarget, err)
				continue
			}
			if err := os.Rename(src, dst); err != nil {
				pipelinelog.Errorf("taskmanager: retention sweep: move %q -> %q: %v", src, dst, err)
				continue
			}
			pipelinelog.Infof("taskmanager: retention sweep: moved %q -> %q", src, dst)
		default: // delete
			if err := os.RemoveAll(src); err != nil {
				pipelinelog.Errorf("taskmanager: retention sweep: delete %q: %v", src, err)
				continue
			}
			pipelinelog.Infof("taskmanager: retention sweep: deleted %q", src)
		}
	}
}
