package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

const filenameLayout = "20060102-150405"

// Source is the part of the journal a snapshot reads.
type Source interface {
	List() []models.Trade
	Version() uint64
}

// Snapshotter periodically writes the trade collection to JSON files that
// POST /api/trades/restore accepts.
type Snapshotter struct {
	source   Source
	dir      string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	lastVersion uint64
}

// NewSnapshotter creates a Snapshotter writing into dir every interval.
func NewSnapshotter(source Source, dir string, interval time.Duration, logger *zap.Logger) *Snapshotter {
	return &Snapshotter{
		source:   source,
		dir:      dir,
		interval: interval,
		logger:   logger.Named("backup"),
		now:      time.Now,
	}
}

// Run snapshots on every tick until ctx is done. A final snapshot is
// attempted on shutdown.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting snapshot loop", zap.Duration("interval", s.interval), zap.String("dir", s.dir))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping snapshot loop...")
			if _, err := s.SnapshotIfChanged(); err != nil {
				s.logger.Error("Final snapshot failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			if _, err := s.SnapshotIfChanged(); err != nil {
				s.logger.Error("Snapshot failed", zap.Error(err))
			}
		}
	}
}

// SnapshotIfChanged writes a snapshot when the journal changed since the
// previous one. It returns the written path, or "" when nothing changed.
func (s *Snapshotter) SnapshotIfChanged() (string, error) {
	version := s.source.Version()
	if version == s.lastVersion {
		return "", nil
	}

	path, err := s.WriteSnapshot(s.source.List())
	if err != nil {
		return "", err
	}
	s.lastVersion = version
	return path, nil
}

// WriteSnapshot writes trades to a timestamped file in the snapshot dir.
func (s *Snapshotter) WriteSnapshot(trades []models.Trade) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(s.dir, "trades-"+s.now().Format(filenameLayout)+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info("Snapshot written", zap.String("path", path), zap.Int("trades", len(trades)))
	return path, nil
}
