// Package jobs holds the background maintenance tasks that run alongside
// the request handlers.
package jobs

import (
	"context"
	"time"

	"github.com/livepaste/livepaste/internal/logging"
)

// RoomSweepRepository is the slice of persistence the retention sweep needs.
type RoomSweepRepository interface {
	// DeleteIdle removes rooms untouched since the cutoff; cascades take
	// every dependent row.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

// TombstoneSweepRepository prunes tombstones that have fallen behind the
// pruning horizon of their room.
type TombstoneSweepRepository interface {
	PruneTombstones(ctx context.Context, horizon int64) (int64, error)
}

// Config holds configuration for the retention sweep.
type Config struct {
	RetentionPeriod time.Duration // rooms idle longer than this are removed
	Horizon         int64         // tombstones older than room.version - Horizon are pruned
	Interval        time.Duration // how often the sweep runs
	SweepTimeout    time.Duration // maximum time for one sweep pass
}

// DefaultConfig returns the documented defaults: hourly sweep, 24h room
// retention, 100-version tombstone horizon.
func DefaultConfig() Config {
	return Config{
		RetentionPeriod: 24 * time.Hour,
		Horizon:         100,
		Interval:        60 * time.Minute,
		SweepTimeout:    5 * time.Minute,
	}
}

// RetentionSweep periodically removes idle rooms and prunes old
// tombstones. Bounded tombstone history keeps delta reads honest while
// preventing unbounded growth.
type RetentionSweep struct {
	rooms      RoomSweepRepository
	tombstones TombstoneSweepRepository
	cfg        Config
	logger     logging.Logger
	stopCh     chan struct{}
	now        func() time.Time
}

// NewRetentionSweep creates the sweep with the given configuration.
func NewRetentionSweep(rooms RoomSweepRepository, tombstones TombstoneSweepRepository, cfg Config, logger logging.Logger) *RetentionSweep {
	return &RetentionSweep{
		rooms:      rooms,
		tombstones: tombstones,
		cfg:        cfg,
		logger:     logger.With("module", "retention_sweep"),
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
}

// Start begins the sweep loop in a background goroutine.
func (s *RetentionSweep) Start() {
	s.logger.Info(context.Background(), "starting retention sweep",
		"retention", s.cfg.RetentionPeriod.String(), "interval", s.cfg.Interval.String())
	go s.loop()
}

// Stop terminates the loop.
func (s *RetentionSweep) Stop() {
	close(s.stopCh)
}

func (s *RetentionSweep) loop() {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep performs one pass: idle rooms first (cascades remove their
// tombstones for free), then the horizon-based tombstone prune.
func (s *RetentionSweep) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SweepTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.cfg.RetentionPeriod)
	roomsRemoved, err := s.rooms.DeleteIdle(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "failed to delete idle rooms", "error", err.Error())
		return
	}

	tombstonesPruned, err := s.tombstones.PruneTombstones(ctx, s.cfg.Horizon)
	if err != nil {
		s.logger.Error(ctx, "failed to prune tombstones", "error", err.Error())
		return
	}

	if roomsRemoved > 0 || tombstonesPruned > 0 {
		s.logger.Info(ctx, "retention sweep complete",
			"rooms_removed", roomsRemoved, "tombstones_pruned", tombstonesPruned)
	}
}
