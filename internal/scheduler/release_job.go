// Package scheduler runs periodic staking jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"staking-engine/internal/model"
	"staking-engine/internal/service"
	"staking-engine/internal/staking"
)

// DefaultSpec runs the sweep once a day at midnight. A release resets the
// sampling point and drops the partial day, so sweeping more often only
// loses accrual.
const DefaultSpec = "0 0 0 * * *"

// Releaser is the part of the staking service the sweep drives.
type Releaser interface {
	ActivePackages(ctx context.Context) ([]*model.Package, error)
	ReleasePackage(ctx context.Context, pkgID solana.PublicKey) (*service.Result, error)
}

// Summary is the outcome of one sweep.
type Summary struct {
	Packages  int
	Skipped   int
	Completed int
	Failed    int
	Released  uint64
}

// ReleaseScheduler accrues every active package on a cron schedule.
type ReleaseScheduler struct {
	cron     *cron.Cron
	releaser Releaser
	clock    staking.Clock
	spec     string

	mu      sync.Mutex
	running bool
}

// NewReleaseScheduler creates a scheduler for the given cron spec with
// seconds precision. clock must be the one the releaser's engine reads.
func NewReleaseScheduler(releaser Releaser, clock staking.Clock, spec string) *ReleaseScheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &ReleaseScheduler{
		cron:     cron.New(cron.WithSeconds()),
		releaser: releaser,
		clock:    clock,
		spec:     spec,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *ReleaseScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return fmt.Errorf("failed to schedule release sweep: %w", err)
	}

	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("Release scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running sweep.
func (s *ReleaseScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Release scheduler stopped")
}

func (s *ReleaseScheduler) sweep() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("Previous release sweep still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.RunOnce(context.Background()); err != nil {
		log.Error().Err(err).Msg("Release sweep failed")
	}
}

// RunOnce accrues every active package that has at least one whole day
// pending. Packages sampled less than a day ago are skipped so their
// partial day keeps accruing. A package that fails is logged and skipped.
func (s *ReleaseScheduler) RunOnce(ctx context.Context) (*Summary, error) {
	start := time.Now()

	pkgs, err := s.releaser.ActivePackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active packages: %w", err)
	}
	// oldest sample first keeps each package's offset within the sweep stable
	sort.SliceStable(pkgs, func(i, j int) bool { return pkgs[i].CreatedAt < pkgs[j].CreatedAt })

	sum := &Summary{Packages: len(pkgs)}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if !staking.ReleaseDue(pkg, s.clock.Now()) {
			sum.Skipped++
			continue
		}

		res, err := s.releaser.ReleasePackage(ctx, pkg.ID)
		if errors.Is(err, service.ErrReleaseNotDue) {
			sum.Skipped++
			continue
		}
		if err != nil {
			sum.Failed++
			log.Warn().Err(err).Str("package", pkg.ID.String()).Msg("Failed to release package")
			continue
		}
		for _, ev := range res.Events {
			sum.Released += ev.Released
		}
		if res.Package != nil && res.Package.IsMatured() {
			sum.Completed++
		}
	}

	log.Info().
		Int("packages", sum.Packages).
		Int("skipped", sum.Skipped).
		Int("completed", sum.Completed).
		Int("failed", sum.Failed).
		Uint64("released", sum.Released).
		Dur("elapsed", time.Since(start)).
		Msg("Release sweep finished")
	return sum, nil
}
