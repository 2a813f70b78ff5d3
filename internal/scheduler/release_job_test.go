package scheduler

import (
	"context"
	"errors"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
	"staking-engine/internal/service"
	"staking-engine/internal/staking"
)

const startTime int64 = 1_700_000_000

// engineReleaser keeps packages in memory and releases them through a real
// engine, checking due-ness the way the staking service does.
type engineReleaser struct {
	clock    *staking.ManualClock
	engine   *staking.Engine
	pkgs     []*model.Package
	listErr  error
	failures map[solana.PublicKey]error
	calls    []solana.PublicKey
}

func newEngineReleaser() *engineReleaser {
	clock := staking.NewManualClock(startTime)
	return &engineReleaser{
		clock:    clock,
		engine:   staking.NewEngine(clock, ledger.NewMemory()),
		failures: make(map[solana.PublicKey]error),
	}
}

func (r *engineReleaser) add(id byte, base, maxTotal uint64, createdAt int64) *model.Package {
	pkg := &model.Package{
		ID:          pkgKey(id),
		Owner:       pkgKey(id + 100),
		Amount:      1000,
		BaseRelease: base,
		MaxTotal:    maxTotal,
		CreatedAt:   createdAt,
		Status:      model.PackageActive,
	}
	r.pkgs = append(r.pkgs, pkg)
	return pkg
}

func (r *engineReleaser) ActivePackages(context.Context) ([]*model.Package, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var active []*model.Package
	for _, pkg := range r.pkgs {
		if pkg.Status == model.PackageActive {
			cp := *pkg
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (r *engineReleaser) ReleasePackage(ctx context.Context, id solana.PublicKey) (*service.Result, error) {
	r.calls = append(r.calls, id)
	if err := r.failures[id]; err != nil {
		return nil, err
	}
	for _, pkg := range r.pkgs {
		if !pkg.ID.Equals(id) {
			continue
		}
		if !staking.ReleaseDue(pkg, r.clock.Now()) {
			return nil, service.ErrReleaseNotDue
		}
		events, err := r.engine.Execute(ctx, &staking.Accounts{Package: pkg}, staking.AutoReleaseIx())
		if err != nil {
			return nil, err
		}
		out := *pkg
		return &service.Result{Events: events, Package: &out}, nil
	}
	return nil, service.ErrPackageNotFound
}

func pkgKey(b byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(append([]byte{b, 0xaa}, make([]byte, 30)...))
}

func TestRunOnce(t *testing.T) {
	r := newEngineReleaser()
	a := r.add(1, 300, 1500, startTime)
	b := r.add(2, 300, 1500, startTime)
	c := r.add(3, 200, 1500, startTime)
	c.CurrentTotal = 1300
	fresh := r.add(4, 300, 1500, startTime+12*3600)
	r.failures[b.ID] = staking.ErrOverflow

	r.clock.AdvanceDays(1)
	sum, err := NewReleaseScheduler(r, r.clock, "").RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Summary{Packages: 4, Skipped: 1, Completed: 1, Failed: 1, Released: 500}, sum)
	assert.Equal(t, []solana.PublicKey{a.ID, b.ID, c.ID}, r.calls)
	assert.Equal(t, uint64(300), a.CurrentTotal)
	assert.Equal(t, model.PackageCompleted, c.Status)
	assert.Equal(t, startTime+12*3600, fresh.CreatedAt)
}

func TestRunOnceSubDayCadenceAccrues(t *testing.T) {
	r := newEngineReleaser()
	pkg := r.add(1, 300, 1500, startTime)
	s := NewReleaseScheduler(r, r.clock, "")

	var released uint64
	for hour := 1; hour <= 240; hour++ {
		r.clock.Advance(3600)
		sum, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sum.Failed)
		released += sum.Released

		if hour == 23 {
			assert.Zero(t, pkg.CurrentTotal)
			assert.Equal(t, startTime, pkg.CreatedAt)
		}
		if hour == 24 {
			assert.Equal(t, uint64(300), pkg.CurrentTotal)
		}
	}

	assert.Equal(t, uint64(1500), pkg.CurrentTotal)
	assert.Equal(t, uint64(1500), released)
	assert.Equal(t, model.PackageCompleted, pkg.Status)
	assert.Len(t, r.calls, 5)
}

func TestRunOnceUnalignedPackageMatures(t *testing.T) {
	r := newEngineReleaser()
	// opened ten hours before the first daily sweep
	pkg := r.add(1, 300, 1500, startTime-10*3600)
	s := NewReleaseScheduler(r, r.clock, DefaultSpec)

	for day := 0; day < 7 && pkg.Status == model.PackageActive; day++ {
		_, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		r.clock.AdvanceDays(1)
	}

	assert.Equal(t, model.PackageCompleted, pkg.Status)
	assert.Equal(t, uint64(1500), pkg.CurrentTotal)
}

func TestRunOnceTreatsNotDueAsSkipped(t *testing.T) {
	r := newEngineReleaser()
	pkg := r.add(1, 300, 1500, startTime)
	r.failures[pkg.ID] = service.ErrReleaseNotDue

	r.clock.AdvanceDays(1)
	sum, err := NewReleaseScheduler(r, r.clock, "").RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{Packages: 1, Skipped: 1}, sum)
}

func TestRunOnceListFailure(t *testing.T) {
	r := newEngineReleaser()
	r.listErr = errors.New("db down")

	_, err := NewReleaseScheduler(r, r.clock, "").RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, r.calls)
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	r := newEngineReleaser()
	r.add(1, 300, 1500, startTime)
	r.clock.AdvanceDays(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewReleaseScheduler(r, r.clock, "").RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Packages)
	assert.Empty(t, r.calls)
}

func TestStartRejectsBadSpec(t *testing.T) {
	r := newEngineReleaser()
	s := NewReleaseScheduler(r, r.clock, "every hour")
	assert.Error(t, s.Start())

	s = NewReleaseScheduler(r, r.clock, DefaultSpec)
	require.NoError(t, s.Start())
	s.Stop()
}
