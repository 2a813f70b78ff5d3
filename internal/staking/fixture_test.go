package staking

import (
	"context"

	solana "github.com/gagliardetto/solana-go"

	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
)

const startTime int64 = 1_700_000_000

type fataler interface {
	Fatalf(format string, args ...any)
}

func key(b ...byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(b)
}

func scenarioParams() InitParams {
	return InitParams{
		DailyRate:     3000,
		MaxMultiplier: 15000,
		MinStake:      100,
		DirectBonus:   3000,
		IndirectBonus: 1000,
		Admin:         key(1),
		StakeMint:     key(10),
		RewardMint:    key(11),
		MemeMint:      key(12),
	}
}

// fixture is an initialized pool with one created, not yet active user.
type fixture struct {
	ctx    context.Context
	clock  *ManualClock
	ledger *ledger.Memory
	engine *Engine

	pool  model.Pool
	user  model.User
	pkg   model.Package
	accts *Accounts
}

func newFixture(t fataler, params InitParams, userFunds uint64) *fixture {
	f := &fixture{
		ctx:    context.Background(),
		clock:  NewManualClock(startTime),
		ledger: ledger.NewMemory(),
	}
	f.engine = NewEngine(f.clock, f.ledger)

	owner := key(2)
	f.accts = &Accounts{
		Pool:       &f.pool,
		User:       &f.user,
		Package:    &f.pkg,
		Signer:     owner,
		Admin:      params.Admin,
		UserStake:  key(20),
		PoolStake:  key(21),
		UserReward: key(22),
		PoolReward: key(23),
		UserMeme:   key(24),
		PoolMeme:   key(25),
	}

	f.ledger.Open(f.accts.UserStake, params.StakeMint, owner)
	f.ledger.Open(f.accts.PoolStake, params.StakeMint, params.Admin)
	f.ledger.Open(f.accts.UserReward, params.RewardMint, owner)
	f.ledger.Open(f.accts.PoolReward, params.RewardMint, params.Admin)
	f.ledger.Open(f.accts.UserMeme, params.MemeMint, owner)
	f.ledger.Open(f.accts.PoolMeme, params.MemeMint, params.Admin)

	for addr, amount := range map[solana.PublicKey]uint64{
		f.accts.UserStake:  userFunds,
		f.accts.PoolReward: 1_000_000_000_000_000,
		f.accts.PoolMeme:   1_000_000_000_000_000,
	} {
		if err := f.ledger.Mint(addr, amount); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}

	if _, err := f.engine.Execute(f.ctx, f.accts, InitializeIx(params), CreateUserIx(nil)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return f
}

// open stakes amount and creates a package for it in one transaction.
func (f *fixture) open(pkg *model.Package, id solana.PublicKey, amount uint64) error {
	f.accts.Package = pkg
	_, err := f.engine.Execute(f.ctx, f.accts, StakeIx(amount), CreatePackageIx(id, amount))
	return err
}

func (f *fixture) run(pkg *model.Package, ixs ...Instruction) ([]Event, error) {
	f.accts.Package = pkg
	return f.engine.Execute(f.ctx, f.accts, ixs...)
}

// image encodes every record the fixture holds.
func (f *fixture) image(t fataler, pkg *model.Package) []byte {
	var out []byte
	p, err := model.EncodePool(&f.pool)
	if err != nil {
		t.Fatalf("encode pool: %v", err)
	}
	u, err := model.EncodeUser(&f.user)
	if err != nil {
		t.Fatalf("encode user: %v", err)
	}
	out = append(out, p...)
	out = append(out, u...)
	if pkg != nil {
		k, err := model.EncodePackage(pkg)
		if err != nil {
			t.Fatalf("encode package: %v", err)
		}
		out = append(out, k...)
	}
	return out
}
