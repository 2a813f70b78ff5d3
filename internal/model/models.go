// Package model defines the records of the staking program: the pool
// singleton, per-identity user records and per-deposit packages.
//
// All monetary fields are base units of the stake token. Rate-like fields
// are basis points scaled by 10 000. Records are plain values: copying one
// is a complete snapshot.
package model

import (
	"time"

	solana "github.com/gagliardetto/solana-go"
)

// PackageStatus is the lifecycle tag of a package.
type PackageStatus uint8

// Package lifecycle states.
const (
	PackageActive PackageStatus = iota
	PackageCompleted
	PackageWithdrawn
)

// String returns the status name.
func (s PackageStatus) String() string {
	switch s {
	case PackageActive:
		return "Active"
	case PackageCompleted:
		return "Completed"
	case PackageWithdrawn:
		return "Withdrawn"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is a known discriminant.
func (s PackageStatus) Valid() bool {
	return s <= PackageWithdrawn
}

// UserRole is the role tag of a user.
type UserRole uint8

// User roles.
const (
	RoleUser UserRole = iota
	RoleReferralMaster
	RoleTeamLeader
	RoleAdmin
)

// String returns the role name.
func (r UserRole) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleReferralMaster:
		return "ReferralMaster"
	case RoleTeamLeader:
		return "TeamLeader"
	case RoleAdmin:
		return "Admin"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is a known discriminant.
func (r UserRole) Valid() bool {
	return r <= RoleAdmin
}

// Pool is the per-deployment singleton holding configuration and aggregates.
type Pool struct {
	Admin      solana.PublicKey
	StakeMint  solana.PublicKey
	RewardMint solana.PublicKey
	MemeMint   solana.PublicKey

	TotalStaked   uint64
	DailyRate     uint64 // bps of principal released per day
	MaxMultiplier uint64 // bps cap on lifetime release relative to principal
	MinStake      uint64
	DirectBonus   uint64 // bps per direct referral
	IndirectBonus uint64 // bps per indirect referral

	TotalUsers       uint32
	GlobalRewardPool uint64
}

// User is the record kept per identity.
type User struct {
	User     solana.PublicKey
	Referrer solana.PublicKey // equals User when there is no referrer

	StakedAmount   uint64
	RewardsClaimed uint64
	LastClaimTime  int64

	DirectReferrals   uint32
	IndirectReferrals uint32
	Level             uint8
	TeamPerformance   uint64

	IsActive      bool
	PackagesCount uint64
	Role          UserRole
}

// HasReferrer reports whether the user was created with a referrer.
func (u *User) HasReferrer() bool {
	return !u.Referrer.Equals(u.User)
}

// Package is a single staked deposit with its own accrual state.
type Package struct {
	ID    solana.PublicKey
	Owner solana.PublicKey

	Amount             uint64
	BaseRelease        uint64 // base units per day
	AcceleratedRelease uint64 // base units per day, frozen at creation
	CurrentTotal       uint64
	MaxTotal           uint64

	// CreatedAt is the last accrual sampling time, not only the creation time.
	CreatedAt int64
	Status    PackageStatus
}

// IsMatured reports whether the package reached its cap.
func (p *Package) IsMatured() bool {
	return p.CurrentTotal >= p.MaxTotal
}

// TokenAccount is a balance of one mint held by one owner. A non-zero
// Delegate may also sign transfers out of it.
type TokenAccount struct {
	Address  solana.PublicKey
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Delegate solana.PublicKey
	Balance  uint64
}

// Operation is a journal row describing one host transaction.
type Operation struct {
	ID        string
	Op        string
	Signer    string
	Account   string
	Amount    uint64
	Status    string
	ErrorCode *int32
	CreatedAt time.Time
}

// Operation journal statuses.
const (
	OperationCommitted = "committed"
	OperationFailed    = "failed"
)
