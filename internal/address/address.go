// Package address derives the ledger addresses the host keeps records and
// balances under. Every address is a program-derived address or an
// associated token address, so the same inputs always map to the same key.
package address

import (
	"encoding/binary"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// Seeds.
const (
	poolSeed = "staking_pool"
	userSeed = "user_info"
	mintSeed = "mint"
)

// Pool returns the address of the pool record.
func Pool(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(poolSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool address: %w", err)
	}
	return addr, nil
}

// User returns the address of the user record for a Telegram account. The
// same key is the user's identity on the ledger.
func User(programID solana.PublicKey, telegramID int64) (solana.PublicKey, error) {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], uint64(telegramID))

	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(userSeed), id[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive user address for %d: %w", telegramID, err)
	}
	return addr, nil
}

// Mint returns a deterministic mint address for a named token, used when
// the configuration does not pin one.
func Mint(programID solana.PublicKey, name string) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(mintSeed), []byte(name)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive %s mint: %w", name, err)
	}
	return addr, nil
}

// TokenAccount returns the associated token account of owner for mint.
func TokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account: %w", err)
	}
	return addr, nil
}

// NewPackageID returns a fresh random package handle.
func NewPackageID() (solana.PublicKey, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to generate package id: %w", err)
	}
	return priv.PublicKey(), nil
}
