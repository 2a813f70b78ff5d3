// Package handler provides Telegram bot command handlers.
package handler

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"staking-engine/internal/model"
)

var (
	errBadAmount    = errors.New("❌ 金额格式错误，请输入正数")
	errTooPrecise   = errors.New("❌ 金额小数位过多")
	errAmountTooBig = errors.New("❌ 金额过大")
)

// Units converts between display amounts and base units of a token.
type Units struct {
	Decimals int32
}

// Format renders base units as a decimal amount.
func (u Units) Format(amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -u.Decimals).String()
}

// Parse reads a positive decimal amount into base units.
func (u Units) Parse(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0, errBadAmount
	}
	base := d.Shift(u.Decimals)
	if !base.Equal(base.Truncate(0)) {
		return 0, errTooPrecise
	}
	n := base.BigInt()
	if !n.IsUint64() {
		return 0, errAmountTooBig
	}
	return n.Uint64(), nil
}

// formatBps renders basis points as a percentage.
func formatBps(bps uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bps), -2).String() + "%"
}

// shortKey abbreviates an address for chat output.
func shortKey(k solana.PublicKey) string {
	s := k.String()
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}

func statusLabel(s model.PackageStatus) string {
	switch s {
	case model.PackageActive:
		return "🟢 释放中"
	case model.PackageCompleted:
		return "🟡 已满额"
	case model.PackageWithdrawn:
		return "⚪ 已提取"
	default:
		return s.String()
	}
}

func roleLabel(r model.UserRole) string {
	switch r {
	case model.RoleAdmin:
		return "管理员"
	case model.RoleTeamLeader:
		return "团队长"
	case model.RoleReferralMaster:
		return "推广大师"
	default:
		return "普通用户"
	}
}

// parseIndex reads a 1-based list position.
func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return 0, errors.New("❌ 序号格式错误，请输入正整数")
	}
	if i > n {
		return 0, fmt.Errorf("❌ 序号超出范围，共有 %d 个质押包", n)
	}
	return i - 1, nil
}
