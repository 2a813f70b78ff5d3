package handler

import (
	"errors"

	"staking-engine/internal/ledger"
	"staking-engine/internal/pkg/lock"
	"staking-engine/internal/service"
	"staking-engine/internal/staking"
)

var replies = []struct {
	err error
	msg string
}{
	{staking.ErrMinimumStakeNotMet, "❌ 未达到最低质押数量"},
	{staking.ErrOverflow, "❌ 数值溢出，操作已取消"},
	{staking.ErrUserNotActive, "❌ 账户未激活，请先质押"},
	{staking.ErrMaxMultiplierReached, "✅ 该质押包已达到释放上限"},
	{staking.ErrInsufficientBalance, "❌ 余额不足"},
	{staking.ErrPackageNotMatured, "⏳ 质押包尚未满额，暂不能提取"},
	{staking.ErrPackageNotActive, "❌ 质押包已提取"},
	{service.ErrPoolNotFound, "❌ 质押池尚未初始化"},
	{service.ErrPoolAlreadyInitialized, "❌ 质押池已初始化"},
	{service.ErrUserNotFound, "❌ 账户不存在，请先使用 /start 注册"},
	{service.ErrUserExists, "❌ 账户已存在"},
	{service.ErrReferrerNotFound, "❌ 推荐人不存在"},
	{service.ErrPackageNotFound, "❌ 质押包不存在"},
	{service.ErrNotPackageOwner, "❌ 该质押包不属于你"},
	{service.ErrInvalidAmount, "❌ 金额必须大于 0"},
	{service.ErrFaucetLimit, "❌ 超过单次领取上限"},
	{service.ErrReleaseNotDue, "⏳ 距上次释放不足一天"},
	{service.ErrUnknownVault, "❌ 未知资金池，可选: stake, reward, meme"},
	{ledger.ErrAccountNotFound, "❌ 代币账户不存在"},
	{lock.ErrLockTimeout, "⏳ 操作繁忙，请稍后重试"},
}

// errorReply maps an operation failure onto a chat reply.
func errorReply(err error) string {
	for _, r := range replies {
		if errors.Is(err, r.err) {
			return r.msg
		}
	}
	return "❌ 操作失败，请稍后重试"
}
