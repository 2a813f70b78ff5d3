package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"staking-engine/internal/model"
	"staking-engine/internal/service"
	"staking-engine/internal/staking"
)

// PackageHandler handles the pool view and the package lifecycle commands.
type PackageHandler struct {
	staking *service.StakingService
	units   Units
}

// NewPackageHandler creates a new PackageHandler.
func NewPackageHandler(staking *service.StakingService, units Units) *PackageHandler {
	return &PackageHandler{
		staking: staking,
		units:   units,
	}
}

// HandlePool handles the /pool command.
func (h *PackageHandler) HandlePool(c tele.Context) error {
	pool, err := h.staking.GetPool(context.Background())
	if err != nil {
		return c.Reply(errorReply(err))
	}

	return c.Reply(fmt.Sprintf(
		"🏦 质押池\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🔒 总质押: %s\n"+
			"👥 活跃用户: %d\n"+
			"🌐 全局奖励池: %s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"📅 日释放率: %s\n"+
			"🎯 最高倍数: %s\n"+
			"⬇️ 最低质押: %s\n"+
			"🤝 直推加成: %s\n"+
			"🔗 间推加成: %s",
		h.units.Format(pool.TotalStaked),
		pool.TotalUsers,
		h.units.Format(pool.GlobalRewardPool),
		formatBps(pool.DailyRate),
		formatBps(pool.MaxMultiplier),
		h.units.Format(pool.MinStake),
		formatBps(pool.DirectBonus),
		formatBps(pool.IndirectBonus),
	))
}

// HandleStake handles the /stake command.
// Format: /stake <amount>
func (h *PackageHandler) HandleStake(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /stake <数量>\n例如: /stake 1000")
	}
	amount, err := h.units.Parse(args[0])
	if err != nil {
		return c.Reply(err.Error())
	}

	res, err := h.staking.OpenPackage(ctx, sender.ID, amount)
	if err != nil {
		if errors.Is(err, staking.ErrMinimumStakeNotMet) {
			if pool, perr := h.staking.GetPool(ctx); perr == nil {
				return c.Reply(fmt.Sprintf("❌ 未达到最低质押数量: %s", h.units.Format(pool.MinStake)))
			}
		}
		return c.Reply(errorReply(err))
	}

	pkg := res.Package
	return c.Reply(fmt.Sprintf(
		"✅ 质押成功\n\n"+
			"📦 质押包: %s\n"+
			"🔒 本金: %s\n"+
			"📅 每日基础释放: %s\n"+
			"🚀 每日加速释放: %s\n"+
			"🎯 释放上限: %s",
		shortKey(pkg.ID),
		h.units.Format(pkg.Amount),
		h.units.Format(pkg.BaseRelease),
		h.units.Format(pkg.AcceleratedRelease),
		h.units.Format(pkg.MaxTotal),
	))
}

// HandlePackages handles the /packages command.
func (h *PackageHandler) HandlePackages(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	packages, err := h.staking.ListPackages(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	if len(packages) == 0 {
		return c.Reply("📦 暂无质押包，使用 /stake <数量> 开始质押")
	}

	var sb strings.Builder
	sb.WriteString("📦 我的质押包\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	for i, pkg := range packages {
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, shortKey(pkg.ID), statusLabel(pkg.Status))
		fmt.Fprintf(&sb, "   本金 %s | 已释放 %s / %s\n",
			h.units.Format(pkg.Amount),
			h.units.Format(pkg.CurrentTotal),
			h.units.Format(pkg.MaxTotal),
		)
		if pkg.Status == model.PackageActive {
			if pending, err := h.staking.PendingRelease(pkg); err == nil && pending > 0 {
				fmt.Fprintf(&sb, "   待结算 %s\n", h.units.Format(pending))
			}
		}
	}
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString("/release <序号> 结算 | /exit <序号> 提取")

	return c.Reply(sb.String())
}

// HandleRelease handles the /release command.
// Format: /release <n>
func (h *PackageHandler) HandleRelease(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	pkg, err := h.packageArg(ctx, c, sender.ID, "/release")
	if err != nil {
		return c.Reply(err.Error())
	}

	res, err := h.staking.AutoRelease(ctx, sender.ID, pkg.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	var released uint64
	for _, ev := range res.Events {
		released += ev.Released
	}
	return c.Reply(fmt.Sprintf(
		"✅ 结算完成\n\n"+
			"➕ 本次释放: %s\n"+
			"📈 累计释放: %s / %s\n"+
			"%s",
		h.units.Format(released),
		h.units.Format(res.Package.CurrentTotal),
		h.units.Format(res.Package.MaxTotal),
		statusLabel(res.Package.Status),
	))
}

// HandleExit handles the /exit command.
// Format: /exit <n>
func (h *PackageHandler) HandleExit(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	pkg, err := h.packageArg(ctx, c, sender.ID, "/exit")
	if err != nil {
		return c.Reply(err.Error())
	}

	res, err := h.staking.ExitPackage(ctx, sender.ID, pkg.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	var payout staking.Payout
	for _, ev := range res.Events {
		payout = ev.Payout
	}
	return c.Reply(fmt.Sprintf(
		"✅ 提取成功\n\n"+
			"💎 奖励代币: %s\n"+
			"🐸 Meme 代币: %s\n"+
			"🎁 累计已领取: %s",
		h.units.Format(payout.Reward),
		h.units.Format(payout.Meme),
		h.units.Format(res.User.RewardsClaimed),
	))
}

// packageArg resolves the 1-based package position given as the first
// argument.
func (h *PackageHandler) packageArg(ctx context.Context, c tele.Context, telegramID int64, cmd string) (*model.Package, error) {
	args := c.Args()
	if len(args) < 1 {
		return nil, fmt.Errorf("❌ 用法: %s <序号>\n使用 /packages 查看序号", cmd)
	}

	packages, err := h.staking.ListPackages(ctx, telegramID)
	if err != nil {
		return nil, errors.New(errorReply(err))
	}
	if len(packages) == 0 {
		return nil, errors.New("📦 暂无质押包")
	}

	i, err := parseIndex(args[0], len(packages))
	if err != nil {
		return nil, err
	}
	return packages[i], nil
}
