package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"staking-engine/internal/service"
)

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	staking *service.StakingService
	units   Units
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(staking *service.StakingService, units Units) *AdminHandler {
	return &AdminHandler{
		staking: staking,
		units:   units,
	}
}

// HandleInit handles the /init command. The sender becomes the pool admin.
func (h *AdminHandler) HandleInit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	pool, err := h.staking.Initialize(context.Background(), sender.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("pool", h.staking.PoolAddress().String()).
		Str("operation", "init").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 质押池已初始化\n\n"+
			"🏦 地址: %s\n"+
			"📅 日释放率: %s\n"+
			"🎯 最高倍数: %s\n"+
			"⬇️ 最低质押: %s",
		h.staking.PoolAddress(),
		formatBps(pool.DailyRate),
		formatBps(pool.MaxMultiplier),
		h.units.Format(pool.MinStake),
	))
}

// HandleReferral handles the /referral command.
// Format: /referral <user_id> <new_referrals> <stake_amount>
func (h *AdminHandler) HandleReferral(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 3 {
		return c.Reply("❌ 用法: /referral <用户ID> <新增人数> <业绩>\n例如: /referral 123456789 3 500")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ 用户ID格式错误，请输入数字")
	}
	refs, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return c.Reply("❌ 人数格式错误，请输入非负整数")
	}
	stake := uint64(0)
	if args[2] != "0" {
		if stake, err = h.units.Parse(args[2]); err != nil {
			return c.Reply(err.Error())
		}
	}

	user, err := h.staking.UpdateReferral(context.Background(), targetID, uint32(refs), stake)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Uint64("new_referrals", refs).
		Uint64("stake_amount", stake).
		Str("operation", "referral").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 推荐数据已更新\n\n"+
			"👤 用户ID: %d\n"+
			"👥 直推人数: %d\n"+
			"📈 团队业绩: %s\n"+
			"🏅 等级: V%d",
		targetID, user.DirectReferrals, h.units.Format(user.TeamPerformance), user.Level,
	))
}

// HandleFund handles the /fund command.
// Format: /fund <user_id> <amount>
func (h *AdminHandler) HandleFund(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ 用法: /fund <用户ID> <数量>\n例如: /fund 123456789 1000")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ 用户ID格式错误，请输入数字")
	}
	amount, err := h.units.Parse(args[1])
	if err != nil {
		return c.Reply(err.Error())
	}

	balance, err := h.staking.Fund(context.Background(), targetID, amount)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Uint64("amount", amount).
		Str("operation", "fund").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 操作成功\n\n"+
			"👤 用户ID: %d\n"+
			"➕ 添加: %s\n"+
			"💰 当前余额: %s",
		targetID, h.units.Format(amount), h.units.Format(balance),
	))
}

// HandleFundPool handles the /fund_pool command.
// Format: /fund_pool <stake|reward|meme> <amount>
func (h *AdminHandler) HandleFundPool(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ 用法: /fund_pool <stake|reward|meme> <数量>\n例如: /fund_pool reward 100000")
	}
	amount, err := h.units.Parse(args[1])
	if err != nil {
		return c.Reply(err.Error())
	}

	balance, err := h.staking.FundPool(context.Background(), args[0], amount)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("vault", args[0]).
		Uint64("amount", amount).
		Str("operation", "fund_pool").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 资金池已注资\n\n"+
			"🏦 资金池: %s\n"+
			"➕ 添加: %s\n"+
			"💰 当前余额: %s",
		args[0], h.units.Format(amount), h.units.Format(balance),
	))
}
