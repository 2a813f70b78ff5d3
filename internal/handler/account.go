package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"staking-engine/internal/model"
	"staking-engine/internal/service"
)

// AccountHandler handles registration, account views and the faucet.
type AccountHandler struct {
	staking *service.StakingService
	units   Units
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(staking *service.StakingService, units Units) *AccountHandler {
	return &AccountHandler{
		staking: staking,
		units:   units,
	}
}

// HandleStart handles the /start command.
// Format: /start [referrer_id]
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var referrer *int64
	if args := c.Args(); len(args) > 0 {
		id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "ref_"), 10, 64)
		if err != nil {
			return c.Reply("❌ 推荐人ID格式错误，请输入数字")
		}
		referrer = &id
	}

	user, err := h.staking.CreateUser(ctx, sender.ID, referrer)
	if errors.Is(err, service.ErrUserExists) {
		bal, err := h.staking.Balances(ctx, sender.ID)
		if err != nil {
			return c.Reply(errorReply(err))
		}
		return c.Reply(fmt.Sprintf(
			"👋 欢迎回来 @%s！\n\n"+
				"💰 可用余额: %s",
			displayName(sender), h.units.Format(bal.Stake),
		))
	}
	if err != nil {
		return c.Reply(errorReply(err))
	}

	ref := "无"
	if user.HasReferrer() {
		ref = shortKey(user.Referrer)
	}
	return c.Reply(fmt.Sprintf(
		"🎉 欢迎 @%s！\n\n"+
			"您的质押账户已创建\n"+
			"🔑 地址: %s\n"+
			"🤝 推荐人: %s\n\n"+
			"可用命令:\n"+
			"/me - 账户信息\n"+
			"/pool - 质押池\n"+
			"/topup <数量> - 领取测试代币\n"+
			"/stake <数量> - 质押\n"+
			"/packages - 我的质押包\n"+
			"/release <序号> - 结算释放\n"+
			"/exit <序号> - 提取收益\n"+
			"/history - 操作记录\n"+
			"/top - 排行榜",
		displayName(sender), user.User, ref,
	))
}

// HandleMe handles the /me command.
func (h *AccountHandler) HandleMe(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.staking.GetUser(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	bal, err := h.staking.Balances(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	active := "否"
	if user.IsActive {
		active = "是"
	}

	return c.Reply(fmt.Sprintf(
		"📊 账户信息\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👤 用户: @%s (%s)\n"+
			"🏅 等级: V%d\n"+
			"✅ 已激活: %s\n"+
			"🔒 质押中: %s\n"+
			"🎁 已领取收益: %s\n"+
			"👥 直推人数: %d\n"+
			"📈 团队业绩: %s\n"+
			"📦 质押包: %d\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💰 可用余额: %s\n"+
			"💎 奖励代币: %s\n"+
			"🐸 Meme 代币: %s",
		displayName(sender), roleLabel(user.Role),
		user.Level, active,
		h.units.Format(user.StakedAmount),
		h.units.Format(user.RewardsClaimed),
		user.DirectReferrals,
		h.units.Format(user.TeamPerformance),
		user.PackagesCount,
		h.units.Format(bal.Stake),
		h.units.Format(bal.Reward),
		h.units.Format(bal.Meme),
	))
}

// HandleTopUp handles the /topup command.
// Format: /topup <amount>
func (h *AccountHandler) HandleTopUp(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /topup <数量>\n例如: /topup 100")
	}
	amount, err := h.units.Parse(args[0])
	if err != nil {
		return c.Reply(err.Error())
	}

	balance, err := h.staking.Faucet(ctx, sender.ID, amount)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	return c.Reply(fmt.Sprintf(
		"✅ 领取成功\n\n"+
			"➕ 领取: %s\n"+
			"💰 当前余额: %s",
		h.units.Format(amount), h.units.Format(balance),
	))
}

// HandleHistory handles the /history command.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ops, err := h.staking.History(ctx, sender.ID, 10)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	if len(ops) == 0 {
		return c.Reply("📜 暂无操作记录")
	}

	var sb strings.Builder
	sb.WriteString("📜 最近操作\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	for _, op := range ops {
		mark := "✅"
		if op.Status == model.OperationFailed {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "%s %s %s", mark, op.CreatedAt.Format("01-02 15:04"), op.Op)
		if op.Amount > 0 {
			fmt.Fprintf(&sb, " %s", h.units.Format(op.Amount))
		}
		if op.ErrorCode != nil {
			fmt.Fprintf(&sb, " (错误码 %d)", *op.ErrorCode)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("━━━━━━━━━━━━━━━")

	return c.Reply(sb.String())
}

// HandleTop handles the /top command.
// Format: /top [stake|team|claimed]
func (h *AccountHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	by, title := service.RankByStake, "🏆 质押榜 TOP 10"
	if args := c.Args(); len(args) > 0 {
		switch args[0] {
		case "team":
			by, title = service.RankByTeam, "🏆 团队业绩榜 TOP 10"
		case "claimed":
			by, title = service.RankByClaimed, "🏆 收益榜 TOP 10"
		}
	}

	users, err := h.staking.Leaderboard(ctx, by, 10)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load leaderboard")
		return c.Reply("❌ 获取排行榜失败，请稍后重试")
	}
	if len(users) == 0 {
		return c.Reply("📊 暂无排行数据")
	}

	msg := title + "\n"
	msg += "━━━━━━━━━━━━━━━\n"

	medals := []string{"🥇", "🥈", "🥉"}
	for i, user := range users {
		rank := fmt.Sprintf("%d.", i+1)
		if i < 3 {
			rank = medals[i]
		}

		var value uint64
		switch by {
		case service.RankByTeam:
			value = user.TeamPerformance
		case service.RankByClaimed:
			value = user.RewardsClaimed
		default:
			value = user.StakedAmount
		}
		msg += fmt.Sprintf("%s %s V%d: %s\n", rank, shortKey(user.User), user.Level, h.units.Format(value))
	}

	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
