package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"staking-engine/internal/config"
)

// checkTimeout bounds the record lookups done before a handler runs.
const checkTimeout = 5 * time.Second

// Accounts answers the staking questions the middleware asks about a
// Telegram user.
type Accounts interface {
	IsPoolAdmin(ctx context.Context, telegramID int64) (bool, error)
	HasAccount(ctx context.Context, telegramID int64) (bool, error)
}

// ChatGate decides which chats the bot answers. Whitelisted groups are
// always served. Private chat is open to users with a staking account and
// to users seen in a whitelisted group.
type ChatGate struct {
	cfg      *config.Config
	accounts Accounts
	seen     sync.Map // int64 -> struct{}
}

// NewChatGate creates a gate over the configured whitelist.
func NewChatGate(cfg *config.Config, accounts Accounts) *ChatGate {
	return &ChatGate{cfg: cfg, accounts: accounts}
}

// Seen marks a user as met in a whitelisted group.
func (g *ChatGate) Seen(userID int64) {
	g.seen.Store(userID, struct{}{})
}

func (g *ChatGate) allowPrivate(userID int64) bool {
	if len(g.cfg.Whitelist.Chats) == 0 {
		return true
	}
	if _, ok := g.seen.Load(userID); ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	ok, err := g.accounts.HasAccount(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to look up staking account")
		return false
	}
	if ok {
		g.Seen(userID)
	}
	return ok
}

// Middleware drops updates from chats the gate does not serve.
func (g *ChatGate) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat, sender := c.Chat(), c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if !g.allowPrivate(sender.ID) {
					log.Debug().Int64("user_id", sender.ID).Msg("Ignoring private chat from unknown user")
					return nil
				}
				return next(c)
			}

			if !g.cfg.IsChatAllowed(chat.ID) {
				log.Debug().Int64("chat_id", chat.ID).Msg("Ignoring command from non-whitelisted chat")
				return nil
			}
			g.Seen(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware lets through the configured operators and the authority
// of the initialized pool. Operators are needed to run /init before any
// pool admin exists.
func AdminMiddleware(cfg *config.Config, accounts Accounts) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			if cfg.IsAdmin(sender.ID) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			ok, err := accounts.IsPoolAdmin(ctx, sender.ID)
			if err != nil {
				log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to check pool admin")
				return c.Reply("❌ 服务暂时不可用，请稍后重试")
			}
			if !ok {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", command(c.Text())).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ 权限不足：需要管理员权限")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs each command with its outcome and latency.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			ev := log.Debug()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			ev.Str("command", command(c.Text())).
				Dur("elapsed", time.Since(start)).
				Msg("Handled message")
			return err
		}
	}
}

// RecoveryMiddleware turns a handler panic into a logged error and a reply.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", command(c.Text())).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ 发生内部错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}

// command strips arguments and any @botname suffix, so amounts and ids
// never reach the logs.
func command(text string) string {
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}
