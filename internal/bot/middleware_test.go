package bot

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
	tele "gopkg.in/telebot.v3"

	"staking-engine/internal/config"
)

type fakeAccounts struct {
	poolAdmin int64
	holders   []int64
	err       error
	lookups   int
}

func (f *fakeAccounts) IsPoolAdmin(_ context.Context, id int64) (bool, error) {
	f.lookups++
	return f.poolAdmin != 0 && id == f.poolAdmin, f.err
}

func (f *fakeAccounts) HasAccount(_ context.Context, id int64) (bool, error) {
	f.lookups++
	return slices.Contains(f.holders, id), f.err
}

func newOfflineBot(t *testing.T) *tele.Bot {
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func message(chatID int64, chatType tele.ChatType, userID int64) tele.Update {
	return tele.Update{Message: &tele.Message{
		Chat:   &tele.Chat{ID: chatID, Type: chatType},
		Sender: &tele.User{ID: userID},
		Text:   "/me",
	}}
}

func counting(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

// TestAdminCheckProperty checks that exactly the configured ids are operators.
func TestAdminCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfN(rapid.Int64Range(1, 1_000_000_000), 1, 10).Draw(t, "admins")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: ids}}

		userID := rapid.Int64Range(1, 1_000_000_000).Draw(t, "user")
		if got, want := cfg.IsAdmin(userID), slices.Contains(ids, userID); got != want {
			t.Fatalf("IsAdmin(%d) = %v with admins %v", userID, got, ids)
		}
		known := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "known")]
		if !cfg.IsAdmin(known) {
			t.Fatalf("configured admin %d rejected", known)
		}
	})
}

func TestChatGate(t *testing.T) {
	b := newOfflineBot(t)
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	accounts := &fakeAccounts{holders: []int64{888_001}}
	gate := NewChatGate(cfg, accounts)

	var calls int
	h := gate.Middleware()(counting(&calls))

	const userID = 777_001

	// Unknown private user is ignored.
	require.NoError(t, h(b.NewContext(message(userID, tele.ChatPrivate, userID))))
	assert.Equal(t, 0, calls)

	// Non-whitelisted group is ignored.
	require.NoError(t, h(b.NewContext(message(-200, tele.ChatGroup, userID))))
	assert.Equal(t, 0, calls)

	// Whitelisted group passes and unlocks private chat.
	require.NoError(t, h(b.NewContext(message(-100, tele.ChatGroup, userID))))
	assert.Equal(t, 1, calls)
	require.NoError(t, h(b.NewContext(message(userID, tele.ChatPrivate, userID))))
	assert.Equal(t, 2, calls)

	// A staking account opens private chat without a group visit.
	require.NoError(t, h(b.NewContext(message(888_001, tele.ChatPrivate, 888_001))))
	assert.Equal(t, 3, calls)
	lookups := accounts.lookups
	require.NoError(t, h(b.NewContext(message(888_001, tele.ChatPrivate, 888_001))))
	assert.Equal(t, 4, calls)
	assert.Equal(t, lookups, accounts.lookups, "account holder is remembered")
}

func TestChatGateLookupFailureDrops(t *testing.T) {
	b := newOfflineBot(t)
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	gate := NewChatGate(cfg, &fakeAccounts{holders: []int64{42}, err: errors.New("db down")})

	var calls int
	h := gate.Middleware()(counting(&calls))
	require.NoError(t, h(b.NewContext(message(42, tele.ChatPrivate, 42))))
	assert.Equal(t, 0, calls)
}

func TestChatGateEmptyListAllowsPrivate(t *testing.T) {
	b := newOfflineBot(t)
	accounts := &fakeAccounts{}
	gate := NewChatGate(&config.Config{}, accounts)

	var calls int
	h := gate.Middleware()(counting(&calls))
	require.NoError(t, h(b.NewContext(message(555_002, tele.ChatPrivate, 555_002))))
	assert.Equal(t, 1, calls)
	assert.Zero(t, accounts.lookups)
}

func TestAdminMiddlewarePassesOperatorsAndPoolAdmin(t *testing.T) {
	b := newOfflineBot(t)
	cfg := &config.Config{Admin: config.AdminConfig{IDs: []int64{42}}}
	accounts := &fakeAccounts{poolAdmin: 99}

	var calls int
	h := AdminMiddleware(cfg, accounts)(counting(&calls))

	// configured operator passes without a lookup
	require.NoError(t, h(b.NewContext(message(42, tele.ChatPrivate, 42))))
	assert.Equal(t, 1, calls)
	assert.Zero(t, accounts.lookups)

	// pool authority passes without being configured
	require.NoError(t, h(b.NewContext(message(99, tele.ChatPrivate, 99))))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, accounts.lookups)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/stake", command("/stake 100.5"))
	assert.Equal(t, "/me", command("/me@staking_bot"))
	assert.Equal(t, "/fund", command("/fund@staking_bot 12 3"))
	assert.Equal(t, "", command(""))
}
