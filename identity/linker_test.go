package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/testutil"
)

func TestByDiscord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	linker := NewLinker(db)
	require.NoError(t, db.Create(&model.LinkedAccount{
		DiscordUserID:  "d1",
		RobloxUserID:   1000,
		RobloxUsername: "Alice",
	}).Error)

	acc, err := linker.ByDiscord(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acc.RobloxUserID)
	assert.Equal(t, "Alice", acc.RobloxUsername)
}

func TestByDiscord_NotLinked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	linker := NewLinker(db)

	_, err := linker.ByDiscord(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestByRoblox(t *testing.T) {
	db := testutil.SetupTestDB(t)
	linker := NewLinker(db)
	require.NoError(t, db.Create(&model.LinkedAccount{
		DiscordUserID: "d1",
		RobloxUserID:  1000,
	}).Error)

	acc, err := linker.ByRoblox(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "d1", acc.DiscordUserID)

	_, err = linker.ByRoblox(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotLinked)
}
