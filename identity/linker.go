// Package identity resolves Discord↔Roblox account links. Links are created
// by the verification flow elsewhere; this service only reads them.
package identity

import (
	"context"
	"errors"

	"github.com/yorumine/groupwarden/model"
	"gorm.io/gorm"
)

// ErrNotLinked is returned when no verified link exists for the identity.
var ErrNotLinked = errors.New("identity: account is not linked to roblox")

// Linker looks up linked accounts by either side of the link.
type Linker struct {
	db *gorm.DB
}

// NewLinker creates a Linker.
func NewLinker(db *gorm.DB) *Linker {
	return &Linker{db: db}
}

// ByDiscord returns the link for a Discord user ID.
func (l *Linker) ByDiscord(ctx context.Context, discordUserID string) (*model.LinkedAccount, error) {
	var acc model.LinkedAccount
	err := l.db.WithContext(ctx).Where("discord_user_id = ?", discordUserID).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// ByRoblox returns the link for a Roblox user ID.
func (l *Linker) ByRoblox(ctx context.Context, robloxUserID int64) (*model.LinkedAccount, error) {
	var acc model.LinkedAccount
	err := l.db.WithContext(ctx).Where("roblox_user_id = ?", robloxUserID).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
