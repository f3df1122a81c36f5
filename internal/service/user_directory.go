package service

import (
	"github.com/FranMor97/Book-Server/internal/cache"
	"github.com/FranMor97/Book-Server/internal/models"
	"github.com/FranMor97/Book-Server/internal/repository"
	"go.uber.org/zap"
)

// UserDirectory resolves display cards, read-through the Redis user cache.
// Lookups are best effort: failures yield a placeholder card.
type UserDirectory struct {
	userRepo  repository.UserRepositoryInterface
	userCache *cache.UserCache
	log       *zap.Logger
}

func NewUserDirectory(userRepo repository.UserRepositoryInterface, userCache *cache.UserCache, log *zap.Logger) *UserDirectory {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserDirectory{userRepo: userRepo, userCache: userCache, log: log}
}

func (d *UserDirectory) Card(userID uint) models.UserSummary {
	if card, ok := d.userCache.GetCard(userID); ok {
		return card
	}
	if d.userRepo == nil {
		return models.UserSummary{ID: userID}
	}

	user, err := d.userRepo.FindByID(userID)
	if err != nil || user == nil {
		d.log.Warn("user card lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		return models.UserSummary{ID: userID}
	}

	card := user.ToSummary()
	if err := d.userCache.SetCard(card); err != nil {
		d.log.Debug("user card cache write failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return card
}
