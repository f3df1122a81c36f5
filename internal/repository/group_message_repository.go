package repository

import (
	"github.com/FranMor97/Book-Server/internal/models"
	"gorm.io/gorm"
)

type GroupMessageRepository struct {
	db *gorm.DB
}

func NewGroupMessageRepository(db *gorm.DB) *GroupMessageRepository {
	return &GroupMessageRepository{db: db}
}

func (r *GroupMessageRepository) Create(message *models.GroupMessage) error {
	return r.db.Omit("User").Create(message).Error
}

// FindByGroup returns newest first.
func (r *GroupMessageRepository) FindByGroup(groupID uint, offset, limit int) ([]models.GroupMessage, error) {
	var messages []models.GroupMessage
	err := r.db.Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *GroupMessageRepository) CountByGroup(groupID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.GroupMessage{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}
