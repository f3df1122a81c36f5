package repository

import (
	"github.com/FranMor97/Book-Server/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.Select("id", "first_name", "last_name1", "avatar", "role").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
