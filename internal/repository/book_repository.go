package repository

import (
	"github.com/FranMor97/Book-Server/internal/models"
	"gorm.io/gorm"
)

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *BookRepository) FindByID(id uint) (*models.Book, error) {
	var book models.Book
	if err := r.db.Select("id", "title", "authors", "cover_image", "pages").First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}
