package repository

import (
	"errors"

	"github.com/FranMor97/Book-Server/internal/models"
)

// ErrStaleGroup is returned when a conditional write finds that the group
// changed (or vanished) since it was read.
var ErrStaleGroup = errors.New("reading group was modified concurrently")

// UserRepositoryInterface is the read side of the user directory.
type UserRepositoryInterface interface {
	FindByID(id uint) (*models.User, error)
}

// BookRepositoryInterface is the read side of the book directory.
type BookRepositoryInterface interface {
	Exists(id uint) (bool, error)
	FindByID(id uint) (*models.Book, error)
}

// ReadingGroupRepositoryInterface defines the contract for reading group storage.
// Save and Delete are conditional on the Version the caller read.
type ReadingGroupRepositoryInterface interface {
	Create(group *models.ReadingGroup) error
	FindByID(id uint) (*models.ReadingGroup, error)
	FindByUser(userID uint) ([]models.ReadingGroup, error)
	FindIDsByUser(userID uint) ([]uint, error)
	SearchPublic(query string, offset, limit int) ([]models.ReadingGroup, int64, error)
	Save(group *models.ReadingGroup) error
	DeleteWithMessages(group *models.ReadingGroup) error
}

// GroupMessageRepositoryInterface defines the contract for the per-group message log.
type GroupMessageRepositoryInterface interface {
	Create(message *models.GroupMessage) error
	FindByGroup(groupID uint, offset, limit int) ([]models.GroupMessage, error)
	CountByGroup(groupID uint) (int64, error)
}
