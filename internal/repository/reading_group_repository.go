package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/FranMor97/Book-Server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReadingGroupRepository struct {
	db *gorm.DB
}

func NewReadingGroupRepository(db *gorm.DB) *ReadingGroupRepository {
	return &ReadingGroupRepository{db: db}
}

func orderedMembers(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// Create inserts the group together with its initial members.
func (r *ReadingGroupRepository) Create(group *models.ReadingGroup) error {
	if group.Version == 0 {
		group.Version = 1
	}
	return r.db.Create(group).Error
}

func (r *ReadingGroupRepository) FindByID(id uint) (*models.ReadingGroup, error) {
	var group models.ReadingGroup
	if err := r.db.Preload("Members", orderedMembers).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *ReadingGroupRepository) FindByUser(userID uint) ([]models.ReadingGroup, error) {
	var groups []models.ReadingGroup
	err := r.db.Joins("JOIN reading_group_members ON reading_group_members.group_id = reading_groups.id").
		Where("reading_group_members.user_id = ?", userID).
		Preload("Members", orderedMembers).
		Order("reading_groups.updated_at DESC").
		Find(&groups).Error
	return groups, err
}

func (r *ReadingGroupRepository) FindIDsByUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	return ids, err
}

func (r *ReadingGroupRepository) SearchPublic(query string, offset, limit int) ([]models.ReadingGroup, int64, error) {
	q := r.db.Model(&models.ReadingGroup{}).Where("is_private = ?", false)
	if query != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", containsPattern(query))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.ReadingGroup
	err := q.Preload("Members", orderedMembers).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&groups).Error
	return groups, total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches query literally anywhere in a LIKE operand;
// backslash is the postgres default escape character.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// Save persists a mutated group if nobody else wrote it since it was read.
// The group row and the member rows are written in one transaction.
func (r *ReadingGroupRepository) Save(group *models.ReadingGroup) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.ReadingGroup{}).
			Where("id = ? AND version = ?", group.ID, group.Version).
			Updates(map[string]interface{}{
				"name":                            group.Name,
				"description":                     group.Description,
				"creator_id":                      group.CreatorID,
				"is_private":                      group.IsPrivate,
				"reading_goal_pages_per_day":      group.ReadingGoal.PagesPerDay,
				"reading_goal_target_finish_date": group.ReadingGoal.TargetFinishDate,
				"version":                         gorm.Expr("version + 1"),
				"updated_at":                      now,
			})
		if res.Error != nil {
			return fmt.Errorf("update reading group %d: %w", group.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleGroup
		}

		userIDs := make([]uint, 0, len(group.Members))
		for i := range group.Members {
			group.Members[i].GroupID = group.ID
			userIDs = append(userIDs, group.Members[i].UserID)
		}

		prune := tx.Where("group_id = ?", group.ID)
		if len(userIDs) > 0 {
			prune = prune.Where("user_id NOT IN ?", userIDs)
		}
		if err := prune.Delete(&models.GroupMember{}).Error; err != nil {
			return fmt.Errorf("prune members of group %d: %w", group.ID, err)
		}

		if len(group.Members) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"role", "current_page", "seq"}),
			}).Create(&group.Members).Error
			if err != nil {
				return fmt.Errorf("upsert members of group %d: %w", group.ID, err)
			}
		}

		group.Version++
		group.UpdatedAt = now
		return nil
	})
}

// DeleteWithMessages removes the group, its members and its message log.
func (r *ReadingGroupRepository) DeleteWithMessages(group *models.ReadingGroup) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", group.ID, group.Version).Delete(&models.ReadingGroup{})
		if res.Error != nil {
			return fmt.Errorf("delete reading group %d: %w", group.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleGroup
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMember{}).Error; err != nil {
			return fmt.Errorf("delete members of group %d: %w", group.ID, err)
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMessage{}).Error; err != nil {
			return fmt.Errorf("delete messages of group %d: %w", group.ID, err)
		}
		return nil
	})
}
