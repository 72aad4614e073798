package services

import (
	"errors"
	"fmt"

	"github.com/creditgate/creditgate/internal/models"
	"gorm.io/gorm"
)

// ModelGroupService manages model groups, their member models and team
// grants. Resolution itself lives in the resolver.
type ModelGroupService struct {
	db *gorm.DB
}

func NewModelGroupService(db *gorm.DB) *ModelGroupService {
	return &ModelGroupService{db: db}
}

// CreateGroup creates an active model group.
func (s *ModelGroupService) CreateGroup(name, description string) (*models.ModelGroup, error) {
	group := &models.ModelGroup{
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.db.Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// GetGroup returns a group with its models preloaded in priority order.
func (s *ModelGroupService) GetGroup(id uint) (*models.ModelGroup, error) {
	var group models.ModelGroup
	err := s.db.Preload("Models", func(db *gorm.DB) *gorm.DB {
		return db.Order("priority ASC, id ASC")
	}).First(&group, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrGroupNotFound, id)
		}
		return nil, err
	}
	return &group, nil
}

// ListGroups returns all groups with their models.
func (s *ModelGroupService) ListGroups() ([]models.ModelGroup, error) {
	var groups []models.ModelGroup
	err := s.db.Preload("Models", func(db *gorm.DB) *gorm.DB {
		return db.Order("priority ASC, id ASC")
	}).Order("id ASC").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// SetGroupActive toggles a group's active flag.
func (s *ModelGroupService) SetGroupActive(id uint, active bool) error {
	result := s.db.Model(&models.ModelGroup{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrGroupNotFound, id)
	}
	return nil
}

// AddModel attaches a concrete model to a group.
func (s *ModelGroupService) AddModel(groupID uint, modelName string, priority int) (*models.ModelGroupModel, error) {
	var group models.ModelGroup
	if err := s.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
		}
		return nil, err
	}

	entry := &models.ModelGroupModel{
		GroupID:   group.ID,
		ModelName: modelName,
		Priority:  priority,
		IsActive:  true,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// SetModelActive toggles one group member's active flag. Deactivating
// the primary shifts resolution to the next model by priority.
func (s *ModelGroupService) SetModelActive(entryID uint, active bool) error {
	result := s.db.Model(&models.ModelGroupModel{}).Where("id = ?", entryID).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("model entry not found: %d", entryID)
	}
	return nil
}

// Grant gives a team access to a group. Granting twice is a no-op.
func (s *ModelGroupService) Grant(teamID, groupID uint) (*models.TeamModelGroupGrant, error) {
	var team models.Team
	if err := s.db.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, teamID)
		}
		return nil, err
	}
	var group models.ModelGroup
	if err := s.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
		}
		return nil, err
	}

	var grant models.TeamModelGroupGrant
	err := s.db.Where(models.TeamModelGroupGrant{TeamID: teamID, GroupID: groupID}).
		FirstOrCreate(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// Revoke removes a team's access to a group.
func (s *ModelGroupService) Revoke(teamID, groupID uint) error {
	return s.db.Where("team_id = ? AND group_id = ?", teamID, groupID).
		Delete(&models.TeamModelGroupGrant{}).Error
}

// ListGrants returns the groups a team can access.
func (s *ModelGroupService) ListGrants(teamID uint) ([]models.ModelGroup, error) {
	var groups []models.ModelGroup
	err := s.db.
		Joins("JOIN team_model_group_grants g ON g.group_id = model_groups.id").
		Where("g.team_id = ?", teamID).
		Order("model_groups.id ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}
