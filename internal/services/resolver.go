package services

import (
	"errors"
	"fmt"

	"github.com/creditgate/creditgate/internal/models"
	"gorm.io/gorm"
)

// ResolverService resolves (team, logical group name) to an ordered list
// of concrete provider models, enforcing access control. Resolution is a
// pure read; the caller records which group/model was actually used.
type ResolverService struct {
	db *gorm.DB
}

func NewResolverService(db *gorm.DB) *ResolverService {
	return &ResolverService{db: db}
}

// Resolution is the outcome of a successful resolve: the primary model
// plus ordered fallbacks.
type Resolution struct {
	GroupID   uint     `json:"group_id"`
	GroupName string   `json:"group_name"`
	Primary   string   `json:"primary"`
	Fallbacks []string `json:"fallbacks"`
}

// Resolve checks, in order: the team holds a grant for the group, the
// group is active, and at least one active model is attached. Each
// failure is terminal for the request; another group is never silently
// substituted. Models are ordered by ascending priority, ties broken by
// insertion order (row ID).
func (s *ResolverService) Resolve(teamID uint, groupName string) (*Resolution, error) {
	var group models.ModelGroup
	if err := s.db.Where("name = ?", groupName).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupName)
		}
		return nil, err
	}

	var grants int64
	if err := s.db.Model(&models.TeamModelGroupGrant{}).
		Where("team_id = ? AND group_id = ?", teamID, group.ID).
		Count(&grants).Error; err != nil {
		return nil, err
	}
	if grants == 0 {
		return nil, fmt.Errorf("%w: team %d, group %s", ErrAccessDenied, teamID, groupName)
	}

	if !group.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrGroupInactive, groupName)
	}

	var entries []models.ModelGroupModel
	if err := s.db.Where("group_id = ? AND is_active = ?", group.ID, true).
		Order("priority ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoModelsConfigured, groupName)
	}

	res := &Resolution{
		GroupID:   group.ID,
		GroupName: group.Name,
		Primary:   entries[0].ModelName,
		Fallbacks: make([]string, 0, len(entries)-1),
	}
	for _, entry := range entries[1:] {
		res.Fallbacks = append(res.Fallbacks, entry.ModelName)
	}
	return res, nil
}
