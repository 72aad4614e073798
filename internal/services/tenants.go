package services

import (
	"errors"
	"fmt"

	"github.com/creditgate/creditgate/internal/models"
	"gorm.io/gorm"
)

// TenantService manages organizations and teams. Creating a team also
// creates its ledger row so balance reads never miss.
type TenantService struct {
	db *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

func validStatus(status string) bool {
	switch status {
	case models.StatusActive, models.StatusSuspended, models.StatusPaused:
		return true
	}
	return false
}

// CreateOrganization creates an active organization.
func (s *TenantService) CreateOrganization(name string) (*models.Organization, error) {
	org := &models.Organization{Name: name, Status: models.StatusActive}
	if err := s.db.Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

// GetOrganization returns one organization by ID.
func (s *TenantService) GetOrganization(id uint) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("organization not found: %d", id)
		}
		return nil, err
	}
	return &org, nil
}

// ListOrganizations returns all organizations.
func (s *TenantService) ListOrganizations() ([]models.Organization, error) {
	var orgs []models.Organization
	if err := s.db.Order("id ASC").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// SetOrganizationStatus updates the lifecycle state of an organization.
func (s *TenantService) SetOrganizationStatus(id uint, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status: %s", status)
	}
	result := s.db.Model(&models.Organization{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("organization not found: %d", id)
	}
	return nil
}

// CreateTeam creates an active team with a fresh ledger in one
// transaction.
func (s *TenantService) CreateTeam(orgID uint, name string) (*models.Team, error) {
	var org models.Organization
	if err := s.db.First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("organization not found: %d", orgID)
		}
		return nil, err
	}

	team := &models.Team{
		OrganizationID: org.ID,
		Name:           name,
		Status:         models.StatusActive,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		led := &models.TeamLedger{
			TeamID:     team.ID,
			BudgetMode: models.BudgetModeJobBased,
		}
		return tx.Create(led).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// GetTeam returns one team with its organization preloaded.
func (s *TenantService) GetTeam(id uint) (*models.Team, error) {
	var team models.Team
	if err := s.db.Preload("Organization").First(&team, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, id)
		}
		return nil, err
	}
	return &team, nil
}

// ListTeams returns teams, optionally filtered by organization.
func (s *TenantService) ListTeams(orgID uint) ([]models.Team, error) {
	query := s.db.Model(&models.Team{})
	if orgID > 0 {
		query = query.Where("organization_id = ?", orgID)
	}
	var teams []models.Team
	if err := query.Order("id ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// SetTeamStatus updates the lifecycle state of a team.
func (s *TenantService) SetTeamStatus(id uint, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status: %s", status)
	}
	result := s.db.Model(&models.Team{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrTeamNotFound, id)
	}
	return nil
}
