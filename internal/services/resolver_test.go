package services

import (
	"errors"
	"testing"

	"github.com/creditgate/creditgate/internal/models"
	"gorm.io/gorm"
)

// seedGroup creates a group with its member models. Inactive flags are
// written with explicit updates because gorm skips zero values on fields
// that carry a column default.
func seedGroup(t *testing.T, db *gorm.DB, name string, active bool, entries ...models.ModelGroupModel) *models.ModelGroup {
	t.Helper()
	group := &models.ModelGroup{Name: name, IsActive: active}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	if !active {
		if err := db.Model(group).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate group: %v", err)
		}
	}
	for i := range entries {
		entries[i].GroupID = group.ID
		wantActive := entries[i].IsActive
		if err := db.Create(&entries[i]).Error; err != nil {
			t.Fatalf("failed to attach model: %v", err)
		}
		if !wantActive {
			if err := db.Model(&entries[i]).Update("is_active", false).Error; err != nil {
				t.Fatalf("failed to deactivate model: %v", err)
			}
		}
	}
	return group
}

func grantGroup(t *testing.T, db *gorm.DB, teamID, groupID uint) {
	t.Helper()
	if err := db.Create(&models.TeamModelGroupGrant{TeamID: teamID, GroupID: groupID}).Error; err != nil {
		t.Fatalf("failed to grant group: %v", err)
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	db := setupTestDB(t)
	team := createTestTenant(t, db)
	group := seedGroup(t, db, "smart", true,
		models.ModelGroupModel{ModelName: "gpt-4-turbo", Priority: 0, IsActive: true},
		models.ModelGroupModel{ModelName: "gpt-4", Priority: 1, IsActive: true},
		models.ModelGroupModel{ModelName: "gpt-3.5-turbo", Priority: 2, IsActive: true},
	)
	grantGroup(t, db, team.ID, group.ID)

	resolver := NewResolverService(db)
	res, err := resolver.Resolve(team.ID, "smart")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Primary != "gpt-4-turbo" {
		t.Errorf("primary = %q, expected gpt-4-turbo", res.Primary)
	}
	expected := []string{"gpt-4", "gpt-3.5-turbo"}
	if len(res.Fallbacks) != len(expected) {
		t.Fatalf("fallbacks = %v, expected %v", res.Fallbacks, expected)
	}
	for i, name := range expected {
		if res.Fallbacks[i] != name {
			t.Errorf("fallback[%d] = %q, expected %q", i, res.Fallbacks[i], name)
		}
	}
}

func TestResolve_DeactivatedPrimaryShifts(t *testing.T) {
	db := setupTestDB(t)
	team := createTestTenant(t, db)
	group := seedGroup(t, db, "smart", true,
		models.ModelGroupModel{ModelName: "gpt-4-turbo", Priority: 0, IsActive: true},
		models.ModelGroupModel{ModelName: "gpt-4", Priority: 1, IsActive: true},
		models.ModelGroupModel{ModelName: "gpt-3.5-turbo", Priority: 2, IsActive: true},
	)
	grantGroup(t, db, team.ID, group.ID)

	err := db.Model(&models.ModelGroupModel{}).
		Where("group_id = ? AND model_name = ?", group.ID, "gpt-4-turbo").
		Update("is_active", false).Error
	if err != nil {
		t.Fatalf("failed to deactivate model: %v", err)
	}

	resolver := NewResolverService(db)
	res, err := resolver.Resolve(team.ID, "smart")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Primary != "gpt-4" {
		t.Errorf("primary = %q, expected gpt-4 after deactivation", res.Primary)
	}
	if len(res.Fallbacks) != 1 || res.Fallbacks[0] != "gpt-3.5-turbo" {
		t.Errorf("fallbacks = %v, expected [gpt-3.5-turbo]", res.Fallbacks)
	}
}

func TestResolve_TieBrokenByInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	team := createTestTenant(t, db)
	group := seedGroup(t, db, "fast", true,
		models.ModelGroupModel{ModelName: "gemini-1.5-flash", Priority: 0, IsActive: true},
		models.ModelGroupModel{ModelName: "gpt-4o-mini", Priority: 0, IsActive: true},
	)
	grantGroup(t, db, team.ID, group.ID)

	resolver := NewResolverService(db)
	res, err := resolver.Resolve(team.ID, "fast")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Primary != "gemini-1.5-flash" {
		t.Errorf("primary = %q, expected first-inserted gemini-1.5-flash", res.Primary)
	}
}

func TestResolve_Failures(t *testing.T) {
	db := setupTestDB(t)
	org := createTestOrg(t, db, "acme")
	granted := createTestTeam(t, db, org, "granted")
	ungranted := createTestTeam(t, db, org, "ungranted")

	active := seedGroup(t, db, "smart", true,
		models.ModelGroupModel{ModelName: "gpt-4", Priority: 0, IsActive: true},
	)
	inactive := seedGroup(t, db, "retired", false,
		models.ModelGroupModel{ModelName: "gpt-3.5-turbo", Priority: 0, IsActive: true},
	)
	empty := seedGroup(t, db, "empty", true,
		models.ModelGroupModel{ModelName: "gpt-4o", Priority: 0, IsActive: false},
	)
	grantGroup(t, db, granted.ID, active.ID)
	grantGroup(t, db, granted.ID, inactive.ID)
	grantGroup(t, db, granted.ID, empty.ID)

	resolver := NewResolverService(db)

	tests := []struct {
		name     string
		teamID   uint
		group    string
		expected error
	}{
		{"unknown group", granted.ID, "nonexistent", ErrGroupNotFound},
		{"no grant", ungranted.ID, "smart", ErrAccessDenied},
		{"inactive group", granted.ID, "retired", ErrGroupInactive},
		{"no active models", granted.ID, "empty", ErrNoModelsConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(tt.teamID, tt.group)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Resolve() error = %v, expected %v", err, tt.expected)
			}
		})
	}
}
