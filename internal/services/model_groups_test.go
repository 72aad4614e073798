package services

import (
	"errors"
	"testing"
)

func TestModelGroupCRUDAndGrants(t *testing.T) {
	db := setupTestDB(t)
	team := createTestTenant(t, db)
	groups := NewModelGroupService(db)

	group, err := groups.CreateGroup("smart", "strongest models first")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if !group.IsActive {
		t.Error("new groups must start active")
	}

	if _, err := groups.AddModel(group.ID, "gpt-4-turbo", 0); err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
	if _, err := groups.AddModel(group.ID, "gpt-4", 1); err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
	if _, err := groups.AddModel(9999, "ghost", 0); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}

	loaded, err := groups.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(loaded.Models) != 2 || loaded.Models[0].ModelName != "gpt-4-turbo" {
		t.Errorf("models = %+v, expected priority order starting with gpt-4-turbo", loaded.Models)
	}

	// Grant twice: second call is a no-op, not an error.
	if _, err := groups.Grant(team.ID, group.ID); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if _, err := groups.Grant(team.ID, group.ID); err != nil {
		t.Fatalf("repeated Grant failed: %v", err)
	}

	granted, err := groups.ListGrants(team.ID)
	if err != nil {
		t.Fatalf("ListGrants failed: %v", err)
	}
	if len(granted) != 1 || granted[0].ID != group.ID {
		t.Errorf("grants = %+v, expected just %d", granted, group.ID)
	}

	if err := groups.Revoke(team.ID, group.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	granted, err = groups.ListGrants(team.ID)
	if err != nil {
		t.Fatalf("ListGrants failed: %v", err)
	}
	if len(granted) != 0 {
		t.Errorf("grants after revoke = %+v, expected none", granted)
	}
}

func TestSetGroupAndModelActive(t *testing.T) {
	db := setupTestDB(t)
	groups := NewModelGroupService(db)

	group, err := groups.CreateGroup("fast", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	entry, err := groups.AddModel(group.ID, "gpt-4o-mini", 0)
	if err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}

	if err := groups.SetGroupActive(group.ID, false); err != nil {
		t.Fatalf("SetGroupActive failed: %v", err)
	}
	loaded, err := groups.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if loaded.IsActive {
		t.Error("group should be inactive")
	}

	if err := groups.SetModelActive(entry.ID, false); err != nil {
		t.Fatalf("SetModelActive failed: %v", err)
	}
	loaded, _ = groups.GetGroup(group.ID)
	if len(loaded.Models) != 1 || loaded.Models[0].IsActive {
		t.Errorf("models = %+v, expected one inactive entry", loaded.Models)
	}

	if err := groups.SetGroupActive(9999, true); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if err := groups.SetModelActive(9999, true); err == nil {
		t.Error("expected error for unknown model entry")
	}
}
