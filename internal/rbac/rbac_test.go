package rbac

import (
	"testing"

	"github.com/newsforge/accountguard/internal/models"
)

func TestHasRole(t *testing.T) {
	roles := models.StringList{models.RoleUser, models.RoleModerator}

	if !HasRole(roles, models.RoleModerator) {
		t.Fatalf("expected moderator role to match")
	}
	if HasRole(roles, models.RoleAdmin) {
		t.Fatalf("admin must not match without the role")
	}
	if !HasRole(roles, models.RoleAdmin, models.RoleModerator) {
		t.Fatalf("any-of check must pass on moderator")
	}
	if !HasRole(roles) {
		t.Fatalf("empty requirement must always pass")
	}
	if HasRole(nil, models.RoleUser) {
		t.Fatalf("empty role list must fail a non-empty requirement")
	}
}

func TestCapabilityHelpers(t *testing.T) {
	if IsAdmin(models.StringList{models.RoleModerator}) {
		t.Fatalf("moderator is not admin")
	}
	if !IsAdmin(models.StringList{models.RoleAdmin}) {
		t.Fatalf("admin role not recognized")
	}
	if !CanModerate(models.StringList{models.RoleAdmin}) {
		t.Fatalf("admin must be able to moderate")
	}
	if CanModerate(models.StringList{models.RoleUser}) {
		t.Fatalf("plain user must not moderate")
	}
}

func TestValidRole(t *testing.T) {
	for _, name := range []string{models.RoleUser, models.RoleModerator, models.RoleAdmin} {
		if !ValidRole(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	if ValidRole("root") {
		t.Fatalf("unexpected role accepted")
	}
}
