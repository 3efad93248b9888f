package authz_test

import (
	"errors"
	"testing"

	"github.com/franchise-pos/api/internal/authz"
	"github.com/franchise-pos/api/internal/enum"
	"github.com/google/uuid"
)

func superAdmin() authz.Principal {
	return authz.Principal{ID: uuid.New(), Role: enum.RoleSuperAdmin, Scope: authz.Unrestricted()}
}

func franchiseAdmin(locs ...uuid.UUID) authz.Principal {
	return authz.Principal{ID: uuid.New(), Role: enum.RoleFranchiseAdmin, Scope: authz.ScopeOf(locs...)}
}

func staff(locs ...uuid.UUID) authz.Principal {
	return authz.Principal{ID: uuid.New(), Role: enum.RoleStaff, Scope: authz.ScopeOf(locs...)}
}

func wantDenial(t *testing.T, err error, reason authz.Reason) {
	t.Helper()
	var d *authz.Denial
	if !errors.As(err, &d) {
		t.Fatalf("expected denial, got %v", err)
	}
	if d.Reason != reason {
		t.Errorf("reason: got %s, want %s", d.Reason, reason)
	}
}

func TestAuthorize_SuperAdminAlwaysAllowed(t *testing.T) {
	p := superAdmin()
	for _, action := range []authz.Action{authz.ActionRead, authz.ActionCreate, authz.ActionUpdate, authz.ActionDelete} {
		if err := authz.Authorize(p, action, uuid.New()); err != nil {
			t.Errorf("%s: expected allow, got %v", action, err)
		}
	}
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	err := authz.Authorize(authz.Principal{}, authz.ActionRead, uuid.New())
	wantDenial(t, err, authz.ReasonNotAuthenticated)
}

func TestAuthorize_StaffReadInScope(t *testing.T) {
	loc := uuid.New()
	if err := authz.Authorize(staff(loc), authz.ActionRead, loc); err != nil {
		t.Errorf("expected allow, got %v", err)
	}
}

func TestAuthorize_StaffReadOutOfScope(t *testing.T) {
	err := authz.Authorize(staff(uuid.New()), authz.ActionRead, uuid.New())
	wantDenial(t, err, authz.ReasonLocationNotInScope)
}

func TestAuthorize_StaffNeverWrites(t *testing.T) {
	loc := uuid.New()
	p := staff(loc)
	// Write actions are denied even for the staff member's own location.
	for _, action := range []authz.Action{authz.ActionCreate, authz.ActionUpdate, authz.ActionDelete} {
		wantDenial(t, authz.Authorize(p, action, loc), authz.ReasonRoleNotPermitted)
	}
}

func TestAuthorize_FranchiseAdminScoped(t *testing.T) {
	loc := uuid.New()
	p := franchiseAdmin(loc)

	for _, action := range []authz.Action{authz.ActionRead, authz.ActionCreate, authz.ActionUpdate, authz.ActionDelete} {
		if err := authz.Authorize(p, action, loc); err != nil {
			t.Errorf("%s in scope: expected allow, got %v", action, err)
		}
		wantDenial(t, authz.Authorize(p, action, uuid.New()), authz.ReasonLocationNotInScope)
	}
}

func TestAuthorize_UnknownRole(t *testing.T) {
	p := authz.Principal{ID: uuid.New(), Role: "INTERN"}
	wantDenial(t, authz.Authorize(p, authz.ActionRead, uuid.New()), authz.ReasonRoleNotPermitted)
}

func TestAuthorizeCreate_AllOrNothing(t *testing.T) {
	loc1 := uuid.New()
	loc2 := uuid.New()
	outside := uuid.New()
	p := franchiseAdmin(loc1, loc2)

	if err := authz.AuthorizeCreate(p, []uuid.UUID{loc1, loc2}); err != nil {
		t.Errorf("subset: expected allow, got %v", err)
	}

	// One out-of-scope location denies the whole batch.
	err := authz.AuthorizeCreate(p, []uuid.UUID{loc1, outside})
	wantDenial(t, err, authz.ReasonLocationNotInScope)
}

func TestAuthorizeCreate_StaffDenied(t *testing.T) {
	loc := uuid.New()
	err := authz.AuthorizeCreate(staff(loc), []uuid.UUID{loc})
	wantDenial(t, err, authz.ReasonRoleNotPermitted)
}

func TestAuthorizeCreate_SuperAdminAnyLocations(t *testing.T) {
	if err := authz.AuthorizeCreate(superAdmin(), []uuid.UUID{uuid.New(), uuid.New()}); err != nil {
		t.Errorf("expected allow, got %v", err)
	}
}

func TestAccountMutation_SubsetRequired(t *testing.T) {
	loc1 := uuid.New()
	loc2 := uuid.New()
	outside := uuid.New()
	p := franchiseAdmin(loc1, loc2)

	if err := authz.AuthorizeAccountMutation(p, authz.ScopeOf(loc1)); err != nil {
		t.Errorf("subset target: expected allow, got %v", err)
	}

	// Overlap without containment is not enough.
	err := authz.AuthorizeAccountMutation(p, authz.ScopeOf(loc1, outside))
	wantDenial(t, err, authz.ReasonScopeNotSubset)
}

func TestAccountMutation_SuperAdminTarget(t *testing.T) {
	p := franchiseAdmin(uuid.New())
	// An unrestricted target scope can never be a subset of a
	// restricted one, so a franchise admin cannot touch a super admin.
	err := authz.AuthorizeAccountMutation(p, authz.Unrestricted())
	wantDenial(t, err, authz.ReasonScopeNotSubset)

	if err := authz.AuthorizeAccountMutation(superAdmin(), authz.Unrestricted()); err != nil {
		t.Errorf("super admin: expected allow, got %v", err)
	}
}

func TestAccountRead_OverlapSufficient(t *testing.T) {
	loc1 := uuid.New()
	outside := uuid.New()
	p := franchiseAdmin(loc1)

	if err := authz.AuthorizeAccountRead(p, authz.ScopeOf(loc1, outside)); err != nil {
		t.Errorf("overlapping target: expected allow, got %v", err)
	}

	err := authz.AuthorizeAccountRead(p, authz.ScopeOf(outside))
	wantDenial(t, err, authz.ReasonLocationNotInScope)
}

func TestAccountRead_StaffDenied(t *testing.T) {
	loc := uuid.New()
	err := authz.AuthorizeAccountRead(staff(loc), authz.ScopeOf(loc))
	wantDenial(t, err, authz.ReasonRoleNotPermitted)
}

func TestValidateStaffLocations(t *testing.T) {
	wantDenial(t, authz.ValidateStaffLocations(nil), authz.ReasonMissingLocations)
	if err := authz.ValidateStaffLocations([]uuid.UUID{uuid.New()}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
