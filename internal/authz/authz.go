// Package authz decides, for a (principal, action, target) tuple,
// whether the action is permitted. Decisions are pure functions of
// their inputs: no storage access, no side effects, deterministic for
// a given principal/target pair. Handlers translate a *Denial into a
// 401/403 response and never perform a write after one.
package authz

import (
	"github.com/franchise-pos/api/internal/enum"
	"github.com/google/uuid"
)

// Action is the kind of operation being authorized.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Reason is a stable machine-checkable denial code.
type Reason string

const (
	ReasonNotAuthenticated   Reason = "not_authenticated"
	ReasonRoleNotPermitted   Reason = "role_not_permitted"
	ReasonLocationNotInScope Reason = "location_not_in_scope"
	ReasonScopeNotSubset     Reason = "scope_not_subset"
	ReasonMissingLocations   Reason = "missing_locations"
)

// Denial is the error returned for every refused authorization.
type Denial struct {
	Reason Reason
}

func (d *Denial) Error() string { return string(d.Reason) }

func deny(r Reason) *Denial { return &Denial{Reason: r} }

// Principal is an authenticated caller. The zero value is an
// unauthenticated principal and is denied everything.
type Principal struct {
	ID    uuid.UUID
	Role  string
	Scope Scope
}

// Authenticated reports whether the principal was resolved from valid
// credentials.
func (p Principal) Authenticated() bool {
	return p.ID != uuid.Nil
}

// Authorize decides action on a single location-scoped resource.
// Rule precedence: super admin allowed unconditionally; unauthenticated
// denied; staff read-only within scope; franchise admin any action
// within scope.
func Authorize(p Principal, action Action, locationID uuid.UUID) error {
	if !p.Authenticated() {
		return deny(ReasonNotAuthenticated)
	}
	switch p.Role {
	case enum.RoleSuperAdmin:
		return nil
	case enum.RoleStaff:
		if action != ActionRead {
			return deny(ReasonRoleNotPermitted)
		}
	case enum.RoleFranchiseAdmin:
		// any action, scope-gated below
	default:
		return deny(ReasonRoleNotPermitted)
	}
	if !p.Scope.Contains(locationID) {
		return deny(ReasonLocationNotInScope)
	}
	return nil
}

// AuthorizeCreate decides creation of a resource referencing the given
// location set. Every referenced location must be in the principal's
// scope; a single out-of-scope location denies the whole request, so a
// batch is applied all-or-nothing.
func AuthorizeCreate(p Principal, locationIDs []uuid.UUID) error {
	if !p.Authenticated() {
		return deny(ReasonNotAuthenticated)
	}
	switch p.Role {
	case enum.RoleSuperAdmin:
		return nil
	case enum.RoleFranchiseAdmin:
		if !p.Scope.ContainsAll(locationIDs) {
			return deny(ReasonLocationNotInScope)
		}
		return nil
	default:
		return deny(ReasonRoleNotPermitted)
	}
}

// AuthorizeAccountMutation decides create/update/delete of another
// admin or staff account. The target's location set must be a strict
// subset of the acting principal's scope; overlap alone is not enough.
func AuthorizeAccountMutation(p Principal, target Scope) error {
	if !p.Authenticated() {
		return deny(ReasonNotAuthenticated)
	}
	switch p.Role {
	case enum.RoleSuperAdmin:
		return nil
	case enum.RoleFranchiseAdmin:
		if !p.Scope.SupersetOf(target) {
			return deny(ReasonScopeNotSubset)
		}
		return nil
	default:
		return deny(ReasonRoleNotPermitted)
	}
}

// AuthorizeAccountRead decides visibility of another admin or staff
// account. A non-empty location overlap is sufficient to reveal the
// account. Mutation still requires the stricter subset rule.
func AuthorizeAccountRead(p Principal, target Scope) error {
	if !p.Authenticated() {
		return deny(ReasonNotAuthenticated)
	}
	switch p.Role {
	case enum.RoleSuperAdmin:
		return nil
	case enum.RoleFranchiseAdmin:
		if !p.Scope.Overlaps(target) {
			return deny(ReasonLocationNotInScope)
		}
		return nil
	default:
		return deny(ReasonRoleNotPermitted)
	}
}

// ValidateStaffLocations enforces that a staff or franchise-admin
// account is never left with zero assigned locations.
func ValidateStaffLocations(locationIDs []uuid.UUID) error {
	if len(locationIDs) == 0 {
		return deny(ReasonMissingLocations)
	}
	return nil
}
