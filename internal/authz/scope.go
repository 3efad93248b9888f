package authz

import "github.com/google/uuid"

// Scope is the set of locations a principal may act on. The zero value
// is an empty scope. A super admin carries the unrestricted scope,
// which contains every location; this keeps the ALL rule here instead
// of scattering role checks through every handler.
type Scope struct {
	unrestricted bool
	ids          map[uuid.UUID]struct{}
}

// Unrestricted returns the scope containing every location.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// ScopeOf returns a scope containing exactly the given locations.
func ScopeOf(ids ...uuid.UUID) Scope {
	s := Scope{ids: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// IsUnrestricted reports whether the scope contains every location.
func (s Scope) IsUnrestricted() bool {
	return s.unrestricted
}

// Len returns the number of locations in a restricted scope, 0 for the
// unrestricted scope.
func (s Scope) Len() int {
	return len(s.ids)
}

// Contains reports whether the scope includes the given location.
func (s Scope) Contains(id uuid.UUID) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// ContainsAll reports whether every given location is in the scope.
// True for an empty id list.
func (s Scope) ContainsAll(ids []uuid.UUID) bool {
	for _, id := range ids {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// SupersetOf reports whether other is fully contained in s. An
// unrestricted other is only contained in an unrestricted s.
func (s Scope) SupersetOf(other Scope) bool {
	if s.unrestricted {
		return true
	}
	if other.unrestricted {
		return false
	}
	for id := range other.ids {
		if _, ok := s.ids[id]; !ok {
			return false
		}
	}
	return true
}

// Overlaps reports whether the two scopes share at least one location.
// An unrestricted scope overlaps any non-empty scope.
func (s Scope) Overlaps(other Scope) bool {
	if s.unrestricted {
		return other.unrestricted || len(other.ids) > 0
	}
	if other.unrestricted {
		return len(s.ids) > 0
	}
	// Iterate the smaller set.
	small, large := s.ids, other.ids
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// IDs returns the locations of a restricted scope in unspecified
// order, nil for the unrestricted scope. An empty restricted scope
// yields an empty non-nil slice; the store layer treats nil as "no
// filter", so the distinction carries the difference between seeing
// everything and seeing nothing.
func (s Scope) IDs() []uuid.UUID {
	if s.unrestricted {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
