package scope

import "github.com/odyssey-erp/odyssey-office/internal/shared"

// Principal is the capability view of the acting account.
type Principal interface {
	Has(capability string) bool
	OwnScope() Scope
}

// EffectiveScope is the activity scope that validation runs against.
type EffectiveScope struct {
	Fields ActivityFields
	// FromPrincipal is true when the requested fields were replaced by the principal's own scope.
	FromPrincipal bool
}

// Privileged reports whether p may choose an activity scope freely.
func Privileged(p Principal) bool {
	return p != nil && p.Has(shared.PermActivitiesViewAll)
}

// Resolve returns the scope an activity write must use. Privileged principals
// keep their requested fields; everyone else is pinned to their own unit or section.
func Resolve(p Principal, requested ActivityFields) EffectiveScope {
	if Privileged(p) {
		return EffectiveScope{Fields: requested}
	}
	var own Scope
	if p != nil {
		own = p.OwnScope()
	}
	switch own.Kind {
	case ScopedToUnit:
		unitID := own.UnitID
		return EffectiveScope{Fields: ActivityFields{UnitID: &unitID}, FromPrincipal: true}
	case ScopedToSection, ScopedToSectionAndDepartment:
		sectionID := own.SectionID
		return EffectiveScope{Fields: ActivityFields{SectionID: &sectionID}, FromPrincipal: true}
	default:
		return EffectiveScope{FromPrincipal: true}
	}
}

// ResolveActivity resolves and then classifies the activity scope.
func ResolveActivity(p Principal, requested ActivityFields) (Scope, EffectiveScope, error) {
	effective := Resolve(p, requested)
	classified, err := ClassifyActivity(effective.Fields)
	if err != nil {
		return Scope{}, effective, err
	}
	return classified, effective, nil
}
