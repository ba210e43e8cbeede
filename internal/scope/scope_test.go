package scope

import (
	"errors"
	"testing"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

func id(v int64) *int64 { return &v }

func TestClassifyActivity(t *testing.T) {
	tests := []struct {
		name    string
		fields  ActivityFields
		want    Scope
		wantErr error
	}{
		{name: "unit only", fields: ActivityFields{UnitID: id(3)}, want: UnitScope(3)},
		{name: "section only", fields: ActivityFields{SectionID: id(9)}, want: SectionScope(9)},
		{name: "both", fields: ActivityFields{UnitID: id(3), SectionID: id(9)}, wantErr: ErrScopeConflict},
		{name: "neither", fields: ActivityFields{}, wantErr: ErrScopeMissing},
		{name: "zero ids count as empty", fields: ActivityFields{UnitID: id(0), SectionID: id(0)}, wantErr: ErrScopeMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ClassifyActivity(tc.fields)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestClassifyActivityErrorKindsAreDistinct(t *testing.T) {
	_, conflict := ClassifyActivity(ActivityFields{UnitID: id(1), SectionID: id(2)})
	_, missing := ClassifyActivity(ActivityFields{})
	if errors.Is(conflict, ErrScopeMissing) {
		t.Fatalf("conflict must not match missing")
	}
	if errors.Is(missing, ErrScopeConflict) {
		t.Fatalf("missing must not match conflict")
	}
	if conflict.Error() != "Activity cannot belong to both a Unit and a Section." {
		t.Fatalf("unexpected conflict message %q", conflict.Error())
	}
	if missing.Error() != "Activity must belong to either a Unit or a Section." {
		t.Fatalf("unexpected missing message %q", missing.Error())
	}
}

func TestClassifyAccount(t *testing.T) {
	tests := []struct {
		name    string
		fields  AccountFields
		want    Scope
		wantErr error
	}{
		{name: "unit", fields: AccountFields{UnitID: id(1)}, want: UnitScope(1)},
		{name: "department and section", fields: AccountFields{DepartmentID: id(2), SectionID: id(5)}, want: AccountSectionScope(2, 5)},
		{name: "unit and section", fields: AccountFields{UnitID: id(1), SectionID: id(5)}, wantErr: ErrScopeConflict},
		{name: "unit and department", fields: AccountFields{UnitID: id(1), DepartmentID: id(2)}, wantErr: ErrScopeConflict},
		{name: "department only", fields: AccountFields{DepartmentID: id(2)}, wantErr: ErrScopeMissing},
		{name: "section only", fields: AccountFields{SectionID: id(5)}, wantErr: ErrScopeMissing},
		{name: "nothing", fields: AccountFields{}, wantErr: ErrScopeMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ClassifyAccount(tc.fields)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				code, _ := shared.ViolationCode(err)
				if code != tc.wantErr.(*shared.Violation).Code {
					t.Fatalf("unexpected code %q", code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

type stubPrincipal struct {
	caps map[string]bool
	own  Scope
}

func (p stubPrincipal) Has(c string) bool { return p.caps[c] }
func (p stubPrincipal) OwnScope() Scope   { return p.own }

func TestResolvePrivilegedKeepsRequest(t *testing.T) {
	p := stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewAll: true}, own: UnitScope(1)}
	requested := ActivityFields{SectionID: id(7)}

	eff := Resolve(p, requested)
	if eff.FromPrincipal {
		t.Fatalf("privileged request should not be overridden")
	}
	if eff.Fields.SectionID == nil || *eff.Fields.SectionID != 7 || eff.Fields.UnitID != nil {
		t.Fatalf("unexpected fields %+v", eff.Fields)
	}

	_, _, err := ResolveActivity(p, ActivityFields{UnitID: id(1), SectionID: id(7)})
	if !errors.Is(err, ErrScopeConflict) {
		t.Fatalf("privileged manual choice must still be validated, got %v", err)
	}
}

func TestResolveNonPrivilegedUsesOwnScope(t *testing.T) {
	unitUser := stubPrincipal{own: UnitScope(4)}
	got, eff, err := ResolveActivity(unitUser, ActivityFields{UnitID: id(99), SectionID: id(12)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eff.FromPrincipal || got != UnitScope(4) {
		t.Fatalf("expected unit 4 from principal, got %+v (%+v)", got, eff)
	}

	sectionUser := stubPrincipal{own: AccountSectionScope(2, 8)}
	got, _, err = ResolveActivity(sectionUser, ActivityFields{UnitID: id(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != SectionScope(8) {
		t.Fatalf("expected section 8, got %+v", got)
	}
}

func TestResolveWithoutOwnScopeIsMissing(t *testing.T) {
	_, eff, err := ResolveActivity(stubPrincipal{}, ActivityFields{UnitID: id(4)})
	if !errors.Is(err, ErrScopeMissing) {
		t.Fatalf("expected ErrScopeMissing, got %v", err)
	}
	if !eff.FromPrincipal {
		t.Fatalf("expected override flag for non-privileged principal")
	}
	if _, _, err := ResolveActivity(nil, ActivityFields{UnitID: id(4)}); !errors.Is(err, ErrScopeMissing) {
		t.Fatalf("nil principal must not choose a scope, got %v", err)
	}
}
