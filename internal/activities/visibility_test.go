package activities

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

func ref(v int64) *int64 { return &v }

func TestVisibilityFor(t *testing.T) {
	unitActivity := Activity{UnitID: ref(3)}
	sectionActivity := Activity{SectionID: ref(10), DepartmentID: 1}
	otherSection := Activity{SectionID: ref(11), DepartmentID: 1}
	foreignSection := Activity{SectionID: ref(20), DepartmentID: 2}

	cases := []struct {
		name      string
		principal *rbac.PermissionContext
		visible   []Activity
		hidden    []Activity
	}{
		{
			name:      "view all",
			principal: rbac.NewPermissionContext(1, false, []string{shared.PermActivitiesViewAll}, scope.UnitScope(9)),
			visible:   []Activity{unitActivity, sectionActivity, foreignSection},
		},
		{
			name:      "superuser",
			principal: rbac.NewPermissionContext(1, true, nil, scope.Scope{}),
			visible:   []Activity{unitActivity, foreignSection},
		},
		{
			name:      "department",
			principal: rbac.NewPermissionContext(1, false, []string{shared.PermActivitiesViewDepartment}, scope.AccountSectionScope(1, 10)),
			visible:   []Activity{sectionActivity, otherSection},
			hidden:    []Activity{unitActivity, foreignSection},
		},
		{
			name:      "section",
			principal: rbac.NewPermissionContext(1, false, []string{shared.PermActivitiesViewSection}, scope.AccountSectionScope(1, 10)),
			visible:   []Activity{sectionActivity},
			hidden:    []Activity{otherSection, unitActivity},
		},
		{
			name:      "unit",
			principal: rbac.NewPermissionContext(1, false, []string{shared.PermActivitiesViewUnit}, scope.UnitScope(3)),
			visible:   []Activity{unitActivity},
			hidden:    []Activity{sectionActivity},
		},
		{
			name:      "no capability",
			principal: rbac.NewPermissionContext(1, false, []string{shared.PermLedgerView}, scope.UnitScope(3)),
			hidden:    []Activity{unitActivity, sectionActivity},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vis := VisibilityFor(tc.principal)
			for _, a := range tc.visible {
				assert.True(t, vis.Allows(a), "expected visible: %+v", a)
			}
			for _, a := range tc.hidden {
				assert.False(t, vis.Allows(a), "expected hidden: %+v", a)
			}
		})
	}
}

func TestVisibilityForAnonymous(t *testing.T) {
	var p *rbac.PermissionContext
	assert.True(t, VisibilityFor(p).None())
	assert.True(t, VisibilityFor(nil).None())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Network upgrade (Unit: ICT)", Activity{Name: "Network upgrade", UnitID: ref(1), UnitName: "ICT"}.DisplayName())
	assert.Equal(t, "Filing (Section: Records)", Activity{Name: "Filing", SectionID: ref(2), SectionName: "Records"}.DisplayName())
}
