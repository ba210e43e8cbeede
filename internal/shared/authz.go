package shared

// Office capabilities granted to roles.
const (
	PermActivitiesViewAll        = "activities.view_all"
	PermActivitiesViewDepartment = "activities.view_department"
	PermActivitiesViewUnit       = "activities.view_unit"
	PermActivitiesViewSection    = "activities.view_section"
	PermActivitiesEdit           = "activities.edit"

	PermLedgerView = "ledger.view"
	PermLedgerEdit = "ledger.edit"

	PermOfficeEdit = "office.edit"
	PermFiscalEdit = "fiscal.edit"

	PermAccountsView = "accounts.view"
	PermAccountsEdit = "accounts.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermServiceDeskView = "servicedesk.view"
	PermServiceDeskEdit = "servicedesk.edit"

	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"
)

// Capability pairs a permission name with its description for seeding.
type Capability struct {
	Name        string
	Description string
}

// Capabilities lists every permission known to the application.
func Capabilities() []Capability {
	return []Capability{
		{PermActivitiesViewAll, "Can view all activities regardless of unit or section"},
		{PermActivitiesViewDepartment, "Can view department activities"},
		{PermActivitiesViewUnit, "Can view unit activities"},
		{PermActivitiesViewSection, "Can view section activities"},
		{PermActivitiesEdit, "Can create and edit activities"},
		{PermLedgerView, "Can view budgets and expenditures"},
		{PermLedgerEdit, "Can record budgets and expenditures"},
		{PermOfficeEdit, "Can manage departments, sections and units"},
		{PermFiscalEdit, "Can manage financial years"},
		{PermAccountsView, "Can view accounts"},
		{PermAccountsEdit, "Can manage accounts"},
		{PermRolesView, "Can view roles"},
		{PermRolesEdit, "Can manage roles and grants"},
		{PermServiceDeskView, "Can view support services, tickets and statistics"},
		{PermServiceDeskEdit, "Can record support tickets and statistics"},
		{PermReportsView, "Can view activity reports"},
		{PermReportsExport, "Can download activity reports"},
	}
}

// ActivityViewScopes lists the capabilities that grant activity visibility.
func ActivityViewScopes() []string {
	return []string{
		PermActivitiesViewAll,
		PermActivitiesViewDepartment,
		PermActivitiesViewUnit,
		PermActivitiesViewSection,
	}
}
