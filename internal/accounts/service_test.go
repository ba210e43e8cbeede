package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

type memRepo struct {
	Repository
	accounts map[int64]Account
	hashes   map[int64]string
	sections map[int64]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: map[int64]Account{},
		hashes:   map[int64]string{},
		sections: map[int64]int64{10: 1, 20: 2},
	}
}

func (m *memRepo) Get(_ context.Context, id int64) (Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (m *memRepo) Create(_ context.Context, a Account, hash string) (Account, error) {
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return Account{}, ErrDuplicateEmail
		}
	}
	a.ID = int64(len(m.accounts) + 1)
	a.IsActive = true
	m.accounts[a.ID] = a
	m.hashes[a.ID] = hash
	return a, nil
}

func (m *memRepo) SetPasswordHash(_ context.Context, id int64, hash string) error {
	m.hashes[id] = hash
	return nil
}

func (m *memRepo) SectionDepartment(_ context.Context, sectionID int64) (int64, error) {
	dept, ok := m.sections[sectionID]
	if !ok {
		return 0, ErrSectionOutsideDepartment
	}
	return dept, nil
}

type roleRecorder struct{ assigned [][2]int64 }

func (r *roleRecorder) AssignRole(_ context.Context, accountID, roleID int64) error {
	r.assigned = append(r.assigned, [2]int64{accountID, roleID})
	return nil
}

func (r *roleRecorder) RemoveRole(context.Context, int64, int64) error { return nil }

func newTestService(repo Repository, roles RoleAssigner) *Service {
	svc := NewService(repo, roles, nil, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func id(v int64) *int64 { return &v }

func TestCreateAccountScopeRules(t *testing.T) {
	cases := []struct {
		name   string
		fields scope.AccountFields
		want   error
		kind   scope.Kind
	}{
		{name: "unit only", fields: scope.AccountFields{UnitID: id(3)}, kind: scope.ScopedToUnit},
		{name: "department and section", fields: scope.AccountFields{DepartmentID: id(1), SectionID: id(10)}, kind: scope.ScopedToSectionAndDepartment},
		{name: "unit and section", fields: scope.AccountFields{UnitID: id(3), SectionID: id(10)}, want: scope.ErrScopeConflict},
		{name: "department without section", fields: scope.AccountFields{DepartmentID: id(1)}, want: scope.ErrScopeMissing},
		{name: "section of another department", fields: scope.AccountFields{DepartmentID: id(1), SectionID: id(20)}, want: ErrSectionOutsideDepartment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(newMemRepo(), nil)
			a, err := svc.Create(context.Background(), Input{Email: "Clerk@Example.org", Password: "s3cret-pass", AccountFields: tc.fields})
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, a.Scope.Kind)
			assert.Equal(t, "clerk@example.org", a.Email)
		})
	}
}

func TestCreateAccountHashesPassword(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	a, err := svc.Create(context.Background(), Input{Email: "a@example.org", Password: "s3cret-pass", AccountFields: scope.AccountFields{UnitID: id(1)}})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[a.ID]), []byte("s3cret-pass")))

	_, err = svc.Create(context.Background(), Input{Email: "b@example.org", AccountFields: scope.AccountFields{UnitID: id(1)}})
	assert.ErrorIs(t, err, ErrPasswordRequired)
	code, _ := shared.ViolationCode(err)
	assert.Equal(t, "PasswordRequired", code)
}

func TestAssignRolesRequiresAccount(t *testing.T) {
	repo := newMemRepo()
	roles := &roleRecorder{}
	svc := newTestService(repo, roles)

	assert.ErrorIs(t, svc.AssignRoles(context.Background(), 99, []int64{1}), ErrNotFound)

	a, err := svc.Create(context.Background(), Input{Email: "a@example.org", Password: "s3cret-pass", AccountFields: scope.AccountFields{UnitID: id(1)}})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRoles(context.Background(), a.ID, []int64{4, 5}))
	assert.Equal(t, [][2]int64{{a.ID, 4}, {a.ID, 5}}, roles.assigned)
}
