package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestValidateHierarchy(t *testing.T) {
	manager := &User{ID: 2, Role: RoleManager, CompanyID: ptr(int64(1))}

	tests := []struct {
		name    string
		user    User
		manager *User
		want    error
	}{
		{"super admin without company", User{Role: RoleSuperAdmin}, nil, nil},
		{"super admin with company", User{Role: RoleSuperAdmin, CompanyID: ptr(int64(1))}, nil, ErrSuperAdminCompany},
		{"employee needs company", User{Role: RoleEmployee}, nil, ErrCompanyRequired},
		{"employee with manager", User{ID: 3, Role: RoleEmployee, CompanyID: ptr(int64(1)), ManagerID: ptr(int64(2))}, manager, nil},
		{"manager cannot have manager", User{Role: RoleManager, CompanyID: ptr(int64(1)), ManagerID: ptr(int64(2))}, manager, ErrManagerOnlyEmployee},
		{"manager in other company", User{Role: RoleEmployee, CompanyID: ptr(int64(9)), ManagerID: ptr(int64(2))}, manager, ErrManagerOtherCompany},
		{"manager must be manager", User{Role: RoleEmployee, CompanyID: ptr(int64(1)), ManagerID: ptr(int64(4))}, &User{ID: 4, Role: RoleEmployee, CompanyID: ptr(int64(1))}, ErrManagerNotManager},
		{"self managed", User{ID: 5, Role: RoleEmployee, CompanyID: ptr(int64(1)), ManagerID: ptr(int64(5))}, nil, ErrManagerSelf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.user.ValidateHierarchy(tt.manager), tt.want)
		})
	}
}

func TestSameCompanyTreatsNullAsDistinct(t *testing.T) {
	a := &User{ID: 1}
	b := &User{ID: 2}
	assert.False(t, a.SameCompany(b))
	assert.False(t, a.SameCompany(&User{CompanyID: ptr(int64(1))}))
	assert.True(t, (&User{CompanyID: ptr(int64(1))}).SameCompany(&User{CompanyID: ptr(int64(1))}))
}

func TestSummarizeSync(t *testing.T) {
	assert.Equal(t, ProviderSyncNone, SummarizeSync(nil))
	assert.Equal(t, ProviderSyncSynced, SummarizeSync([]SyncTask{
		{ID: 1, Status: SyncStatusFailed},
		{ID: 2, Status: SyncStatusDone},
	}))
	assert.Equal(t, ProviderSyncPending, SummarizeSync([]SyncTask{{ID: 3, Status: SyncStatusPending}}))
	assert.Equal(t, ProviderSyncFailed, SummarizeSync([]SyncTask{{ID: 3, Status: SyncStatusFailed}}))
}
