package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrantsKnownRoles(t *testing.T) {
	admin := Grants("admin")
	require.True(t, admin.Allows(ResourceDeals, ActionDelete))
	require.True(t, admin.Allows(ResourceUsers, ActionManage))
	require.True(t, admin.Allows(ResourceSystem, ActionConfigure))

	sales := Grants("sales")
	require.True(t, sales.Allows(ResourceDeals, ActionCreate))
	require.True(t, sales.Allows(ResourceDeals, ActionViewFinancials))
	require.False(t, sales.Allows(ResourceDeals, ActionDelete))
	require.False(t, sales.Allows(ResourceBackOffice, ActionAccess))
	require.False(t, sales.Allows(ResourceUsers, ActionManage))

	finance := Grants("finance")
	require.True(t, finance.Allows(ResourceBackOffice, ActionAccess))
	require.True(t, finance.Allows(ResourceDeals, ActionViewFinancials))
	require.False(t, finance.Allows(ResourceDeals, ActionCreate))
	require.False(t, finance.Allows(ResourceDealers, ActionUpdate))

	viewer := Grants("viewer")
	require.True(t, viewer.Allows(ResourceDeals, ActionRead))
	require.False(t, viewer.Allows(ResourceDeals, ActionViewFinancials))
	require.False(t, viewer.Allows(ResourceDealers, ActionCreate))
}

func TestGrantsUnknownRoleDeniesEverything(t *testing.T) {
	snapshot := Grants("intern")
	for _, resource := range []string{ResourceDeals, ResourceDealers, ResourceBackOffice, ResourceReports, ResourceUsers, ResourceSystem} {
		for _, action := range []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionViewFinancials, ActionAccess, ActionManage, ActionConfigure} {
			require.False(t, snapshot.Allows(resource, action), "%s:%s should be denied", resource, action)
		}
	}
}

func TestGrantsReturnsIndependentCopies(t *testing.T) {
	first := Grants("viewer")
	first[ResourceDeals][ActionDelete] = true

	second := Grants("viewer")
	require.False(t, second.Allows(ResourceDeals, ActionDelete))
}

func TestNilSnapshotDenies(t *testing.T) {
	var s Snapshot
	require.False(t, s.Allows(ResourceDeals, ActionRead))
}

func TestIsValidRole(t *testing.T) {
	for _, role := range Roles() {
		require.True(t, IsValidRole(role))
	}
	require.False(t, IsValidRole("superadmin"))
	require.False(t, IsValidRole(""))
}
