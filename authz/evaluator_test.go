package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/authgate/credstore"
)

func newCreds(t *testing.T, rec credstore.Record) *credstore.Credentials {
	t.Helper()
	sessions := credstore.NewSessions(credstore.NewMemoryStore())
	creds := sessions.Bind("test")
	if rec.Token != "" {
		require.NoError(t, creds.SetAll(context.Background(), rec))
	}
	return creds
}

func TestBypassRolesGrantEverything(t *testing.T) {
	ctx := context.Background()
	for _, role := range []string{"SuperAdmin", "superadmin", "Admin", "ADMIN"} {
		creds := newCreds(t, credstore.Record{Token: "t", Role: role, Permissions: []string{}})
		ev := NewEvaluator(creds)

		for _, perm := range Catalog() {
			assert.True(t, ev.HasPermission(ctx, perm), "role %s should grant %s", role, perm)
		}
		// Even capabilities outside the catalog.
		assert.True(t, ev.HasPermission(ctx, "not_a_real_capability"), "role %s", role)
	}
}

func TestNonBypassRoleIsMembershipOnly(t *testing.T) {
	ctx := context.Background()
	creds := newCreds(t, credstore.Record{
		Token:       "t",
		Role:        "Staff",
		Permissions: []string{PermViewClients},
	})
	ev := NewEvaluator(creds)

	assert.True(t, ev.HasPermission(ctx, PermViewClients))
	assert.False(t, ev.HasPermission(ctx, PermCreateClient))
	assert.False(t, ev.HasPermission(ctx, "not_a_real_capability"))
}

func TestHasAnyPermission(t *testing.T) {
	ctx := context.Background()
	staff := NewEvaluator(newCreds(t, credstore.Record{
		Token:       "t",
		Role:        "staff",
		Permissions: []string{PermViewClients},
	}))
	admin := NewEvaluator(newCreds(t, credstore.Record{
		Token: "t",
		Role:  "admin",
	}))

	assert.True(t, staff.HasAnyPermission(ctx, PermCreateClient, PermViewClients))
	assert.False(t, staff.HasAnyPermission(ctx, PermCreateClient, PermDeleteClient))

	// Empty list: false for non-bypass, true for bypass.
	assert.False(t, staff.HasAnyPermission(ctx))
	assert.True(t, admin.HasAnyPermission(ctx))
}

func TestHasAllPermissions(t *testing.T) {
	ctx := context.Background()
	staff := NewEvaluator(newCreds(t, credstore.Record{
		Token:       "t",
		Role:        "staff",
		Permissions: []string{PermViewClients, PermViewLocations},
	}))

	assert.True(t, staff.HasAllPermissions(ctx, PermViewClients, PermViewLocations))
	assert.False(t, staff.HasAllPermissions(ctx, PermViewClients, PermDeleteClient))
	assert.True(t, staff.HasAllPermissions(ctx), "vacuous AND over empty list")
}

func TestClearAllDeniesEverything(t *testing.T) {
	ctx := context.Background()
	for _, role := range []string{"superadmin", "admin", "staff"} {
		creds := newCreds(t, credstore.Record{
			Token:       "t",
			Role:        role,
			Permissions: []string{PermViewClients},
		})
		require.NoError(t, creds.ClearAll(ctx))
		ev := NewEvaluator(creds)

		snap := ev.Take(ctx)
		assert.False(t, snap.Authenticated)
		for _, perm := range Catalog() {
			assert.False(t, ev.HasPermission(ctx, perm), "role %s after clear", role)
		}
	}
}

func TestLoadingDistinctFromDenied(t *testing.T) {
	ctx := context.Background()
	sessions := credstore.NewSessions(credstore.NewMemoryStore())
	creds := sessions.Bind("test")

	// Authenticated but first permission hydration not landed yet.
	require.NoError(t, creds.SetToken(ctx, "t"))
	snap := NewEvaluator(creds).Take(ctx)
	assert.True(t, snap.Authenticated)
	assert.True(t, snap.Loading)

	// Once permissions land, loading clears.
	require.NoError(t, creds.SetPermissions(ctx, []string{PermViewClients}))
	snap = NewEvaluator(creds).Take(ctx)
	assert.False(t, snap.Loading)
	assert.True(t, snap.HasPermission(PermViewClients))
}

func TestBypassRoleNeverLoading(t *testing.T) {
	ctx := context.Background()
	sessions := credstore.NewSessions(credstore.NewMemoryStore())
	admin := sessions.Bind("a")

	// Token and role only; no permission set written. Bypass roles do
	// not wait on hydration.
	require.NoError(t, admin.SetToken(ctx, "t"))
	require.NoError(t, admin.SetRole(ctx, "admin"))

	snap := NewEvaluator(admin).Take(ctx)
	assert.False(t, snap.Loading)
	assert.True(t, snap.HasPermission(PermViewClients))
}

func TestSyncErrorSurfacesWithoutLockout(t *testing.T) {
	ctx := context.Background()
	creds := newCreds(t, credstore.Record{
		Token:       "t",
		Role:        "staff",
		Permissions: []string{PermViewClients},
	})
	require.NoError(t, creds.SetPermissionsError(ctx, "profile fetch failed"))

	snap := NewEvaluator(creds).Take(ctx)
	assert.ErrorIs(t, snap.Err, ErrPermissionsUnavailable)
	// Stored grants still honored while the error stands.
	assert.True(t, snap.HasPermission(PermViewClients))
}

func TestHasPermissionIdempotent(t *testing.T) {
	ctx := context.Background()
	ev := NewEvaluator(newCreds(t, credstore.Record{
		Token:       "t",
		Role:        "staff",
		Permissions: []string{PermViewClients},
	}))

	first := ev.HasPermission(ctx, PermViewClients)
	second := ev.HasPermission(ctx, PermViewClients)
	assert.Equal(t, first, second)

	first = ev.HasPermission(ctx, PermDeleteClient)
	second = ev.HasPermission(ctx, PermDeleteClient)
	assert.Equal(t, first, second)
}

func TestCatalogAndRoles(t *testing.T) {
	assert.True(t, IsKnown(PermViewDashboard))
	assert.False(t, IsKnown("nope"))

	assert.True(t, IsBypass("SuperAdmin"))
	assert.True(t, IsBypass("admin"))
	assert.False(t, IsBypass("staff"))
	assert.False(t, IsBypass(""))

	assert.NotEmpty(t, DefaultPermissions("staff"))
	assert.NotEmpty(t, DefaultPermissions("Sales"))
	assert.Nil(t, DefaultPermissions("superadmin"), "bypass roles carry no grant list")
	assert.Nil(t, DefaultPermissions("unknown"))

	assert.True(t, KnownRole("Admin"))
	assert.True(t, KnownRole("sales"))
	assert.False(t, KnownRole("intruder"))
}
