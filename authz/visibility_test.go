package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/authgate/credstore"
)

func snapshotFor(t *testing.T, rec credstore.Record) Snapshot {
	t.Helper()
	sessions := credstore.NewSessions(credstore.NewMemoryStore())
	creds := sessions.Bind("test")
	require.NoError(t, creds.SetAll(context.Background(), rec))
	return NewEvaluator(creds).Take(context.Background())
}

func TestVisibleActions_FiltersAndPreservesOrder(t *testing.T) {
	cards := []ActionCard{
		{Label: "Add Client", Action: "add_client", RequiredCaps: []string{PermCreateClient}},
		{Label: "View Clients", Action: "view_clients", RequiredCaps: []string{PermViewClients, "list_clients"}},
		{Label: "Delete Client", Action: "delete_client", RequiredCaps: []string{PermDeleteClient}},
		{Label: "View Locations", Action: "view_locations", RequiredCaps: []string{PermViewLocations}},
	}

	snap := snapshotFor(t, credstore.Record{
		Token:       "t",
		Role:        "Staff",
		Permissions: []string{PermViewClients, PermViewLocations},
	})

	visible := VisibleActions(snap, cards)
	require.Len(t, visible, 2)
	assert.Equal(t, "View Clients", visible[0].Label)
	assert.Equal(t, "View Locations", visible[1].Label)
}

func TestVisibleActions_BypassKeepsAll(t *testing.T) {
	cards := []ActionCard{
		{Label: "A", RequiredCaps: []string{PermCreateClient}},
		{Label: "B", RequiredCaps: []string{"made_up_capability"}},
		{Label: "C"},
	}
	snap := snapshotFor(t, credstore.Record{Token: "t", Role: "SuperAdmin"})

	visible := VisibleActions(snap, cards)
	assert.Len(t, visible, len(cards))
}

func TestVisibleActions_EmptyResultIsValid(t *testing.T) {
	cards := []ActionCard{
		{Label: "A", RequiredCaps: []string{PermDeleteClient}},
		{Label: "B", RequiredCaps: []string{PermManageStore}},
	}
	snap := snapshotFor(t, credstore.Record{
		Token:       "t",
		Role:        "sales",
		Permissions: []string{PermViewClients},
	})

	visible := VisibleActions(snap, cards)
	assert.NotNil(t, visible)
	assert.Empty(t, visible)
}

func TestVisibleActions_NoCapsHiddenForNonBypass(t *testing.T) {
	// A card listing no required capabilities matches the empty-list
	// rule: hidden for non-bypass roles.
	cards := []ActionCard{{Label: "Mystery"}}
	snap := snapshotFor(t, credstore.Record{
		Token:       "t",
		Role:        "staff",
		Permissions: []string{PermViewClients},
	})
	assert.Empty(t, VisibleActions(snap, cards))
}
