package permsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRules_AllOpsDemotedWhenSiblingDenied(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	// all-ops=true, LIMITED=true, ADD=true, FULL=false
	setPerm(t, st, roleID, "allOperations", true, false)
	setPerm(t, st, roleID, "viewPartnersLimited", true, false)
	setPerm(t, st, roleID, "addPartner", true, false)
	setPerm(t, st, roleID, "viewPartnersFull", false, false)

	writes, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)
	require.Equal(t, 1, writes, "exactly one update: the all-ops demotion")

	perms := permsByOp(t, st, roleID)
	require.False(t, perms["allOperations"].Access)
}

func TestRules_FullWithoutLimitedIsRevoked(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	setPerm(t, st, roleID, "viewPartnersLimited", false, true)
	setPerm(t, st, roleID, "viewPartnersFull", true, false)

	_, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)

	perms := permsByOp(t, st, roleID)
	require.False(t, perms["viewPartnersFull"].Access)
	require.True(t, perms["viewPartnersFull"].Disabled)
	require.False(t, perms["viewPartnersLimited"].Disabled, "limited stays selectable")
}

func TestRules_LimitedOnlyLeavesBothSelectable(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	setPerm(t, st, roleID, "viewPartnersLimited", true, false)
	setPerm(t, st, roleID, "viewPartnersFull", false, true)

	_, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)

	perms := permsByOp(t, st, roleID)
	require.False(t, perms["viewPartnersFull"].Access)
	require.False(t, perms["viewPartnersFull"].Disabled)
	require.False(t, perms["viewPartnersLimited"].Disabled)
}

func TestRules_FullGrantedLocksLimited(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	setPerm(t, st, roleID, "viewPartnersLimited", true, false)
	setPerm(t, st, roleID, "viewPartnersFull", true, false)

	_, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)

	perms := permsByOp(t, st, roleID)
	require.True(t, perms["viewPartnersFull"].Access)
	require.False(t, perms["viewPartnersFull"].Disabled)
	require.True(t, perms["viewPartnersLimited"].Access)
	require.True(t, perms["viewPartnersLimited"].Disabled, "limited locked as redundant")
}

func TestRules_Idempotent(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	setPerm(t, st, roleID, "viewPartnersLimited", true, false)
	setPerm(t, st, roleID, "viewPartnersFull", true, false)

	first, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)
	require.Positive(t, first)

	second, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)
	require.Zero(t, second, "second pass over unchanged state writes nothing")
}

func TestRules_AllOpsInvariantHolds(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	// todo permitido: all-ops puede quedarse en true
	for _, op := range []string{"allOperations", "viewPartnersLimited", "viewPartnersFull", "addPartner"} {
		setPerm(t, st, roleID, op, true, false)
	}

	_, err := e.ApplyAllOpsRule(ctx, roleID)
	require.NoError(t, err)

	perms := permsByOp(t, st, roleID)
	if perms["allOperations"].Access {
		for op, p := range perms {
			if op == "allOperations" {
				continue
			}
			require.True(t, p.Access, "all-ops=true implies %s granted", op)
		}
	}
}
