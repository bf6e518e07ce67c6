package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	for _, to := range []CheckInStatus{StatusCompleted, StatusCancelled, StatusRescheduled} {
		require.True(t, CanTransition(StatusScheduled, to), to)
		for _, from := range []CheckInStatus{StatusCompleted, StatusCancelled, StatusRescheduled} {
			require.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	require.False(t, CanTransition(StatusScheduled, StatusScheduled))
	require.False(t, CanTransition(StatusCancelled, StatusScheduled))
}

func TestStatusQuotaAndTerminal(t *testing.T) {
	require.True(t, StatusScheduled.CountsTowardQuota())
	require.True(t, StatusCompleted.CountsTowardQuota())
	require.False(t, StatusCancelled.CountsTowardQuota())
	require.False(t, StatusRescheduled.CountsTowardQuota())

	require.False(t, StatusScheduled.Terminal())
	require.True(t, StatusRescheduled.Terminal())
	require.False(t, CheckInStatus("pending").Valid())
}

func TestPlanTierLimits(t *testing.T) {
	require.Equal(t, 1, PlanFoundation.CycleLimit())
	require.Equal(t, 2, PlanGrowth.CycleLimit())
	require.Equal(t, 4, PlanElite.CycleLimit())
	require.Equal(t, 0, PlanTier("platinum").CycleLimit())
	require.False(t, PlanTier("platinum").Valid())
}

func TestCheckInIn(t *testing.T) {
	zone := time.FixedZone("UTC-05:00", -5*3600)
	done := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)
	c := CheckIn{
		ClientID:    "c1",
		ScheduledAt: time.Date(2026, time.March, 11, 14, 0, 0, 0, time.UTC),
		CompletedAt: &done,
	}

	local := c.In(zone)
	require.Equal(t, 9, local.ScheduledAt.Hour())
	require.Equal(t, 10, local.CompletedAt.Hour())
	require.Equal(t, 15, c.CompletedAt.Hour(), "original is untouched")
	require.True(t, local.OwnedBy("c1"))
	require.False(t, (&CheckIn{}).OwnedBy(""))
}

func TestActorRoles(t *testing.T) {
	require.True(t, Actor{Role: RoleCoach}.IsStaff())
	require.True(t, Actor{Role: RoleAdmin}.IsAdmin())
	require.False(t, Actor{Role: RoleClient}.IsStaff())
	require.False(t, Role("trainer").Valid())
}
