package domain

import "time"

// PlanTier is the subscription level that determines the check-in quota.
type PlanTier string

const (
	PlanFoundation PlanTier = "foundation"
	PlanGrowth     PlanTier = "growth"
	PlanElite      PlanTier = "elite"
)

// planLimits holds check-ins allowed per billing cycle.
var planLimits = map[PlanTier]int{
	PlanFoundation: 1,
	PlanGrowth:     2,
	PlanElite:      4,
}

// CycleLimit returns the number of check-ins allowed per billing cycle.
// Unknown tiers get zero.
func (t PlanTier) CycleLimit() int {
	return planLimits[t]
}

// Valid reports whether t is a known tier.
func (t PlanTier) Valid() bool {
	_, ok := planLimits[t]
	return ok
}

// ClientSubscription is the read-only billing view of a client.
// CycleAnchorDate is optional: without it the billing cycle falls back to the calendar month.
type ClientSubscription struct {
	ClientID        string     `bson:"_id" json:"clientId" db:"client_id"`
	PlanTier        PlanTier   `bson:"planTier" json:"planTier" db:"plan_tier"`
	CycleAnchorDate *time.Time `bson:"cycleAnchorDate,omitempty" json:"cycleAnchorDate,omitempty" db:"cycle_anchor_date"` // Original signup date
}
