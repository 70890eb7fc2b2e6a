package gate

import (
	"fmt"

	"captionforge/internal/errs"
)

// Decision is the admission gate's verdict for one prospective job.
type Decision struct {
	Allowed bool
	Limit   string
	Reason  string
}

// Gate is consulted once per file before a job is created. A refusal
// short-circuits admission without creating the job.
type Gate interface {
	CheckQuota(tier string, durationMinutes float64, jobsThisMonth int) Decision
}

// TierLimits caps a tier's usage.
type TierLimits struct {
	MaxMinutesPerFile float64
	MaxJobsPerMonth   int
}

type tierGate struct {
	limits map[string]TierLimits
}

// DefaultLimits mirrors the product tiers.
var DefaultLimits = map[string]TierLimits{
	"free":       {MaxMinutesPerFile: 15, MaxJobsPerMonth: 30},
	"pro":        {MaxMinutesPerFile: 120, MaxJobsPerMonth: 500},
	"enterprise": {MaxMinutesPerFile: 600, MaxJobsPerMonth: 10000},
}

// NewTierGate creates a Gate enforcing per-tier limits. Nil limits fall
// back to DefaultLimits.
func NewTierGate(limits map[string]TierLimits) Gate {
	if limits == nil {
		limits = DefaultLimits
	}
	return &tierGate{limits: limits}
}

func (g *tierGate) CheckQuota(tier string, durationMinutes float64, jobsThisMonth int) Decision {
	l, ok := g.limits[tier]
	if !ok {
		return Decision{
			Limit:  "tier",
			Reason: fmt.Sprintf("unknown tier %q", tier),
		}
	}
	if durationMinutes > l.MaxMinutesPerFile {
		return Decision{
			Limit:  "minutes-per-file",
			Reason: fmt.Sprintf("file is %.1f minutes, tier %s allows %.0f", durationMinutes, tier, l.MaxMinutesPerFile),
		}
	}
	if jobsThisMonth >= l.MaxJobsPerMonth {
		return Decision{
			Limit:  "jobs-per-month",
			Reason: fmt.Sprintf("tier %s allows %d jobs per month", tier, l.MaxJobsPerMonth),
		}
	}
	return Decision{Allowed: true}
}

// AllowAll admits everything. Used in tests and single-user deployments.
type AllowAll struct{}

func (AllowAll) CheckQuota(string, float64, int) Decision {
	return Decision{Allowed: true}
}

// Err converts a refusal into the caller-facing error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &errs.QuotaExceededError{Limit: d.Limit, Reason: d.Reason}
}
