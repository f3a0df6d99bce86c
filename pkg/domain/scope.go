package domain

import (
	"sort"
	"time"

	"github.com/expfab/expfab/pkg/utils/cmp"
)

// capability tag in a scope grant.
type Capability string

const (
	// read the target resource.
	CapRead Capability = "read"

	// append to the target's status ledger.
	CapStatuses Capability = "statuses"

	// report metrics for the target.
	CapMetrics Capability = "metrics"
)

// model names scope grants target.
const (
	ModelExperiment    = "experiment"
	ModelExperimentJob = "experiment_job"
)

// scope granted to workers reporting back for an experiment.
func DefaultExperimentScope() []Capability {
	return []Capability{CapRead, CapStatuses, CapMetrics}
}

// NormalizeScope returns scope deduplicated and sorted.
//
// Scope is a set; duplicates carry no meaning and are dropped on issue,
// so equality below is genuine set equality.
func NormalizeScope(scope []Capability) []Capability {
	seen := map[Capability]struct{}{}
	ret := make([]Capability, 0, len(scope))
	for _, c := range scope {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		ret = append(ret, c)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// ScopeEqual is true iff presented and stored are equal as sets.
//
// Both empty is equal, too; whether an empty stored scope means
// "explicit empty grant" or "no grant at all" is decided by the caller
// with a separate existence check.
func ScopeEqual(presented, stored []Capability) bool {
	return cmp.SliceContentEq(NormalizeScope(presented), NormalizeScope(stored))
}

// ephemeral, resource-scoped authorization for one (user, model, object).
//
// At most one grant per key is usable at a time: re-issuing replaces the
// stored scope, and older credentials stop validating even while they are
// still structurally valid.
type ScopeGrant struct {
	UserId   string
	Model    string
	ObjectId string
	Scope    []Capability

	// enforced by expiry comparison at validation time, not active eviction.
	ExpiresAt time.Time
}

func (g ScopeGrant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

func (g ScopeGrant) Equal(o ScopeGrant) bool {
	return g.UserId == o.UserId &&
		g.Model == o.Model &&
		g.ObjectId == o.ObjectId &&
		g.ExpiresAt.Equal(o.ExpiresAt) &&
		ScopeEqual(g.Scope, o.Scope)
}

// durable credential handed to a worker after scope validation.
//
// Unlike ScopeGrant it does not expire; one exists per user
// (get-or-create).
type Token struct {
	UserId    string
	Key       string
	CreatedAt time.Time
}
