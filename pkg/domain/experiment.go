package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/expfab/expfab/pkg/utils/cmp"
)

type UserBody struct {
	Id   string
	Name string
}

func (u UserBody) Equal(o UserBody) bool {
	return u.Id == o.Id && u.Name == o.Name
}

type ProjectBody struct {
	Id   string
	Name string

	// owner of the project.
	User UserBody
}

// globally unique project name, "<owner>.<project>".
func (p ProjectBody) UniqueName() string {
	return fmt.Sprintf("%s.%s", p.User.Name, p.Name)
}

func (p ProjectBody) Equal(o ProjectBody) bool {
	return p.Id == o.Id && p.Name == o.Name && p.User.Equal(o.User)
}

// a set of related experiments in a project, e.g. a hyperparameter sweep.
type GroupBody struct {
	Id        string
	Name      string
	ProjectId string
}

func (g *GroupBody) Equal(o *GroupBody) bool {
	if (g == nil) || (o == nil) {
		return (g == nil) && (o == nil)
	}
	return g.Id == o.Id && g.Name == o.Name && g.ProjectId == o.ProjectId
}

// how a derived experiment was created from its source.
type CloneStrategy string

const (
	StrategyRestart CloneStrategy = "restart"
	StrategyResume  CloneStrategy = "resume"
	StrategyCopy    CloneStrategy = "copy"
)

func AsCloneStrategy(s string) (CloneStrategy, error) {
	switch s {
	case string(StrategyRestart):
		return StrategyRestart, nil
	case string(StrategyResume):
		return StrategyResume, nil
	case string(StrategyCopy):
		return StrategyCopy, nil
	default:
		return "", fmt.Errorf("'%s' is not CloneStrategy", s)
	}
}

// lineage link from a derived experiment to its source.
type Origin struct {
	ExperimentId string
	Strategy     CloneStrategy
}

func (o *Origin) Equal(other *Origin) bool {
	if (o == nil) || (other == nil) {
		return (o == nil) && (other == nil)
	}
	return o.ExperimentId == other.ExperimentId && o.Strategy == other.Strategy
}

// Core part of experiment.
type ExperimentBody struct {
	Id string

	// per-project sequence number; UniqueName is composed from it.
	Sequence int

	// Not inherited on derivation. See derive package.
	Description string

	// repository commit the experiment's code was taken from, if any.
	CodeReference string

	// path where outputs are persisted, if any.
	PersistenceOutputs string

	// parsed declarative configuration.
	Specification map[string]any

	// key/value parameters extracted from Specification.
	Declarations map[string]any

	// status of the most-recently-created ledger row.
	//
	// Kept as a cached column; the ledger is authoritative.
	LastStatus LifeStatus

	// delete marks the record excluded, it is not erased.
	Deleted bool

	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (eb *ExperimentBody) Equal(o *ExperimentBody) bool {
	if (eb == nil) || (o == nil) {
		return (eb == nil) && (o == nil)
	}
	return eb.Id == o.Id &&
		eb.Sequence == o.Sequence &&
		eb.Description == o.Description &&
		eb.CodeReference == o.CodeReference &&
		eb.PersistenceOutputs == o.PersistenceOutputs &&
		eb.LastStatus == o.LastStatus &&
		eb.Deleted == o.Deleted
}

type Experiment struct {
	ExperimentBody

	Project ProjectBody

	// experiment group the experiment belongs to, if any.
	Group *GroupBody

	// user who created the experiment.
	User UserBody

	// lineage, when this experiment was derived from another one.
	Original *Origin
}

// globally unique experiment name, "<owner>.<project>.<sequence>".
func (e Experiment) UniqueName() string {
	return fmt.Sprintf("%s.%d", e.Project.UniqueName(), e.Sequence)
}

// globally unique group name, "<owner>.<project>.<group>".
// nil for an independent experiment.
func (e Experiment) GroupUniqueName() *string {
	if e.Group == nil {
		return nil
	}
	name := fmt.Sprintf("%s.%s", e.Project.UniqueName(), e.Group.Name)
	return &name
}

func (e *Experiment) Equal(o *Experiment) bool {
	if (e == nil) || (o == nil) {
		return (e == nil) && (o == nil)
	}
	return e.ExperimentBody.Equal(&o.ExperimentBody) &&
		e.Project.Equal(o.Project) &&
		e.Group.Equal(o.Group) &&
		e.User.Equal(o.User) &&
		e.Original.Equal(o.Original)
}

// Snapshot flattens the experiment into the nested form the event
// recorder extracts attribute paths from.
//
// For a given experiment state the result is deterministic; audit records
// built from it are replayable.
func (e Experiment) Snapshot() map[string]any {
	var group any
	if e.Group != nil {
		group = map[string]any{
			"id":   e.Group.Id,
			"name": e.Group.Name,
		}
	}
	return map[string]any{
		"id":          e.Id,
		"name":        e.UniqueName(),
		"description": e.Description,
		"last_status": e.LastStatus.String(),
		"project": map[string]any{
			"id":   e.Project.Id,
			"name": e.Project.UniqueName(),
			"user": map[string]any{
				"id":   e.Project.User.Id,
				"name": e.Project.User.Name,
			},
		},
		"user": map[string]any{
			"id":   e.User.Id,
			"name": e.User.Name,
		},
		"group": group,
	}
}

// Snapshot of a project, for project-scoped audit events.
func (p ProjectBody) Snapshot() map[string]any {
	return map[string]any{
		"id":   p.Id,
		"name": p.UniqueName(),
		"user": map[string]any{
			"id":   p.User.Id,
			"name": p.User.Name,
		},
	}
}

func (g GroupBody) Snapshot() map[string]any {
	return map[string]any{
		"id":         g.Id,
		"name":       g.Name,
		"project_id": g.ProjectId,
	}
}

// parameter to create an experiment.
//
// Id, Sequence and timestamps are assigned by the repository.
type NewExperiment struct {
	ProjectId string

	// group the experiment belongs to, if any.
	GroupId *string

	// user creating the experiment.
	UserId string

	Description        string
	CodeReference      string
	PersistenceOutputs string
	Specification      map[string]any
	Declarations       map[string]any

	// lineage, when derived from another experiment.
	Original *Origin
}

// parameter to query experiments.
//
// When all dimensions match an experiment, this query matches the experiment.
type ExperimentFindQuery struct {
	// match if experiment belongs to one of these projects.
	//
	// If it is nil or empty, it means "match any".
	ProjectId []string

	// match if experiment belongs to one of these groups.
	//
	// Exclusive with Independent.
	GroupId []string

	// match only experiments belonging to no group.
	//
	// Exclusive with GroupId.
	Independent bool

	// match if experiment's last status is one of these statuses.
	//
	// If it is nil or empty, it means "match any".
	Status []LifeStatus

	// match if experiment's updated time is equal or later than this UpdatedSince.
	UpdatedSince *time.Time

	// match if experiment's updated time is earlier than this UpdatedUntil.
	UpdatedUntil *time.Time
}

func (efq ExperimentFindQuery) Equal(other ExperimentFindQuery) bool {
	return cmp.SliceContentEq(efq.ProjectId, other.ProjectId) &&
		cmp.SliceContentEq(efq.GroupId, other.GroupId) &&
		efq.Independent == other.Independent &&
		cmp.SliceContentEq(efq.Status, other.Status) &&
		((efq.UpdatedSince == nil && other.UpdatedSince == nil) ||
			(efq.UpdatedSince != nil && other.UpdatedSince != nil && efq.UpdatedSince.Equal(*other.UpdatedSince))) &&
		((efq.UpdatedUntil == nil && other.UpdatedUntil == nil) ||
			(efq.UpdatedUntil != nil && other.UpdatedUntil != nil && efq.UpdatedUntil.Equal(*other.UpdatedUntil)))
}

// mutable fields of an experiment. nil fields are left as they are.
type ExperimentPatch struct {
	Description   *string
	Declarations  map[string]any
	CodeReference *string
}

// a single observation of metric values for an experiment.
type ExperimentMetric struct {
	Id           string
	ExperimentId string
	Values       map[string]float64
	CreatedAt    time.Time
}

func (m ExperimentMetric) Equal(o ExperimentMetric) bool {
	return m.Id == o.Id &&
		m.ExperimentId == o.ExperimentId &&
		cmp.MapEq(m.Values, o.Values) &&
		m.CreatedAt.Equal(o.CreatedAt)
}

var (
	// requested record is not there.
	ErrMissing = errors.New("missing")

	// the caller may not do this. No detail on purpose.
	ErrForbidden = errors.New("forbidden")
)
