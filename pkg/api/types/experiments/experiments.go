package experiments

import (
	"encoding/json"

	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/utils/cmp"
	"github.com/expfab/expfab/pkg/utils/rfctime"
)

type UserSummary struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
}

func ComposeUserSummary(u domain.UserBody) UserSummary {
	return UserSummary{UserId: u.Id, Name: u.Name}
}

type ProjectSummary struct {
	ProjectId string      `json:"projectId"`
	Name      string      `json:"name"`
	Owner     UserSummary `json:"owner"`
}

func ComposeProjectSummary(p domain.ProjectBody) ProjectSummary {
	return ProjectSummary{
		ProjectId: p.Id,
		Name:      p.UniqueName(),
		Owner:     ComposeUserSummary(p.User),
	}
}

type GroupSummary struct {
	GroupId string `json:"groupId"`
	Name    string `json:"name"`
}

func (g *GroupSummary) Equal(o *GroupSummary) bool {
	if g == nil || o == nil {
		return (g == nil) && (o == nil)
	}
	return g.GroupId == o.GroupId && g.Name == o.Name
}

type Origin struct {
	ExperimentId string `json:"experimentId"`
	Strategy     string `json:"strategy"`
}

func (or *Origin) Equal(o *Origin) bool {
	if or == nil || o == nil {
		return (or == nil) && (o == nil)
	}
	return or.ExperimentId == o.ExperimentId && or.Strategy == o.Strategy
}

type Summary struct {
	ExperimentId string           `json:"experimentId"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Status       string           `json:"status"`
	Project      ProjectSummary   `json:"project"`
	Group        *GroupSummary    `json:"group,omitempty"`
	User         UserSummary      `json:"user"`
	CreatedAt    rfctime.RFC3339  `json:"createdAt"`
	UpdatedAt    rfctime.RFC3339  `json:"updatedAt"`
	StartedAt    *rfctime.RFC3339 `json:"startedAt,omitempty"`
	FinishedAt   *rfctime.RFC3339 `json:"finishedAt,omitempty"`
}

func ComposeSummary(e domain.Experiment) Summary {
	var group *GroupSummary
	if e.Group != nil {
		group = &GroupSummary{GroupId: e.Group.Id, Name: e.Group.Name}
	}
	var startedAt, finishedAt *rfctime.RFC3339
	if e.StartedAt != nil {
		t := rfctime.New(*e.StartedAt)
		startedAt = &t
	}
	if e.FinishedAt != nil {
		t := rfctime.New(*e.FinishedAt)
		finishedAt = &t
	}
	return Summary{
		ExperimentId: e.Id,
		Name:         e.UniqueName(),
		Description:  e.Description,
		Status:       e.LastStatus.String(),
		Project:      ComposeProjectSummary(e.Project),
		Group:        group,
		User:         ComposeUserSummary(e.User),
		CreatedAt:    rfctime.New(e.CreatedAt),
		UpdatedAt:    rfctime.New(e.UpdatedAt),
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}
}

func (s *Summary) Equal(o *Summary) bool {
	if s == nil || o == nil {
		return (s == nil) && (o == nil)
	}
	return s.ExperimentId == o.ExperimentId &&
		s.Name == o.Name &&
		s.Description == o.Description &&
		s.Status == o.Status &&
		s.Project == o.Project &&
		s.Group.Equal(o.Group) &&
		s.User == o.User &&
		s.CreatedAt.Equal(&o.CreatedAt) &&
		s.UpdatedAt.Equal(&o.UpdatedAt)
}

type Detail struct {
	Summary
	Specification      map[string]any `json:"specification"`
	Declarations       map[string]any `json:"declarations,omitempty"`
	CodeReference      string         `json:"codeReference,omitempty"`
	PersistenceOutputs string         `json:"persistenceOutputs,omitempty"`
	Original           *Origin        `json:"original,omitempty"`
}

func ComposeDetail(e domain.Experiment) Detail {
	var origin *Origin
	if e.Original != nil {
		origin = &Origin{
			ExperimentId: e.Original.ExperimentId,
			Strategy:     string(e.Original.Strategy),
		}
	}
	return Detail{
		Summary:            ComposeSummary(e),
		Specification:      e.Specification,
		Declarations:       e.Declarations,
		CodeReference:      e.CodeReference,
		PersistenceOutputs: e.PersistenceOutputs,
		Original:           origin,
	}
}

func (d *Detail) Equal(o *Detail) bool {
	if d == nil || o == nil {
		return (d == nil) && (o == nil)
	}
	return d.Summary.Equal(&o.Summary) &&
		d.CodeReference == o.CodeReference &&
		d.PersistenceOutputs == o.PersistenceOutputs &&
		d.Original.Equal(o.Original)
}

// CodeReference is the commit pinned to an experiment.
type CodeReference struct {
	ExperimentId string `json:"experimentId"`
	Commit       string `json:"commit,omitempty"`
}

func ComposeCodeReference(e domain.Experiment) CodeReference {
	return CodeReference{ExperimentId: e.Id, Commit: e.CodeReference}
}

type StatusRecord struct {
	Id        int64           `json:"id"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	CreatedAt rfctime.RFC3339 `json:"createdAt"`
}

func ComposeStatusRecord(r domain.StatusRecord) StatusRecord {
	return StatusRecord{
		Id:        r.Id,
		Status:    r.Status.String(),
		Message:   r.Message,
		CreatedAt: rfctime.New(r.CreatedAt),
	}
}

func (r *StatusRecord) Equal(o *StatusRecord) bool {
	if r == nil || o == nil {
		return (r == nil) && (o == nil)
	}
	return r.Id == o.Id &&
		r.Status == o.Status &&
		r.Message == o.Message &&
		r.CreatedAt.Equal(&o.CreatedAt)
}

type JobSummary struct {
	JobId        string          `json:"jobId"`
	ExperimentId string          `json:"experimentId"`
	Sequence     int             `json:"sequence"`
	Role         string          `json:"role"`
	Status       string          `json:"status"`
	CreatedAt    rfctime.RFC3339 `json:"createdAt"`
	UpdatedAt    rfctime.RFC3339 `json:"updatedAt"`
}

func ComposeJobSummary(j domain.ExperimentJob) JobSummary {
	return JobSummary{
		JobId:        j.Id,
		ExperimentId: j.ExperimentId,
		Sequence:     j.Sequence,
		Role:         j.Role,
		Status:       j.LastStatus.String(),
		CreatedAt:    rfctime.New(j.CreatedAt),
		UpdatedAt:    rfctime.New(j.UpdatedAt),
	}
}

type JobDetail struct {
	JobSummary
	Definition map[string]any `json:"definition"`
}

func ComposeJobDetail(j domain.ExperimentJob) JobDetail {
	return JobDetail{
		JobSummary: ComposeJobSummary(j),
		Definition: j.Definition,
	}
}

type Metric struct {
	MetricId     string             `json:"metricId"`
	ExperimentId string             `json:"experimentId"`
	Values       map[string]float64 `json:"values"`
	CreatedAt    rfctime.RFC3339    `json:"createdAt"`
}

func ComposeMetric(m domain.ExperimentMetric) Metric {
	return Metric{
		MetricId:     m.Id,
		ExperimentId: m.ExperimentId,
		Values:       m.Values,
		CreatedAt:    rfctime.New(m.CreatedAt),
	}
}

func (m *Metric) Equal(o *Metric) bool {
	if m == nil || o == nil {
		return (m == nil) && (o == nil)
	}
	return m.MetricId == o.MetricId &&
		m.ExperimentId == o.ExperimentId &&
		cmp.MapEq(m.Values, o.Values) &&
		m.CreatedAt.Equal(&o.CreatedAt)
}

// ExperimentSpec is the request body for creating an experiment.
type ExperimentSpec struct {
	ProjectId     string         `json:"projectId"`
	GroupId       *string        `json:"groupId,omitempty"`
	Description   string         `json:"description,omitempty"`
	CodeReference string         `json:"codeReference,omitempty"`
	Specification map[string]any `json:"specification"`

	// seconds until cleanup. nil means no ttl.
	TTL *int `json:"ttl,omitempty"`
}

// ExperimentPatch is the request body for updating an experiment.
type ExperimentPatch struct {
	Description   *string        `json:"description,omitempty"`
	CodeReference *string        `json:"codeReference,omitempty"`
	Declarations  map[string]any `json:"declarations,omitempty"`
}

// CloneSpec is the request body for restart/resume/copy.
type CloneSpec struct {
	Override             map[string]any `json:"override,omitempty"`
	PreserveDeclarations bool           `json:"preserveDeclarations,omitempty"`
	UpdateCodeReference  bool           `json:"updateCodeReference,omitempty"`
	Description          string         `json:"description,omitempty"`
	GroupId              *string        `json:"groupId,omitempty"`
	TTL                  *int           `json:"ttl,omitempty"`
}

// NewStatus is the request body for appending to a ledger.
type NewStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewJob is the request body for creating a job under an experiment.
type NewJob struct {
	Role       string         `json:"role"`
	Definition map[string]any `json:"definition,omitempty"`
}

// MetricsPayload accepts both shapes of metric submission. Which shape was
// sent decides the ingestion path: a single object is stored synchronously,
// a list is dispatched to the worker fleet.
type MetricsPayload struct {
	Single *MetricValues
	List   []MetricValues
}

type MetricValues struct {
	Values    map[string]float64 `json:"values"`
	CreatedAt *rfctime.RFC3339   `json:"createdAt,omitempty"`
}

func (p *MetricsPayload) UnmarshalJSON(raw []byte) error {
	asList := []MetricValues{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		p.List = asList
		p.Single = nil
		return nil
	}

	asSingle := MetricValues{}
	if err := json.Unmarshal(raw, &asSingle); err != nil {
		return err
	}
	p.Single = &asSingle
	p.List = nil
	return nil
}

// ScopeGrantRequest asks for an ephemeral scoped credential targeting an
// experiment.
type ScopeGrantRequest struct {
	ExperimentId string   `json:"experimentId"`
	Scope        []string `json:"scope"`
}

// ScopeToken carries a signed ephemeral credential.
type ScopeToken struct {
	Token string `json:"token"`
}

// ScopeExchange is the request body for trading an ephemeral scope token
// for a durable one.
type ScopeExchange struct {
	Token string `json:"token"`
}

// DurableToken is the response of a successful exchange.
type DurableToken struct {
	UserId    string          `json:"userId"`
	Key       string          `json:"key"`
	CreatedAt rfctime.RFC3339 `json:"createdAt"`
}

func ComposeDurableToken(t domain.Token) DurableToken {
	return DurableToken{
		UserId:    t.UserId,
		Key:       t.Key,
		CreatedAt: rfctime.New(t.CreatedAt),
	}
}
