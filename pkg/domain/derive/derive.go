package derive

import (
	"context"
	"errors"
	"fmt"

	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/event"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	"github.com/expfab/expfab/pkg/domain/spec"
)

// CodeRefResolver reads the current code reference of a project, e.g. the
// commit at the head of its repository.
type CodeRefResolver func(ctx context.Context, project domain.ProjectBody) (string, error)

// a Request asked to update the code reference, but the engine has no
// resolver to compute one.
var ErrNoCodeRefResolver = errors.New("no code reference resolver is configured")

// Request describes how a new experiment is derived from its source.
type Request struct {
	Strategy domain.CloneStrategy

	// configuration merged over the source's specification. nil keeps the
	// source's specification as it is.
	Override map[string]any

	// keep the source's declarations instead of re-extracting them from
	// the merged specification.
	PreserveDeclarations bool

	// recompute the code reference instead of copying the source's.
	UpdateCodeReference bool

	// description of the new record. The source's description is never
	// inherited; empty means the new record has none.
	Description string

	// group for the new record. Only honored for the copy strategy;
	// restart and resume keep the source's group regardless.
	GroupId *string
}

// Engine derives new experiments from existing ones.
//
// The derived record always gets a fresh identity, the next sequence
// number in its project and an empty ledger. A triggered event is recorded
// against the source before the new record exists, so the audit trail
// attributes the trigger to the originating experiment.
type Engine struct {
	experiments kdbexp.ExperimentInterface
	registry    *event.Registry
	codeRef     CodeRefResolver
}

type Option func(*Engine) *Engine

// WithCodeRefResolver sets the resolver consulted when a Request asks to
// update the code reference. Without one, such requests are rejected with
// ErrNoCodeRefResolver.
func WithCodeRefResolver(resolver CodeRefResolver) Option {
	return func(e *Engine) *Engine {
		e.codeRef = resolver
		return e
	}
}

// args:
//   - experiments: experiment repository
//   - registry: audit event registry
func New(experiments kdbexp.ExperimentInterface, registry *event.Registry, option ...Option) *Engine {
	e := &Engine{
		experiments: experiments,
		registry:    registry,
	}
	for _, opt := range option {
		e = opt(e)
	}
	return e
}

// Derive creates a new experiment from the source.
//
// Args
//
// - context.Context
//
// - string: id of the source experiment.
//
// - Request: how to derive.
//
// - Actor: acting user. The derived record is created as theirs.
//
// Returns
//
// - string: id of the new experiment.
//
// - error: ErrMissing (when the source is not found),
// spec.ErrInvalidSpec (when the override does not merge into a valid
// specification; nothing is created then),
// ErrNoCodeRefResolver (when a code reference update is requested but no
// resolver is configured)
func (e *Engine) Derive(ctx context.Context, sourceId string, req Request, actor domain.Actor) (string, error) {
	sources, err := e.experiments.Get(ctx, []string{sourceId})
	if err != nil {
		return "", err
	}
	source, ok := sources[sourceId]
	if !ok {
		return "", fmt.Errorf("%w: experiment id='%s'", domain.ErrMissing, sourceId)
	}

	specification := source.Specification
	if req.Override != nil {
		merged, err := spec.Validate(source.Specification, req.Override)
		if err != nil {
			return "", err
		}
		specification = merged.Parsed()
	}

	declarations := source.Declarations
	if !req.PreserveDeclarations {
		validated, err := spec.New(specification)
		if err != nil {
			return "", err
		}
		declarations = validated.Declarations()
	}

	codeReference := source.CodeReference
	if req.UpdateCodeReference {
		if e.codeRef == nil {
			return "", ErrNoCodeRefResolver
		}
		resolved, err := e.codeRef(ctx, source.Project)
		if err != nil {
			return "", err
		}
		codeReference = resolved
	}

	var groupId *string
	switch req.Strategy {
	case domain.StrategyRestart, domain.StrategyResume:
		if source.Group != nil {
			gid := source.Group.Id
			groupId = &gid
		}
	case domain.StrategyCopy:
		groupId = req.GroupId
	}

	e.registry.Record(
		ctx, domain.TriggeredEventFor(req.Strategy), source.Snapshot(), actor, nil,
	)

	return e.experiments.New(ctx, domain.NewExperiment{
		ProjectId:          source.Project.Id,
		GroupId:            groupId,
		UserId:             actor.Id,
		Description:        req.Description,
		CodeReference:      codeReference,
		PersistenceOutputs: source.PersistenceOutputs,
		Specification:      specification,
		Declarations:       declarations,
		Original: &domain.Origin{
			ExperimentId: sourceId,
			Strategy:     req.Strategy,
		},
	})
}
