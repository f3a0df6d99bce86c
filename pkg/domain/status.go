package domain

import (
	"errors"
	"fmt"
	"time"
)

type LifeStatus string

const (
	// The experiment (or job) record exists, but nothing has been scheduled yet.
	Created LifeStatus = "created"

	// A derived experiment is being brought back up from its source's state.
	Resuming LifeStatus = "resuming"

	// Build of the execution environment is in progress.
	Building LifeStatus = "building"

	// The scheduler accepted the entity; workers are being allocated.
	Scheduled LifeStatus = "scheduled"

	// Workers are starting up.
	Starting LifeStatus = "starting"

	// The entity is running.
	Running LifeStatus = "running"

	// The entity finished successfully. Terminal.
	Succeeded LifeStatus = "succeeded"

	// The entity finished with error. Terminal.
	Failed LifeStatus = "failed"

	// The entity was stopped on request. Terminal.
	Stopped LifeStatus = "stopped"

	// The system lost track of the entity.
	Unknown LifeStatus = "unknown"
)

func (s LifeStatus) String() string {
	return string(s)
}

func AsLifeStatus(status string) (LifeStatus, error) {
	switch status {
	case string(Created):
		return Created, nil
	case string(Resuming):
		return Resuming, nil
	case string(Building):
		return Building, nil
	case string(Scheduled):
		return Scheduled, nil
	case string(Starting):
		return Starting, nil
	case string(Running):
		return Running, nil
	case string(Succeeded):
		return Succeeded, nil
	case string(Failed):
		return Failed, nil
	case string(Stopped):
		return Stopped, nil
	case string(Unknown):
		return Unknown, nil
	default:
		return "", fmt.Errorf("'%s' is not LifeStatus", status)
	}
}

// statuses which no entity ever leaves, except re-appending the same value.
func TerminalStatuses() []LifeStatus {
	return []LifeStatus{Succeeded, Failed, Stopped}
}

func (s LifeStatus) Terminal() bool {
	switch s {
	case Succeeded, Failed, Stopped:
		return true
	default:
		return false
	}
}

// statuses in which a worker may act on the entity's behalf.
//
// Scope-token exchange is allowed only while the experiment is in one of these.
func LiveStatuses() []LifeStatus {
	return []LifeStatus{Scheduled, Starting, Running}
}

func (s LifeStatus) Live() bool {
	switch s {
	case Scheduled, Starting, Running:
		return true
	default:
		return false
	}
}

// CanTransitTo reports whether appending next after s is a legal transition.
//
// Re-appending the same status is always legal (the ledger treats a
// same-terminal re-append as a no-op). Any non-terminal status may fall to
// Stopped, Failed or Unknown at any time. Otherwise transitions only move
// forward through the lifecycle.
func (s LifeStatus) CanTransitTo(next LifeStatus) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}

	switch next {
	case Stopped, Failed, Unknown:
		return true
	}

	switch s {
	case Created:
		// external schedulers may report without intermediate statuses,
		// so a fresh entity accepts any step up to Running directly.
		switch next {
		case Resuming, Building, Scheduled, Starting, Running:
			return true
		}
	case Resuming:
		switch next {
		case Building, Scheduled:
			return true
		}
	case Building:
		switch next {
		case Scheduled:
			return true
		}
	case Scheduled:
		switch next {
		case Starting, Running:
			return true
		}
	case Starting:
		switch next {
		case Running:
			return true
		}
	case Running:
		switch next {
		case Succeeded:
			return true
		}
	case Unknown:
		// recovered visibility: accept anything non-backward.
		return true
	}
	return false
}

var (
	// appending a status would leave a terminal status, which never happens.
	ErrTerminalStateViolation = errors.New("cannot leave terminal status")

	ErrInvalidStatusChanging = errors.New("cannot change status")
)

func NewErrTerminalStateViolation(from, to LifeStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrTerminalStateViolation, from, to)
}

func NewErrInvalidStatusChanging(from, to LifeStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChanging, from, to)
}

// single row of a status ledger.
//
// Ledgers are append-only: rows are never updated nor deleted, and
// (CreatedAt, Id) ascending is the authoritative order. Id is a monotonic
// sequence, so it breaks CreatedAt ties by insertion order.
type StatusRecord struct {
	Id        int64
	Status    LifeStatus
	Message   string
	CreatedAt time.Time
}

func (r StatusRecord) Equal(o StatusRecord) bool {
	return r.Id == o.Id &&
		r.Status == o.Status &&
		r.Message == o.Message &&
		r.CreatedAt.Equal(o.CreatedAt)
}
