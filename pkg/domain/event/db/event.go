package db

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

type EventInterface interface {
	// append an audit record.
	//
	// Records are write-once. There is no update nor delete path.
	//
	// Args
	//
	// - context.Context
	//
	// - Event: record to be stored. When CreatedAt is zero, the storage
	// assigns the current time.
	//
	// Returns
	//
	// - error
	Append(ctx context.Context, event domain.Event) error

	// Retrieve events about a subject, in the order they were recorded.
	//
	// Args
	//
	// - context.Context
	//
	// - string: subjectId, id of the instance the events are about.
	//
	// Returns
	//
	// - []Event: found events, oldest first. Empty when there are none.
	//
	// - error
	FindBySubject(ctx context.Context, subjectId string) ([]domain.Event, error)
}
