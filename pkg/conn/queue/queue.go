// Package queue is the boundary to the asynchronous worker fleet.
//
// The control plane only ever enqueues; it never observes task completion.
// Completion comes back later as ordinary authorized API calls.
// The transport promises at-least-once delivery, nothing more.
package queue

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

// one-way sender. Enqueue failure means the triggering action is not
// fully complete, so it is propagated to the caller.
type Producer interface {
	Enqueue(ctx context.Context, command domain.Command) error
}

// receiver side, used by cmd/expd_worker.
type Consumer interface {
	// Dequeue blocks until a command arrives or ctx is done.
	//
	// (nil, nil) means the wait timed out without a message; callers
	// should just try again.
	Dequeue(ctx context.Context) (*domain.Command, error)
}
