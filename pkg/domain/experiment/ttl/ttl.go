package ttl

import (
	"context"
	"time"
)

// Store keeps optional time-to-live marks for experiments.
//
// A ttl is advisory cleanup state, not part of the experiment record; it
// lives in volatile storage and reapers act on it out of band.
type Store interface {
	// Set stores the ttl of an experiment, replacing any prior one.
	Set(ctx context.Context, experimentId string, ttl time.Duration) error

	// Get reads the remaining ttl of an experiment.
	//
	// Returns
	//
	// - time.Duration: remaining time.
	//
	// - bool: whether a ttl is set.
	//
	// - error
	Get(ctx context.Context, experimentId string) (time.Duration, bool, error)
}
