package loop

import (
	"context"
	"fmt"
	"time"
)

type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}

	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// continue loop.
//
// args:
//
// - interval: sleep before starting next task.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// break loop.
//
// args:
//
// - err: If you break loop with error, set non nil value.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// single step of a loop.
//
// It receives (context, last value) and returns (new value, Continue() or Break()).
// Zero value Next{} equals Continue(0), that is, "go next ASAP!".
type Task[T any] func(context.Context, T) (T, Next)

// Start task in loop.
//
// Example: consume commands from a queue until the context is done,
// counting handled messages:
//
//	Start(ctx, 0, func(ctx context.Context, n int) (int, loop.Next) {
//		cmd, err := consumer.Dequeue(ctx)
//		if err != nil {
//			return n, loop.Break(err)
//		}
//		if cmd == nil {
//			return n, loop.Continue(time.Second) // queue is empty
//		}
//		handle(cmd)
//		return n + 1, loop.Continue(0)
//	})
//
// Args
//
// - ctx : context. When this context get be Done, loop will be break with ctx.Err().
//
// - init : your task will be called as task(ctx, init) at the first time.
//
// - task : task receiving (context, last value), then return (new value, Continue() or Break()).
//
// Returns
//
// - T: T task returns at last.
// This value is always returned whether or not it returns non-nil error together.
//
// - error: error in Break(error). It is nil when loop breaks with Break(nil).
func Start[T any](ctx context.Context, init T, task Task[T]) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		v, n := task(ctx, value)

		if n.err != nil {
			return v, n.err
		} else if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			// shutting down is priority. it should come first, and checking timer later.
			if !timer.Stop() {
				<-timer.C // drain. see: time.Timer.Stop's document
			}
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
