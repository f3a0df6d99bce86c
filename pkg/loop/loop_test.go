package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/expfab/expfab/pkg/loop"
)

func TestStart(t *testing.T) {
	t.Run("it repeats tasks until Break(nil)", func(t *testing.T) {
		ctx := context.Background()

		actual, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			v += 1
			if 10 <= v {
				return v, loop.Break(nil)
			}
			return v, loop.Continue(0)
		})

		if err != nil {
			t.Fatal("unexpected error: ", err)
		}
		if actual != 10 {
			t.Errorf("the last value is not 10: %d", actual)
		}
	})

	t.Run("it breaks with error passed to Break", func(t *testing.T) {
		ctx := context.Background()
		expectedErr := errors.New("fake error")

		actual, err := loop.Start(ctx, "initial", func(_ context.Context, v string) (string, loop.Next) {
			return "last", loop.Break(expectedErr)
		})

		if !errors.Is(err, expectedErr) {
			t.Errorf("error is not one passed to Break: %v", err)
		}
		if actual != "last" {
			t.Errorf("the last value is not returned: %s", actual)
		}
	})

	t.Run("it stops when context is canceled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		actual, err := loop.Start(ctx, 42, func(_ context.Context, v int) (int, loop.Next) {
			called = true
			return v, loop.Continue(0)
		})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error is not context.Canceled: %v", err)
		}
		if called {
			t.Error("task is called even though context is canceled")
		}
		if actual != 42 {
			t.Errorf("initial value is not returned: %d", actual)
		}
	})

	t.Run("it stops during interval when context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		count := 0
		_, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			count += 1
			if count == 3 {
				cancel()
			}
			return v + 1, loop.Continue(10 * time.Millisecond)
		})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error is not context.Canceled: %v", err)
		}
		if count != 3 {
			t.Errorf("task ran %d times, expected 3", count)
		}
	})
}
