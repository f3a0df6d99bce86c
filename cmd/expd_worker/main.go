package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/expfab/expfab/cmd/expd_worker/tasks"
	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	"github.com/expfab/expfab/pkg/conn/queue"
	queueredis "github.com/expfab/expfab/pkg/conn/queue/redis"
	kback "github.com/expfab/expfab/pkg/configs/backend"
	"github.com/expfab/expfab/pkg/domain"
	experimentpg "github.com/expfab/expfab/pkg/domain/experiment/db/postgres"
	metricpg "github.com/expfab/expfab/pkg/domain/metric/db/postgres"
	"github.com/expfab/expfab/pkg/loop"
	"github.com/expfab/expfab/pkg/utils/filewatch"
)

type handler func(ctx context.Context, payload json.RawMessage) error

func main() {
	logger := log.Default()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config-path", os.Getenv("EXPFAB_BACKEND_CONFIG"), "path to config file",
	)
	flag.Parse()
	configPath := *pconfig
	if configPath == "" {
		logger.Fatal("-config-path or EXPFAB_BACKEND_CONFIG is required")
	}

	{
		// quit to restart when the config is rewritten
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, configPath)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf, err := kback.LoadBackendConfig(configPath)
	if err != nil {
		logger.Fatalf("can not read configration: %s", err)
	}
	control := conf.Control()

	pgpool, err := pgxpool.Connect(ctx, control.Database())
	if err != nil {
		logger.Fatalf("can not connect to database: %s", err)
	}
	defer pgpool.Close()
	pool := kpool.Wrap(pgpool)

	rds := redis.NewClient(&redis.Options{
		Addr:     control.Redis().Address(),
		Password: control.Redis().Password(),
		DB:       control.Redis().DB(),
	})
	defer rds.Close()

	consumer := queueredis.New(rds, control.Queue().Key())

	handlers := map[domain.TaskName]handler{
		domain.TaskExperimentsStop:       tasks.StopHandler(experimentpg.New(pool), logger),
		domain.TaskExperimentsSetMetrics: tasks.SetMetricsHandler(metricpg.New(pool), logger),
	}

	logger.Printf("start consuming %s", control.Queue().Key())
	handled, err := loop.Start(ctx, uint(0), consumeOnce(consumer, handlers, logger))
	logger.Printf("quit after %d commands: %s", handled, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// consumeOnce pops a single command and runs the matching handler.
//
// A handler error does not stop the worker; the command transport is
// at-least-once and the caller re-issues on missing effects. Only a broken
// consumer breaks the loop.
func consumeOnce(
	consumer queue.Consumer,
	handlers map[domain.TaskName]handler,
	logger *log.Logger,
) loop.Task[uint] {
	return func(ctx context.Context, handled uint) (uint, loop.Next) {
		command, err := consumer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return handled, loop.Break(err)
			}
			logger.Printf("can not dequeue: %s", err)
			return handled, loop.Continue(time.Second)
		}
		if command == nil {
			return handled, loop.Continue(0) // timed out. just retry.
		}

		h, ok := handlers[command.Task]
		if !ok {
			logger.Printf("unknown task %s. dropped.", command.Task)
			return handled, loop.Continue(0)
		}

		if err := h(ctx, command.Payload); err != nil {
			logger.Printf("task %s failed: %s", command.Task, err)
			return handled, loop.Continue(0)
		}
		return handled + 1, loop.Continue(0)
	}
}
