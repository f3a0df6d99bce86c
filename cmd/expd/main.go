package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/expfab/expfab/cmd/expd/handlers"
	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	kschema "github.com/expfab/expfab/pkg/conn/db/postgres/schema"
	queueredis "github.com/expfab/expfab/pkg/conn/queue/redis"
	kback "github.com/expfab/expfab/pkg/configs/backend"
	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/command"
	"github.com/expfab/expfab/pkg/domain/derive"
	"github.com/expfab/expfab/pkg/domain/event"
	eventpg "github.com/expfab/expfab/pkg/domain/event/db/postgres"
	experimentpg "github.com/expfab/expfab/pkg/domain/experiment/db/postgres"
	ttlredis "github.com/expfab/expfab/pkg/domain/experiment/ttl/redis"
	jobpg "github.com/expfab/expfab/pkg/domain/job/db/postgres"
	metricpg "github.com/expfab/expfab/pkg/domain/metric/db/postgres"
	projectpg "github.com/expfab/expfab/pkg/domain/project/db/postgres"
	"github.com/expfab/expfab/pkg/domain/scope"
	tokenpg "github.com/expfab/expfab/pkg/domain/scope/db/postgres"
	"github.com/expfab/expfab/pkg/domain/scope/key"
	grantredis "github.com/expfab/expfab/pkg/domain/scope/store/redis"
	"github.com/expfab/expfab/pkg/echoutil"
)

func main() {
	configPath := flag.String("config-path", "", "backend config path")
	schemaRepo := flag.String("schema-repo", "", "schema repository directory. empty disables version watching")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	logger := log.Default()

	conf, err := kback.LoadBackendConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}
	control := conf.Control()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	ctx := context.Background()

	pgpool, err := pgxpool.Connect(ctx, control.Database())
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer pgpool.Close()
	pool := kpool.Wrap(pgpool)

	var sch kschema.Schema = kschema.Null()
	if *schemaRepo != "" {
		sch = kschema.New(pool, *schemaRepo)
		if err := sch.Upgrade(ctx); err != nil {
			log.Fatalf("can not upgrade schema: %s", err)
		}
		sctx, cancel := sch.Context(ctx)
		defer cancel()
		context.AfterFunc(sctx, func() {
			log.Printf("schema repository requires a newer schema: %s", context.Cause(sctx))
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by schema update: %s", err)
			}
		})
	}

	rds := redis.NewClient(&redis.Options{
		Addr:     control.Redis().Address(),
		Password: control.Redis().Password(),
		DB:       control.Redis().DB(),
	})
	defer rds.Close()

	dbExperiment := experimentpg.New(pool)
	dbJob := jobpg.New(pool)
	dbProject := projectpg.New(pool)
	dbMetric := metricpg.New(pool)
	dbToken := tokenpg.New(pool)

	registry := event.DefaultRegistry(eventpg.New(pool), logger)
	dispatcher := command.NewDispatcher(
		queueredis.New(rds, control.Queue().Key()),
	)
	engine := derive.New(dbExperiment, registry)
	ttlStore := ttlredis.New(rds, control.Scope().TTLPrefix())

	signKey := key.HS256Static(
		time.Now().AddDate(10, 0, 0),
		[]byte(control.Scope().TokenSecret()),
	)
	authorizer := scope.NewAuthorizer(
		grantredis.New(rds, control.Scope().GrantPrefix()),
		dbExperiment, dbToken, key.Fixed(signKey),
	)

	api := func(s string) string { return "/api/" + s }
	{
		e.POST(
			api("experiments"),
			handlers.CreateExperimentHandler(dbExperiment, dbProject, registry, ttlStore),
		)
		e.GET(api("experiments"), handlers.FindExperimentHandler(dbExperiment, dbProject, registry))
		e.GET(api("experiments/:experimentId/"), handlers.GetExperimentHandler(dbExperiment, registry))
		e.PUT(api("experiments/:experimentId/"), handlers.UpdateExperimentHandler(dbExperiment, registry))
		e.DELETE(api("experiments/:experimentId/"), handlers.DeleteExperimentHandler(dbExperiment, registry))

		for path, strategy := range map[string]domain.CloneStrategy{
			"experiments/:experimentId/restart": domain.StrategyRestart,
			"experiments/:experimentId/resume":  domain.StrategyResume,
			"experiments/:experimentId/copy":    domain.StrategyCopy,
		} {
			e.PUT(api(path), handlers.CloneExperimentHandler(engine, dbExperiment, ttlStore, strategy))
		}

		e.GET(
			api("experiments/:experimentId/coderef"),
			handlers.GetCodeReferenceHandler(dbExperiment),
		)

		e.PUT(
			api("experiments/:experimentId/stop"),
			handlers.StopExperimentHandler(dbExperiment, registry, dispatcher),
		)
	}

	{
		e.GET(
			api("experiments/:experimentId/statuses"),
			handlers.GetExperimentStatusesHandler(dbExperiment, registry),
		)
		e.POST(
			api("experiments/:experimentId/statuses"),
			handlers.NewExperimentStatusHandler(dbExperiment, registry),
		)

		e.GET(
			api("experiments/:experimentId/metrics"),
			handlers.GetExperimentMetricsHandler(dbExperiment, dbMetric, registry),
		)
		e.POST(
			api("experiments/:experimentId/metrics"),
			handlers.PostExperimentMetricsHandler(dbMetric, dispatcher),
		)
	}

	{
		e.GET(
			api("experiments/:experimentId/jobs"),
			handlers.FindJobHandler(dbExperiment, dbJob, registry),
		)
		e.POST(api("experiments/:experimentId/jobs"), handlers.CreateJobHandler(dbJob))
		e.GET(api("jobs/:jobId/"), handlers.GetJobHandler(dbJob, registry))
		e.GET(api("jobs/:jobId/statuses"), handlers.GetJobStatusesHandler(dbJob, registry))
		e.POST(api("jobs/:jobId/statuses"), handlers.NewJobStatusHandler(dbJob, registry))
	}

	{
		e.POST(
			api("scope/tokens"),
			handlers.GrantScopeHandler(authorizer, dbExperiment, control.Scope().TokenTTL()),
		)
		e.POST(api("scope/exchange"), handlers.ExchangeScopeTokenHandler(authorizer))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	addr := fmt.Sprintf(":%d", conf.Port())
	cert, certkey := *pcert, *pkey
	if cert != "" && certkey != "" {
		e.Logger.Fatal(e.StartTLS(addr, cert, certkey))
	} else {
		e.Logger.Fatal(e.Start(addr))
	}
}
