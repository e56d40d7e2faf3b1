package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/fundwise/fundwise/internal/database"
	"github.com/fundwise/fundwise/internal/endpoint"
	"github.com/fundwise/fundwise/internal/httpclient"
	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/rest"
	"github.com/fundwise/fundwise/internal/supervisor"
	"github.com/fundwise/fundwise/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Children of the supervision tree, in boot order.
const (
	ChildTelemetry  = "telemetry"
	ChildDatabase   = "database"
	ChildPubSub     = "pubsub"
	ChildHttpClient = "httpclient"
	ChildEndpoint   = "endpoint"
)

// Application wires configuration, database, router, and the process tree.
type Application struct {
	cfg    config.Application
	pool   *pgxpool.Pool
	router *mux.Router
	deps   *Dependencies
	tree   *supervisor.Tree
}

// NewApplication constructs the full application, ready to Run().
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(cfg.Database); err != nil {
		return nil, err
	}
	pool, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	return newApplication(cfg, pool), nil
}

func newApplication(cfg config.Application, pool *pgxpool.Pool) *Application {
	ps := pubsub.New(cfg.PubSub.BufferSize)
	client := httpclient.New(cfg.HttpClient)
	deps := BuildDependencies(pool, ps, client.HTTP(), cfg)
	deps.BudgetWatcher.Subscribe()

	metrics := telemetry.NewHTTPMetrics(cfg.Telemetry.ServiceName)
	router := NewRouter(deps, metrics, cfg)

	poolService := database.NewPoolService(pool, cfg.Database.HealthInterval, cfg.Database.MaxFailedPings)
	reporter := telemetry.NewReporter(cfg.Telemetry.Interval)
	reporter.Register("runtime", telemetry.RuntimePoller)
	reporter.Register(ChildDatabase, poolService.Stats)
	reporter.Register(ChildPubSub, ps.Stats)
	reporter.Register("http", metrics.Stats)
	reporter.Register("exchange", deps.RatesConverter.Stats)

	tree := supervisor.New(cfg.Supervisor)
	tree.Add(ChildTelemetry, reporter)
	tree.Add(ChildDatabase, poolService)
	tree.Add(ChildPubSub, ps)
	tree.Add(ChildHttpClient, client)
	tree.Add(ChildEndpoint, endpoint.New(cfg.Server, router))

	return &Application{cfg: cfg, pool: pool, router: router, deps: deps, tree: tree}
}

// NewRouter builds the HTTP handler: API routes behind the user middleware,
// then the frontend, with fixed JSON bodies for unknown routes and methods.
func NewRouter(deps *Dependencies, metrics *telemetry.HTTPMetrics, cfg config.Application) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = rest.NotFoundHandler()
	r.MethodNotAllowedHandler = rest.MethodNotAllowedHandler()

	r.Use(metrics.Middleware())
	r.Use(rest.Recoverer)
	SetupMiddleware(r, deps)

	RegisterRoutes(r, deps)

	if cfg.Frontend.Enabled {
		frontend := rest.NewFrontendHandler(cfg.Frontend.Dir, "index.html")
		r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
			return !strings.HasPrefix(req.URL.Path, "/api")
		}).Handler(frontend)
	}
	return r
}

// Run serves until ctx is cancelled and releases the pool afterwards.
func (a *Application) Run(ctx context.Context) error {
	defer a.pool.Close()
	log.Infof("Starting fundwise, children: %v", a.tree.Children())

	err := a.tree.Serve(ctx)
	if unstopped := a.tree.UnstoppedServices(); len(unstopped) > 0 {
		log.Warnf("children not stopped in time: %v", unstopped)
	}
	if ctx.Err() != nil {
		log.Info("Shutdown complete")
		return nil
	}
	return err
}
