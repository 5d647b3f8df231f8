// Package inspector exposes the scheduler's runtime state over HTTP: a JSON
// task snapshot, a health probe, Prometheus metrics, and a websocket stream
// of task lifecycle events.
package inspector

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/tickrun/tickrun/pkg/core"
	obsprom "github.com/tickrun/tickrun/pkg/observability/prometheus"
)

// Inspector serves the inspection endpoint with fasthttp.
type Inspector struct {
	addr     string
	registry *core.Registry
	logger   core.Logger

	metricsHandler fasthttp.RequestHandler

	mu     sync.Mutex
	server *fasthttp.Server
	ln     net.Listener
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets a custom logger.
func WithLogger(logger core.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// New creates an inspector over the given registry. Start must be called to
// begin serving.
func New(addr string, registry *core.Registry, opts ...Option) *Inspector {
	i := &Inspector{
		addr:     addr,
		registry: registry,
		logger:   core.NewDefaultLogger(),
		metricsHandler: fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(obsprom.DefaultRegistry, promhttp.HandlerOpts{}),
		),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Handler returns the request handler, exposed separately so tests and
// embedding servers can serve it on their own listeners.
func (i *Inspector) Handler() fasthttp.RequestHandler {
	return i.route
}

// Start begins serving on the configured address.
func (i *Inspector) Start() error {
	ln, err := net.Listen("tcp", i.addr)
	if err != nil {
		return err
	}

	server := &fasthttp.Server{
		Handler: i.route,
		Name:    "tickrun-inspector",
	}

	i.mu.Lock()
	i.server = server
	i.ln = ln
	i.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil {
			i.logger.Errorf("inspector server stopped: %v", err)
		}
	}()
	i.logger.Infof("inspector listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, useful when the configured address uses
// port 0.
func (i *Inspector) Addr() net.Addr {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ln == nil {
		return nil
	}
	return i.ln.Addr()
}

// Shutdown gracefully stops the server.
func (i *Inspector) Shutdown(ctx context.Context) error {
	i.mu.Lock()
	server := i.server
	i.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.ShutdownWithContext(ctx)
}

func (i *Inspector) route(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/tasks":
		i.handleTasks(ctx)
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case "/metrics":
		i.metricsHandler(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (i *Inspector) handleTasks(ctx *fasthttp.RequestCtx) {
	snapshot := i.registry.Snapshot()

	body, err := json.Marshal(snapshot)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
