// Package node serves a ledger engine over HTTP: JSON-RPC, a websocket
// event feed and Prometheus metrics
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/govm-net/counter/vm"
)

const (
	RPCEndpoint     = "/rpc"
	EventsEndpoint  = "/events"
	MetricsEndpoint = "/metrics"
	HealthEndpoint  = "/healthz"
)

type Config struct {
	ListenAddress     string
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Node owns the HTTP surface of one engine
type Node struct {
	engine   *vm.Engine
	config   Config
	metrics  *metrics
	registry *prometheus.Registry
	handler  http.Handler
	logger   *slog.Logger

	quit     chan struct{}
	quitOnce sync.Once
}

func New(engine *vm.Engine, config Config) (*Node, error) {
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = 5 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	registry := prometheus.NewRegistry()
	m, err := newMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	n := &Node{
		engine:   engine,
		config:   config,
		metrics:  m,
		registry: registry,
		logger:   slog.Default().With("component", "node"),
		quit:     make(chan struct{}),
	}

	rpcServer, err := newRPCHandler(&LedgerService{engine: engine, metrics: m}, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s service: %w", ServiceName, err)
	}

	router := mux.NewRouter()
	router.Handle(RPCEndpoint, rpcServer).Methods(http.MethodPost)
	router.HandleFunc(EventsEndpoint, n.serveEvents).Methods(http.MethodGet)
	router.Handle(MetricsEndpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc(HealthEndpoint, n.serveHealth).Methods(http.MethodGet)

	n.handler = cors.New(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	n.logger.Info("API created", "allowedOrigins", config.AllowedOrigins)
	return n, nil
}

func newRPCHandler(service any, name string) (http.Handler, error) {
	server := rpc.NewServer()
	codec := json2.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if err := server.RegisterService(service, name); err != nil {
		return nil, err
	}
	return server, nil
}

// Handler returns the routed, CORS-wrapped HTTP handler
func (n *Node) Handler() http.Handler {
	return n.handler
}

// Registry exposes the metrics registry
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

func (n *Node) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]uint64{"height": n.engine.BlockHeight()})
}

// Run listens on the configured address and serves until ctx is done
func (n *Node) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", n.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.config.ListenAddress, err)
	}
	return n.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and
// closes open event subscriptions
func (n *Node) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           n.handler,
		ReadHeaderTimeout: n.config.ReadHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.logger.Info("Serving", "address", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		n.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), n.config.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		_ = srv.Close()
		return err
	})
	return g.Wait()
}

// Close ends every open event subscription
func (n *Node) Close() {
	n.quitOnce.Do(func() { close(n.quit) })
}
