package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/sequencer"
	stg "github.com/vocdoni/z-orders/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage instance and optionally the
// sequencer, used to report its status. ArtifactsDir is the circuit
// artifact cache served to other nodes, circuits.BaseDir if empty.
type APIConfig struct {
	Host         string
	Port         int
	Storage      *stg.Storage
	Sequencer    *sequencer.Sequencer // Optional
	ArtifactsDir string
}

// API type represents the order submission HTTP server.
type API struct {
	router    *chi.Mux
	storage   *stg.Storage
	sequencer *sequencer.Sequencer
	server    *http.Server
	listener  net.Listener

	artifactsDir string
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	a, err := newAPI(conf)
	if err != nil {
		return nil, err
	}
	a.listener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", a.listener.Addr().String())
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// newAPI builds the API and its router without starting the server.
func newAPI(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	a := &API{
		storage:      conf.Storage,
		sequencer:    conf.Sequencer,
		artifactsDir: conf.ArtifactsDir,
	}
	if a.artifactsDir == "" {
		a.artifactsDir = circuits.BaseDir
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	log.Infow("register handler", "endpoint", OrdersEndpoint, "method", "POST")
	a.router.Post(OrdersEndpoint, a.newOrder)
	log.Infow("register handler", "endpoint", ValidateOrderEndpoint, "method", "POST")
	a.router.Post(ValidateOrderEndpoint, a.validateOrder)
	log.Infow("register handler", "endpoint", OrderEndpoint, "method", "GET")
	a.router.Get(OrderEndpoint, a.order)
	log.Infow("register handler", "endpoint", ArtifactEndpoint, "method", "GET")
	a.router.Get(ArtifactEndpoint, a.artifact)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
