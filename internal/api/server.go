// Package api serves the orchestrator over HTTP.
//
// Requests are not authenticated. The acting identity is the asset in the path
// for registry operations and the X-Caller header for administrative ones, so
// the server must listen on loopback or behind a gateway that authenticates
// clients and sets X-Caller itself.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"NoteVault/internal/acl"
	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/metrics"
	"NoteVault/internal/note"
	"NoteVault/internal/versions"
)

const (
	// maxProofSize is the maximum proof size in bytes.
	maxProofSize = 1 << 20 // 1 MB

	// maxJSONSize bounds JSON request bodies.
	maxJSONSize = 64 << 10

	// callerHeader carries the caller identity of administrative requests.
	callerHeader = "X-Caller"
)

// Ledger is the orchestrator as seen by the API. *acl.Client implements it.
type Ledger interface {
	CreateRegistry(ctx context.Context, args acl.CreateRegistryArgs) error
	Transfer(ctx context.Context, proof []byte) (*note.Result, error)
	Mint(ctx context.Context, proof []byte) error
	Burn(ctx context.Context, proof []byte) error
	Approve(ctx context.Context, proof []byte) error
	GetRegistry(ctx context.Context, asset common.Address) (*acl.Registry, error)
	GetNote(ctx context.Context, hash common.Hash) (*note.NoteStatus, error)
	GetApproval(ctx context.Context, hash common.Hash) ([]byte, error)
	SupportProof(ctx context.Context, version note.Version) (bool, error)
	GetFundsManager(ctx context.Context) (common.Address, error)

	CreateVersion(ctx context.Context, role versions.Role, info versions.Info) error
	UpdateVersion(ctx context.Context, role versions.Role, info versions.Info) error
	Latest(ctx context.Context, role versions.Role, name uint8) (*versions.Info, error)
	LatestMinor(ctx context.Context, role versions.Role, name, major uint8) (*versions.Info, error)
	ListVersions(ctx context.Context, role versions.Role) ([]versions.Info, error)
	Upgrade(ctx context.Context, asset common.Address, role versions.Role, version note.Version) (common.Address, error)
}

// Snapshotter exports the encoded state of an instance.
type Snapshotter interface {
	Snapshot(ctx context.Context, addr common.Address) ([]byte, error)
	Archive(ctx context.Context, addr common.Address) ([]byte, error)
}

// Server is the HTTP API server.
type Server struct {
	addr      string           // addr is the HTTP listen address
	ledger    Ledger           // ledger serves asset and version operations
	snapshots Snapshotter      // snapshots is optional
	metrics   *metrics.Metrics // metrics is served on /metrics when set
	router    *chi.Mux         // router holds every route
	server    *http.Server     // server is the underlying HTTP server
}

// New creates a new HTTP API server. snapshots and m may be nil.
func New(addr string, ledger Ledger, snapshots Snapshotter, m *metrics.Metrics) *Server {
	s := &Server{
		addr:      addr,
		ledger:    ledger,
		snapshots: snapshots,
		metrics:   m,
	}

	s.initRouter()

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) initRouter() {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", callerHeader},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/funds", s.handleFundsManager)

	r.Route("/assets/{asset}", func(r chi.Router) {
		r.Post("/registry", s.handleCreateRegistry)
		r.Get("/registry", s.handleGetRegistry)
		r.Post("/transfer", s.handleTransfer)
		r.Post("/mint", s.handleProof(Ledger.Mint))
		r.Post("/burn", s.handleProof(Ledger.Burn))
		r.Post("/approve", s.handleProof(Ledger.Approve))
		r.Get("/notes/{hash}", s.handleGetNote)
		r.Get("/approvals/{hash}", s.handleGetApproval)
		r.Get("/support/{version}", s.handleSupportProof)
		r.Post("/upgrade/{role}", s.handleUpgrade)
	})

	r.Route("/versions/{role}", func(r chi.Router) {
		r.Get("/", s.handleListVersions)
		r.Post("/", s.handleRecordVersion(Ledger.CreateVersion))
		r.Put("/", s.handleRecordVersion(Ledger.UpdateVersion))
		r.Get("/latest/{name}", s.handleLatest)
		r.Get("/latest/{name}/{major}", s.handleLatestMinor)
	})

	if s.snapshots != nil {
		r.Get("/instances/{address}/snapshot", s.handleSnapshot(s.snapshots.Snapshot))
		r.Get("/instances/{address}/archive", s.handleSnapshot(s.snapshots.Archive))
	}

	s.router = r
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// statusOf maps an error class to an HTTP status.
func statusOf(err error) int {
	switch fault.ClassOf(err) {
	case fault.ClassAuthorization:
		return http.StatusForbidden
	case fault.ClassInvariant:
		return http.StatusConflict
	case fault.ClassOverflow:
		return http.StatusUnprocessableEntity
	case fault.ClassExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure reports an operation error with its class.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	class := fault.ClassOf(err).String()

	logger.Warn("request rejected", "path", r.URL.Path, "class", class, "error", err)

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"class": class,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
