package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/api/middleware"
	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/feed"
	"github.com/dd0wney/cluso-tara/pkg/health"
	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/metrics"
	"github.com/dd0wney/cluso-tara/pkg/report"
	"github.com/dd0wney/cluso-tara/pkg/risk"
	"github.com/dd0wney/cluso-tara/pkg/store"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Options configures an API server. Store is required; every other
// collaborator is optional and replaced by a sensible default or
// disabled when absent.
type Options struct {
	Store        store.ProjectStore
	Recalculator *risk.ProjectRecalculator // nil selects the default policy
	History      audit.Recorder            // nil selects an in-memory log
	Feed         *feed.Feed
	Metrics      *metrics.Registry
	GraphQL      http.Handler
	Logger       logging.Logger

	CORS           *middleware.CORSConfig
	RateLimit      *middleware.RateLimitConfig // nil disables rate limiting
	TrustedProxies string                      // comma-separated CIDRs for client IP resolution
	MaxBodyBytes   int64

	Version      string
	PolicySource string // where the risk policy came from, for health reporting
}

// Server hosts the project-management HTTP API. Every mutation runs the
// full recalculation pass before the project is persisted, so no stored
// snapshot ever carries stale derived values.
type Server struct {
	store         store.ProjectStore
	recalc        *risk.ProjectRecalculator
	reports       *report.Generator
	history       audit.Recorder
	historyLog    *audit.HistoryLog
	feed          *feed.Feed
	metrics       *metrics.Registry
	healthChecker *health.HealthChecker
	graphql       http.Handler
	log           logging.Logger

	corsConfig   *middleware.CORSConfig
	rateLimiter  *middleware.RateLimiter
	trusted      []*net.IPNet
	maxBodyBytes int64

	version      string
	policySource string
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("api: a project store is required")
	}

	s := &Server{
		store:        opts.Store,
		recalc:       opts.Recalculator,
		history:      opts.History,
		feed:         opts.Feed,
		metrics:      opts.Metrics,
		graphql:      opts.GraphQL,
		log:          opts.Logger,
		corsConfig:   opts.CORS,
		maxBodyBytes: opts.MaxBodyBytes,
		version:      opts.Version,
		policySource: opts.PolicySource,
		startTime:    time.Now(),
	}

	if s.recalc == nil {
		s.recalc = risk.NewProjectRecalculator(nil)
	}
	s.reports = report.NewGenerator(s.recalc)
	if s.history == nil {
		s.history = audit.NewHistoryLog(10000)
	}
	if log, ok := s.history.(*audit.HistoryLog); ok {
		s.historyLog = log
	}
	if s.log == nil {
		s.log = logging.DefaultLogger()
	}
	s.log = s.log.With(logging.Component("api"))
	if s.corsConfig == nil {
		s.corsConfig = middleware.DefaultCORSConfig()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = defaultMaxBodyBytes
	}
	if s.version == "" {
		s.version = "1.0.0"
	}
	if s.policySource == "" {
		s.policySource = "defaults"
	}
	if opts.RateLimit != nil {
		s.rateLimiter = middleware.NewRateLimiter(opts.RateLimit)
	}
	if opts.TrustedProxies != "" {
		s.trusted = middleware.ParseTrustedProxies(opts.TrustedProxies)
	}

	s.healthChecker = s.buildHealthChecker()

	return s, nil
}

func (s *Server) buildHealthChecker() *health.HealthChecker {
	hc := health.NewHealthChecker()

	hc.RegisterLivenessCheck("api", func() health.Check {
		return health.SimpleCheck("api")
	})

	hc.RegisterReadinessCheck("store", health.StoreCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.store.Ping(ctx)
	}))

	hc.RegisterCheck("policy", health.PolicyCheck(func() (bool, string) {
		return s.recalc.Policy() != nil, s.policySource
	}))

	if s.feed != nil {
		hc.RegisterCheck("feed", health.FeedCheck(func() (int, bool, bool) {
			return s.feed.SubscriberCount(), s.feed.WireEnabled(), s.feed.WireRunning()
		}))
	}

	return hc
}

// Shutdown releases server-held resources. The HTTP listener itself is
// owned by the caller.
func (s *Server) Shutdown() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// Handler assembles the route table and middleware chain. The returned
// handler is what callers mount on an HTTP listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("/health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("/ready", s.healthChecker.ReadinessHandler())
	mux.HandleFunc("/live", s.healthChecker.LivenessHandler())
	mux.HandleFunc("/metrics", s.handleMetrics)

	// GraphQL endpoint
	mux.HandleFunc("/graphql", s.handleGraphQL)

	// Project endpoints
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectPath) // everything project-scoped
	mux.HandleFunc("/import", s.handleImport)
	mux.HandleFunc("/history", s.handleHistory)

	// Middleware chain, outermost first
	var handler http.Handler = mux
	handler = middleware.BodySizeLimit(s.maxBodyBytes)(handler)
	if s.rateLimiter != nil {
		handler = middleware.RateLimit(s.rateLimiter, s.clientID)(handler)
	}
	handler = middleware.SecurityHeaders()(handler)
	handler = middleware.CORS(s.corsConfig)(handler)
	if s.metrics != nil {
		handler = middleware.Metrics(s.metrics)(handler)
	}
	handler = middleware.Logging(s.log, middleware.GetRequestID)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.PanicRecovery(s.log)(handler)

	return handler
}

func (s *Server) clientID(r *http.Request) string {
	return middleware.GetClientIP(r, s.trusted)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.metrics == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Metrics not enabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	// Check if GraphQL handler is initialized
	if s.graphql == nil {
		s.respondError(w, http.StatusServiceUnavailable, "GraphQL endpoint not available")
		return
	}
	s.graphql.ServeHTTP(w, r)
}

// handleProjectPath dispatches every project-scoped route. Paths follow
// /projects/{id}[/{collection}[/{entity}[/links/{child}]]] plus the
// fixed verbs recalculate, export, history and reports.
func (s *Server) handleProjectPath(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/projects/")
	if len(parts) == 0 {
		s.respondError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	projectID := parts[0]
	if !s.checkPathID(w, projectID) {
		return
	}

	switch {
	case len(parts) == 1:
		s.NewMethodRouter(w, r).
			Get(func() { s.getProject(w, r, projectID) }).
			Put(func() { s.updateProject(w, r, projectID) }).
			Delete(func() { s.deleteProject(w, r, projectID) }).
			NotAllowed()

	case len(parts) == 2 && parts[1] == "recalculate":
		s.NewMethodRouter(w, r).
			Post(func() { s.recalculateProject(w, r, projectID) }).
			NotAllowed()

	case len(parts) == 2 && parts[1] == "export":
		s.NewMethodRouter(w, r).
			Get(func() { s.exportProject(w, r, projectID) }).
			NotAllowed()

	case len(parts) == 2 && parts[1] == "history":
		s.NewMethodRouter(w, r).
			Get(func() { s.getProjectHistory(w, r, projectID) }).
			NotAllowed()

	case len(parts) == 3 && parts[1] == "reports":
		s.NewMethodRouter(w, r).
			Get(func() { s.getReport(w, r, projectID, parts[2]) }).
			NotAllowed()

	case len(parts) == 5 && parts[1] == "nodes" && parts[3] == "links":
		if !s.checkPathID(w, parts[2]) || !s.checkPathID(w, parts[4]) {
			return
		}
		s.NewMethodRouter(w, r).
			Put(func() { s.linkNodes(w, r, projectID, parts[2], parts[4]) }).
			Delete(func() { s.unlinkNodes(w, r, projectID, parts[2], parts[4]) }).
			NotAllowed()

	case len(parts) == 2:
		s.handleCollection(w, r, projectID, parts[1])

	case len(parts) == 3:
		if !s.checkPathID(w, parts[2]) {
			return
		}
		s.handleEntity(w, r, projectID, parts[1], parts[2])

	default:
		s.respondError(w, http.StatusNotFound, "Not found")
	}
}

// handleCollection routes collection-level operations: POST creates an
// entity, GET lists the collection from the stored snapshot.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request, projectID, collection string) {
	switch collection {
	case "assets":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createAsset(w, r, projectID) }).
			NotAllowed()
	case "damage-scenarios":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createDamageScenario(w, r, projectID) }).
			NotAllowed()
	case "threats":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createThreat(w, r, projectID) }).
			NotAllowed()
	case "threat-scenarios":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createScenario(w, r, projectID) }).
			NotAllowed()
	case "nodes":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createNode(w, r, projectID) }).
			NotAllowed()
	case "configurations":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createConfiguration(w, r, projectID) }).
			NotAllowed()
	case "controls":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createControl(w, r, projectID) }).
			NotAllowed()
	case "goals":
		s.NewMethodRouter(w, r).
			Get(func() { s.listCollection(w, r, projectID, collection) }).
			Post(func() { s.createGoal(w, r, projectID) }).
			NotAllowed()
	default:
		s.respondError(w, http.StatusNotFound, "Unknown collection")
	}
}

// handleEntity routes entity-level operations
func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request, projectID, collection, entityID string) {
	switch collection {
	case "assets":
		s.NewMethodRouter(w, r).
			Get(func() { s.getAsset(w, r, projectID, entityID) }).
			Put(func() { s.updateAsset(w, r, projectID, entityID) }).
			Delete(func() { s.deleteAsset(w, r, projectID, entityID) }).
			NotAllowed()
	case "damage-scenarios":
		s.NewMethodRouter(w, r).
			Get(func() { s.getDamageScenario(w, r, projectID, entityID) }).
			Put(func() { s.updateDamageScenario(w, r, projectID, entityID) }).
			Delete(func() { s.deleteDamageScenario(w, r, projectID, entityID) }).
			NotAllowed()
	case "threats":
		s.NewMethodRouter(w, r).
			Get(func() { s.getThreat(w, r, projectID, entityID) }).
			Put(func() { s.updateThreat(w, r, projectID, entityID) }).
			Delete(func() { s.deleteThreat(w, r, projectID, entityID) }).
			NotAllowed()
	case "threat-scenarios":
		s.NewMethodRouter(w, r).
			Get(func() { s.getScenario(w, r, projectID, entityID) }).
			Put(func() { s.updateScenario(w, r, projectID, entityID) }).
			Delete(func() { s.deleteScenario(w, r, projectID, entityID) }).
			NotAllowed()
	case "nodes":
		s.NewMethodRouter(w, r).
			Get(func() { s.getNode(w, r, projectID, entityID) }).
			Put(func() { s.updateNode(w, r, projectID, entityID) }).
			Delete(func() { s.deleteNode(w, r, projectID, entityID) }).
			NotAllowed()
	case "configurations":
		s.NewMethodRouter(w, r).
			Get(func() { s.getConfiguration(w, r, projectID, entityID) }).
			Put(func() { s.updateConfiguration(w, r, projectID, entityID) }).
			Delete(func() { s.deleteConfiguration(w, r, projectID, entityID) }).
			NotAllowed()
	case "controls":
		s.NewMethodRouter(w, r).
			Get(func() { s.getControl(w, r, projectID, entityID) }).
			Put(func() { s.updateControl(w, r, projectID, entityID) }).
			Delete(func() { s.deleteControl(w, r, projectID, entityID) }).
			NotAllowed()
	case "goals":
		s.NewMethodRouter(w, r).
			Get(func() { s.getGoal(w, r, projectID, entityID) }).
			Put(func() { s.updateGoal(w, r, projectID, entityID) }).
			Delete(func() { s.deleteGoal(w, r, projectID, entityID) }).
			NotAllowed()
	default:
		s.respondError(w, http.StatusNotFound, "Unknown collection")
	}
}
