// Package api is the HTTP surface of the bowtie service: table import and
// export, diagram builds, risk scoring, vocabulary suggestions, the guided
// workflow, the layer catalog and the inference boundary.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecorisk/bowtie/pkg/auth"
	"github.com/ecorisk/bowtie/pkg/backup"
	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/cache"
	"github.com/ecorisk/bowtie/pkg/diagram"
	gql "github.com/ecorisk/bowtie/pkg/graphql"
	"github.com/ecorisk/bowtie/pkg/inference"
	"github.com/ecorisk/bowtie/pkg/layers"
	"github.com/ecorisk/bowtie/pkg/logging"
	"github.com/ecorisk/bowtie/pkg/metrics"
	"github.com/ecorisk/bowtie/pkg/vocab"
	"github.com/ecorisk/bowtie/pkg/workflow"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server holds the wired components and the session's current table.
type Server struct {
	mu    sync.RWMutex
	table *bowtie.Table

	builder    *diagram.Builder
	cache      *cache.GraphCache
	store      workflow.Store
	vocabulary *vocab.Vocabulary
	linker     *vocab.Linker
	catalog    *layers.Catalog
	inference  *inference.Service
	uploader   *backup.Uploader

	jwt   *auth.JWTManager
	users *auth.UserStore

	corsOrigins []string

	metrics   *metrics.Registry
	logger    logging.Logger
	startTime time.Time
}

// Deps carries the constructor dependencies. Nil optional fields disable
// their feature.
type Deps struct {
	Store      workflow.Store
	Vocabulary *vocab.Vocabulary
	Catalog    *layers.Catalog
	Inference  *inference.Service
	Uploader   *backup.Uploader
	JWT        *auth.JWTManager
	Users      *auth.UserStore
	Metrics    *metrics.Registry
	Logger     logging.Logger
	CacheSize  int

	// CORSOrigins restricts cross-origin callers. Empty, or a "*" entry,
	// allows any origin.
	CORSOrigins []string
}

// NewServer wires a server from its dependencies.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.Default()
	}
	store := deps.Store
	if store == nil {
		store = workflow.NewMemoryStore()
	}
	vocabulary := deps.Vocabulary
	if vocabulary == nil {
		vocabulary = &vocab.Vocabulary{}
	}

	s := &Server{
		table:       &bowtie.Table{},
		builder:     diagram.NewBuilder(logger.With(logging.Component("diagram"))),
		cache:       cache.New(deps.CacheSize),
		store:       store,
		vocabulary:  vocabulary,
		linker:      vocab.NewLinker(vocabulary, 0),
		catalog:     deps.Catalog,
		inference:   deps.Inference,
		uploader:    deps.Uploader,
		jwt:         deps.JWT,
		users:       deps.Users,
		corsOrigins: deps.CORSOrigins,
		metrics:     reg,
		logger:      logger.With(logging.Component("api")),
		startTime:   time.Now(),
	}
	return s
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(
		s.metrics.Prometheus(), promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/table", s.handleTableUpload)
	mux.HandleFunc("GET /api/table", s.handleTableGet)
	mux.HandleFunc("GET /api/table/export", s.handleTableExport)

	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/risk/summary", s.handleRiskSummary)
	mux.HandleFunc("POST /api/risk/score", s.handleRiskScore)

	mux.HandleFunc("GET /api/vocabulary", s.handleVocabulary)
	mux.HandleFunc("GET /api/vocabulary/suggest", s.handleVocabSuggest)

	mux.HandleFunc("GET /api/layers", s.handleLayers)
	mux.HandleFunc("GET /api/layers/{name}/legend", s.handleLayerLegend)

	mux.HandleFunc("POST /api/workflow/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/workflow/sessions", s.handleSessionList)
	mux.HandleFunc("GET /api/workflow/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("PUT /api/workflow/sessions/{id}", s.handleSessionUpdate)
	mux.HandleFunc("DELETE /api/workflow/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("POST /api/workflow/sessions/{id}/advance", s.handleSessionAdvance)
	mux.HandleFunc("POST /api/workflow/sessions/{id}/back", s.handleSessionBack)
	mux.HandleFunc("POST /api/workflow/sessions/{id}/export", s.handleSessionExport)

	mux.HandleFunc("GET /api/inference/capabilities", s.handleCapabilities)
	mux.HandleFunc("POST /api/inference/posterior", s.handlePosterior)
	mux.HandleFunc("POST /api/inference/predict", s.handlePredict)

	if schema, err := gql.NewSchema(s); err == nil {
		mux.Handle("POST /graphql", gql.NewHandler(schema))
	} else {
		s.logger.Error("graphql schema generation failed", logging.Error(err))
	}

	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.metricsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.corsMiddleware(handler)
	return handler
}

// ReplaceTable swaps in a new table and clears the graph cache; any change
// to the data invalidates every cached build.
func (s *Server) ReplaceTable(table *bowtie.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.cache.Clear()
	s.metrics.CacheSize.Set(0)
}

func (s *Server) currentTable() *bowtie.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// CurrentGraph implements graphql.Provider.
func (s *Server) CurrentGraph(opts diagram.Options) *diagram.Graph {
	table := s.currentTable()
	if len(table.Rows) == 0 {
		return nil
	}
	return s.buildCached(table, opts)
}

// CurrentSummary implements graphql.Provider.
func (s *Server) CurrentSummary() bowtie.Summary {
	return s.currentTable().Summarize()
}

func (s *Server) buildCached(table *bowtie.Table, opts diagram.Options) *diagram.Graph {
	key := diagram.CacheKey(table, opts)

	start := time.Now()
	graph, fromCache := s.cache.GetOrBuild(key, func() *diagram.Graph {
		return s.builder.Build(table, opts)
	})
	s.metrics.RecordGraphBuild(fromCache, time.Since(start),
		len(graph.Nodes), len(graph.Edges))
	s.metrics.CacheSize.Set(float64(s.cache.Size()))
	return graph
}
