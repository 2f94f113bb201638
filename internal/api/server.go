// Package api serves the Iris and loan-approval classifiers over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/ml"
	"ml-api/internal/predict"
	"ml-api/internal/storage"
)

// Recorder receives request and prediction measurements.
// *metrics.MetricsWrapper implements it.
type Recorder interface {
	PredictionsAdd(model string, n int)
	FailuresInc(model string)
	ValidationFailuresInc(model string)
	LatencyObserve(model string, seconds float64)
	BatchSizeObserve(n int)
	ModelAgeSet(model string, seconds float64)
	StreamConnectionsAdd(delta float64)
	AuditWriteErrorsInc()
	RequestObserve(path, method string, code int, seconds float64)
}

// Auditor persists served predictions. *storage.Store implements it.
type Auditor interface {
	StorePrediction(record storage.PredictionRecord) error
}

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBatchSize int
}

// Deps are the optional collaborators of a Server. Nil fields are skipped.
type Deps struct {
	Registry *ml.ModelManager
	Audit    Auditor
	Recorder Recorder
	Gatherer prometheus.Gatherer
}

// Server provides the HTTP API for model predictions
type Server struct {
	store    *ml.Store
	iris     *predict.Adapter
	loan     *predict.Adapter
	registry *ml.ModelManager
	audit    Auditor
	recorder Recorder
	maxBatch int
	upgrader websocket.Upgrader
	handler  http.Handler
	server   *http.Server
}

// NewServer wires the handlers for a loaded model store.
func NewServer(store *ml.Store, cfg Config, deps Deps) *Server {
	s := &Server{
		store:    store,
		iris:     predict.NewAdapter(store.Iris),
		loan:     predict.NewAdapter(store.Loan),
		registry: deps.Registry,
		audit:    deps.Audit,
		recorder: deps.Recorder,
		maxBatch: cfg.MaxBatchSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.maxBatch <= 0 {
		s.maxBatch = common.DefaultMaxBatchSize
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /iris/predict", s.handleIrisPredict)
	mux.HandleFunc("POST /loan/predict", s.handleLoanPredict)
	mux.HandleFunc("POST /loan/predict/batch", s.handleLoanBatch)
	mux.HandleFunc("GET /loan/predict/stream", s.handleLoanStream)
	mux.HandleFunc("GET /model/info", s.handleModelInfo)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.handler = s.withRequestID(s.withAccessLog(s.withRecover(mux)))
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	s.observeModelAge()
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) observeModelAge() {
	now := time.Now()
	if !s.store.Iris.TrainedAt.IsZero() {
		s.recorder.ModelAgeSet(common.ModelIris, now.Sub(s.store.Iris.TrainedAt).Seconds())
	}
	if !s.store.Loan.TrainedAt.IsZero() {
		s.recorder.ModelAgeSet(common.ModelLoan, now.Sub(s.store.Loan.TrainedAt).Seconds())
	}
}

type nopRecorder struct{}

func (nopRecorder) PredictionsAdd(string, int) {}
func (nopRecorder) FailuresInc(string) {}
func (nopRecorder) ValidationFailuresInc(string) {}
func (nopRecorder) LatencyObserve(string, float64) {}
func (nopRecorder) BatchSizeObserve(int) {}
func (nopRecorder) ModelAgeSet(string, float64) {}
func (nopRecorder) StreamConnectionsAdd(float64) {}
func (nopRecorder) AuditWriteErrorsInc() {}
func (nopRecorder) RequestObserve(string, string, int, float64) {}
