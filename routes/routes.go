package routes

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shipmentledger/handlers"
	"shipmentledger/logger"
)

const requestIDHeader = "X-Request-ID"

// CORS middleware
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRequestID keeps a caller-supplied X-Request-ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(handlers.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("request_id", handlers.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case rec.status >= 500:
			log.Error("HTTP Request", fields...)
		case rec.status >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	})
}

type Handlers struct {
	Requests    *handlers.RequestHandler
	Assignments *handlers.AssignmentHandler
	Ledger      *handlers.LedgerHandler
	Summary     *handlers.SummaryHandler
	Health      *handlers.HealthHandler
}

// SetupRoutes registers every endpoint on mux, each behind panic recovery.
func SetupRoutes(mux *http.ServeMux, h Handlers, log *zap.Logger) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, handlers.RecoverWrapper(log, fn))
	}

	// Transport requests
	handle("POST /requests", h.Requests.CreateRequest)
	handle("GET /requests/{id}", h.Requests.GetRequest)

	// Vehicle assignments
	handle("GET /requests/{id}/transporter-details", h.Assignments.TransporterDetails)
	handle("POST /requests/{id}/assignments", h.Assignments.CreateAssignment)
	handle("POST /requests/{id}/assignments/batch", h.Assignments.SubmitBatch)
	handle("PUT /assignments/{id}", h.Assignments.UpdateAssignment)

	// Payment ledger
	handle("GET /requests/{id}/transactions", h.Ledger.Transactions)
	handle("GET /transactions/{id}/payments", h.Ledger.Payments)
	handle("POST /payments", h.Ledger.CreatePayment)
	handle("PUT /transactions/{id}/payments", h.Ledger.AppendPayment)

	// Reconciliation
	handle("GET /requests/{id}/summary", h.Summary.Summary)
	handle("DELETE /requests/{id}/summary/cache", h.Summary.InvalidateCache)
	handle("GET /reports/summary", h.Summary.Report)

	if h.Health != nil {
		handle("GET /healthz", h.Health.Health)
	}
}

// NewRouter builds the full handler chain: request id, access log, CORS, routes.
func NewRouter(h Handlers, log *zap.Logger) http.Handler {
	log = logger.OrNop(log)
	mux := http.NewServeMux()
	SetupRoutes(mux, h, log)
	return withRequestID(withLogging(log, withCORS(mux)))
}
