package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/dealscore/internal/aggregation"
	"github.com/sawpanic/dealscore/internal/audit"
	"github.com/sawpanic/dealscore/internal/infrastructure/db"
	"github.com/sawpanic/dealscore/internal/orchestrator"
)

// Handlers wires the admin routes to the scoring pipeline's collaborators.
type Handlers struct {
	orchestrator *orchestrator.Orchestrator
	auditor      *audit.Computer
	aggregator   *aggregation.Aggregator
	dbManager    *db.Manager
	metrics      *MetricsRegistry
}

// NewHandlers creates the handler set for the admin surface.
func NewHandlers(o *orchestrator.Orchestrator, auditor *audit.Computer, agg *aggregation.Aggregator, dbManager *db.Manager, metrics *MetricsRegistry) *Handlers {
	return &Handlers{orchestrator: o, auditor: auditor, aggregator: agg, dbManager: dbManager, metrics: metrics}
}

// Metrics exposes the handler set's collector registry so the server
// serves /metrics from the same instance the handlers observe into.
func (h *Handlers) Metrics() *MetricsRegistry {
	return h.metrics
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("handlers: failed to encode json response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	if requestID == "" {
		requestID = "unknown"
	}
	h.writeJSON(w, status, errorResponse{Error: code, Message: message, RequestID: requestID, Timestamp: time.Now().UTC()})
}

// Health reports database liveness for the /healthz route.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	check := h.dbManager.Health().Health(r.Context())
	status := http.StatusOK
	if !check.Healthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, check)
}

// Recalculate handles POST /deals/{id}/recalculate.
func (h *Handlers) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := dealIDFromPath(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_deal_id", err.Error())
		return
	}

	start := time.Now()
	result := h.orchestrator.Recalculate(r.Context(), id, "manual_refresh", orchestrator.DefaultOptions())

	outcome := "ok"
	if result == nil {
		outcome = "failed"
	}
	h.metrics.RecalculateDuration.WithLabelValues("manual_refresh", outcome).Observe(time.Since(start).Seconds())
	h.metrics.RecalculateTotal.WithLabelValues("manual_refresh", outcome).Inc()

	if result == nil {
		h.writeError(w, r, http.StatusNotFound, "recalculate_failed", "deal not found or terminal status")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Audit handles GET /deals/{id}/audit.
func (h *Handlers) Audit(w http.ResponseWriter, r *http.Request) {
	id, err := dealIDFromPath(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_deal_id", err.Error())
		return
	}

	events, err := h.auditor.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "audit_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// Pipeline handles GET /pipeline?rep=&bucket=.
func (h *Handlers) Pipeline(w http.ResponseWriter, r *http.Request) {
	filters := aggregation.Filters{
		Rep:    r.URL.Query().Get("rep"),
		Bucket: r.URL.Query().Get("bucket"),
	}

	data, err := h.aggregator.Data(r.Context(), filters)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "pipeline_failed", err.Error())
		return
	}

	for name, stats := range data.Aggregates.Buckets {
		h.metrics.PipelineConfidence.WithLabelValues(name).Set(float64(stats.AverageConfidence))
	}

	h.writeJSON(w, http.StatusOK, data)
}

// PipelineRevenue handles GET /pipeline/revenue?current_mrr=&active_clients=.
func (h *Handlers) PipelineRevenue(w http.ResponseWriter, r *http.Request) {
	currentMRR, _ := strconv.ParseFloat(r.URL.Query().Get("current_mrr"), 64)
	activeClients, _ := strconv.Atoi(r.URL.Query().Get("active_clients"))

	summary, err := h.aggregator.Revenue(r.Context(), currentMRR, activeClients)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "revenue_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

func dealIDFromPath(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	return strconv.ParseInt(raw, 10, 64)
}
