package statusd

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// HTTPServer serves read-only run progress
type HTTPServer struct {
	mux   *http.ServeMux
	store *ProgressStore
}

// NewHTTPServer creates the status handlers. A nil gatherer disables /metrics.
func NewHTTPServer(store *ProgressStore, gatherer prometheus.Gatherer) *HTTPServer {
	s := &HTTPServer{
		mux:   http.NewServeMux(),
		store: store,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/status", s.handleStatus)
	s.mux.HandleFunc("/v1/peaks", s.handlePeaks)
	s.mux.HandleFunc("/v1/evaluations", s.handleEvaluations)
	if gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// handleStatus handles GET /v1/status
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": convertStatusToJSON(s.store.Snapshot()),
	})
}

// handlePeaks handles GET /v1/peaks
func (s *HTTPServer) handlePeaks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	st := s.store.Snapshot()
	peaks := make([]map[string]any, 0, len(st.Peaks))
	for _, p := range st.Peaks {
		peaks = append(peaks, convertPeakToJSON(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": st.RunID,
		"peaks":  peaks,
	})
}

// handleEvaluations handles GET /v1/evaluations?limit=N
func (s *HTTPServer) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit: "+limitStr)
			return
		}
		limit = min(parsed, recentLimit)
	}

	recent := s.store.Recent(limit)
	out := make([]map[string]any, 0, len(recent))
	for _, ev := range recent {
		out = append(out, convertEvaluationToJSON(ev))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": out,
		"count":       len(out),
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func convertStatusToJSON(st Status) map[string]any {
	out := map[string]any{
		"id":          st.RunID,
		"status":      string(st.State),
		"phase":       string(st.Phase),
		"evaluations": st.Evaluations,
		"failures":    st.Failures,
		"peaks":       len(st.Peaks),
	}
	if !st.StartedAt.IsZero() {
		out["started_at_unix_ms"] = st.StartedAt.UnixMilli()
	}
	if !st.EndedAt.IsZero() {
		out["ended_at_unix_ms"] = st.EndedAt.UnixMilli()
	}
	if st.Last != nil {
		out["last_evaluation"] = convertEvaluationToJSON(*st.Last)
	}
	if st.Best != nil {
		out["best"] = convertPeakToJSON(*st.Best)
	}
	if st.Outcome != nil {
		out["outcome"] = map[string]any{
			"interval":    st.Outcome.Interval,
			"gas_limit":   st.Outcome.GasLimit,
			"throughput":  st.Outcome.Throughput,
			"stop_reason": st.Outcome.StopReason,
			"elapsed_ms":  st.Outcome.Elapsed.Milliseconds(),
		}
	}
	if st.Error != "" {
		out["error"] = st.Error
	}
	return out
}

func convertPeakToJSON(p models.PeakRecord) map[string]any {
	return map[string]any{
		"interval":   p.Interval,
		"gas_limit":  p.GasLimit,
		"throughput": p.Throughput,
	}
}

func convertEvaluationToJSON(ev models.Evaluation) map[string]any {
	out := map[string]any{
		"seq":         ev.Seq,
		"phase":       string(ev.Phase),
		"interval":    ev.Candidate.Interval,
		"gas_limit":   ev.Candidate.GasLimit,
		"success":     ev.Result.OK(),
		"duration_ms": ev.Duration.Milliseconds(),
	}
	if ev.Measured && ev.Result.OK() {
		out["throughput"] = ev.Result.Throughput
	}
	if msg := ev.ErrorString(); msg != "" {
		out["error"] = msg
	}
	if obs := ev.Observation; obs != nil {
		out["observation"] = map[string]any{
			"head_block":    obs.HeadBlock,
			"gas_limit":     obs.GasLimit,
			"block_time_ms": obs.BlockTime.Milliseconds(),
		}
	}
	return out
}
