package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// defaultHistoryPeriod bounds history queries when no period is given.
const defaultHistoryPeriod = 24 * time.Hour

// handleSensors returns the latest cached value for every topic.
func (s *Server) handleSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": s.cache.Snapshot(),
		"count":   s.cache.Len(),
	})
}

// handleSensorHistory returns persisted sensor readings, newest first.
// Query parameters: topic (optional filter), period ("6h", "7d"; default
// 24h), limit (default 100).
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	if s.readings == nil {
		writeJSON(w, http.StatusOK, map[string]any{"readings": []any{}})
		return
	}

	topic := r.URL.Query().Get("topic")

	period := defaultHistoryPeriod
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := parsePeriod(raw)
		if err != nil {
			writeBadRequest(w, "period must be like \"6h\" or \"7d\"")
			return
		}
		period = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	readings, err := s.readings.History(r.Context(), topic, time.Now().Add(-period), limit)
	if err != nil {
		s.logger.Error("sensor history query failed", "error", err)
		writeInternalError(w, "failed to query sensor history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

// parsePeriod parses a lookback window like "6h" or "7d".
func parsePeriod(raw string) (time.Duration, error) {
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid period %q", raw)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	dur, err := time.ParseDuration(raw)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("invalid period %q", raw)
	}
	return dur, nil
}
