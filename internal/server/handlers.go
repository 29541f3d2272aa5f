package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

type HealthResponse struct {
	Status            string `json:"status"`
	MeasurementsCount int    `json:"measurements_count"`
	DBSizeBytes       int64  `json:"db_size_bytes"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	Sessions          int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, err := s.store.CountMeasurements(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Get database size
	var dbSize int64
	row := s.store.DB().QueryRowContext(r.Context(), "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		if info, statErr := os.Stat(s.store.Path()); statErr == nil {
			dbSize = info.Size()
		}
	}

	response := HealthResponse{
		Status:            "ok",
		MeasurementsCount: count,
		DBSizeBytes:       dbSize,
		UptimeSeconds:     int64(time.Since(s.startTime).Seconds()),
		Sessions:          s.sessions.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleMeasurementsAPI returns the stored records, newest first, narrowed by
// the date, operator, site and combination query parameters. Each record is
// an object keyed by the export column names.
func (s *Server) handleMeasurementsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.store.ListMeasurements(r.Context())
	if err != nil {
		s.logger.Error("failed to list measurements", zap.Error(err))
		http.Error(w, "Failed to fetch measurements", http.StatusInternalServerError)
		return
	}
	records = queryFilter(r.URL.Query()).Apply(records)

	// Return empty array instead of null
	response := make([]map[string]any, 0, len(records))
	for _, m := range records {
		response = append(response, m.Record())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
