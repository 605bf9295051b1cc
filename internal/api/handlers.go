package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/db"
	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/imu"
	"github.com/tetratrack/gaitd/internal/ingest"
	"github.com/tetratrack/gaitd/internal/report"
	"github.com/tetratrack/gaitd/internal/session"
	"github.com/tetratrack/gaitd/internal/units"
)

const maxRequestBody = 1 << 20

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write response")
	}
}

// stateResponse adds display-unit speed alongside the canonical m/s state.
type stateResponse struct {
	ingest.State
	Speed float64 `json:"speed"`
	Units string  `json:"units"`
}

func (s *Server) showGaitState(w http.ResponseWriter, r *http.Request) {
	state := s.pipeline.Snapshot()
	s.writeJSON(w, stateResponse{
		State: state,
		Speed: units.ConvertSpeed(state.SpeedMps, s.units),
		Units: s.units,
	})
}

func (s *Server) showGaitParams(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.pipeline.Config())
}

func (s *Server) updateGaitParams(w http.ResponseWriter, r *http.Request) {
	var partial config.TuningConfig
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&partial); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid tuning payload: %v", err))
		return
	}

	merged, err := s.pipeline.Reconfigure(&partial)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Rejected tuning update: %v", err))
		return
	}
	s.writeJSON(w, merged)
}

type calibrateRequest struct {
	Attitude imu.Quat `json:"attitude"`
}

func (s *Server) calibrateFrame(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid calibrate payload: %v", err))
		return
	}
	if req.Attitude.Norm() == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "Attitude quaternion must be non-zero")
		return
	}

	s.pipeline.Calibrate(req.Attitude)
	s.writeJSON(w, map[string]bool{"calibrated": true})
}

type simulateRequest struct {
	From         gait.Gait          `json:"from"`
	To           gait.Gait          `json:"to"`
	Features     gait.FeatureVector `json:"features"`
	MaxSteps     int                `json:"max_steps"`
	UpdateRateHz float64            `json:"update_rate_hz"`
}

func validGait(g gait.Gait) bool {
	for _, known := range gait.Gaits {
		if g == known {
			return true
		}
	}
	return false
}

func (s *Server) simulateTransition(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid simulate payload: %v", err))
		return
	}
	if !validGait(req.From) || !validGait(req.To) {
		s.writeJSONError(w, http.StatusBadRequest, "Unknown gait in simulate request")
		return
	}
	if req.MaxSteps <= 0 {
		req.MaxSteps = 40
	}
	if req.UpdateRateHz <= 0 {
		req.UpdateRateHz = s.pipeline.Config().GetAnalysisRateHz()
	}

	dyn := s.pipeline.Analyzer().HMM().SimulateTransitionDynamics(
		req.From, req.To, req.Features, req.MaxSteps, req.UpdateRateHz)
	s.writeJSON(w, dyn)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.pipeline.StartSession()
	if err != nil {
		if errors.Is(err, ingest.ErrSessionActive) {
			s.writeJSONError(w, http.StatusConflict, "A session is already active")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start session: %v", err))
		return
	}
	s.writeJSON(w, map[string]string{"session_id": id})
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.pipeline.StopSession()
	if err != nil {
		if errors.Is(err, ingest.ErrNoActiveSession) {
			s.writeJSONError(w, http.StatusConflict, "No active session")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to stop session: %v", err))
		return
	}
	s.writeJSON(w, summary)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	rows, err := s.db.ListSessions(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list sessions: %v", err))
		return
	}

	// Apply unit conversion to all speed values
	for i := range rows {
		rows[i].AvgSpeedMps = units.ConvertSpeed(rows[i].AvgSpeedMps, s.units)
		rows[i].MaxSpeedMps = units.ConvertSpeed(rows[i].MaxSpeedMps, s.units)
	}

	s.writeJSON(w, rows)
}

func (s *Server) loadSummary(w http.ResponseWriter, r *http.Request) *session.Summary {
	summary, err := s.db.GetSummary(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "Session not found")
		return nil
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load session: %v", err))
		return nil
	}
	return summary
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	summary := s.loadSummary(w, r)
	if summary == nil {
		return
	}
	s.writeJSON(w, summary)
}

func (s *Server) showSessionReport(w http.ResponseWriter, r *http.Request) {
	summary := s.loadSummary(w, r)
	if summary == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderSessionCharts(w, summary, s.units); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render report: %v", err))
	}
}

func (s *Server) showSessionTimeline(w http.ResponseWriter, r *http.Request) {
	summary := s.loadSummary(w, r)
	if summary == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.RenderTimelinePNG(w, summary); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render timeline: %v", err))
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"units": s.units,
	})
}
