package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tetratrack/gaitd/internal/db"
	"github.com/tetratrack/gaitd/internal/ingest"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	pipeline *ingest.Pipeline
	db       *db.DB
	units    string
}

func NewServer(pipeline *ingest.Pipeline, db *db.DB, units string) *Server {
	return &Server{
		pipeline: pipeline,
		db:       db,
		units:    units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/gait/state", s.showGaitState)
	mux.HandleFunc("GET /api/gait/params", s.showGaitParams)
	mux.HandleFunc("POST /api/gait/params", s.updateGaitParams)
	mux.HandleFunc("POST /api/gait/calibrate", s.calibrateFrame)
	mux.HandleFunc("POST /api/gait/simulate", s.simulateTransition)
	mux.HandleFunc("POST /api/session/start", s.startSession)
	mux.HandleFunc("POST /api/session/stop", s.stopSession)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.showSession)
	mux.HandleFunc("GET /api/sessions/{id}/report", s.showSessionReport)
	mux.HandleFunc("GET /api/sessions/{id}/timeline.png", s.showSessionTimeline)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}
