package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/watchgrid/backend/internal/detect"
	"github.com/watchgrid/backend/internal/session"
)

// Server exposes the read-only HTTP surface next to the WebSocket
// endpoint: health, session and detection listings, process stats and
// the Prometheus scrape target.
type Server struct {
	registry  *session.Registry
	detlog    *detect.Log
	router    *mux.Router
	handler   http.Handler
	startTime time.Time
}

func NewServer(registry *session.Registry, detlog *detect.Log, wsHandler http.HandlerFunc, metricsHandler http.Handler, allowedOrigins []string) *Server {
	s := &Server{
		registry:  registry,
		detlog:    detlog,
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}

	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/users", s.handleUsers).Methods("GET")
	s.router.HandleFunc("/api/detections", s.handleDetections).Methods("GET")
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	if metricsHandler != nil {
		s.router.Handle("/metrics", metricsHandler).Methods("GET")
	}
	if wsHandler != nil {
		s.router.HandleFunc("/ws", wsHandler)
	}

	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(s.router)

	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if r.URL.Path != "/metrics" {
			log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

type healthResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	ConnectedUsers  int    `json:"connectedUsers"`
	TotalDetections int    `json:"totalDetections"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:          "OK",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ConnectedUsers:  s.registry.Count(),
		TotalDetections: s.detlog.Total(),
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.registry.List())
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, s.detlog.Recent(limit))
}

type processStats struct {
	PID           int     `json:"pid"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	MemoryRSS     uint64  `json:"memoryRssBytes,omitempty"`
	CPUPercent    float64 `json:"cpuPercent,omitempty"`
}

type statsResponse struct {
	ConnectedUsers  int          `json:"connectedUsers"`
	TotalDetections int          `json:"totalDetections"`
	Timestamp       string       `json:"timestamp"`
	Process         processStats `json:"process"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := statsResponse{
		ConnectedUsers:  s.registry.Count(),
		TotalDetections: s.detlog.Total(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Process: processStats{
			PID:           os.Getpid(),
			UptimeSeconds: time.Since(s.startTime).Seconds(),
		},
	}

	// Process stats are best-effort; the endpoint still answers when
	// the platform calls fail.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			stats.Process.MemoryRSS = mem.RSS
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			stats.Process.CPUPercent = cpu
		}
	}

	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
