package agent

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/runningwild/surge/pkg/config"
	"github.com/runningwild/surge/pkg/experiment"
	"github.com/runningwild/surge/pkg/logging"
	"github.com/runningwild/surge/pkg/storage"
)

// RunRequest asks the agent to execute one offered-load level against its
// local target.
type RunRequest struct {
	Threads    int     `json:"threads"`
	BlockCount int     `json:"block_count"`
	PctSet     int     `json:"pct_set"`
	OfferedRPS float64 `json:"offered_rps"`
}

// RunResponse carries the raw completed latencies back so the controller
// can merge samples across agents before computing percentiles; percentile
// rows themselves do not merge.
type RunResponse struct {
	LatenciesUS []float64 `json:"latencies_us"`
	AchievedRPS float64   `json:"achieved_rps"`
	CPUUsage    float64   `json:"cpu_usage"`
	Generated   int       `json:"generated"`
	ElapsedUS   float64   `json:"elapsed_us"`
}

// Server runs experiment levels on behalf of a remote controller. The
// target device and sweep-independent settings come from the agent's own
// config; the per-level arguments come with each request.
type Server struct {
	cfg *config.Config
	dev storage.Device
}

func NewServer(cfg *config.Config, dev storage.Device) *Server {
	return &Server{cfg: cfg, dev: dev}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Infof("agent listening on %s (engine: %s, target: %s)", addr, s.cfg.EngineType, s.cfg.Target)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid body: %v", err), http.StatusBadRequest)
		return
	}

	// Each request gets its own config copy so concurrent runs cannot
	// see each other's level arguments.
	cfg := *s.cfg
	cfg.Threads = req.Threads
	cfg.BlockCount = req.BlockCount
	cfg.PctSet = req.PctSet
	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid run request: %v", err), http.StatusBadRequest)
		return
	}
	if req.OfferedRPS <= 0 {
		http.Error(w, fmt.Sprintf("offered_rps must be > 0, got %f", req.OfferedRPS), http.StatusBadRequest)
		return
	}

	res := experiment.RunLevel(&cfg, s.dev, req.OfferedRPS)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(RunResponse{
		LatenciesUS: res.Latencies(),
		AchievedRPS: res.AchievedRPS,
		CPUUsage:    res.CPUUsage,
		Generated:   res.Generated,
		ElapsedUS:   float64(res.Elapsed.Microseconds()),
	}); err != nil {
		logging.Errorf("failed to encode response: %v", err)
	}
}
