// Package server exposes the updater over HTTP: runs are started with
// a POST and polled by id while they execute in the background.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"edcopilot_chatter_updater/chatter"
	"edcopilot_chatter_updater/store"
	"edcopilot_chatter_updater/updater"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RunTimeout bounds one background run end to end.
const RunTimeout = 15 * time.Minute

type Server struct {
	updater *updater.Updater
	store   *runStore
	logger  *zap.Logger
	gatherr prometheus.Gatherer
	// start is swappable so handler tests don't spawn real runs.
	start func(ctx context.Context, req updater.Request) (updater.Summary, error)
}

type runRecord struct {
	ID       string           `json:"run_id"`
	State    string           `json:"state"` // running, done
	Summary  *updater.Summary `json:"summary,omitempty"`
	Error    string           `json:"error,omitempty"`
	Started  time.Time        `json:"started"`
	Finished *time.Time       `json:"finished,omitempty"`
}

type runStore struct {
	mu   sync.Mutex
	runs map[string]*runRecord
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*runRecord)}
}

func (s *runStore) set(id string, rec *runRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = rec
}

func (s *runStore) get(id string) (runRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return runRecord{}, false
	}
	return *rec, true
}

func (s *runStore) finish(id string, sum updater.Summary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return
	}
	now := time.Now()
	rec.State = "done"
	rec.Summary = &sum
	rec.Finished = &now
	if err != nil {
		rec.Error = err.Error()
	}
}

// New builds the server. gatherer may be nil to disable /metrics.
func New(u *updater.Updater, logger *zap.Logger, gatherer prometheus.Gatherer) (*Server, error) {
	if u == nil {
		return nil, errors.New("updater required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		updater: u,
		store:   newRunStore(),
		logger:  logger,
		gatherr: gatherer,
	}
	s.start = u.Run
	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleRunCreate)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.gatherr != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherr, promhttp.HandlerOpts{}))
	}
	return s.logMiddleware(mux)
}

// --- Handlers ---

type runCreateReq struct {
	Categories         []string `json:"categories"`
	EntriesPerCategory int      `json:"entries_per_category"`
	KeepExisting       bool     `json:"keep_existing"`
	Personalization    *bool    `json:"personalization"`
	RSS                *bool    `json:"rss"`
}

func (s *Server) handleRunCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req runCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var cats []chatter.Category
	for _, c := range req.Categories {
		cat := chatter.Category(c)
		if !chatter.Valid(cat) {
			http.Error(w, "unknown category: "+c, http.StatusBadRequest)
			return
		}
		cats = append(cats, cat)
	}

	runReq := updater.Request{
		Categories:         cats,
		EntriesPerCategory: req.EntriesPerCategory,
		Mode:               store.ModeReplace,
		Personalization:    req.Personalization == nil || *req.Personalization,
		RSS:                req.RSS == nil || *req.RSS,
	}
	if req.KeepExisting {
		runReq.Mode = store.ModeKeepExisting
	}

	id := uuid.NewString()
	rec := &runRecord{ID: id, State: "running", Started: time.Now()}
	s.store.set(id, rec)
	accepted := *rec

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
		defer cancel()
		sum, err := s.start(ctx, runReq)
		s.store.finish(id, sum, err)
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, accepted)
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	rec, ok := s.store.get(id)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
