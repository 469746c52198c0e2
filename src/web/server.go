package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ThermalComfort/src/processor"
	"ThermalComfort/src/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunStatus 最近一次运行的结果
type RunStatus struct {
	File      string                 `json:"file"`
	Finished  time.Time              `json:"finished"`
	Error     string                 `json:"error,omitempty"`
	Summary   map[string]interface{} `json:"summary,omitempty"`
	Artifacts *processor.Artifacts   `json:"artifacts,omitempty"`
}

// State 线程安全地保存最近一次运行
type State struct {
	mu     sync.RWMutex
	latest *RunStatus
}

func (s *State) Record(rs RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &rs
}

func (s *State) Latest() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return RunStatus{}, false
	}
	return *s.latest, true
}

// Server HTTP 接口: 实时日志、指标、健康检查、最近一次运行的参数
type Server struct {
	Logger   *storage.Logger
	Gatherer prometheus.Gatherer
	State    *State
	// Reprocess 非空时提供 POST /reprocess
	Reprocess func()
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/logs", s.streamLogs)

	r.Route("/artifacts", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/latest", s.latestArtifacts)
	})

	if s.Reprocess != nil {
		r.Post("/reprocess", func(w http.ResponseWriter, r *http.Request) {
			go s.Reprocess()
			render.Status(r, http.StatusAccepted)
			render.JSON(w, r, map[string]string{"status": "scheduled"})
		})
	}
	return r
}

// streamLogs 持续输出日志直到客户端断开
func (s *Server) streamLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	logChan := s.Logger.Subscribe()
	defer s.Logger.Unsubscribe(logChan)

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) latestArtifacts(w http.ResponseWriter, r *http.Request) {
	var latest RunStatus
	ok := false
	if s.State != nil {
		latest, ok = s.State.Latest()
	}
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "no run recorded yet"})
		return
	}
	render.JSON(w, r, latest)
}

// ListenAndServe ctx 结束时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
