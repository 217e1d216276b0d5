package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// heapReport is the /debug/heap response body.
type heapReport struct {
	Shared alloc.Stats            `json:"shared"`
	Locals map[string]alloc.Stats `json:"locals"`
	Total  alloc.Stats            `json:"total"`
}

// Router serves the metrics in reg at /metrics and a JSON view of src at /debug/heap.
func Router(reg *prometheus.Registry, src StatsProvider) http.Handler {
	r := chi.NewRouter()

	r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/debug", func(r chi.Router) {
		r.Get("/heap", func(w http.ResponseWriter, _ *http.Request) {
			report := heapReport{
				Shared: src.Stats(),
				Locals: map[string]alloc.Stats{},
				Total:  src.TotalStats(),
			}
			src.Locals(func(l *alloc.Local) bool {
				report.Locals[fmt.Sprintf("%d", l.ID())] = l.Stats()
				return true
			})
			writeJSON(w, report)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Server is a running telemetry endpoint.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
}

// Start listens on addr and serves h in the background.
func Start(addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: listen %s: %w", addr, err)
	}

	s := &Server{
		srv:  &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan error, 1),
	}
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Telemetry endpoint listening")
	return s, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return <-s.done
}
