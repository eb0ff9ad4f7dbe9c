// Package statusapi exposes a read-only view of the worker's job
// counters. It carries no auth; bind it to an internal address.
package statusapi

import (
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

type statusResponse struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Jobs        []jobstats.JobReport `json:"jobs"`
}

type Server struct {
	stats  *jobstats.Collector
	logger *logging.Logger
	srv    *fasthttp.Server
	now    func() time.Time
}

func NewServer(stats *jobstats.Collector, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{
		stats:  stats,
		logger: logger,
		now:    time.Now,
	}
	s.srv = &fasthttp.Server{
		Handler: s.handle,
		Name:    "teewatch-status",
	}
	return s
}

// ListenAndServe blocks serving the status view on addr.
func (s *Server) ListenAndServe(addr string) error {
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != "/status" || !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	jobs := s.stats.Snapshot()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	body, err := sonic.Marshal(statusResponse{
		GeneratedAt: s.now().UTC(),
		Jobs:        jobs,
	})
	if err != nil {
		s.logger.Error("encode status response", "error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}
