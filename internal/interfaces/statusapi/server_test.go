package statusapi

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

func doRequest(t *testing.T, s *Server, method, path string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	s.handle(&ctx)
	return &ctx
}

func TestStatusReportsJobs(t *testing.T) {
	stats := jobstats.NewCollector()
	stats.RecordRun("server_poll", 7, 120*time.Millisecond)
	stats.RecordRun("master_poll", 1, 40*time.Millisecond)
	stats.RecordFailure("rank")

	s := NewServer(stats, logging.NewNop())
	ctx := doRequest(t, s, fasthttp.MethodGet, "/status")

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var got statusResponse
	require.NoError(t, sonic.Unmarshal(ctx.Response.Body(), &got))
	require.Len(t, got.Jobs, 3)
	require.Equal(t, "master_poll", got.Jobs[0].Name)
	require.Equal(t, "rank", got.Jobs[1].Name)
	require.Equal(t, "server_poll", got.Jobs[2].Name)
	require.Equal(t, int64(7), got.Jobs[2].Items)
	require.Equal(t, int64(1), got.Jobs[1].Failures)
}

func TestStatusRejectsOtherRoutes(t *testing.T) {
	s := NewServer(jobstats.NewCollector(), logging.NewNop())

	require.Equal(t, fasthttp.StatusNotFound,
		doRequest(t, s, fasthttp.MethodGet, "/other").Response.StatusCode())
	require.Equal(t, fasthttp.StatusNotFound,
		doRequest(t, s, fasthttp.MethodPost, "/status").Response.StatusCode())
}
