package middleware

import (
	"strings"
	"testing"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

func TestMetricsUseRoutePattern(t *testing.T) {
	r := router.New()
	r.SaveMatchedRoutePath = true
	r.GET("/api/v1/tasks/{id}", func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusNotFound) })

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	handler := m.Handler(r.Handler)

	for _, id := range []string{"a", "b"} {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod(fasthttp.MethodGet)
		ctx.Request.SetRequestURI("/api/v1/tasks/" + id)
		handler(&ctx)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		if len(mf.GetMetric()) != 1 {
			t.Fatalf("ids leaked into labels: %d series", len(mf.GetMetric()))
		}
		labels := map[string]string{}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["route"] != "/api/v1/tasks/{id}" || labels["status"] != "404" {
			t.Fatalf("unexpected labels %v", labels)
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("expected 2 requests, got %v", got)
		}
		return
	}
	t.Fatalf("http_requests_total not gathered")
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS("https://board.example")(func(ctx *fasthttp.RequestCtx) { called = true })

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodOptions)
	handler(&ctx)

	if called || ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("preflight should be answered directly, status=%d", ctx.Response.StatusCode())
	}
	if !strings.Contains(string(ctx.Response.Header.Peek("Access-Control-Allow-Headers")), "Idempotency-Key") {
		t.Fatalf("Idempotency-Key must be allowed")
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	handler := RequestLogger(nil)(func(ctx *fasthttp.RequestCtx) {})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("X-Request-ID", "req-42")
	handler(&ctx)

	if got := string(ctx.Response.Header.Peek("X-Request-ID")); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
