package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/analytics"
	"github.com/linkdash/linkdash/internal/auth"
	"github.com/linkdash/linkdash/internal/handlers"
	"github.com/linkdash/linkdash/internal/ratelimit"
	"github.com/linkdash/linkdash/internal/router"
	"github.com/linkdash/linkdash/internal/service"
	"github.com/linkdash/linkdash/internal/store"
)

func setupBenchRouter(b *testing.B) http.Handler {
	b.Helper()
	logger := zap.NewNop()

	st := store.New(nil, logger, store.Options{})
	limiter := ratelimit.New(1<<30, time.Minute) // лимитер не должен мешать бенчмарку
	agg := analytics.New(st, analytics.NewDemoSampler(nil), nil, logger)
	resolver := service.NewResolver(st, limiter, agg, logger, false)

	h := handlers.NewHandler(st, resolver, agg, auth.New("bench-secret"), logger, nil)
	return router.NewRouter(h, logger)
}

func BenchmarkRedirect(b *testing.B) {
	r := setupBenchRouter(b)

	create := httptest.NewRequest(http.MethodPost, "/api/links",
		strings.NewReader(`{"url":"https://yandex.ru/benchmark","alias":"bench"}`))
	create.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), create)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/bench", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func BenchmarkCreateLink(b *testing.B) {
	r := setupBenchRouter(b)
	body := `{"url": "https://yandex.ru/benchmark"}`

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
}
