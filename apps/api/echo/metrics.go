package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/juku/core/attendance"
)

const metricsNamespace = "juku"

type metrics struct {
	requests     *prometheus.CounterVec
	edits        *prometheus.CounterVec
	editDuration prometheus.Histogram
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		edits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "attendance_edits_total",
			Help:      "Attendance edits by outcome.",
		}, []string{"outcome"}),
		editDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "attendance_edit_duration_seconds",
			Help:      "Time spent running attendance edits.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		// the error handler writes the response, so the status is final afterwards
		if err := next(ctx); err != nil {
			ctx.Error(err)
		}
		code := ctx.Response().Status
		m.requests.WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(code)).Inc()
		return nil
	}
}

func (m *metrics) handler(reg *prometheus.Registry) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func (m *metrics) observeEdit(reason attendance.Reason, elapsed time.Duration) {
	outcome := string(reason)
	if reason == attendance.ReasonNone {
		outcome = "ok"
	}
	m.edits.WithLabelValues(outcome).Inc()
	m.editDuration.Observe(elapsed.Seconds())
}
