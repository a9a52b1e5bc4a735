package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

var (
	vaultOperationsTotal *prometheus.CounterVec
	admissionsTotal      *prometheus.CounterVec
)

func InitMetrics() {
	vaultOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credvault",
			Name:      "vault_operations_total",
			Help:      "Total number of credential vault operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
	admissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credvault",
			Name:      "admissions_total",
			Help:      "Total number of admin admission decisions by status.",
		},
		[]string{"status"},
	)
	prometheus.MustRegister(vaultOperationsTotal, admissionsTotal)
}

func observeVaultOp(operation string, err error) {
	if vaultOperationsTotal == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	vaultOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveAdmission counts one admission decision. allowed maps to the
// "200" status label.
func ObserveAdmission(status int, allowed bool) {
	if admissionsTotal == nil {
		return
	}
	if allowed {
		status = fasthttp.StatusOK
	}
	admissionsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// MetricsHandler serves this service's metrics in Prometheus text
// exposition format, filtered down to the credvault namespace.
func MetricsHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		families, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		filtered := make([]*dto.MetricFamily, 0, len(families))
		for _, mf := range families {
			if strings.HasPrefix(mf.GetName(), "credvault_") {
				filtered = append(filtered, mf)
			}
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range filtered {
			if err := encoder.Encode(mf); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log.Printf("%s %s -> %d (%s) ip=%s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start), ctx.RemoteAddr())
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetBody(body)
}
