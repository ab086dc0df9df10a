package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	webhookReceivedCounter  = metrics.GetOrCreateCounter(`payment_webhook_total{result="received"}`)
	webhookNotFoundCounter  = metrics.GetOrCreateCounter(`payment_webhook_total{result="not_found"}`)
	webhookRejectedCounter  = metrics.GetOrCreateCounter(`payment_webhook_total{result="rejected"}`)
	webhookProcessedCounter = metrics.GetOrCreateCounter(`payment_webhook_total{result="processed"}`)
	webhookDuplicateCounter = metrics.GetOrCreateCounter(`payment_webhook_total{result="duplicate"}`)

	fallbackCounter = metrics.GetOrCreateCounter(`payment_fallback_total`)

	reconcileDurationHistogram = metrics.GetOrCreateHistogram(`payment_reconcile_duration_milliseconds`)
)

// Setup starts pushing metrics to url when it is set.
func Setup(url string, interval time.Duration, logger *slog.Logger) {
	if url == "" {
		return
	}

	if err := metrics.InitPush(url, interval, `service="storefront"`, true); err != nil {
		logger.Error("Error initializing metrics push", "error", err)
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}

func ProviderAttempt(provider string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`payment_provider_attempts_total{provider=%q,result=%q}`, provider, result)).Inc()
}

func ProviderDuration(provider string, since time.Time) {
	metrics.GetOrCreateHistogram(fmt.Sprintf(`payment_provider_duration_milliseconds{provider=%q}`, provider)).
		Update(float64(time.Since(since).Milliseconds()))
}

func Fallback() { fallbackCounter.Inc() }

func PaymentTransition(status string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`payment_transitions_total{status=%q}`, status)).Inc()
}

func WebhookReceived()  { webhookReceivedCounter.Inc() }
func WebhookNotFound()  { webhookNotFoundCounter.Inc() }
func WebhookRejected()  { webhookRejectedCounter.Inc() }
func WebhookProcessed() { webhookProcessedCounter.Inc() }
func WebhookDuplicate() { webhookDuplicateCounter.Inc() }

func ReconcileDuration(since time.Time) {
	reconcileDurationHistogram.Update(float64(time.Since(since).Milliseconds()))
}
