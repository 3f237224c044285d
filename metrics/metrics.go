package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	MetricsNamespace = "acceptor"
)

var (
	Debug bool = false

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	simulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "simulations_total",
		Help:      "Count of simulator test invocations",
	}, []string{
		"suite",
		"test",
		"result",
	})

	suitePassed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_passed",
		Help:      "Number of passed tests per suite",
	}, []string{
		"suite",
	})

	suiteFailed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_failed",
		Help:      "Number of failed tests per suite",
	}, []string{
		"suite",
	})

	suiteDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_duration_seconds",
		Help:      "Duration of each suite",
	}, []string{
		"suite",
	})

	runResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_result",
		Help:      "Result of the whole run (1 = pass, 0 = fail)",
	}, []string{
		"run_id",
	})
)

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc", "m", "errors_total", "error", error)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

func RecordTest(suite, test, result string) {
	if Debug {
		log.Debug("metric inc", "m", "simulations_total", "suite", suite, "test", test, "result", result)
	}
	simulationsTotal.WithLabelValues(suite, test, result).Inc()
}

func RecordSuite(suite string, passed, failed int, duration time.Duration) {
	suitePassed.WithLabelValues(suite).Set(float64(passed))
	suiteFailed.WithLabelValues(suite).Set(float64(failed))
	suiteDuration.WithLabelValues(suite).Set(duration.Seconds())
}

func RecordRun(runID string, passed bool) {
	v := 0.0
	if passed {
		v = 1.0
	}
	runResult.WithLabelValues(runID).Set(v)
}

// Push sends the default registry to a Prometheus Pushgateway. One-shot
// CLI runs have no scrape surface, so pushing is the only way the
// counters outlive the process.
func Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
