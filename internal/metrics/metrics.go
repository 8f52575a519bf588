package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"crypto-advisor/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "crypto_advisor"

	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeDegraded    = "degraded"
	OutcomeSkipped     = "skipped"
)

var (
	MarketRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "market",
		Name:      "requests_total",
		Help:      "Market data requests by operation and outcome",
	}, []string{"op", "outcome"})

	RateLimits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "market",
		Name:      "rate_limits_total",
		Help:      "The total number of rate limit responses from the market data API",
	})

	CooldownActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "cooldown_active",
		Help:      "1 while market data requests are paused after a rate limit",
	})

	TrackedAssets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "tracked_assets",
		Help:      "The current number of tracked assets",
	})

	AlertsTriggered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "triggered_total",
		Help:      "The total number of triggered price alerts",
	})

	Recommendations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "advice",
		Name:      "recommendations_total",
		Help:      "Recommendations issued by classification",
	}, []string{"classification"})

	CommandsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "telegram_bot",
		Name:      "commands_processed",
		Help:      "The total number of processed commands",
	})

	MessagesHandled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "telegram_bot",
		Name:      "messages_handled",
		Help:      "The total number of handled messages",
	})

	mutex sync.Mutex
)

func init() {
	prometheus.MustRegister(MarketRequests)
	prometheus.MustRegister(RateLimits)
	prometheus.MustRegister(CooldownActive)
	prometheus.MustRegister(TrackedAssets)
	prometheus.MustRegister(AlertsTriggered)
	prometheus.MustRegister(Recommendations)
	prometheus.MustRegister(CommandsProcessed)
	prometheus.MustRegister(MessagesHandled)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// NewServer returns the metrics and health endpoint server
func NewServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
}

// LoadFromDB restores the persisted counters
func LoadFromDB(db *database.DB) {
	mutex.Lock()
	defer mutex.Unlock()

	rateLimits, _ := db.GetMetric("rate_limits_total")
	alertsTriggered, _ := db.GetMetric("alerts_triggered_total")
	commandsProcessed, _ := db.GetMetric("commands_processed")
	messagesHandled, _ := db.GetMetric("messages_handled")

	RateLimits.Add(rateLimits)
	AlertsTriggered.Add(alertsTriggered)
	CommandsProcessed.Add(commandsProcessed)
	MessagesHandled.Add(messagesHandled)

	labeled, _ := db.GetMetricsWithLabels("recommendations_total")
	for classification, value := range labeled["classification"] {
		Recommendations.WithLabelValues(classification).Add(value)
	}

	log.Debug("Metrics loaded from database.")
}

// SaveToDB persists the counters that should survive a restart
func SaveToDB(db *database.DB) {
	mutex.Lock()
	defer mutex.Unlock()

	db.SaveMetric("rate_limits_total", GetMetricValue(RateLimits))
	db.SaveMetric("alerts_triggered_total", GetMetricValue(AlertsTriggered))
	db.SaveMetric("commands_processed", GetMetricValue(CommandsProcessed))
	db.SaveMetric("messages_handled", GetMetricValue(MessagesHandled))

	metricChan := make(chan prometheus.Metric, 16)
	go func() {
		Recommendations.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read recommendations metric: %v", err)
			continue
		}
		for _, label := range metricProto.Label {
			if label.GetName() == "classification" {
				db.SaveMetricWithLabels("recommendations_total", "classification", label.GetValue(), metricProto.Counter.GetValue())
			}
		}
	}

	log.Debug("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
