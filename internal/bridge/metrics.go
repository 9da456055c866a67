package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового моста
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о потере связи с терминалом
// - Анализ латентности исполнения в production

// ============ Метрики латентности ============

// TradeExecutionLatency - полное время исполнения торгового запроса,
// включая цикл проверки появления позиции
var TradeExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "mt5bridge",
		Subsystem: "trading",
		Name:      "trade_execution_latency_ms",
		Help:      "Full trade execution latency including verification in milliseconds",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
	},
	[]string{"action", "order_type"},
)

// TerminalRequestLatency - латентность одного вызова терминала
var TerminalRequestLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "mt5bridge",
		Subsystem: "terminal",
		Name:      "request_latency_ms",
		Help:      "Terminal request latency in milliseconds",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"op"},
)

// ============ Счётчики событий ============

// TradesTotal - общее количество торговых запросов
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mt5bridge",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total number of trade requests",
	},
	[]string{"action", "result"}, // result: success, failed, partial
)

// TradeErrors - ошибки исполнения по категориям
var TradeErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mt5bridge",
		Subsystem: "trading",
		Name:      "trade_errors_total",
		Help:      "Trade failures by error kind",
	},
	[]string{"kind"}, // connection_error, broker_rejected, invalid_intent...
)

// SyncTotal - циклы сверки позиций с терминалом
var SyncTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mt5bridge",
		Subsystem: "cache",
		Name:      "sync_total",
		Help:      "Position reconciliation cycles by outcome",
	},
	[]string{"outcome"}, // ok, no_data, error
)

// VerifyAttempts - попытки подтверждения появления позиции
var VerifyAttempts = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "mt5bridge",
		Subsystem: "trading",
		Name:      "verify_attempts",
		Help:      "Number of verification polls until position appeared",
		Buckets:   []float64{1, 2, 3, 4, 5},
	},
)

// ============ Метрики состояния ============

// OpenPositions - текущее количество позиций в кэше
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "mt5bridge",
		Subsystem: "cache",
		Name:      "open_positions",
		Help:      "Current number of cached open positions",
	},
)

// TerminalConnected - статус соединения с терминалом
var TerminalConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "mt5bridge",
		Subsystem: "terminal",
		Name:      "connected",
		Help:      "Terminal connection status (1=connected, 0=disconnected)",
	},
)

// CacheStaleness - возраст последней удачной сверки в секундах
var CacheStaleness = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "mt5bridge",
		Subsystem: "cache",
		Name:      "staleness_seconds",
		Help:      "Seconds since the last successful reconciliation",
	},
)

// Reconnects - переподключения к терминалу
var Reconnects = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "mt5bridge",
		Subsystem: "terminal",
		Name:      "reconnects_total",
		Help:      "Number of terminal reconnect attempts",
	},
)

// ============ Вспомогательные функции ============

// RecordTrade записывает результат торгового запроса
func RecordTrade(action, result string, latencyMs float64, orderType string) {
	TradesTotal.WithLabelValues(action, result).Inc()
	TradeExecutionLatency.WithLabelValues(action, orderType).Observe(latencyMs)
}

// RecordTradeError записывает категорию ошибки исполнения
func RecordTradeError(kind string) {
	TradeErrors.WithLabelValues(kind).Inc()
}

// RecordSync записывает результат цикла сверки
func RecordSync(outcome string, positions int) {
	SyncTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		OpenPositions.Set(float64(positions))
	}
}

// UpdateTerminalStatus обновляет gauge соединения
func UpdateTerminalStatus(connected bool) {
	if connected {
		TerminalConnected.Set(1)
	} else {
		TerminalConnected.Set(0)
	}
}
