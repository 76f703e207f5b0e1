package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	reminderSweeps         *prometheus.CounterVec
	reminderReleased       prometheus.Counter
	reminderSweepDuration  prometheus.Histogram
	logMutations           *prometheus.CounterVec
	loginAttempts          *prometheus.CounterVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const (
	namespaceMetrics = "shiftlog"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		reminderSweeps = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "reminder",
					Name:      "sweeps_total",
					Help:      "提醒扫描执行次数，按结果统计（ok/error/skipped）。",
				},
				[]string{"result"},
			),
		)
		reminderReleased = registerCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "reminder",
					Name:      "released_total",
					Help:      "提醒到期后被自动激活的日志条数。",
				},
			),
		)
		reminderSweepDuration = registerHistogram(
			prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "reminder",
					Name:      "sweep_duration_seconds",
					Help:      "单轮提醒扫描耗时。",
					Buckets:   defaultDurationBuckets,
				},
			),
		)
		logMutations = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "entries",
					Name:      "mutations_total",
					Help:      "日志写操作次数，按操作与结果拆分。",
				},
				[]string{"operation", "result"},
			),
		)
		loginAttempts = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "auth",
					Name:      "login_attempts_total",
					Help:      "登录尝试次数，按结果统计。",
				},
				[]string{"result"},
			),
		)

		registerRuntimeCollectors()
	})
}

// ObserveReminderSweep 记录一轮提醒扫描的结果、激活条数与耗时。
func ObserveReminderSweep(result string, released int, duration time.Duration) {
	if reminderSweeps == nil {
		return
	}
	reminderSweeps.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
	if released > 0 {
		reminderReleased.Add(float64(released))
	}
	reminderSweepDuration.Observe(duration.Seconds())
}

// RecordLogMutation 记录日志写操作的结果分布。
func RecordLogMutation(operation, result string) {
	if logMutations == nil {
		return
	}
	logMutations.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordLoginAttempt 记录登录结果（success/failure/blocked）。
func RecordLoginAttempt(result string) {
	if loginAttempts == nil {
		return
	}
	loginAttempts.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerCounter(counter prometheus.Counter) prometheus.Counter {
	if err := prometheus.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
		panic(err)
	}
	return counter
}

func registerHistogram(h prometheus.Histogram) prometheus.Histogram {
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
		panic(err)
	}
	return h
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
