// Package metrics содержит Prometheus-метрики мира и физики.
// Все методы безопасны для nil-получателя: компонент без метрик просто их не пишет.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/voxel-world/internal/logging"
)

const namespace = "voxel"

// WorldMetrics метрики стриминга чанков
type WorldMetrics struct {
	loaded     prometheus.Gauge
	pending    prometheus.Gauge
	loads      prometheus.Counter
	unloads    prometheus.Counter
	cancelled  prometheus.Counter
	generation prometheus.Histogram
}

// NewWorldMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewWorldMetrics(reg prometheus.Registerer) *WorldMetrics {
	m := &WorldMetrics{
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "chunks_loaded",
			Help:      "Количество чанков с завершённой генерацией.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "chunks_pending",
			Help:      "Чанки в очереди отложенной генерации.",
		}),
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "chunk_loads_total",
			Help:      "Общее число сгенерированных чанков.",
		}),
		unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "chunk_unloads_total",
			Help:      "Общее число выгруженных чанков.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "generation_cancelled_total",
			Help:      "Задачи генерации, снятые с очереди до выполнения.",
		}),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "chunk_generation_seconds",
			Help:      "Длительность генерации одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.loaded, m.pending, m.loads, m.unloads, m.cancelled, m.generation)
	}
	return m
}

// ChunkGenerated учитывает завершённую генерацию
func (m *WorldMetrics) ChunkGenerated(d time.Duration) {
	if m == nil {
		return
	}
	m.loads.Inc()
	m.loaded.Inc()
	m.generation.Observe(d.Seconds())
}

// ChunkUnloaded учитывает выгрузку чанка; wasLoaded: успел ли он сгенерироваться
func (m *WorldMetrics) ChunkUnloaded(wasLoaded bool) {
	if m == nil {
		return
	}
	m.unloads.Inc()
	if wasLoaded {
		m.loaded.Dec()
	}
}

// GenerationCancelled учитывает снятую с очереди задачу
func (m *WorldMetrics) GenerationCancelled() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}

// SetPending обновляет размер очереди генерации
func (m *WorldMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// PhysicsMetrics метрики обнаружения столкновений
type PhysicsMetrics struct {
	steps      prometheus.Counter
	collisions prometheus.Counter
	candidates prometheus.Histogram
}

// NewPhysicsMetrics создаёт метрики физики и регистрирует их в reg (если reg != nil)
func NewPhysicsMetrics(reg prometheus.Registerer) *PhysicsMetrics {
	m := &PhysicsMetrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "physics",
			Name:      "steps_total",
			Help:      "Выполненные шаги симуляции.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "physics",
			Name:      "collisions_total",
			Help:      "Столкновения, найденные узкой фазой.",
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "physics",
			Name:      "broadphase_candidates",
			Help:      "Количество кандидатов широкой фазы за шаг.",
			Buckets:   prometheus.LinearBuckets(0, 4, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.steps, m.collisions, m.candidates)
	}
	return m
}

// StepDone учитывает шаг симуляции
func (m *PhysicsMetrics) StepDone(candidates, collisions int) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.candidates.Observe(float64(candidates))
	m.collisions.Add(float64(collisions))
}

// StartHTTP запускает HTTP-эндпоинт /metrics для gatherer на addr.
// Метод неблокирующий: сервер стартует в отдельной горутине.
func StartHTTP(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
