package physics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/vec"
)

const tracerName = "github.com/annel0/voxel-world/internal/physics"

// DefaultGravity задаёт ускорение свободного падения, блоков/с²
const DefaultGravity = 32.0

// maxSubSteps ограничивает число шагов за один Update, чтобы длинный кадр
// не запускал лавину шагов
const maxSubSteps = 8

// Report отладочные данные шага для внешней визуализации
type Report struct {
	Candidates []vec.Vec3
	Collisions []Collision
	Steps      int
}

// Engine применяет гравитацию и ввод к агенту и разрешает столкновения с миром
type Engine struct {
	Gravity float64
	// SimulationRate шагов в секунду; 0 означает один шаг на Update
	SimulationRate float64

	accumulator float64
	metrics     *metrics.PhysicsMetrics
	log         *logging.Logger
	tracer      trace.Tracer
}

// Option настраивает Engine при создании
type Option func(*Engine)

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *metrics.PhysicsMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger задаёт логгер движка
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSimulationRate включает фиксированный шаг симуляции
func WithSimulationRate(rate float64) Option {
	return func(e *Engine) { e.SimulationRate = rate }
}

// NewEngine создаёт движок с гравитацией по умолчанию
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		Gravity: DefaultGravity,
		log:     logging.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step выполняет один шаг: гравитация, ввод, затем широкая фаза,
// узкая фаза и разрешение столкновений
func (e *Engine) Step(dt float64, p *Player, blocks BlockQuerier) Report {
	p.Velocity[1] -= e.Gravity * dt
	p.ApplyInputs(dt)

	candidates := BroadPhase(p, blocks)
	collisions := NarrowPhase(candidates, p)

	p.OnGround = false
	if len(collisions) > 0 {
		ResolveCollisions(collisions, p)
	}

	e.metrics.StepDone(len(candidates), len(collisions))
	return Report{Candidates: candidates, Collisions: collisions, Steps: 1}
}

// Update продвигает симуляцию на dt. При SimulationRate > 0 время
// накапливается и расходуется шагами фиксированной длины; Report
// содержит данные последнего шага.
func (e *Engine) Update(ctx context.Context, dt float64, p *Player, blocks BlockQuerier) Report {
	_, span := e.tracer.Start(ctx, "physics.Update")
	defer span.End()

	from := p.Position
	var report Report

	if e.SimulationRate <= 0 {
		report = e.Step(dt, p, blocks)
	} else {
		step := 1 / e.SimulationRate
		e.accumulator += dt
		steps := 0
		for e.accumulator >= step && steps < maxSubSteps {
			report = e.Step(step, p, blocks)
			e.accumulator -= step
			steps++
		}
		if steps == maxSubSteps && e.accumulator >= step {
			e.log.Warn("Physics: dropped %.3fs of simulation time", e.accumulator)
			e.accumulator = 0
		}
		report.Steps = steps
	}

	span.SetAttributes(
		attribute.Int("physics.steps", report.Steps),
		attribute.Int("physics.candidates", len(report.Candidates)),
		attribute.Int("physics.collisions", len(report.Collisions)),
	)

	to := p.Position
	e.log.Trace("Player moved (%.2f, %.2f, %.2f) -> (%.2f, %.2f, %.2f) on_ground=%t",
		from.X(), from.Y(), from.Z(), to.X(), to.Y(), to.Z(), p.OnGround)
	return report
}
