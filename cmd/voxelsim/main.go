package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/physics"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	catalog := block.DefaultCatalog()
	if err := cfg.Validate(catalog); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		log.Fatalf("❌ Некорректный уровень логирования: %v", err)
	}

	// === ЛОГИРОВАНИЕ ===
	worldLog, physicsLog := setupLogging(cfg, level)
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()

	logging.Info("🧱 Запуск voxelsim: seed=%d, чанки %dx%d, дальность %d",
		cfg.World.Seed, cfg.World.ChunkSize.Width, cfg.World.ChunkSize.Height, cfg.World.DrawDistance)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Error("Ошибка инициализации OpenTelemetry: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	worldMetrics := metrics.NewWorldMetrics(reg)
	physicsMetrics := metrics.NewPhysicsMetrics(reg)

	if cfg.Metrics.Enabled {
		srv := metrics.StartHTTP(fmt.Sprintf(":%d", cfg.Metrics.GetMetricsPort()), reg)
		defer shutdownHTTP(srv)
	}

	// === МИР И АГЕНТ ===
	params, err := cfg.WorldParams(catalog)
	if err != nil {
		logging.Error("❌ Ошибка параметров мира: %v", err)
		os.Exit(1)
	}
	w, err := world.New(params, catalog, world.WithMetrics(worldMetrics), world.WithLogger(worldLog))
	if err != nil {
		logging.Error("❌ Ошибка создания мира: %v", err)
		os.Exit(1)
	}
	w.Generate(ctx)

	player := physics.NewPlayer(mgl64.Vec3(cfg.Player.Spawn))
	player.Radius = cfg.Player.Radius
	player.Height = cfg.Player.Height
	player.JumpSpeed = cfg.Player.JumpSpeed
	player.MaxSpeed = cfg.Player.MaxSpeed
	liftAboveSurface(w, player)

	engine := physics.NewEngine(
		physics.WithMetrics(physicsMetrics),
		physics.WithLogger(physicsLog),
		physics.WithSimulationRate(cfg.Physics.SimulationRate),
	)
	engine.Gravity = cfg.Physics.Gravity

	run(ctx, cfg, w, engine, player)
	logging.Info("👋 Симуляция завершена")
}

// setupLogging настраивает логгер по умолчанию и логгеры компонентов
func setupLogging(cfg *config.Config, level logging.LogLevel) (*logging.Logger, *logging.Logger) {
	manager := logging.GetLoggerManager()
	if cfg.Logging.File {
		if err := logging.InitDefaultLogger("voxelsim"); err != nil {
			log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
		}
		logging.Default().SetLevel(level)
	} else {
		logging.SetDefault(logging.NewWriterLogger("voxelsim", os.Stdout, level))
		manager.UseFactory(logging.WriterFactory(level))
	}
	manager.SetLevel(level)

	return logging.GetWorldLogger(), logging.GetPhysicsLogger()
}

// liftAboveSurface ставит агента на поверхность, если точка появления внутри рельефа
func liftAboveSurface(w *world.World, p *physics.Player) {
	b := world.BlockAt(p.Position)
	h, ok := w.SurfaceHeight(b.X, b.Z)
	if !ok {
		return
	}
	minY := float64(h) + 0.5 + p.Height
	if p.Position.Y() < minY {
		logging.Info("Точка появления внутри рельефа, подъём на y=%.2f", minY)
		p.Position[1] = minY
	}
}

// run выполняет тики симуляции: очередь генерации, физика, стриминг мира
func run(ctx context.Context, cfg *config.Config, w *world.World, engine *physics.Engine, player *physics.Player) {
	sim := cfg.Simulation
	dt := 1 / sim.TickRate
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()

	host := metrics.NewHostStats()
	spawn := player.Position

	for tick := 1; sim.Ticks == 0 || tick <= sim.Ticks; tick++ {
		select {
		case <-ctx.Done():
			logging.Info("📡 Получен сигнал завершения на тике %d", tick)
			return
		case <-ticker.C:
		}

		w.ProcessPending()
		report := engine.Update(ctx, dt, player, w)
		update := w.Update(ctx, player.Position)
		if len(update.Added) > 0 || len(update.Removed) > 0 {
			logging.Debug("Стриминг: центр (%d,%d), +%d/-%d чанков",
				update.Center.X, update.Center.Z, len(update.Added), len(update.Removed))
		}

		if sim.DigAtTick > 0 && tick == sim.DigAtTick {
			dig(w, player)
		}

		// Агент провалился за пределы мира
		if player.Position.Y() < -float64(cfg.World.ChunkSize.Height) || math.IsNaN(player.Position.Y()) {
			logging.Warn("Агент вне мира (%.2f), возврат в точку появления", player.Position.Y())
			player.Reset(spawn)
		}

		if sim.StatsEvery > 0 && tick%sim.StatsEvery == 0 {
			logStats(tick, w, player, report, host)
		}
	}
}

// dig удаляет блок под агентом, выбранный лучом
func dig(w *world.World, p *physics.Player) {
	hit, ok := physics.Raycast(p.Position, mgl64.Vec3{0, -1, 0}, physics.DefaultPickDistance+p.Height, w)
	if !ok {
		logging.Info("Под агентом нет блока для удаления")
		return
	}
	w.RemoveBlock(hit.Block.X, hit.Block.Y, hit.Block.Z)
	logging.Info("⛏️  Удалён блок (%d,%d,%d) на расстоянии %.2f",
		hit.Block.X, hit.Block.Y, hit.Block.Z, hit.Distance)
}

func logStats(tick int, w *world.World, p *physics.Player, report physics.Report, host *metrics.HostStats) {
	cpu, err := host.CPUUsage()
	if err != nil {
		cpu = -1
	}
	logging.Info("📊 Тик %d: агент (%.2f, %.2f, %.2f) на земле=%t, кандидатов %d, столкновений %d",
		tick, p.Position.X(), p.Position.Y(), p.Position.Z(), p.OnGround,
		len(report.Candidates), len(report.Collisions))
	logging.Info("📊 Чанки: %d загружено, %d в очереди; uptime %s, память %.1f MB, CPU %.1f%%",
		w.LoadedCount(), w.PendingCount(), host.Uptime(), host.MemoryUsageMB(), cpu)
}

func shutdownHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Ошибка остановки HTTP сервера метрик: %v", err)
	}
}
