package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// ErrInvalidConfig возвращается Validate для некорректных значений
var ErrInvalidConfig = errors.New("некорректная конфигурация")

// Config корневая структура конфигурации симуляции.
// Отсутствующие в файле поля сохраняют значения Default().
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Player     PlayerConfig     `yaml:"player"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Simulation SimulationConfig `yaml:"simulation"`
}

type WorldConfig struct {
	Seed             int64                     `yaml:"seed"`
	ChunkSize        ChunkSizeConfig           `yaml:"chunk_size"`
	DrawDistance     int                       `yaml:"draw_distance"`
	Terrain          TerrainConfig             `yaml:"terrain"`
	Resources        map[string]ResourceConfig `yaml:"resources"`
	AsyncLoading     bool                      `yaml:"async_loading"`
	GenerationBudget time.Duration             `yaml:"generation_budget"`
}

type ChunkSizeConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type TerrainConfig struct {
	Scale     float64 `yaml:"scale"`
	Magnitude float64 `yaml:"magnitude"`
	Offset    float64 `yaml:"offset"`
}

// ResourceConfig переопределяет параметры ресурса каталога.
// Нулевой масштаб и отсутствующая редкость берутся из каталога.
type ResourceConfig struct {
	Scale    block.Scale `yaml:"scale"`
	Scarcity *float64    `yaml:"scarcity"`
	Disabled bool        `yaml:"disabled"`
}

type PhysicsConfig struct {
	Gravity        float64 `yaml:"gravity"`
	SimulationRate float64 `yaml:"simulation_rate"`
}

type PlayerConfig struct {
	Spawn     [3]float64 `yaml:"spawn"`
	Radius    float64    `yaml:"radius"`
	Height    float64    `yaml:"height"`
	JumpSpeed float64    `yaml:"jump_speed"`
	MaxSpeed  float64    `yaml:"max_speed"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type SimulationConfig struct {
	Ticks      int     `yaml:"ticks"`       // 0: до сигнала завершения
	TickRate   float64 `yaml:"tick_rate"`   // тиков в секунду
	DigAtTick  int     `yaml:"dig_at_tick"` // 0: не удалять блок под агентом
	StatsEvery int     `yaml:"stats_every"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkSize:        ChunkSizeConfig{Width: 64, Height: 32},
			DrawDistance:     1,
			Terrain:          TerrainConfig{Scale: 30, Magnitude: 0.5, Offset: 0.2},
			GenerationBudget: 8 * time.Millisecond,
		},
		Physics: PhysicsConfig{Gravity: 32},
		Player: PlayerConfig{
			Spawn:     [3]float64{32, 16, 32},
			Radius:    0.5,
			Height:    1.75,
			JumpSpeed: 10,
			MaxSpeed:  10,
		},
		Logging:   LoggingConfig{Level: "INFO"},
		Telemetry: TelemetryConfig{ServiceName: "voxel-world"},
		Simulation: SimulationConfig{
			Ticks:      600,
			TickRate:   60,
			StatsEvery: 120,
		},
	}
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", используется ENV VOXEL_CONFIG; без него возвращается Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает YAML поверх значений по умолчанию
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WorldParams собирает параметры мира. Ресурсы идут в порядке приоритета каталога.
func (c *Config) WorldParams(catalog *block.Catalog) (world.Params, error) {
	params := world.Params{
		Seed:             c.World.Seed,
		ChunkSize:        world.ChunkSize{Width: c.World.ChunkSize.Width, Height: c.World.ChunkSize.Height},
		DrawDistance:     c.World.DrawDistance,
		Terrain:          world.TerrainParams(c.World.Terrain),
		AsyncLoading:     c.World.AsyncLoading,
		GenerationBudget: c.World.GenerationBudget,
	}

	known := make(map[string]struct{})
	for _, t := range catalog.Resources() {
		known[t.Name] = struct{}{}
	}
	for name := range c.World.Resources {
		if _, ok := known[name]; !ok {
			return world.Params{}, fmt.Errorf("%w: %q", world.ErrUnknownResource, name)
		}
	}

	for _, r := range world.ResourcesFromCatalog(catalog) {
		t, _ := catalog.Get(r.ID)
		override, ok := c.World.Resources[t.Name]
		if ok {
			if override.Disabled {
				continue
			}
			if override.Scale != (block.Scale{}) {
				r.Scale = override.Scale
			}
			if override.Scarcity != nil {
				r.Scarcity = *override.Scarcity
			}
		}
		params.Resources = append(params.Resources, r)
	}
	return params, nil
}

// LogLevel разбирает уровень логирования
func (c *Config) LogLevel() (logging.LogLevel, error) {
	return logging.ParseLevel(c.Logging.Level)
}

// Validate проверяет конфигурацию целиком
func (c *Config) Validate(catalog *block.Catalog) error {
	params, err := c.WorldParams(catalog)
	if err != nil {
		return err
	}
	if err := params.Validate(catalog); err != nil {
		return err
	}

	if c.Physics.Gravity < 0 || c.Physics.SimulationRate < 0 {
		return fmt.Errorf("%w: physics gravity=%v simulation_rate=%v",
			ErrInvalidConfig, c.Physics.Gravity, c.Physics.SimulationRate)
	}
	if c.Player.Radius <= 0 || c.Player.Height <= 0 || c.Player.MaxSpeed < 0 || c.Player.JumpSpeed < 0 {
		return fmt.Errorf("%w: player %+v", ErrInvalidConfig, c.Player)
	}
	if c.Simulation.TickRate <= 0 || c.Simulation.Ticks < 0 || c.Simulation.DigAtTick < 0 || c.Simulation.StatsEvery < 0 {
		return fmt.Errorf("%w: simulation %+v", ErrInvalidConfig, c.Simulation)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
