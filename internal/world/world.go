package world

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

const tracerName = "github.com/annel0/voxel-world/internal/world"

// World управляет набором загруженных чанков вокруг наблюдателя.
// Не потокобезопасен: все вызовы выполняются из одного цикла тиков.
type World struct {
	ID uuid.UUID // Идентификатор экземпляра мира для логов и трассировки

	params    Params
	catalog   *block.Catalog
	chunks    map[vec.Vec2]*Chunk // Все чанки, включая ожидающие генерации
	scheduler *Scheduler
	metrics   *metrics.WorldMetrics
	log       *logging.Logger
	tracer    trace.Tracer
}

// Option настраивает World при создании
type Option func(*World)

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *metrics.WorldMetrics) Option {
	return func(w *World) { w.metrics = m }
}

// WithLogger задаёт логгер мира
func WithLogger(l *logging.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// UpdateResult описывает изменения набора чанков за один Update
type UpdateResult struct {
	Center  vec.Vec2
	Added   []vec.Vec2
	Removed []vec.Vec2
}

// ChunkPlacement лёгкая запись о положении чанка для слоя рендеринга
type ChunkPlacement struct {
	Coords   vec.Vec2
	Position mgl64.Vec3
	Loaded   bool
}

// New создаёт мир. Некорректные параметры отклоняются сразу.
func New(params Params, catalog *block.Catalog, opts ...Option) (*World, error) {
	if catalog == nil {
		return nil, ErrNoCatalog
	}
	if err := params.Validate(catalog); err != nil {
		return nil, fmt.Errorf("конфигурация мира: %w", err)
	}

	w := &World{
		ID:        uuid.New(),
		params:    params,
		catalog:   catalog,
		chunks:    make(map[vec.Vec2]*Chunk),
		scheduler: NewScheduler(),
		log:       logging.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.scheduler.OnComplete(func(task *GenerationTask, took time.Duration) {
		w.metrics.ChunkGenerated(took)
		w.metrics.SetPending(w.scheduler.Pending())
		w.log.Debug("Chunk generated: chunk(%d,%d) task=%s in %s (waited %s)",
			task.Coords.X, task.Coords.Z, task.ID, took, time.Since(task.Enqueued))
	})

	return w, nil
}

// Params возвращает параметры мира
func (w *World) Params() Params { return w.params }

// Catalog возвращает каталог блоков
func (w *World) Catalog() *block.Catalog { return w.catalog }

// Scheduler возвращает очередь отложенной генерации
func (w *World) Scheduler() *Scheduler { return w.scheduler }

// WorldToChunkCoords переводит мировые координаты с шириной чанков этого мира
func (w *World) WorldToChunkCoords(x, y, z int) (vec.Vec2, vec.Vec3) {
	return WorldToChunkCoords(x, y, z, w.params.ChunkSize.Width)
}

// Generate пересобирает видимый набор чанков вокруг начала координат синхронно
func (w *World) Generate(ctx context.Context) {
	_, span := w.tracer.Start(ctx, "world.Generate", trace.WithAttributes(
		attribute.String("world.id", w.ID.String()),
		attribute.Int64("world.seed", w.params.Seed),
	))
	defer span.End()

	for _, coords := range w.sortedCoords() {
		w.unloadChunk(coords)
	}

	center := vec.Vec2{}
	for _, coords := range center.Square(w.params.DrawDistance) {
		w.loadChunk(coords, false)
	}
	span.SetAttributes(attribute.Int("world.chunks", len(w.chunks)))
	w.log.Info("World %s generated: seed=%d chunks=%d", w.ID, w.params.Seed, len(w.chunks))
}

// Update выполняет один шаг стриминга для позиции наблюдателя
func (w *World) Update(ctx context.Context, position mgl64.Vec3) UpdateResult {
	_, span := w.tracer.Start(ctx, "world.Update")
	defer span.End()

	center := ChunkOf(position, w.params.ChunkSize.Width)
	result := UpdateResult{Center: center}

	visible := make(map[vec.Vec2]struct{})
	for _, coords := range center.Square(w.params.DrawDistance) {
		visible[coords] = struct{}{}
	}

	for _, coords := range w.sortedCoords() {
		if _, ok := visible[coords]; !ok {
			w.unloadChunk(coords)
			result.Removed = append(result.Removed, coords)
		}
	}

	for _, coords := range center.Square(w.params.DrawDistance) {
		if _, ok := w.chunks[coords]; ok {
			continue
		}
		w.loadChunk(coords, w.params.AsyncLoading)
		result.Added = append(result.Added, coords)
	}

	span.SetAttributes(
		attribute.Int("world.chunks_added", len(result.Added)),
		attribute.Int("world.chunks_removed", len(result.Removed)),
	)
	return result
}

// ProcessPending выполняет шаг отложенной генерации в пределах бюджета мира
func (w *World) ProcessPending() int {
	if w.scheduler.Pending() == 0 {
		return 0
	}
	return w.scheduler.Step(w.params.GenerationBudget)
}

// loadChunk создаёт чанк и сразу вставляет его в карту (loaded == false до генерации)
func (w *World) loadChunk(coords vec.Vec2, deferred bool) {
	c := NewChunk(coords, w.params, w.catalog)
	w.chunks[coords] = c
	w.log.Debug("Chunk load: chunk(%d,%d) deferred=%t", coords.X, coords.Z, deferred)

	if deferred {
		w.scheduler.Enqueue(c)
		w.metrics.SetPending(w.scheduler.Pending())
		return
	}

	start := time.Now()
	c.Generate()
	w.metrics.ChunkGenerated(time.Since(start))
}

// unloadChunk освобождает экземпляры чанка и удаляет его из карты
func (w *World) unloadChunk(coords vec.Vec2) {
	c, ok := w.chunks[coords]
	if !ok {
		return
	}
	if w.scheduler.Cancel(coords) {
		w.metrics.GenerationCancelled()
		w.metrics.SetPending(w.scheduler.Pending())
	}
	released := c.ReleaseInstances()
	delete(w.chunks, coords)
	w.metrics.ChunkUnloaded(c.Loaded())
	w.log.Debug("Chunk unload: chunk(%d,%d) released %d instances", coords.X, coords.Z, released)
}

func (w *World) sortedCoords() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	return keys
}

// GetChunk возвращает чанк по координатам (в том числе ещё не сгенерированный)
func (w *World) GetChunk(coords vec.Vec2) (*Chunk, bool) {
	c, ok := w.chunks[coords]
	return c, ok
}

// Chunks возвращает все чанки, отсортированные по координатам
func (w *World) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(w.chunks))
	for _, coords := range w.sortedCoords() {
		out = append(out, w.chunks[coords])
	}
	return out
}

// Placements возвращает положения чанков для слоя рендеринга
func (w *World) Placements() []ChunkPlacement {
	out := make([]ChunkPlacement, 0, len(w.chunks))
	for _, c := range w.Chunks() {
		out = append(out, ChunkPlacement{Coords: c.Coords, Position: c.Origin(), Loaded: c.Loaded()})
	}
	return out
}

// ChunkCount возвращает количество чанков в карте
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// LoadedCount возвращает количество сгенерированных чанков
func (w *World) LoadedCount() int {
	n := 0
	for _, c := range w.chunks {
		if c.Loaded() {
			n++
		}
	}
	return n
}

// PendingCount возвращает количество чанков, ждущих генерации
func (w *World) PendingCount() int {
	return w.scheduler.Pending()
}

// loadedChunkAt находит сгенерированный чанк для мировых координат блока
func (w *World) loadedChunkAt(x, y, z int) (*Chunk, vec.Vec3, bool) {
	coords, local := w.WorldToChunkCoords(x, y, z)
	c, ok := w.chunks[coords]
	if !ok || !c.Loaded() {
		return nil, local, false
	}
	return c, local, true
}

// GetBlock возвращает блок по мировым координатам; false, если чанк не
// загружен или координаты вне его границ
func (w *World) GetBlock(x, y, z int) (Block, bool) {
	c, local, ok := w.loadedChunkAt(x, y, z)
	if !ok {
		return Block{}, false
	}
	return c.GetBlock(local.X, local.Y, local.Z)
}

// IsSolid сообщает, занята ли клетка непустым блоком
func (w *World) IsSolid(x, y, z int) bool {
	b, ok := w.GetBlock(x, y, z)
	return ok && !b.IsEmpty()
}

// SetBlockID меняет тип блока по мировым координатам, не трогая экземпляры
func (w *World) SetBlockID(x, y, z int, id block.ID) {
	if c, local, ok := w.loadedChunkAt(x, y, z); ok {
		c.SetBlockID(local.X, local.Y, local.Z, id)
	}
}

// RemoveBlock удаляет блок и открывает шестерых соседей
func (w *World) RemoveBlock(x, y, z int) {
	c, local, ok := w.loadedChunkAt(x, y, z)
	if !ok || !c.InBounds(local.X, local.Y, local.Z) {
		return
	}
	c.RemoveBlock(local.X, local.Y, local.Z)

	for _, d := range vec.Neighbors6 {
		w.RevealBlock(x+d.X, y+d.Y, z+d.Z)
	}
}

// RevealBlock выдаёт экземпляр блоку, если он стал видимым
func (w *World) RevealBlock(x, y, z int) {
	if c, local, ok := w.loadedChunkAt(x, y, z); ok {
		c.AddBlockInstance(local.X, local.Y, local.Z)
	}
}

// AddBlock ставит блок в пустую клетку и скрывает соседей, которых он закрыл
func (w *World) AddBlock(x, y, z int, id block.ID) bool {
	c, local, ok := w.loadedChunkAt(x, y, z)
	if !ok || !c.AddBlock(local.X, local.Y, local.Z, id) {
		return false
	}

	for _, d := range vec.Neighbors6 {
		w.HideBlock(x+d.X, y+d.Y, z+d.Z)
	}
	return true
}

// HideBlock убирает экземпляр блока, если он стал полностью закрыт
func (w *World) HideBlock(x, y, z int) {
	if c, local, ok := w.loadedChunkAt(x, y, z); ok {
		c.HideBlock(local.X, local.Y, local.Z)
	}
}

// SurfaceHeight возвращает высоту верхнего непустого блока колонны (x, z)
func (w *World) SurfaceHeight(x, z int) (int, bool) {
	c, local, ok := w.loadedChunkAt(x, 0, z)
	if !ok {
		return 0, false
	}
	return c.HighestBlock(local.X, local.Z)
}
