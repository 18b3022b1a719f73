package world

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

func newTestWorld(t *testing.T, params Params, opts ...Option) *World {
	t.Helper()
	w, err := New(params, block.DefaultCatalog(), opts...)
	require.NoError(t, err)
	return w
}

// assertWorldConsistent проверяет видимость во всех загруженных чанках
func assertWorldConsistent(t *testing.T, w *World) {
	t.Helper()
	for _, c := range w.Chunks() {
		if c.Loaded() {
			assertVisibilityConsistent(t, c)
		}
	}
}

func TestNewValidation(t *testing.T) {
	catalog := block.DefaultCatalog()

	tests := []struct {
		name   string
		modify func(p *Params)
		err    error
	}{
		{"нулевая ширина", func(p *Params) { p.ChunkSize.Width = 0 }, ErrInvalidChunkSize},
		{"отрицательная высота", func(p *Params) { p.ChunkSize.Height = -1 }, ErrInvalidChunkSize},
		{"отрицательная дальность", func(p *Params) { p.DrawDistance = -1 }, ErrInvalidDrawDistance},
		{"нулевой масштаб рельефа", func(p *Params) { p.Terrain.Scale = 0 }, ErrInvalidTerrain},
		{"NaN амплитуды", func(p *Params) { p.Terrain.Magnitude = math.NaN() }, ErrInvalidTerrain},
		{"бесконечное смещение", func(p *Params) { p.Terrain.Offset = math.Inf(1) }, ErrInvalidTerrain},
		{"поверхность как ресурс", func(p *Params) {
			p.Resources = []ResourceParams{{ID: block.GrassID, Scale: block.Scale{X: 1, Y: 1, Z: 1}}}
		}, ErrUnknownResource},
		{"нулевой масштаб ресурса", func(p *Params) { p.Resources[0].Scale.Y = 0 }, ErrInvalidResource},
		{"редкость больше 1", func(p *Params) { p.Resources[1].Scarcity = 1.5 }, ErrInvalidResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams(catalog)
			tt.modify(&params)

			w, err := New(params, catalog)
			assert.Nil(t, w)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "ожидалась %v, получена %v", tt.err, err)
		})
	}

	_, err := New(DefaultParams(catalog), nil)
	assert.ErrorIs(t, err, ErrNoCatalog)

	params := DefaultParams(catalog)
	params.DrawDistance = 0
	params.Resources = nil
	_, err = New(params, catalog)
	assert.NoError(t, err, "нулевая дальность и пустой список ресурсов допустимы")
}

func TestWorldToChunkCoordsInverse(t *testing.T) {
	for _, width := range []int{1, 7, 16, 64} {
		for x := -130; x <= 130; x += 3 {
			for z := -129; z <= 131; z += 5 {
				chunk, local := WorldToChunkCoords(x, 4, z, width)

				require.True(t, local.X >= 0 && local.X < width, "локальный X %d вне [0,%d)", local.X, width)
				require.True(t, local.Z >= 0 && local.Z < width, "локальный Z %d вне [0,%d)", local.Z, width)
				require.Equal(t, 4, local.Y)
				require.Equal(t, vec.Vec3{X: x, Y: 4, Z: z}, ChunkToWorldCoords(chunk, local, width))
			}
		}
	}

	chunk, local := WorldToChunkCoords(-1, 0, 0, 64)
	assert.Equal(t, vec.Vec2{X: -1, Z: 0}, chunk, "отрицательные координаты округляются вниз")
	assert.Equal(t, vec.Vec3{X: 63}, local)
}

func TestBlockAtAndChunkOf(t *testing.T) {
	assert.Equal(t, vec.Vec3{X: 0, Y: 0, Z: -1}, BlockAt(mgl64.Vec3{0.49, -0.5, -0.51}))
	assert.Equal(t, vec.Vec3{X: 3, Y: 7, Z: -2}, BlockAt(mgl64.Vec3{3.2, 6.5, -2.4}))

	// Чанк определяется по блоку под точкой: x=-0.5 уже блок 0, z=63.6 уже блок 64
	assert.Equal(t, vec.Vec2{X: 0, Z: 1}, ChunkOf(mgl64.Vec3{-0.5, 0, 63.6}, 64))
	assert.Equal(t, vec.Vec2{X: -1, Z: 0}, ChunkOf(mgl64.Vec3{-0.6, 0, 63.4}, 64))
	assert.Equal(t, vec.Vec2{X: 1, Z: -2}, ChunkOf(mgl64.Vec3{64, 100, -65}, 64))
	for _, p := range []mgl64.Vec3{{63.7, 0, 0.2}, {-64.4, 3, 127.49}, {0.49, 0, -0.51}} {
		b := BlockAt(p)
		chunk, _ := WorldToChunkCoords(b.X, b.Y, b.Z, 64)
		assert.Equal(t, chunk, ChunkOf(p, 64), "ChunkOf согласован с BlockAt для %v", p)
	}
}

func TestWorldGenerate(t *testing.T) {
	w := newTestWorld(t, testParams(16, 16))
	ctx := context.Background()

	w.Generate(ctx)
	assert.Equal(t, 9, w.ChunkCount(), "дальность 1 даёт квадрат 3x3")
	assert.Equal(t, 9, w.LoadedCount())
	assert.Equal(t, 0, w.PendingCount())

	for _, coords := range (vec.Vec2{}).Square(1) {
		c, ok := w.GetChunk(coords)
		require.True(t, ok, "чанк %v", coords)
		assert.True(t, c.Loaded())
		assert.Equal(t, coords.Origin(16), c.Position)
	}

	// Повторная генерация пересобирает тот же набор
	w.Generate(ctx)
	assert.Equal(t, 9, w.ChunkCount())

	placements := w.Placements()
	require.Len(t, placements, 9)
	assert.Equal(t, vec.Vec2{X: -1, Z: -1}, placements[0].Coords, "положения отсортированы по координатам")
	assert.Equal(t, mgl64.Vec3{-16, 0, -16}, placements[0].Position)
	assertWorldConsistent(t, w)
}

func TestWorldDeterministic(t *testing.T) {
	params := testParams(16, 16)
	params.Seed = 99
	a := newTestWorld(t, params)
	b := newTestWorld(t, params)
	a.Generate(context.Background())
	b.Generate(context.Background())

	for _, ca := range a.Chunks() {
		cb, ok := b.GetChunk(ca.Coords)
		require.True(t, ok)
		assert.Equal(t, ca.Snapshot(), cb.Snapshot(), "чанк %v", ca.Coords)
	}

	// Чанк мира совпадает с отдельно сгенерированным чанком тех же координат
	standalone := NewChunk(vec.Vec2{X: 1, Z: -1}, params, block.DefaultCatalog())
	standalone.Generate()
	inWorld, _ := a.GetChunk(vec.Vec2{X: 1, Z: -1})
	assert.Equal(t, standalone.Snapshot(), inWorld.Snapshot())
}

func TestWorldUpdateStreaming(t *testing.T) {
	w := newTestWorld(t, testParams(16, 16))
	ctx := context.Background()
	w.Generate(ctx)

	res := w.Update(ctx, mgl64.Vec3{16*2 + 1, 5, 0.5})
	assert.Equal(t, vec.Vec2{X: 2, Z: 0}, res.Center)
	assert.ElementsMatch(t, []vec.Vec2{
		{X: -1, Z: -1}, {X: -1, Z: 0}, {X: -1, Z: 1},
		{X: 0, Z: -1}, {X: 0, Z: 0}, {X: 0, Z: 1},
	}, res.Removed)
	assert.ElementsMatch(t, []vec.Vec2{
		{X: 2, Z: -1}, {X: 2, Z: 0}, {X: 2, Z: 1},
		{X: 3, Z: -1}, {X: 3, Z: 0}, {X: 3, Z: 1},
	}, res.Added)

	assert.Equal(t, 9, w.ChunkCount())
	for _, c := range w.Chunks() {
		assert.LessOrEqual(t, c.Coords.ChebyshevDistance(res.Center), 1, "чанк %v вне дальности", c.Coords)
		assert.True(t, c.Loaded(), "синхронная загрузка")
	}

	// Повторный Update с той же позицией ничего не меняет
	again := w.Update(ctx, mgl64.Vec3{16*2 + 1, 5, 0.5})
	assert.Empty(t, again.Added)
	assert.Empty(t, again.Removed)

	// Отрицательные координаты попадают в чанк (-1, -1)
	neg := w.Update(ctx, mgl64.Vec3{-0.6, 0, -0.6})
	assert.Equal(t, vec.Vec2{X: -1, Z: -1}, neg.Center)
	_, ok := w.GetChunk(vec.Vec2{X: -2, Z: -2})
	assert.True(t, ok)
}

func TestWorldDrawDistanceZero(t *testing.T) {
	params := testParams(8, 8)
	params.DrawDistance = 0
	w := newTestWorld(t, params)

	res := w.Update(context.Background(), mgl64.Vec3{20, 0, -3})
	assert.Equal(t, []vec.Vec2{{X: 2, Z: -1}}, res.Added)
	assert.Equal(t, 1, w.ChunkCount())
}

func TestWorldCenterFollowsBlockUnderAgent(t *testing.T) {
	params := testParams(64, 32)
	params.DrawDistance = 0
	w := newTestWorld(t, params)

	// x=63.7 лежит в кубе блока 64, то есть уже в чанке 1
	agent := mgl64.Vec3{63.7, 30, 32}
	res := w.Update(context.Background(), agent)
	assert.Equal(t, vec.Vec2{X: 1, Z: 0}, res.Center)
	assert.Equal(t, 1, w.ChunkCount())

	column := BlockAt(agent)
	require.Equal(t, 64, column.X)
	_, ok := w.GetBlock(column.X, 0, column.Z)
	assert.True(t, ok, "колонна под агентом загружена")
}

func TestWorldAsyncLoading(t *testing.T) {
	params := testParams(8, 8)
	params.AsyncLoading = true
	w := newTestWorld(t, params)
	ctx := context.Background()

	w.Generate(ctx)
	assert.Equal(t, 9, w.LoadedCount(), "Generate загружает синхронно")

	res := w.Update(ctx, mgl64.Vec3{8 * 10, 0, 0})
	require.Len(t, res.Added, 9)
	assert.Equal(t, 9, w.ChunkCount(), "новые чанки сразу попадают в карту")
	assert.Equal(t, 0, w.LoadedCount())
	assert.Equal(t, 9, w.PendingCount())

	_, ok := w.GetBlock(8*10, 0, 0)
	assert.False(t, ok, "блоки ожидающего чанка недоступны")
	_, ok = w.SurfaceHeight(8*10, 0)
	assert.False(t, ok)

	done := w.ProcessPending()
	assert.GreaterOrEqual(t, done, 1, "шаг выполняет хотя бы одну задачу")
	assert.Equal(t, 9-done, w.PendingCount())

	require.Equal(t, 9-done, w.Scheduler().Drain())
	assert.Equal(t, 9, w.LoadedCount())
	assert.Equal(t, 0, w.ProcessPending(), "пустая очередь")

	_, ok = w.GetBlock(8*10, 0, 0)
	assert.True(t, ok)
	assertWorldConsistent(t, w)
}

func TestWorldUnloadCancelsPending(t *testing.T) {
	params := testParams(8, 8)
	params.AsyncLoading = true
	reg := prometheus.NewRegistry()
	w := newTestWorld(t, params, WithMetrics(metrics.NewWorldMetrics(reg)))
	ctx := context.Background()

	first := w.Update(ctx, mgl64.Vec3{0, 0, 0})
	require.Len(t, first.Added, 9)
	require.Equal(t, 9, w.PendingCount())

	second := w.Update(ctx, mgl64.Vec3{8 * 10, 0, 8 * 10})
	assert.ElementsMatch(t, first.Added, second.Removed)
	for _, coords := range first.Added {
		assert.False(t, w.Scheduler().IsPending(coords), "задача %v отменена при выгрузке", coords)
	}
	assert.Equal(t, 9, w.PendingCount(), "в очереди только новые чанки")

	expected := `
# HELP voxel_world_generation_cancelled_total Задачи генерации, снятые с очереди до выполнения.
# TYPE voxel_world_generation_cancelled_total counter
voxel_world_generation_cancelled_total 9
# HELP voxel_world_chunk_unloads_total Общее число выгруженных чанков.
# TYPE voxel_world_chunk_unloads_total counter
voxel_world_chunk_unloads_total 9
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"voxel_world_generation_cancelled_total", "voxel_world_chunk_unloads_total"))

	w.Scheduler().Drain()
	expected = `
# HELP voxel_world_chunk_loads_total Общее число сгенерированных чанков.
# TYPE voxel_world_chunk_loads_total counter
voxel_world_chunk_loads_total 9
# HELP voxel_world_chunks_loaded Количество чанков с завершённой генерацией.
# TYPE voxel_world_chunks_loaded gauge
voxel_world_chunks_loaded 9
# HELP voxel_world_chunks_pending Чанки в очереди отложенной генерации.
# TYPE voxel_world_chunks_pending gauge
voxel_world_chunks_pending 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"voxel_world_chunk_loads_total", "voxel_world_chunks_loaded", "voxel_world_chunks_pending"))
}

func TestWorldLogsStreaming(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("world", &buf, logging.DEBUG)
	params := testParams(4, 4)
	params.DrawDistance = 0
	w := newTestWorld(t, params, WithLogger(logger))

	w.Update(context.Background(), mgl64.Vec3{})
	w.Update(context.Background(), mgl64.Vec3{10, 0, 0})

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] [world] Chunk load: chunk(0,0)")
	assert.Contains(t, out, "Chunk unload: chunk(0,0)")
	assert.Contains(t, out, "Chunk load: chunk(2,0)")
}

func TestWorldBoundsSafety(t *testing.T) {
	w := newTestWorld(t, testParams(8, 8))
	w.Generate(context.Background())

	for _, p := range []vec.Vec3{{Y: -1}, {Y: 8}, {X: 1000, Z: 1000}, {X: -100, Y: 2, Z: 3}} {
		_, ok := w.GetBlock(p.X, p.Y, p.Z)
		assert.False(t, ok, "GetBlock(%v)", p)
		assert.False(t, w.IsSolid(p.X, p.Y, p.Z))

		assert.NotPanics(t, func() {
			w.SetBlockID(p.X, p.Y, p.Z, block.StoneID)
			w.RemoveBlock(p.X, p.Y, p.Z)
			w.RevealBlock(p.X, p.Y, p.Z)
			w.HideBlock(p.X, p.Y, p.Z)
		})
		assert.False(t, w.AddBlock(p.X, p.Y, p.Z, block.StoneID))
	}

	_, ok := w.SurfaceHeight(1000, 1000)
	assert.False(t, ok)
	assertWorldConsistent(t, w)
}

func TestWorldRemoveBlockReveals(t *testing.T) {
	w := newTestWorld(t, solidParams(16, 16))
	w.Generate(context.Background())

	c, ok := w.GetChunk(vec.Vec2{})
	require.True(t, ok)

	// Ищем скрытый блок внутри чанка
	var hidden vec.Vec3
	found := false
	for x := 1; x < 15 && !found; x++ {
		for z := 1; z < 15 && !found; z++ {
			for y := 1; y < 15; y++ {
				b, _ := c.GetBlock(x, y, z)
				if !b.IsEmpty() && !b.HasInstance {
					hidden = vec.Vec3{X: x, Y: y, Z: z}
					found = true
					break
				}
			}
		}
	}
	require.True(t, found, "в сплошном рельефе есть скрытые блоки")

	w.RemoveBlock(hidden.X, hidden.Y+1, hidden.Z)
	assert.False(t, w.IsSolid(hidden.X, hidden.Y+1, hidden.Z))

	b, ok := w.GetBlock(hidden.X, hidden.Y, hidden.Z)
	require.True(t, ok)
	assert.True(t, b.HasInstance, "сосед удалённого блока стал видимым")
	assertWorldConsistent(t, w)

	// Перекрашенный блок удаляется из таблицы своего экземпляра
	w.SetBlockID(hidden.X, hidden.Y, hidden.Z, block.IronOreID)
	w.RemoveBlock(hidden.X, hidden.Y, hidden.Z)
	assert.False(t, w.IsSolid(hidden.X, hidden.Y, hidden.Z))
	if iron := c.Instances(block.IronOreID); iron != nil {
		assert.Zero(t, iron.Len(), "таблица руды не затронута")
	}
	assertWorldConsistent(t, w)

	// Удаление на границе чанков не нарушает согласованность соседнего чанка
	h, ok := w.SurfaceHeight(15, 5)
	require.True(t, ok)
	w.RemoveBlock(15, h-1, 5)
	w.RemoveBlock(16, h-1, 5)
	assertWorldConsistent(t, w)
}

func TestWorldAddBlockHides(t *testing.T) {
	w := newTestWorld(t, solidParams(16, 16))
	w.Generate(context.Background())

	h, ok := w.SurfaceHeight(5, 5)
	require.True(t, ok)
	require.Less(t, h+1, 16)

	require.True(t, w.AddBlock(5, h+1, 5, block.StoneID))
	b, _ := w.GetBlock(5, h+1, 5)
	assert.Equal(t, block.StoneID, b.ID)
	assert.True(t, b.HasInstance)
	assert.False(t, w.AddBlock(5, h+1, 5, block.DirtID), "клетка уже занята")

	// Заполняем дыру и проверяем, что закрытые соседи теряют экземпляры
	hole := vec.Vec3{X: 7, Y: 3, Z: 7}
	w.RemoveBlock(hole.X, hole.Y, hole.Z)
	assertWorldConsistent(t, w)
	require.True(t, w.AddBlock(hole.X, hole.Y, hole.Z, block.DirtID))
	assertWorldConsistent(t, w)

	h2, _ := w.SurfaceHeight(5, 5)
	assert.Equal(t, h+1, h2)
}

func BenchmarkWorldUpdate(b *testing.B) {
	params := DefaultParams(block.DefaultCatalog())
	w, err := New(params, block.DefaultCatalog())
	require.NoError(b, err)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Update(ctx, mgl64.Vec3{float64(i * params.ChunkSize.Width), 0, 0})
	}
}
