package world

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/annel0/voxel-world/internal/world/block"
)

// Ошибки конфигурации мира
var (
	ErrNoCatalog           = errors.New("каталог блоков не задан")
	ErrInvalidChunkSize    = errors.New("размеры чанка должны быть положительными")
	ErrInvalidDrawDistance = errors.New("дальность прорисовки не может быть отрицательной")
	ErrInvalidTerrain      = errors.New("некорректные параметры рельефа")
	ErrUnknownResource     = errors.New("неизвестный тип ресурса")
	ErrInvalidResource     = errors.New("некорректные параметры ресурса")
)

// ChunkSize задаёт размеры чанка: Width по X и Z, Height по Y
type ChunkSize struct {
	Width  int
	Height int
}

// TerrainParams параметры карты высот
type TerrainParams struct {
	Scale     float64 // делитель координат для 2D-шума
	Magnitude float64 // амплитуда относительной высоты
	Offset    float64 // смещение относительной высоты
}

// ResourceParams параметры генерации одной жилы ресурса
type ResourceParams struct {
	ID       block.ID
	Scale    block.Scale
	Scarcity float64
}

// Params параметры генерации и стриминга, общие для всех чанков мира
type Params struct {
	Seed         int64
	ChunkSize    ChunkSize
	DrawDistance int
	Terrain      TerrainParams
	Resources    []ResourceParams // порядок применения: поздние перезаписывают ранние

	// AsyncLoading откладывает генерацию новых чанков в очередь планировщика
	AsyncLoading bool
	// GenerationBudget ограничивает время одного шага планировщика
	GenerationBudget time.Duration
}

// DefaultParams возвращает параметры по умолчанию для каталога
func DefaultParams(catalog *block.Catalog) Params {
	return Params{
		Seed:             0,
		ChunkSize:        ChunkSize{Width: 64, Height: 32},
		DrawDistance:     1,
		Terrain:          TerrainParams{Scale: 30, Magnitude: 0.5, Offset: 0.2},
		Resources:        ResourcesFromCatalog(catalog),
		GenerationBudget: 8 * time.Millisecond,
	}
}

// ResourcesFromCatalog копирует параметры ресурсов каталога в порядке приоритета
func ResourcesFromCatalog(catalog *block.Catalog) []ResourceParams {
	types := catalog.Resources()
	out := make([]ResourceParams, 0, len(types))
	for _, t := range types {
		out = append(out, ResourceParams{ID: t.ID, Scale: t.Scale, Scarcity: t.Scarcity})
	}
	return out
}

// Validate проверяет параметры относительно каталога
func (p Params) Validate(catalog *block.Catalog) error {
	if p.ChunkSize.Width <= 0 || p.ChunkSize.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidChunkSize, p.ChunkSize.Width, p.ChunkSize.Height)
	}
	if p.DrawDistance < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDrawDistance, p.DrawDistance)
	}
	if !(p.Terrain.Scale > 0) || !finite(p.Terrain.Magnitude) || !finite(p.Terrain.Offset) || math.IsInf(p.Terrain.Scale, 0) {
		return fmt.Errorf("%w: scale=%v magnitude=%v offset=%v",
			ErrInvalidTerrain, p.Terrain.Scale, p.Terrain.Magnitude, p.Terrain.Offset)
	}

	resources := make(map[block.ID]struct{})
	for _, t := range catalog.Resources() {
		resources[t.ID] = struct{}{}
	}
	for _, r := range p.Resources {
		if _, ok := resources[r.ID]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownResource, r.ID)
		}
		if !r.Scale.Valid() || math.IsNaN(r.Scarcity) || r.Scarcity < -1 || r.Scarcity > 1 {
			return fmt.Errorf("%w: %d scale=%+v scarcity=%v", ErrInvalidResource, r.ID, r.Scale, r.Scarcity)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
