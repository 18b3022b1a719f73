package world

import (
	"math"

	"github.com/annel0/voxel-world/internal/noise"
	"github.com/annel0/voxel-world/internal/random"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Generate заполняет чанк: ресурсы, рельеф, затем таблицы экземпляров.
// Порядок этапов фиксирован, поздние этапы перезаписывают ранние.
func (c *Chunk) Generate() {
	// Поля шума берутся из одного потока в фиксированном порядке,
	// поэтому все чанки мира с одним сидом видят одинаковый шум
	rng := random.New(c.params.Seed)
	resourceNoise := noise.New(rng)
	terrainNoise := noise.New(rng)

	c.clear()
	c.generateResources(resourceNoise)
	c.generateTerrain(terrainNoise)
	c.generateMeshes()
	c.loaded = true
}

// clear заполняет все клетки пустым типом
func (c *Chunk) clear() {
	for i := range c.data {
		c.data[i] = Block{ID: block.EmptyID}
	}
}

// generateResources размещает жилы ресурсов по 3D-шуму. Последний записавший побеждает.
func (c *Chunk) generateResources(field *noise.Field) {
	for _, r := range c.params.Resources {
		for x := 0; x < c.width; x++ {
			for y := 0; y < c.height; y++ {
				for z := 0; z < c.width; z++ {
					value := field.Noise3(
						float64(c.Position.X+x)/r.Scale.X,
						float64(c.Position.Y+y)/r.Scale.Y,
						float64(c.Position.Z+z)/r.Scale.Z,
					)
					if value > r.Scarcity {
						c.data[c.index(x, y, z)].ID = r.ID
					}
				}
			}
		}
	}
}

// ColumnHeight вычисляет высоту поверхности колонны по значению 2D-шума
func ColumnHeight(value float64, terrain TerrainParams, chunkHeight int) int {
	scaled := terrain.Offset + terrain.Magnitude*value
	h := int(math.Floor(float64(chunkHeight) * scaled))
	if h < 0 {
		return 0
	}
	if h > chunkHeight-1 {
		return chunkHeight - 1
	}
	return h
}

// generateTerrain строит рельеф: заполнитель ниже высоты (ресурсы сохраняются),
// поверхность на высоте, пустота выше.
func (c *Chunk) generateTerrain(field *noise.Field) {
	fill := c.types.Fill().ID
	surface := c.types.Surface().ID
	terrain := c.params.Terrain

	for x := 0; x < c.width; x++ {
		for z := 0; z < c.width; z++ {
			value := field.Noise2(
				float64(c.Position.X+x)/terrain.Scale,
				float64(c.Position.Z+z)/terrain.Scale,
			)
			h := ColumnHeight(value, terrain, c.height)
			c.heights[x*c.width+z] = h

			for y := 0; y < c.height; y++ {
				cell := &c.data[c.index(x, y, z)]
				switch {
				case y < h && cell.ID == block.EmptyID:
					cell.ID = fill
				case y == h:
					cell.ID = surface
				case y > h:
					cell.ID = block.EmptyID
				}
			}
		}
	}
}
