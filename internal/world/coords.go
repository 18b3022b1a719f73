package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
)

// WorldToChunkCoords переводит мировые координаты блока в координаты чанка и
// локальные координаты внутри него. Деление с округлением вниз, поэтому
// отрицательные координаты попадают в соседний чанк слева.
func WorldToChunkCoords(x, y, z, width int) (vec.Vec2, vec.Vec3) {
	chunk := vec.ToChunkCoords(x, z, width)
	local := vec.Vec3{
		X: x - width*chunk.X,
		Y: y,
		Z: z - width*chunk.Z,
	}
	return chunk, local
}

// ChunkToWorldCoords выполняет обратное преобразование: позиция чанка плюс локальные координаты
func ChunkToWorldCoords(chunk vec.Vec2, local vec.Vec3, width int) vec.Vec3 {
	return chunk.Origin(width).Add(local)
}

// BlockAt возвращает координаты блока, содержащего точку.
// Блок с координатами c занимает куб [c-0.5, c+0.5] по каждой оси.
func BlockAt(p mgl64.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: int(math.Floor(p.X() + 0.5)),
		Y: int(math.Floor(p.Y() + 0.5)),
		Z: int(math.Floor(p.Z() + 0.5)),
	}
}

// ChunkOf возвращает координаты чанка, которому принадлежит блок с точкой p
func ChunkOf(p mgl64.Vec3, width int) vec.Vec2 {
	b := BlockAt(p)
	return vec.ToChunkCoords(b.X, b.Z, width)
}
