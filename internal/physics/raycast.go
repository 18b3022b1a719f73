package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
)

// DefaultPickDistance задаёт дальность выбора блока агентом
const DefaultPickDistance = 4.0

// RayHit результат пересечения луча с блоком
type RayHit struct {
	Block    vec.Vec3   // Координаты блока
	Normal   vec.Vec3   // Грань, через которую луч вошёл в блок; нулевая, если луч начался внутри
	Point    mgl64.Vec3 // Точка входа
	Distance float64
}

// Raycast проходит по клеткам решётки вдоль луча и возвращает первый
// непустой блок не дальше maxDistance. Блок c занимает куб [c-0.5, c+0.5].
func Raycast(origin, direction mgl64.Vec3, maxDistance float64, blocks BlockQuerier) (RayHit, bool) {
	if direction.Len() == 0 || maxDistance < 0 {
		return RayHit{}, false
	}
	dir := direction.Normalize()

	// В сдвинутых координатах блок c занимает [c, c+1)
	shifted := origin.Add(mgl64.Vec3{0.5, 0.5, 0.5})
	cell := [3]int{
		int(math.Floor(shifted[0])),
		int(math.Floor(shifted[1])),
		int(math.Floor(shifted[2])),
	}

	var step [3]int
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
			tMax[i] = (float64(cell[i]+1) - shifted[i]) / dir[i]
			tDelta[i] = 1 / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tMax[i] = (shifted[i] - float64(cell[i])) / -dir[i]
			tDelta[i] = -1 / dir[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	var normal vec.Vec3
	t := 0.0
	for t <= maxDistance {
		b, ok := blocks.GetBlock(cell[0], cell[1], cell[2])
		if ok && !b.IsEmpty() {
			return RayHit{
				Block:    vec.Vec3{X: cell[0], Y: cell[1], Z: cell[2]},
				Normal:   normal,
				Point:    origin.Add(dir.Mul(t)),
				Distance: t,
			}, true
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}

		t = tMax[axis]
		tMax[axis] += tDelta[axis]
		cell[axis] += step[axis]

		normal = vec.Vec3{}
		switch axis {
		case 0:
			normal.X = -step[0]
		case 1:
			normal.Y = -step[1]
		case 2:
			normal.Z = -step[2]
		}
	}
	return RayHit{}, false
}
