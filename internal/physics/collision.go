package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// BlockQuerier описывает источник блоков для обнаружения столкновений.
// Реализуется *world.World; движок только читает блоки.
type BlockQuerier interface {
	GetBlock(x, y, z int) (world.Block, bool)
}

// Collision столкновение агента с одним блоком
type Collision struct {
	Block        vec.Vec3   // Координаты блока
	ContactPoint mgl64.Vec3 // Ближайшая к оси агента точка куба
	Normal       mgl64.Vec3 // Единичная нормаль, направленная от блока к агенту
	Overlap      float64    // Глубина проникновения вдоль нормали
}

// BroadPhase собирает непустые блоки в ограничивающем объёме агента
func BroadPhase(p *Player, blocks BlockQuerier) []vec.Vec3 {
	minX := int(math.Floor(p.Position.X() - p.Radius))
	maxX := int(math.Ceil(p.Position.X() + p.Radius))
	minY := int(math.Floor(p.Position.Y() - p.Height))
	maxY := int(math.Ceil(p.Position.Y()))
	minZ := int(math.Floor(p.Position.Z() - p.Radius))
	maxZ := int(math.Ceil(p.Position.Z() + p.Radius))

	var candidates []vec.Vec3
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				b, ok := blocks.GetBlock(x, y, z)
				if ok && !b.IsEmpty() {
					candidates = append(candidates, vec.Vec3{X: x, Y: y, Z: z})
				}
			}
		}
	}
	return candidates
}

// ClosestPoint возвращает точку куба блока, ближайшую к оси агента.
// По Y ось берётся на уровне центра цилиндра.
func ClosestPoint(b vec.Vec3, p *Player) mgl64.Vec3 {
	center := p.Center()
	return mgl64.Vec3{
		mgl64.Clamp(center.X(), float64(b.X)-0.5, float64(b.X)+0.5),
		mgl64.Clamp(center.Y(), float64(b.Y)-0.5, float64(b.Y)+0.5),
		mgl64.Clamp(center.Z(), float64(b.Z)-0.5, float64(b.Z)+0.5),
	}
}

// PointInCylinder проверяет, лежит ли точка строго внутри цилиндра агента
func PointInCylinder(point mgl64.Vec3, p *Player) bool {
	d := point.Sub(p.Center())
	return math.Abs(d.Y()) < p.Height/2 && d.X()*d.X()+d.Z()*d.Z() < p.Radius*p.Radius
}

// NarrowPhase оставляет кандидатов, пересекающих цилиндр, и выбирает ось
// с наименьшей коррекцией
func NarrowPhase(candidates []vec.Vec3, p *Player) []Collision {
	var collisions []Collision
	center := p.Center()

	for _, b := range candidates {
		closest := ClosestPoint(b, p)
		if !PointInCylinder(closest, p) {
			continue
		}

		d := closest.Sub(center)
		horizontal := math.Sqrt(d.X()*d.X() + d.Z()*d.Z())
		overlapY := p.Height/2 - math.Abs(d.Y())
		overlapXZ := p.Radius - horizontal

		c := Collision{Block: b, ContactPoint: closest}
		// При нулевом горизонтальном смещении радиальная нормаль не определена
		if overlapY < overlapXZ || horizontal == 0 {
			c.Normal = mgl64.Vec3{0, verticalNormal(d.Y()), 0}
			c.Overlap = overlapY
		} else {
			c.Normal = mgl64.Vec3{-d.X() / horizontal, 0, -d.Z() / horizontal}
			c.Overlap = overlapXZ
		}
		collisions = append(collisions, c)
	}
	return collisions
}

// verticalNormal направляет нормаль от точки контакта; контакт на уровне
// центра выталкивает вверх
func verticalNormal(dy float64) float64 {
	if dy > 0 {
		return -1
	}
	return 1
}

// ResolveCollisions сдвигает агента из блоков, начиная с наименьшего
// проникновения, и гасит скорость вдоль нормалей. Перекрытия после каждой
// коррекции не пересчитываются.
func ResolveCollisions(collisions []Collision, p *Player) {
	sort.SliceStable(collisions, func(i, j int) bool {
		return collisions[i].Overlap < collisions[j].Overlap
	})

	for _, c := range collisions {
		p.Position = p.Position.Add(c.Normal.Mul(c.Overlap))

		magnitude := p.WorldVelocity().Dot(c.Normal)
		p.ApplyWorldDeltaVelocity(c.Normal.Mul(-magnitude))

		if c.Normal.Y() > 0 {
			p.OnGround = true
		}
	}
}
