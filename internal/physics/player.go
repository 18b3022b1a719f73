package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Параметры агента по умолчанию
const (
	DefaultRadius    = 0.5
	DefaultHeight    = 1.75
	DefaultJumpSpeed = 10.0
	DefaultMaxSpeed  = 10.0
)

// Player агент с вертикальным цилиндрическим коллайдером.
// Position задаёт верх цилиндра (уровень глаз), низ находится на Position.Y - Height.
type Player struct {
	Position mgl64.Vec3
	Radius   float64
	Height   float64

	// Velocity хранится в локальной системе агента: повёрнута на Yaw вокруг +Y
	Velocity mgl64.Vec3
	Yaw      float64

	// Input желаемая горизонтальная скорость в локальной системе (X, Z)
	Input     mgl64.Vec3
	MaxSpeed  float64
	JumpSpeed float64
	OnGround  bool
}

// NewPlayer создаёт агента с параметрами по умолчанию
func NewPlayer(spawn mgl64.Vec3) *Player {
	return &Player{
		Position:  spawn,
		Radius:    DefaultRadius,
		Height:    DefaultHeight,
		MaxSpeed:  DefaultMaxSpeed,
		JumpSpeed: DefaultJumpSpeed,
	}
}

// Center возвращает центр цилиндра
func (p *Player) Center() mgl64.Vec3 {
	return mgl64.Vec3{p.Position.X(), p.Position.Y() - p.Height/2, p.Position.Z()}
}

// WorldVelocity возвращает скорость в мировой системе
func (p *Player) WorldVelocity() mgl64.Vec3 {
	return mgl64.Rotate3DY(p.Yaw).Mul3x1(p.Velocity)
}

// ApplyWorldDeltaVelocity добавляет изменение скорости, заданное в мировой системе
func (p *Player) ApplyWorldDeltaVelocity(dv mgl64.Vec3) {
	p.Velocity = p.Velocity.Add(mgl64.Rotate3DY(-p.Yaw).Mul3x1(dv))
}

// SetInput задаёт желаемое движение: right по локальной X, forward по локальной Z.
// Длина вектора ограничивается MaxSpeed.
func (p *Player) SetInput(right, forward float64) {
	in := mgl64.Vec3{right, 0, forward}
	if l := in.Len(); l > p.MaxSpeed && l > 0 {
		in = in.Mul(p.MaxSpeed / l)
	}
	p.Input = in
}

// ApplyInputs переносит ввод в горизонтальную скорость и сдвигает агента на dt
func (p *Player) ApplyInputs(dt float64) {
	p.Velocity[0] = p.Input.X()
	p.Velocity[2] = p.Input.Z()
	p.Position = p.Position.Add(p.WorldVelocity().Mul(dt))
}

// Jump добавляет вертикальную скорость, если агент стоит на земле
func (p *Player) Jump() bool {
	if !p.OnGround {
		return false
	}
	p.Velocity[1] += p.JumpSpeed
	p.OnGround = false
	return true
}

// Reset возвращает агента в точку появления и обнуляет скорость
func (p *Player) Reset(spawn mgl64.Vec3) {
	p.Position = spawn
	p.Velocity = mgl64.Vec3{}
	p.Input = mgl64.Vec3{}
	p.OnGround = false
}
