package vec

// Vec2 представляет координаты чанка в решётке чанков (X и Z мира)
type Vec2 struct {
	X, Z int
}

// FloorDiv выполняет целочисленное деление с округлением вниз (b > 0)
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// Mod возвращает неотрицательный остаток от деления (b > 0)
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// ToChunkCoords преобразует мировые координаты X/Z в координаты чанка
func ToChunkCoords(x, z, width int) Vec2 {
	return Vec2{X: FloorDiv(x, width), Z: FloorDiv(z, width)}
}

// Origin возвращает мировую позицию угла чанка (x, 0, z)
func (v Vec2) Origin(width int) Vec3 {
	return Vec3{X: v.X * width, Y: 0, Z: v.Z * width}
}

// ChebyshevDistance возвращает расстояние по максимуму из осей
func (v Vec2) ChebyshevDistance(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dz := v.Z - other.Z
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// Square возвращает все координаты в квадрате радиуса r вокруг v (включительно)
func (v Vec2) Square(r int) []Vec2 {
	if r < 0 {
		return nil
	}
	side := 2*r + 1
	out := make([]Vec2, 0, side*side)
	for x := v.X - r; x <= v.X+r; x++ {
		for z := v.Z - r; z <= v.Z+r; z++ {
			out = append(out, Vec2{X: x, Z: z})
		}
	}
	return out
}
