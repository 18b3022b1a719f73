package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Block запись о клетке чанка
type Block struct {
	ID           block.ID // Идентификатор типа блока
	InstanceID   int      // Слот в таблице экземпляров; валиден только при HasInstance
	InstanceType block.ID // Тип таблицы, в которой лежит экземпляр (может отличаться от ID после SetBlockID)
	HasInstance  bool
}

// IsEmpty возвращает true для пустой клетки
func (b Block) IsEmpty() bool {
	return b.ID == block.EmptyID
}

// Chunk представляет вертикальную колонну мира размером Width x Height x Width
type Chunk struct {
	Coords   vec.Vec2 // Координаты чанка в решётке
	Position vec.Vec3 // Мировая позиция угла чанка

	width  int
	height int
	params Params
	types  *block.Catalog

	data      []Block
	heights   []int // высота поверхности, вычисленная этапом рельефа
	instances map[block.ID]*InstanceTable
	loaded    bool
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec2, params Params, catalog *block.Catalog) *Chunk {
	w, h := params.ChunkSize.Width, params.ChunkSize.Height
	return &Chunk{
		Coords:    coords,
		Position:  coords.Origin(w),
		width:     w,
		height:    h,
		params:    params,
		types:     catalog,
		data:      make([]Block, w*h*w),
		heights:   make([]int, w*w),
		instances: make(map[block.ID]*InstanceTable),
	}
}

// Width возвращает ширину чанка по X и Z
func (c *Chunk) Width() int { return c.width }

// Height возвращает высоту чанка
func (c *Chunk) Height() int { return c.height }

// Loaded возвращает true после завершения генерации
func (c *Chunk) Loaded() bool { return c.loaded }

// Params возвращает параметры, с которыми строится чанк
func (c *Chunk) Params() Params { return c.params }

// Origin возвращает мировую позицию чанка как вектор
func (c *Chunk) Origin() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.Position.X), float64(c.Position.Y), float64(c.Position.Z)}
}

// InBounds проверяет, что локальные координаты лежат внутри чанка
func (c *Chunk) InBounds(x, y, z int) bool {
	return x >= 0 && x < c.width &&
		y >= 0 && y < c.height &&
		z >= 0 && z < c.width
}

func (c *Chunk) index(x, y, z int) int {
	return (x*c.height+y)*c.width + z
}

// GetBlock возвращает запись по локальным координатам; false вне границ
func (c *Chunk) GetBlock(x, y, z int) (Block, bool) {
	if !c.InBounds(x, y, z) {
		return Block{}, false
	}
	return c.data[c.index(x, y, z)], true
}

// blockIDOrEmpty сводит отсутствующую клетку к пустому типу
func (c *Chunk) blockIDOrEmpty(x, y, z int) block.ID {
	b, ok := c.GetBlock(x, y, z)
	if !ok {
		return block.EmptyID
	}
	return b.ID
}

// SetBlockID меняет тип клетки, не трогая InstanceID
func (c *Chunk) SetBlockID(x, y, z int, id block.ID) {
	if !c.InBounds(x, y, z) {
		return
	}
	c.data[c.index(x, y, z)].ID = id
}

func (c *Chunk) setInstance(x, y, z int, instanceID int, table block.ID, has bool) {
	b := &c.data[c.index(x, y, z)]
	b.InstanceID = instanceID
	b.InstanceType = table
	b.HasInstance = has
}

// HighestBlock возвращает высоту верхнего непустого блока колонны (x, z)
func (c *Chunk) HighestBlock(x, z int) (int, bool) {
	if !c.InBounds(x, 0, z) {
		return 0, false
	}
	for y := c.height - 1; y >= 0; y-- {
		if !c.data[c.index(x, y, z)].IsEmpty() {
			return y, true
		}
	}
	return 0, false
}

// TerrainHeight возвращает высоту поверхности колонны, вычисленную при генерации
func (c *Chunk) TerrainHeight(x, z int) (int, bool) {
	if !c.loaded || !c.InBounds(x, 0, z) {
		return 0, false
	}
	return c.heights[x*c.width+z], true
}

// Snapshot возвращает копию массива типов (порядок x, y, z)
func (c *Chunk) Snapshot() []block.ID {
	out := make([]block.ID, len(c.data))
	for i, b := range c.data {
		out[i] = b.ID
	}
	return out
}

// CountBlocks возвращает количество непустых клеток
func (c *Chunk) CountBlocks() int {
	n := 0
	for _, b := range c.data {
		if !b.IsEmpty() {
			n++
		}
	}
	return n
}
