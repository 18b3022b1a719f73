package world

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Placement мировое положение одного видимого блока
type Placement struct {
	Local    vec.Vec3   // Локальные координаты блока в чанке
	Position mgl64.Vec3 // Центр куба в мировых координатах
}

// InstanceTable плотная таблица видимых блоков одного типа.
// Индекс записи совпадает с InstanceID блока.
type InstanceTable struct {
	Type    block.ID
	entries []Placement
}

// Len возвращает количество экземпляров
func (t *InstanceTable) Len() int {
	return len(t.entries)
}

// At возвращает экземпляр по индексу
func (t *InstanceTable) At(i int) (Placement, bool) {
	if i < 0 || i >= len(t.entries) {
		return Placement{}, false
	}
	return t.entries[i], true
}

// Placements возвращает копию всех записей
func (t *InstanceTable) Placements() []Placement {
	out := make([]Placement, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *InstanceTable) add(p Placement) int {
	t.entries = append(t.entries, p)
	return len(t.entries) - 1
}

// remove освобождает слот: последняя запись переезжает на его место.
// Возвращает локальные координаты переехавшего блока.
func (t *InstanceTable) remove(id int) (vec.Vec3, bool) {
	last := len(t.entries) - 1
	if id < 0 || id > last {
		return vec.Vec3{}, false
	}
	if id == last {
		t.entries = t.entries[:last]
		return vec.Vec3{}, false
	}
	moved := t.entries[last]
	t.entries[id] = moved
	t.entries = t.entries[:last]
	return moved.Local, true
}

// Instances возвращает таблицу экземпляров типа (nil, если видимых блоков типа не было)
func (c *Chunk) Instances(id block.ID) *InstanceTable {
	return c.instances[id]
}

// InstanceTables возвращает все таблицы, отсортированные по типу
func (c *Chunk) InstanceTables() []*InstanceTable {
	out := make([]*InstanceTable, 0, len(c.instances))
	for _, t := range c.instances {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// InstanceCount возвращает суммарное количество экземпляров
func (c *Chunk) InstanceCount() int {
	n := 0
	for _, t := range c.instances {
		n += t.Len()
	}
	return n
}

// IsObscured сообщает, скрыт ли блок: это так, если все шесть соседей внутри чанка и непусты
func (c *Chunk) IsObscured(x, y, z int) bool {
	for _, d := range vec.Neighbors6 {
		if c.blockIDOrEmpty(x+d.X, y+d.Y, z+d.Z) == block.EmptyID {
			return false
		}
	}
	return true
}

func (c *Chunk) placement(x, y, z int) Placement {
	return Placement{
		Local: vec.Vec3{X: x, Y: y, Z: z},
		Position: mgl64.Vec3{
			float64(c.Position.X + x),
			float64(c.Position.Y + y),
			float64(c.Position.Z + z),
		},
	}
}

func (c *Chunk) table(id block.ID) *InstanceTable {
	t, ok := c.instances[id]
	if !ok {
		t = &InstanceTable{Type: id}
		c.instances[id] = t
	}
	return t
}

// AddBlockInstance выдаёт экземпляр непустому, видимому блоку без экземпляра
func (c *Chunk) AddBlockInstance(x, y, z int) {
	b, ok := c.GetBlock(x, y, z)
	if !ok || b.IsEmpty() || b.HasInstance || c.IsObscured(x, y, z) {
		return
	}
	id := c.table(b.ID).add(c.placement(x, y, z))
	c.setInstance(x, y, z, id, b.ID, true)
}

// DeleteBlockInstance освобождает экземпляр блока, если он был.
// Таблица берётся из InstanceType: SetBlockID меняет тип, но не экземпляр.
func (c *Chunk) DeleteBlockInstance(x, y, z int) {
	b, ok := c.GetBlock(x, y, z)
	if !ok || !b.HasInstance {
		return
	}
	c.setInstance(x, y, z, 0, block.EmptyID, false)

	t, ok := c.instances[b.InstanceType]
	if !ok {
		return
	}
	if moved, ok := t.remove(b.InstanceID); ok {
		c.setInstance(moved.X, moved.Y, moved.Z, b.InstanceID, b.InstanceType, true)
	}
}

// HideBlock убирает экземпляр блока, ставшего скрытым
func (c *Chunk) HideBlock(x, y, z int) {
	b, ok := c.GetBlock(x, y, z)
	if !ok || !b.HasInstance || !c.IsObscured(x, y, z) {
		return
	}
	c.DeleteBlockInstance(x, y, z)
}

// RemoveBlock опустошает клетку и освобождает её экземпляр
func (c *Chunk) RemoveBlock(x, y, z int) {
	if !c.InBounds(x, y, z) {
		return
	}
	c.DeleteBlockInstance(x, y, z)
	c.SetBlockID(x, y, z, block.EmptyID)
}

// AddBlock ставит блок в пустую клетку и выдаёт ему экземпляр, если он виден
func (c *Chunk) AddBlock(x, y, z int, id block.ID) bool {
	b, ok := c.GetBlock(x, y, z)
	if !ok || !b.IsEmpty() || id == block.EmptyID || !c.types.IsValid(id) {
		return false
	}
	c.SetBlockID(x, y, z, id)
	c.AddBlockInstance(x, y, z)
	return true
}

// ReleaseInstances освобождает все экземпляры чанка и возвращает их количество
func (c *Chunk) ReleaseInstances() int {
	n := c.InstanceCount()
	for i := range c.data {
		c.data[i].InstanceID = 0
		c.data[i].InstanceType = block.EmptyID
		c.data[i].HasInstance = false
	}
	c.instances = make(map[block.ID]*InstanceTable)
	return n
}

// generateMeshes строит таблицы экземпляров для всех видимых блоков
func (c *Chunk) generateMeshes() {
	c.ReleaseInstances()
	for x := 0; x < c.width; x++ {
		for y := 0; y < c.height; y++ {
			for z := 0; z < c.width; z++ {
				c.AddBlockInstance(x, y, z)
			}
		}
	}
}
