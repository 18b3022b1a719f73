package block

import (
	"errors"
	"fmt"
	"sort"
)

// ID представляет идентификатор типа блока
type ID uint16

// EmptyID это единственный идентификатор пустой клетки
const EmptyID ID = 0

// Идентификаторы стандартного каталога
const (
	GrassID ID = iota + 1
	DirtID
	StoneID
	CoalOreID
	IronOreID
)

// Ошибки построения каталога
var (
	ErrNoEmptyType      = errors.New("каталог должен содержать пустой тип с ID 0")
	ErrDuplicateID      = errors.New("повторяющийся ID типа блока")
	ErrUnknownType      = errors.New("неизвестный тип блока")
	ErrInvalidResource  = errors.New("некорректный тип ресурса")
	ErrInvalidTerrainID = errors.New("некорректный тип рельефа")
)

// Scale задаёт делитель координат при выборке 3D-шума (крупность жил)
type Scale struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Valid проверяет, что все оси положительны
func (s Scale) Valid() bool {
	return s.X > 0 && s.Y > 0 && s.Z > 0
}

// Type описывает вид блока
type Type struct {
	ID      ID
	Name    string
	Tint    uint32 // RGB оттенок, используется слоем рендеринга
	HasTint bool

	// Параметры генерации; Generates == false означает, что их нет
	Generates bool
	Scale     Scale
	Scarcity  float64 // порог шума в [-1, 1]
}

// Catalog неизменяемый после создания набор типов блоков
type Catalog struct {
	types     map[ID]Type
	byName    map[string]ID
	resources []ID
	fill      ID
	surface   ID
}

// NewCatalog строит каталог. resources задаёт порядок применения ресурсов при
// генерации: более поздние записи перезаписывают более ранние.
func NewCatalog(types []Type, fill, surface ID, resources []ID) (*Catalog, error) {
	c := &Catalog{
		types:  make(map[ID]Type, len(types)),
		byName: make(map[string]ID, len(types)),
	}

	for _, t := range types {
		if _, exists := c.types[t.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, t.ID)
		}
		c.types[t.ID] = t
		c.byName[t.Name] = t.ID
	}

	if _, ok := c.types[EmptyID]; !ok {
		return nil, ErrNoEmptyType
	}

	for _, id := range []ID{fill, surface} {
		if id == EmptyID {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTerrainID, id)
		}
		if _, ok := c.types[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownType, id)
		}
	}
	c.fill = fill
	c.surface = surface

	for _, id := range resources {
		t, ok := c.types[id]
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: %d", ErrUnknownType, id)
		case id == EmptyID || id == fill || id == surface:
			return nil, fmt.Errorf("%w: %s является пустым или рельефом", ErrInvalidResource, t.Name)
		case !t.Generates || !t.Scale.Valid():
			return nil, fmt.Errorf("%w: %s без параметров генерации", ErrInvalidResource, t.Name)
		case t.Scarcity < -1 || t.Scarcity > 1:
			return nil, fmt.Errorf("%w: %s scarcity %.2f вне [-1, 1]", ErrInvalidResource, t.Name, t.Scarcity)
		}
		c.resources = append(c.resources, id)
	}

	return c, nil
}

// DefaultCatalog возвращает стандартный набор блоков
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Type{
		{ID: EmptyID, Name: "empty"},
		{ID: GrassID, Name: "grass", Tint: 0x55ca20, HasTint: true},
		{ID: DirtID, Name: "dirt", Tint: 0x847020, HasTint: true},
		{ID: StoneID, Name: "stone", Tint: 0x808080, HasTint: true,
			Generates: true, Scale: Scale{X: 30, Y: 30, Z: 30}, Scarcity: 0.5},
		{ID: CoalOreID, Name: "coalOre", Tint: 0x202020, HasTint: true,
			Generates: true, Scale: Scale{X: 20, Y: 20, Z: 20}, Scarcity: 0.8},
		{ID: IronOreID, Name: "ironOre", Tint: 0x806060, HasTint: true,
			Generates: true, Scale: Scale{X: 60, Y: 60, Z: 60}, Scarcity: 0.8},
	}, DirtID, GrassID, []ID{StoneID, CoalOreID, IronOreID})
	if err != nil {
		// Стандартный каталог статичен, ошибка здесь: ошибка программиста
		panic(err)
	}
	return c
}

// Get возвращает тип по ID
func (c *Catalog) Get(id ID) (Type, bool) {
	t, ok := c.types[id]
	return t, ok
}

// ByName ищет тип по имени
func (c *Catalog) ByName(name string) (Type, bool) {
	id, ok := c.byName[name]
	if !ok {
		return Type{}, false
	}
	return c.types[id], true
}

// IsValid проверяет, что ID присутствует в каталоге
func (c *Catalog) IsValid(id ID) bool {
	_, ok := c.types[id]
	return ok
}

// Fill возвращает тип, которым заполняется колонна ниже поверхности
func (c *Catalog) Fill() Type {
	return c.types[c.fill]
}

// Surface возвращает тип верхнего блока колонны
func (c *Catalog) Surface() Type {
	return c.types[c.surface]
}

// Resources возвращает ресурсы в порядке приоритета применения
func (c *Catalog) Resources() []Type {
	out := make([]Type, 0, len(c.resources))
	for _, id := range c.resources {
		out = append(out, c.types[id])
	}
	return out
}

// Types возвращает все типы, отсортированные по ID
func (c *Catalog) Types() []Type {
	out := make([]Type, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len возвращает количество типов
func (c *Catalog) Len() int {
	return len(c.types)
}
