// Package noise предоставляет когерентный шум Перлина поверх детерминированного
// источника случайных чисел.
package noise

import (
	"github.com/aquilax/go-perlin"

	"github.com/annel0/voxel-world/internal/random"
)

// Параметры шума по умолчанию
const (
	DefaultAlpha   = 2.0 // Сглаживание шума
	DefaultBeta    = 2.0 // Частота шума
	DefaultOctaves = 3   // Количество октав
)

// Field детерминированное непрерывное поле шума в 2D и 3D
type Field struct {
	perlin *perlin.Perlin
}

// New строит поле, забирая значения из потока src для таблиц перестановок.
// Порядок вызовов New на одном источнике определяет результат.
func New(src *random.Source) *Field {
	return NewWithParams(src, DefaultAlpha, DefaultBeta, DefaultOctaves)
}

// NewWithParams строит поле с явными параметрами октав
func NewWithParams(src *random.Source, alpha, beta float64, octaves int32) *Field {
	return &Field{
		perlin: perlin.NewPerlinRandSource(alpha, beta, octaves, src),
	}
}

// NewSeeded является короткой формой для поля на отдельном источнике
func NewSeeded(seed int64) *Field {
	return New(random.New(seed))
}

// Noise2 возвращает значение шума в точке (x, z) в диапазоне [-1, 1]
func (f *Field) Noise2(x, z float64) float64 {
	return clamp(f.perlin.Noise2D(x, z))
}

// Noise3 возвращает значение шума в точке (x, y, z) в диапазоне [-1, 1]
func (f *Field) Noise3(x, y, z float64) float64 {
	return clamp(f.perlin.Noise3D(x, y, z))
}

// Сумма октав может слегка выходить за [-1, 1]
func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
