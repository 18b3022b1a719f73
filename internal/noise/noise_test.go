package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/voxel-world/internal/random"
)

func TestFieldDeterministic(t *testing.T) {
	a := NewSeeded(1234)
	b := NewSeeded(1234)

	for i := 0; i < 200; i++ {
		x := float64(i)*0.37 - 20
		z := float64(i)*0.11 + 3
		assert.Equal(t, a.Noise2(x, z), b.Noise2(x, z))
		assert.Equal(t, a.Noise3(x, z, x*0.5), b.Noise3(x, z, x*0.5))
	}
}

func TestFieldRange(t *testing.T) {
	f := NewSeeded(0)
	for x := -10.0; x < 10; x += 0.173 {
		for z := -10.0; z < 10; z += 0.291 {
			v := f.Noise2(x, z)
			assert.True(t, v >= -1 && v <= 1, "Noise2 вне диапазона: %f", v)
			w := f.Noise3(x, z*0.5, z)
			assert.True(t, w >= -1 && w <= 1, "Noise3 вне диапазона: %f", w)
		}
	}
}

func TestFieldSmooth(t *testing.T) {
	f := NewSeeded(99)
	const eps = 1e-4
	for x := 0.05; x < 5; x += 0.37 {
		v := f.Noise2(x, 1.3)
		w := f.Noise2(x+eps, 1.3)
		assert.Less(t, math.Abs(v-w), 0.01, "близкие точки должны давать близкие значения")
	}
}

func TestFieldsFromOneSourceDiffer(t *testing.T) {
	src := random.New(5)
	first := New(src)
	second := New(src)

	differs := false
	for i := 0; i < 50; i++ {
		x := 0.13 + float64(i)*0.7
		if first.Noise2(x, 0.51) != second.Noise2(x, 0.51) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "второе поле с того же потока должно отличаться от первого")
}
