// Package random содержит детерминированный источник псевдослучайных чисел,
// который одинаково воспроизводится на любой платформе для одного и того же сида.
package random

import "math/rand"

const (
	golden = 0x9e3779b97f4a7c15
	mixA   = 0xbf58476d1ce4e5b9
	mixB   = 0x94d049bb133111eb
)

// Source генерирует поток splitmix64. Реализует rand.Source64, поэтому его можно
// передавать в rand.New и в библиотеки, принимающие rand.Source.
type Source struct {
	state uint64
}

var _ rand.Source64 = (*Source)(nil)

// New создаёт источник с указанным сидом
func New(seed int64) *Source {
	return &Source{state: uint64(seed)}
}

// Seed сбрасывает поток к началу для нового сида
func (s *Source) Seed(seed int64) {
	s.state = uint64(seed)
}

// Uint64 возвращает следующее 64-битное значение потока
func (s *Source) Uint64() uint64 {
	s.state += golden
	z := s.state
	z = (z ^ (z >> 30)) * mixA
	z = (z ^ (z >> 27)) * mixB
	return z ^ (z >> 31)
}

// Int63 возвращает неотрицательное 63-битное значение
func (s *Source) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

// Float64 возвращает значение в [0, 1)
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Derive возвращает независимый дочерний источник, засеянный из текущего потока
func (s *Source) Derive() *Source {
	return &Source{state: s.Uint64()}
}
