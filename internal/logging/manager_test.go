package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerManagerComponent(t *testing.T) {
	var buf bytes.Buffer
	created := 0
	lm := NewLoggerManager(func(component string) (*Logger, error) {
		created++
		return NewWriterLogger(component, &buf, TRACE), nil
	})

	world := lm.Component(ComponentWorld)
	require.NotNil(t, world)
	assert.Same(t, world, lm.Component(ComponentWorld), "повторный вызов возвращает тот же логгер")
	lm.Component(ComponentPhysics)
	assert.Equal(t, 2, created)
	assert.Equal(t, []string{ComponentPhysics, ComponentWorld}, lm.Components())

	// Уровень менеджера по умолчанию INFO перекрывает уровень фабрики
	world.Debug("скрыто")
	world.Info("Chunk load: chunk(%d,%d)", 1, 2)
	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[INFO] [world] Chunk load: chunk(1,2)")
}

func TestLoggerManagerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLoggerManager(func(component string) (*Logger, error) {
		return NewWriterLogger(component, &buf, INFO), nil
	})
	physics := lm.Component(ComponentPhysics)

	lm.SetLevel(TRACE)
	physics.Trace("Player moved %.1f", 1.5)
	assert.Contains(t, buf.String(), "[TRACE] [physics] Player moved 1.5", "уровень применён к существующему логгеру")

	buf.Reset()
	world := lm.Component(ComponentWorld)
	world.Trace("новый логгер")
	assert.Contains(t, buf.String(), "новый логгер", "уровень применён к новому логгеру")

	lm.SetLevel(ERROR)
	buf.Reset()
	world.Warn("предупреждение")
	physics.Info("сообщение")
	assert.Empty(t, buf.String())
}

func TestLoggerManagerFactoryFailure(t *testing.T) {
	lm := NewLoggerManager(func(string) (*Logger, error) {
		return nil, errors.New("диск недоступен")
	})

	logger := lm.Component(ComponentWorld)
	require.NotNil(t, logger, "при ошибке фабрики компонент получает логгер в stderr")
	assert.NotPanics(t, func() { logger.Error("ошибка") })
	assert.Same(t, logger, lm.Component(ComponentWorld))
}

func TestLoggerManagerUseFactoryAndCloseAll(t *testing.T) {
	var first, second bytes.Buffer
	lm := NewLoggerManager(func(component string) (*Logger, error) {
		return NewWriterLogger(component, &first, INFO), nil
	})
	before := lm.Component(ComponentWorld)

	lm.UseFactory(func(component string) (*Logger, error) {
		return NewWriterLogger(component, &second, INFO), nil
	})
	lm.UseFactory(nil)
	assert.Same(t, before, lm.Component(ComponentWorld), "созданные логгеры не пересоздаются")

	lm.Component(ComponentPhysics).Info("после смены фабрики")
	assert.Contains(t, second.String(), "после смены фабрики")
	assert.Empty(t, first.String())

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.Components())
	assert.NotSame(t, before, lm.Component(ComponentWorld), "после CloseAll логгер создаётся заново")
}
