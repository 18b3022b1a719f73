package logging

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Имена компонентов симуляции
const (
	ComponentWorld   = "world"
	ComponentPhysics = "physics"
)

// Factory создаёт логгер компонента
type Factory func(component string) (*Logger, error)

// LoggerManager хранит по одному логгеру на компонент
type LoggerManager struct {
	mu      sync.Mutex
	factory Factory
	level   LogLevel
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// NewLoggerManager создаёт менеджер; nil factory означает файловые логгеры
func NewLoggerManager(factory Factory) *LoggerManager {
	if factory == nil {
		factory = NewLogger
	}
	return &LoggerManager{
		factory: factory,
		level:   INFO,
		loggers: make(map[string]*Logger),
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager(nil)
	})
	return globalManager
}

// WriterFactory пишет логи всех компонентов в stdout с заданным уровнем
func WriterFactory(level LogLevel) Factory {
	return func(component string) (*Logger, error) {
		return NewWriterLogger(component, os.Stdout, level), nil
	}
}

// UseFactory меняет способ создания логгеров; уже созданные не пересоздаются
func (lm *LoggerManager) UseFactory(factory Factory) {
	if factory == nil {
		return
	}
	lm.mu.Lock()
	lm.factory = factory
	lm.mu.Unlock()
}

// Component возвращает логгер компонента, создавая его при первом обращении.
// Если фабрика не смогла создать логгер, компонент пишет в stderr.
func (lm *LoggerManager) Component(component string) *Logger {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger, err := lm.factory(component)
	if err != nil {
		Warn("Логгер %s недоступен, пишем в stderr: %v", component, err)
		logger = NewWriterLogger(component, os.Stderr, lm.level)
	}
	logger.SetLevel(lm.level)
	lm.loggers[component] = logger
	return logger
}

// SetLevel задаёт уровень консольного вывода всем текущим и будущим логгерам
func (lm *LoggerManager) SetLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.level = level
	for _, logger := range lm.loggers {
		logger.SetLevel(level)
	}
}

// Components возвращает имена созданных логгеров по алфавиту
func (lm *LoggerManager) Components() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	out := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		out = append(out, component)
	}
	sort.Strings(out)
	return out
}

// CloseAll закрывает все логгеры и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

func GetWorldLogger() *Logger {
	return GetLoggerManager().Component(ComponentWorld)
}

func GetPhysicsLogger() *Logger {
	return GetLoggerManager().Component(ComponentPhysics)
}
