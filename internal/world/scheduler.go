package world

import (
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxel-world/internal/vec"
)

// GenerationTask отложенная генерация одного чанка
type GenerationTask struct {
	ID       uuid.UUID
	Coords   vec.Vec2
	Enqueued time.Time

	chunk *Chunk
}

// Scheduler очередь отложенной генерации чанков. Шаг планировщика
// выполняет задачи, пока не исчерпан бюджет времени. Генерация не
// прерывается: отмена возможна только до начала выполнения задачи.
type Scheduler struct {
	queue []*GenerationTask
	index map[vec.Vec2]*GenerationTask

	onComplete func(task *GenerationTask, took time.Duration)
	now        func() time.Time
}

// NewScheduler создаёт пустую очередь
func NewScheduler() *Scheduler {
	return &Scheduler{
		index: make(map[vec.Vec2]*GenerationTask),
		now:   time.Now,
	}
}

// OnComplete задаёт обработчик завершения задачи
func (s *Scheduler) OnComplete(fn func(task *GenerationTask, took time.Duration)) {
	s.onComplete = fn
}

// Enqueue ставит генерацию чанка в очередь. Повторная постановка тех же
// координат возвращает уже существующую задачу.
func (s *Scheduler) Enqueue(c *Chunk) *GenerationTask {
	if task, ok := s.index[c.Coords]; ok {
		return task
	}
	task := &GenerationTask{
		ID:       uuid.New(),
		Coords:   c.Coords,
		Enqueued: s.now(),
		chunk:    c,
	}
	s.queue = append(s.queue, task)
	s.index[c.Coords] = task
	return task
}

// Cancel снимает задачу с очереди; false, если задачи нет
func (s *Scheduler) Cancel(coords vec.Vec2) bool {
	task, ok := s.index[coords]
	if !ok {
		return false
	}
	delete(s.index, coords)
	for i, t := range s.queue {
		if t == task {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	return true
}

// IsPending проверяет, ждёт ли чанк генерации
func (s *Scheduler) IsPending(coords vec.Vec2) bool {
	_, ok := s.index[coords]
	return ok
}

// Pending возвращает размер очереди
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Step выполняет хотя бы одну задачу и продолжает, пока не истечёт budget.
// Возвращает количество выполненных задач.
func (s *Scheduler) Step(budget time.Duration) int {
	start := s.now()
	done := 0
	for len(s.queue) > 0 {
		if done > 0 && s.now().Sub(start) >= budget {
			break
		}
		task := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		delete(s.index, task.Coords)

		began := s.now()
		task.chunk.Generate()
		if s.onComplete != nil {
			s.onComplete(task, s.now().Sub(began))
		}
		done++
	}
	return done
}

// Drain выполняет все задачи очереди
func (s *Scheduler) Drain() int {
	done := 0
	for len(s.queue) > 0 {
		done += s.Step(0)
	}
	return done
}
