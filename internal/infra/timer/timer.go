package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job вызывается на каждом тике. true означает, что задача завершена и тики больше не нужны
type Job func(ctx context.Context) (done bool)

type entry struct {
	id     uint64
	cancel context.CancelFunc
}

// Scheduler отменяемые периодические задачи по ключу (токену попытки)
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]entry
	seq    uint64
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]entry),
		ctx:    ctx,
		stop:   stop,
		logger: logger,
	}
}

// Every запускает задачу с периодом interval, первый вызов через interval.
// Задача с тем же ключом заменяется
func (s *Scheduler) Every(key string, interval time.Duration, job Job) {
	s.mu.Lock()
	if prev, ok := s.jobs[key]; ok {
		prev.cancel()
	}
	s.seq++
	id := s.seq
	ctx, cancel := context.WithCancel(s.ctx)
	s.jobs[key] = entry{id: id, cancel: cancel}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.remove(key, id)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.run(ctx, key, job) {
					return
				}
			}
		}
	}()
}

// run выполняет тик; паника в задаче логируется и не снимает таймер
func (s *Scheduler) run(ctx context.Context, key string, job Job) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer job panicked", zap.String("key", key), zap.Error(fmt.Errorf("%v", r)))
			done = false
		}
	}()
	return job(ctx)
}

func (s *Scheduler) remove(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[key]; ok && e.id == id {
		e.cancel()
		delete(s.jobs, key)
	}
}

// Cancel останавливает задачу по ключу
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[key]
	if !ok {
		return false
	}
	e.cancel()
	delete(s.jobs, key)
	return true
}

// Active есть ли задача с ключом
func (s *Scheduler) Active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

// Len число активных задач
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop отменяет все задачи и ждет их завершения
func (s *Scheduler) Stop() {
	s.stop()
	s.wg.Wait()
}
