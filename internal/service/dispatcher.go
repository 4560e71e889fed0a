// dispatcher.go — запуск фоновых задач, не привязанных к HTTP-запросу.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Dispatcher запускает фоновые задачи в отдельных горутинах.
// Задачи получают context.Background(): завершение запроса или отмена
// его контекста на них не влияет. Число одновременно выполняющихся задач
// ограничено; остальные ждут своей очереди, Go() при этом не блокируется.
type Dispatcher struct {
	wg     sync.WaitGroup
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewDispatcher создаёт диспетчер. maxConcurrent <= 0 — без ограничения.
func NewDispatcher(maxConcurrent int, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		logger: logger.With(slog.String("component", "dispatcher")),
	}
	if maxConcurrent > 0 {
		d.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return d
}

// Go запускает fn в фоне. Паника в fn логируется и не роняет процесс.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context)) {
	d.wg.Add(1)
	tasksInFlight.Inc()

	go func() {
		defer d.wg.Done()
		defer tasksInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Паника в фоновой задаче",
					slog.String("task", name),
					slog.String("panic", fmt.Sprint(r)),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()

		ctx := context.Background()
		if d.sem != nil {
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer d.sem.Release(1)
		}

		fn(ctx)
	}()
}

// Wait ждёт завершения всех запущенных задач или отмены ctx.
// Задачи не прерываются: по истечении ctx они продолжают работу до выхода процесса.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
