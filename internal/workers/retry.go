package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/queue"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/telemetry"
)

// defaultMaxAttempts — потолок попыток одной retry-цепочки.
const defaultMaxAttempts = 3

// RetryWorker пересоздаёт tasks для runs, провалившихся transient-отказом.
//
// Решение «стоит ли пробовать ещё раз» принято в момент провала и записано
// в run (retryRecommended + failureClass); worker лишь материализует его.
// Исчерпанные цепочки не трогаются — ими занимается incident worker.
type RetryWorker struct {
	store       store.Store
	queue       *queue.Queue
	logger      *slog.Logger
	maxAttempts int
}

// RetryConfig — конфигурация RetryWorker.
type RetryConfig struct {
	// Store — record store.
	Store store.Store

	// Queue — сервис очереди, через который создаются retry tasks.
	Queue *queue.Queue

	// MaxAttempts — максимум попыток на robot plan (default: 3).
	MaxAttempts int

	// Logger — логгер.
	Logger *slog.Logger
}

// NewRetryWorker создаёт RetryWorker.
func NewRetryWorker(cfg RetryConfig) *RetryWorker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &RetryWorker{
		store:       cfg.Store,
		queue:       cfg.Queue,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Tick — одна итерация retry цикла.
func (w *RetryWorker) Tick(ctx context.Context) error {
	metricTicks.WithLabelValues(string(domain.WorkerRetry)).Inc()
	_, err := w.RunOnce(ctx)
	return err
}

// RunOnce сканирует failed runs и ставит в очередь retry для тех,
// где retry рекомендован и ещё не материализован. Возвращает число
// созданных tasks.
//
// Идемпотентность: повторный скан не создаёт второй retry — run,
// у которого уже есть дочерний run (parentExecutionRunRef), пропускается.
func (w *RetryWorker) RunOnce(ctx context.Context) (int, error) {
	runs, err := store.ListAs[domain.ExecutionRun](ctx, w.store, domain.KindExecutionRun, 0)
	if err != nil {
		return 0, fmt.Errorf("list runs: %w", err)
	}

	// Runs, retry которых уже существует.
	retried := make(map[string]struct{})
	for i := range runs {
		if parent := runs[i].ParentExecutionRunRef; parent != "" {
			retried[parent] = struct{}{}
		}
	}

	queued := 0
	for i := range runs {
		run := &runs[i]
		if !w.eligible(run) {
			continue
		}
		if _, exists := retried[run.ID]; exists {
			continue
		}
		if run.Attempt >= w.maxAttempts {
			// Цепочка исчерпана; инцидент поднимет incident worker.
			continue
		}

		result, err := w.queue.CreateQueuedTask(ctx, queue.CreateTaskInput{
			RobotPlanID:          run.RobotPlanRef,
			ParentExecutionRunID: run.ID,
		})
		if err != nil {
			w.logger.Warn("retry enqueue failed",
				"execution_run_id", run.ID, "robot_plan_id", run.RobotPlanRef, "error", err)
			continue
		}

		queued++
		metricRetriesQueued.Inc()
		telemetry.WithRunID(w.logger, result.ExecutionRunID).Info("retry queued",
			"parent_execution_run_id", run.ID,
			"task_id", result.TaskID,
			"attempt", result.Attempt,
		)
	}
	return queued, nil
}

// eligible возвращает true, если run — кандидат на retry.
func (w *RetryWorker) eligible(run *domain.ExecutionRun) bool {
	return run.Status == domain.RunStatusFailed &&
		run.RetryRecommended &&
		run.FailureClass == domain.FailureClassTransient
}
