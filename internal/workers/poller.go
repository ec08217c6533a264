package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/adapters"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/queue"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// defaultReconcileLimit — максимум tasks, просматриваемых за один тик.
const defaultReconcileLimit = 500

// Poller закрывает окна дрейфа между task и его run.
//
// Протокольные мутации пишут task и run двумя отдельными записями без
// транзакции: упавший между записями процесс оставляет run позади task.
// Poller периодически перечитывает tasks и заново применяет зеркалирование,
// поэтому любое расхождение живёт не дольше одного интервала опроса.
//
// Для живых (claimed/running) tasks с внешним run id poller дополнительно
// опрашивает адаптер: замолчавший executor, чей удалённый запуск дошёл до
// терминального статуса, иначе никогда не был бы замечен.
type Poller struct {
	store  store.Store
	health *adapters.HealthService
	status adapters.RunStatusSource
	clock  clock.Clock
	logger *slog.Logger
	limit  int
}

// PollerConfig — конфигурация Poller.
type PollerConfig struct {
	// Store — record store.
	Store store.Store

	// Health — сервис health-проверок; non-nil включает probe адаптеров
	// с активными tasks на каждом тике.
	Health *adapters.HealthService

	// Status — источник статусов удалённых запусков; non-nil включает
	// опрос адаптера для активных tasks при реконсиляции. nil — run
	// зеркалируется только из того, что task сообщил о себе сам.
	Status adapters.RunStatusSource

	// ReconcileLimit — максимум tasks за один проход (default: 500).
	ReconcileLimit int

	// Clock — источник времени (default: системные часы).
	Clock clock.Clock

	// Logger — логгер.
	Logger *slog.Logger
}

// NewPoller создаёт Poller.
func NewPoller(cfg PollerConfig) *Poller {
	c := cfg.Clock
	if c == nil {
		c = clock.System()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.ReconcileLimit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	return &Poller{
		store:  cfg.Store,
		health: cfg.Health,
		status: cfg.Status,
		clock:  c,
		logger: logger,
		limit:  limit,
	}
}

// Tick — одна итерация poller цикла.
func (p *Poller) Tick(ctx context.Context) error {
	metricTicks.WithLabelValues(string(domain.WorkerPoller)).Inc()

	repaired, err := p.Reconcile(ctx, p.limit)
	if err != nil {
		return err
	}
	if repaired > 0 {
		p.logger.Info("poller repaired run records", "repaired", repaired)
	}

	p.probeActiveAdapters(ctx)
	return nil
}

// Reconcile заново применяет зеркалирование task→run для всех
// неосевших runs. Возвращает число исправленных записей.
func (p *Poller) Reconcile(ctx context.Context, limit int) (int, error) {
	tasks, err := store.ListAs[domain.ExecutionTask](ctx, p.store, domain.KindExecutionTask, limit)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	repaired := 0
	for i := range tasks {
		task := &tasks[i]
		if task.ExecutionRunRef == "" {
			continue
		}

		run, err := store.GetAs[domain.ExecutionRun](ctx, p.store, task.ExecutionRunRef)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				p.logger.Warn("task references missing run",
					"task_id", task.ID, "execution_run_id", task.ExecutionRunRef)
				continue
			}
			return repaired, fmt.Errorf("load run %s: %w", task.ExecutionRunRef, err)
		}
		if run.IsSettled() {
			continue
		}

		view := p.remoteView(ctx, task)
		if !queue.MirrorTaskToRun(view, run) {
			continue
		}
		if err := store.UpdateAs(ctx, p.store, run.ID, domain.KindExecutionRun, run); err != nil {
			p.logger.Warn("run repair write failed", "execution_run_id", run.ID, "error", err)
			continue
		}
		repaired++
		metricRunsRepaired.Inc()
		p.logger.Debug("run repaired",
			"execution_run_id", run.ID, "task_id", task.ID, "status", run.Status)
	}
	return repaired, nil
}

// remoteView опрашивает адаптер о текущем статусе удалённого запуска и
// накладывает ответ на копию task. Сам task не перезаписывается: его
// мутации принадлежат executor'у, poller правит только run через
// зеркалирование. Без источника статусов или внешнего run id
// возвращается task как есть.
func (p *Poller) remoteView(ctx context.Context, task *domain.ExecutionTask) *domain.ExecutionTask {
	if p.status == nil || task.AdapterID == "" {
		return task
	}
	if task.External == nil || task.External.RunID == "" {
		return task
	}
	switch task.Status {
	case domain.TaskStatusClaimed, domain.TaskStatusRunning, domain.TaskStatusCancelRequested:
	default:
		return task
	}

	remote, err := p.status.FetchRunStatus(ctx, task.AdapterID, task.External.RunID)
	if err != nil {
		p.logger.Warn("remote status fetch failed",
			"task_id", task.ID, "adapter_id", task.AdapterID,
			"external_run_id", task.External.RunID, "error", err)
		return task
	}
	if remote == nil {
		return task
	}

	view := *task
	if remote.Status != "" && remote.Status != view.Status &&
		domain.CanTransition(view.Status, remote.Status) {
		view.Status = remote.Status
		if view.Status.IsTerminal() && view.CompletedAt == nil {
			now := p.clock.Now()
			view.CompletedAt = &now
		}
	}
	if remote.Failure != nil {
		view.Failure = remote.Failure
	}
	if remote.RawStatus != "" {
		ext := *task.External
		ext.RawStatus = remote.RawStatus
		view.External = &ext
	}
	if remote.Progress != nil {
		view.Progress = remote.Progress
	}
	return &view
}

// probeActiveAdapters обновляет кэш health для адаптеров,
// у которых есть живые (claimed/running) tasks.
func (p *Poller) probeActiveAdapters(ctx context.Context) {
	if p.health == nil {
		return
	}

	tasks, err := store.ListAs[domain.ExecutionTask](ctx, p.store, domain.KindExecutionTask, p.limit)
	if err != nil {
		p.logger.Warn("adapter probe scan failed", "error", err)
		return
	}

	active := make(map[string]struct{})
	for i := range tasks {
		switch tasks[i].Status {
		case domain.TaskStatusClaimed, domain.TaskStatusRunning, domain.TaskStatusCancelRequested:
			if tasks[i].AdapterID != "" {
				active[tasks[i].AdapterID] = struct{}{}
			}
		}
	}

	for adapterID := range active {
		status := p.health.CheckAdapter(ctx, adapterID, true)
		if !status.Healthy {
			p.logger.Warn("adapter unhealthy",
				"adapter_id", adapterID, "detail", status.Detail)
		}
	}
}
