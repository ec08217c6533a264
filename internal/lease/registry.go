package lease

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/telemetry"
)

// leaseLifetimeFactor — срок жизни lease в интервалах тика.
// Lease переживает пропуск двух тиков, после чего считается брошенным.
const leaseLifetimeFactor = 3

// recordPrefix — префикс id записей lease в store.
const recordPrefix = "worker-lease-"

// RecordID возвращает id записи lease для worker id.
func RecordID(workerID domain.WorkerID) string {
	return recordPrefix + string(workerID)
}

// TickFunc — одна итерация periodic worker'а.
// Ошибка логируется и пропускается; цикл продолжается на следующем тике.
type TickFunc func(ctx context.Context) error

// Schedule определяет моменты тиков периодического цикла.
type Schedule interface {
	// Next возвращает момент следующего тика после from.
	Next(from time.Time) time.Time

	// Interval возвращает характерный интервал между тиками
	// (для срока жизни lease и поля intervalMs).
	Interval() time.Duration
}

// FixedSchedule — тики с постоянным интервалом.
type FixedSchedule time.Duration

func (s FixedSchedule) Next(from time.Time) time.Time {
	return from.Add(time.Duration(s))
}

func (s FixedSchedule) Interval() time.Duration {
	return time.Duration(s)
}

// StartOptions — опции Start.
type StartOptions struct {
	// ForceTakeover — захватить lease, даже если его держит другой
	// живой instance. Гонка разрешается last-writer-wins: fencing token
	// не сравнивается, вытесненный владелец обнаружит потерю на своём
	// следующем тике и остановится.
	ForceTakeover bool
}

// StartResult — результат Start.
type StartResult struct {
	// Started — true, если цикл запущен этим вызовом.
	Started bool

	// Lease — текущее состояние lease (наше или чужое).
	Lease domain.WorkerLease
}

// Registry — реестр exclusive leases для singleton background workers.
//
// Гарантия: на каждый logical worker id (poller, retry-worker,
// incident-worker) активен не более чем один цикл во всём флоте replicas.
// Взаимное исключение держится на записи worker_lease в store: цикл
// продлевает lease перед каждой итерацией и останавливает себя, если
// обнаруживает чужого владельца (проигранный forced takeover).
type Registry struct {
	store      store.Store
	clock      clock.Clock
	logger     *slog.Logger
	instanceID string

	mu    sync.Mutex
	loops map[domain.WorkerID]*loopHandle
}

type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Config — конфигурация Registry.
type Config struct {
	// Store — record store.
	Store store.Store

	// Clock — источник времени (default: системные часы).
	Clock clock.Clock

	// InstanceID — идентификатор этого процесса
	// (default: случайный uuid).
	InstanceID string

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт Registry.
func New(cfg Config) *Registry {
	c := cfg.Clock
	if c == nil {
		c = clock.System()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	return &Registry{
		store:      cfg.Store,
		clock:      c,
		logger:     logger,
		instanceID: instanceID,
		loops:      make(map[domain.WorkerID]*loopHandle),
	}
}

// InstanceID возвращает идентификатор этого процесса.
func (r *Registry) InstanceID() string {
	return r.instanceID
}

// Start пытается захватить lease для workerID и запустить periodic цикл.
//
// Если lease держит другой живой instance и ForceTakeover не задан —
// конкурирующий цикл не запускается, возвращается состояние чужого lease.
func (r *Registry) Start(ctx context.Context, workerID domain.WorkerID, sched Schedule, tick TickFunc, opts StartOptions) (*StartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, running := r.loops[workerID]; running {
		lease, err := r.loadLease(ctx, workerID)
		if err != nil {
			return nil, err
		}
		return &StartResult{Started: false, Lease: *lease}, nil
	}

	now := r.clock.Now()
	existing, err := r.loadLease(ctx, workerID)
	if err != nil && !errors.Is(err, ErrLeaseNotFound) {
		return nil, err
	}

	heldByOther := existing != nil &&
		existing.Running &&
		existing.OwnerInstance != "" &&
		existing.OwnerInstance != r.instanceID &&
		!existing.Expired(now)
	if heldByOther && !opts.ForceTakeover {
		return &StartResult{Started: false, Lease: *existing}, nil
	}

	interval := sched.Interval()
	expires := now.Add(interval * leaseLifetimeFactor)
	lease := domain.WorkerLease{
		WorkerID:      workerID,
		OwnerInstance: r.instanceID,
		AcquiredAt:    &now,
		ExpiresAt:     &expires,
		IntervalMs:    interval.Milliseconds(),
		Running:       true,
	}
	if err := r.writeLease(ctx, workerID, lease, existing == nil); err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle := &loopHandle{cancel: cancel, done: make(chan struct{})}
	r.loops[workerID] = handle

	go r.runLoop(loopCtx, workerID, sched, tick, handle)

	r.logger.Info("worker lease acquired",
		"worker_id", workerID,
		"instance_id", r.instanceID,
		"interval", interval,
		"force_takeover", opts.ForceTakeover,
	)
	return &StartResult{Started: true, Lease: lease}, nil
}

// runLoop — periodic цикл одного worker'а.
func (r *Registry) runLoop(ctx context.Context, workerID domain.WorkerID, sched Schedule, tick TickFunc, handle *loopHandle) {
	defer close(handle.done)
	logger := telemetry.WithWorkerID(r.logger, string(workerID))

	for {
		next := sched.Next(r.clock.Now())
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		// Продлеваем lease перед работой. Чужой владелец означает
		// проигранный forced takeover — цикл обязан остановиться.
		if !r.renew(ctx, workerID, sched) {
			logger.Warn("lease lost to another instance, stopping loop")
			r.mu.Lock()
			delete(r.loops, workerID)
			r.mu.Unlock()
			return
		}

		if err := tick(ctx); err != nil {
			// Неудачный тик пропускается, цикл живёт дальше.
			logger.Error("worker tick failed", "error", err)
		}
	}
}

// renew продлевает lease. Возвращает false, если lease потерян.
func (r *Registry) renew(ctx context.Context, workerID domain.WorkerID, sched Schedule) bool {
	lease, err := r.loadLease(ctx, workerID)
	if err != nil {
		// Запись исчезла или store недоступен: не считаем lease
		// потерянным, попробуем на следующем тике.
		if errors.Is(err, ErrLeaseNotFound) {
			return false
		}
		r.logger.Warn("lease renew read failed", "worker_id", workerID, "error", err)
		return true
	}
	if lease.OwnerInstance != r.instanceID {
		return false
	}

	now := r.clock.Now()
	expires := now.Add(sched.Interval() * leaseLifetimeFactor)
	lease.ExpiresAt = &expires
	lease.Running = true
	if err := r.writeLease(ctx, workerID, *lease, false); err != nil {
		r.logger.Warn("lease renew write failed", "worker_id", workerID, "error", err)
	}
	return true
}

// Stop останавливает цикл и снимает владение, если lease наш.
func (r *Registry) Stop(ctx context.Context, workerID domain.WorkerID) error {
	r.mu.Lock()
	handle, running := r.loops[workerID]
	delete(r.loops, workerID)
	r.mu.Unlock()

	if running {
		handle.cancel()
		<-handle.done
	}

	lease, err := r.loadLease(ctx, workerID)
	if err != nil {
		if errors.Is(err, ErrLeaseNotFound) {
			return nil
		}
		return err
	}
	if lease.OwnerInstance != r.instanceID {
		return nil
	}

	lease.OwnerInstance = ""
	lease.Running = false
	lease.ExpiresAt = nil
	if err := r.writeLease(ctx, workerID, *lease, false); err != nil {
		return err
	}

	r.logger.Info("worker lease released", "worker_id", workerID)
	return nil
}

// StopAll останавливает все циклы этого instance.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]domain.WorkerID, 0, len(r.loops))
	for id := range r.loops {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Stop(ctx, id); err != nil {
			r.logger.Warn("stop worker failed", "worker_id", id, "error", err)
		}
	}
}

// loadLease читает запись lease.
func (r *Registry) loadLease(ctx context.Context, workerID domain.WorkerID) (*domain.WorkerLease, error) {
	lease, err := store.GetAs[domain.WorkerLease](ctx, r.store, RecordID(workerID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}
	return lease, nil
}

// writeLease создаёт или перезаписывает запись lease.
func (r *Registry) writeLease(ctx context.Context, workerID domain.WorkerID, lease domain.WorkerLease, create bool) error {
	id := RecordID(workerID)
	if create {
		err := store.CreateAs(ctx, r.store, id, domain.KindWorkerLease, lease)
		if errors.Is(err, store.ErrAlreadyExists) {
			return store.UpdateAs(ctx, r.store, id, domain.KindWorkerLease, lease)
		}
		return err
	}
	return store.UpdateAs(ctx, r.store, id, domain.KindWorkerLease, lease)
}
