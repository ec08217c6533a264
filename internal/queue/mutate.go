package queue

import (
	"context"
	"errors"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/mq"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/telemetry"
)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// loadOwnedTask — общие проверки мутирующих операций протокола:
// форма входа, существование task и владение им.
//
// Порядок проверок фиксирован: сначала вход, затем NOT_FOUND,
// затем FORBIDDEN; staleness sequence проверяет вызывающий,
// потому что stale — это не ошибка.
func (q *Queue) loadOwnedTask(ctx context.Context, taskID, executorID string, sequence int64) (*domain.ExecutionTask, error) {
	if taskID == "" {
		return nil, badRequestf("taskId is required")
	}
	if executorID == "" {
		return nil, badRequestf("executorId is required")
	}
	if sequence <= 0 {
		return nil, badRequestf("sequence must be positive, got %d", sequence)
	}

	task, err := store.GetAs[domain.ExecutionTask](ctx, q.store, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("task %s not found", taskID)
		}
		return nil, &Error{Kind: KindNotFound, Message: "load task", Err: err}
	}

	// Task без владельца или с другим владельцем: вызывающий потерял
	// lease (или никогда его не имел) — FORBIDDEN. Именно так abandoned
	// task безопасно передаётся новому executor'у.
	if !task.OwnedBy(executorID) {
		return nil, forbiddenf("task %s is not owned by executor %s", taskID, executorID)
	}
	return task, nil
}

// stale возвращает no-op результат для повторно доставленного sequence.
func stale(op string, task *domain.ExecutionTask) *MutationResult {
	metricMutationsStale.WithLabelValues(op).Inc()
	return &MutationResult{Accepted: false, Status: task.Status, LastSequence: task.LastSequence}
}

// mirrorRun переприменяет инвариант «run зеркалирует task» и пишет run.
// Отказ записи run не откатывает уже записанный task: окно дрейфа
// закрывает Poller тем же MirrorTaskToRun.
func (q *Queue) mirrorRun(ctx context.Context, task *domain.ExecutionTask) {
	run, err := store.GetAs[domain.ExecutionRun](ctx, q.store, task.ExecutionRunRef)
	if err != nil {
		q.logger.Warn("mirror: load run failed",
			"task_id", task.ID,
			"execution_run_id", task.ExecutionRunRef,
			"error", err,
		)
		return
	}
	if !MirrorTaskToRun(task, run) {
		return
	}
	if err := store.UpdateAs(ctx, q.store, run.ID, domain.KindExecutionRun, run); err != nil {
		q.logger.Warn("mirror: run write failed, poller will reconcile",
			"task_id", task.ID,
			"execution_run_id", run.ID,
			"error", err,
		)
	}
}

// Heartbeat продлевает lease и обновляет прогресс выполнения.
//
// Для heartbeat допустимы только статусы claimed и running; пустой
// статус означает running для claimed task и текущий статус иначе.
func (q *Queue) Heartbeat(ctx context.Context, in HeartbeatInput) (*MutationResult, error) {
	task, err := q.loadOwnedTask(ctx, in.TaskID, in.ExecutorID, in.Sequence)
	if err != nil {
		return nil, err
	}
	if in.Sequence <= task.LastSequence {
		return stale("heartbeat", task), nil
	}

	desired := in.Status
	if desired == "" {
		if task.Status == domain.TaskStatusClaimed {
			desired = domain.TaskStatusRunning
		} else {
			desired = task.Status
		}
	}
	if desired != domain.TaskStatusClaimed && desired != domain.TaskStatusRunning {
		return nil, badRequestf("heartbeat status must be claimed or running, got %s", desired)
	}
	if !domain.CanTransition(task.Status, desired) {
		metricInvalidTransitions.Inc()
		return nil, badRequestf("invalid transition %s -> %s", task.Status, desired)
	}

	at := q.clock.Now()
	if in.At != nil {
		at = in.At.UTC()
	}

	leaseMs := task.LeaseDurationMs
	if leaseMs <= 0 {
		leaseMs = defaultLeaseMs
	}
	expires := at.Add(msToDuration(leaseMs))

	task.Status = desired
	task.LastSequence = in.Sequence
	task.LastHeartbeatAt = &at
	task.LeaseExpiresAt = &expires
	if in.Progress != nil {
		task.Progress = in.Progress
	}

	if err := store.UpdateAs(ctx, q.store, task.ID, domain.KindExecutionTask, task); err != nil {
		return nil, updateFailed(err, "execution task")
	}
	q.mirrorRun(ctx, task)

	metricMutationsAccepted.WithLabelValues("heartbeat").Inc()
	return &MutationResult{Accepted: true, Status: task.Status, LastSequence: task.LastSequence}, nil
}

// AppendLogs принимает batch записей лога и создаёт одну неизменяемую
// запись TaskLog на весь batch.
func (q *Queue) AppendLogs(ctx context.Context, in AppendLogsInput) (*MutationResult, error) {
	task, err := q.loadOwnedTask(ctx, in.TaskID, in.ExecutorID, in.Sequence)
	if err != nil {
		return nil, err
	}
	if len(in.Entries) == 0 {
		return nil, badRequestf("log batch is empty")
	}
	if task.Status.IsTerminal() {
		return nil, badRequestf("task %s is already terminal (%s)", task.ID, task.Status)
	}
	if in.Sequence <= task.LastSequence {
		return stale("append_logs", task), nil
	}

	task.LastSequence = in.Sequence
	if err := store.UpdateAs(ctx, q.store, task.ID, domain.KindExecutionTask, task); err != nil {
		return nil, updateFailed(err, "execution task")
	}

	logID, err := store.NextID(ctx, q.store, domain.KindTaskLog, store.PrefixTaskLog)
	if err != nil {
		return nil, createFailed(err, "task log id")
	}

	entries := make([]domain.StoredLogEntry, 0, len(in.Entries))
	for _, e := range in.Entries {
		entries = append(entries, domain.StoredLogEntry{
			Type:      domain.MapLogLevel(e.Level),
			Message:   e.Message,
			Code:      e.Code,
			Data:      e.Data,
			Timestamp: e.Timestamp,
		})
	}

	logRec := domain.TaskLog{
		ID:              logID,
		TaskRef:         task.ID,
		ExecutionRunRef: task.ExecutionRunRef,
		Sequence:        in.Sequence,
		Entries:         entries,
		FirstEntryAt:    in.Entries[0].Timestamp,
		LastEntryAt:     in.Entries[len(in.Entries)-1].Timestamp,
		CreatedAt:       q.clock.Now(),
	}
	if err := store.CreateAs(ctx, q.store, logID, domain.KindTaskLog, logRec); err != nil {
		return nil, createFailed(err, "task log")
	}

	metricMutationsAccepted.WithLabelValues("append_logs").Inc()
	return &MutationResult{
		Accepted:     true,
		Status:       task.Status,
		LastSequence: task.LastSequence,
		LogID:        logID,
	}, nil
}

// UpdateStatus применяет переход статуса, присланный executor'ом,
// и зеркалирует run-видимые следствия в run ledger.
func (q *Queue) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*MutationResult, error) {
	task, err := q.loadOwnedTask(ctx, in.TaskID, in.ExecutorID, in.Sequence)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		return nil, badRequestf("status is required")
	}
	if !in.Status.Valid() {
		return nil, badRequestf("unknown status %q", in.Status)
	}
	if in.Sequence <= task.LastSequence {
		return stale("update_status", task), nil
	}
	if !domain.CanTransition(task.Status, in.Status) {
		metricInvalidTransitions.Inc()
		return nil, badRequestf("invalid transition %s -> %s", task.Status, in.Status)
	}

	at := q.clock.Now()
	if in.At != nil {
		at = in.At.UTC()
	}

	task.Status = in.Status
	task.LastSequence = in.Sequence
	if in.Failure != nil {
		f := *in.Failure
		if f.Class == "" {
			f.Class = domain.FailureClassUnknown
		}
		task.Failure = &f
	}
	if in.External != nil {
		if task.External == nil {
			task.External = &domain.ExternalRef{}
		}
		if in.External.RunID != "" {
			task.External.RunID = in.External.RunID
		}
		if in.External.ProtocolID != "" {
			task.External.ProtocolID = in.External.ProtocolID
		}
		if in.External.RawStatus != "" {
			task.External.RawStatus = in.External.RawStatus
		}
	}
	if in.Status.IsTerminal() && task.CompletedAt == nil {
		task.CompletedAt = &at
	}

	if err := store.UpdateAs(ctx, q.store, task.ID, domain.KindExecutionTask, task); err != nil {
		return nil, updateFailed(err, "execution task")
	}
	q.mirrorRun(ctx, task)

	if in.Status.IsTerminal() && q.publisher != nil {
		if err := q.publisher.PublishTaskSettled(ctx, mq.TaskSettledPayload{
			TaskID:         task.ID,
			ExecutionRunID: task.ExecutionRunRef,
			Status:         string(task.Status),
		}); err != nil {
			telemetry.WithTaskID(q.logger, task.ID).Warn("failed to publish task.settled", "error", err)
		}
	}

	metricMutationsAccepted.WithLabelValues("update_status").Inc()
	return &MutationResult{Accepted: true, Status: task.Status, LastSequence: task.LastSequence}, nil
}

// Complete — композиция: updateStatus(finalStatus), затем второй записью
// прикрепление времён, артефактов и измерений.
//
// Если updateStatus отвергнут как stale replay, вся операция — no-op
// с Accepted:false: артефакты создаются ровно один раз.
func (q *Queue) Complete(ctx context.Context, in CompleteInput) (*MutationResult, error) {
	if !in.FinalStatus.IsTerminal() {
		return nil, badRequestf("finalStatus must be terminal, got %q", in.FinalStatus)
	}

	res, err := q.UpdateStatus(ctx, UpdateStatusInput{
		TaskID:     in.TaskID,
		ExecutorID: in.ExecutorID,
		Sequence:   in.Sequence,
		Status:     in.FinalStatus,
	})
	if err != nil {
		return nil, err
	}
	if !res.Accepted {
		return res, nil
	}

	task, err := store.GetAs[domain.ExecutionTask](ctx, q.store, in.TaskID)
	if err != nil {
		return nil, &Error{Kind: KindNotFound, Message: "reload task", Err: err}
	}

	if in.StartedAt != nil {
		t := in.StartedAt.UTC()
		task.StartedAt = &t
	}
	if in.CompletedAt != nil {
		t := in.CompletedAt.UTC()
		task.CompletedAt = &t
	}
	if len(in.Artifacts) > 0 {
		task.Artifacts = in.Artifacts
	}
	if len(in.Measurements) > 0 {
		task.Measurements = in.Measurements
	}

	if err := store.UpdateAs(ctx, q.store, task.ID, domain.KindExecutionTask, task); err != nil {
		return nil, updateFailed(err, "execution task")
	}
	q.mirrorRun(ctx, task)

	metricMutationsAccepted.WithLabelValues("complete").Inc()
	return &MutationResult{Accepted: true, Status: task.Status, LastSequence: task.LastSequence}, nil
}
