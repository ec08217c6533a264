package queue

import (
	"reflect"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// Фиксированные строки retryReason.
const (
	RetryReasonTransient = "transient remote failure reported by executor"
	RetryReasonTerminal  = "non-transient remote failure reported by executor"
)

// MirrorTaskToRun — чистая функция инварианта «run зеркалирует task».
//
// Task и run пишутся двумя независимыми записями без транзакции, поэтому
// они могут разойтись. Вместо попытки атомарности инвариант выражен
// функцией, которую можно идемпотентно переприменять в любой момент:
// её применяет updateStatus/heartbeat сразу после записи task, и её же
// переприменяет Poller при реконсиляции дрейфа.
//
// Уже settled run не мутирует (run неизменяем после терминального
// статуса). Возвращает true, если run изменился.
func MirrorTaskToRun(task *domain.ExecutionTask, run *domain.ExecutionRun) bool {
	if run.IsSettled() {
		return false
	}

	changed := false

	if status := domain.CoerceRunStatus(task.Status); run.Status != status {
		run.Status = status
		changed = true
	}

	if task.Progress != nil && !reflect.DeepEqual(run.Progress, task.Progress) {
		run.Progress = task.Progress
		changed = true
	}

	if ext := task.External; ext != nil {
		if ext.RunID != "" && run.ExternalRunID != ext.RunID {
			run.ExternalRunID = ext.RunID
			changed = true
		}
		if ext.ProtocolID != "" && run.ExternalProtocolID != ext.ProtocolID {
			run.ExternalProtocolID = ext.ProtocolID
			changed = true
		}
		if ext.RawStatus != "" && run.LastRawStatus != ext.RawStatus {
			run.LastRawStatus = ext.RawStatus
			changed = true
		}
	}

	if f := task.Failure; f != nil {
		class := f.Class
		if class == "" {
			class = domain.FailureClassUnknown
		}
		if run.FailureClass != class || run.FailureCode != f.Code {
			run.FailureClass = class
			run.FailureCode = f.Code
			changed = true
		}
		if f.Message != "" && run.Notes != f.Message {
			run.Notes = f.Message
			changed = true
		}
	}

	// Рекомендация retry выставляется ровно при переходе в failed.
	if task.Status == domain.TaskStatusFailed {
		recommended := task.Failure != nil && task.Failure.Class == domain.FailureClassTransient
		reason := RetryReasonTerminal
		if recommended {
			reason = RetryReasonTransient
		}
		if run.RetryRecommended != recommended || run.RetryReason != reason {
			run.RetryRecommended = recommended
			run.RetryReason = reason
			changed = true
		}
	}

	if task.StartedAt != nil && run.StartedAt == nil {
		run.StartedAt = task.StartedAt
		changed = true
	}
	if task.CompletedAt != nil && run.CompletedAt == nil {
		run.CompletedAt = task.CompletedAt
		changed = true
	}

	return changed
}
