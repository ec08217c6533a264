package domain

// TaskStatus — статус выполнения ExecutionTask.
//
// Жизненный цикл:
//
//	queued → claimed → running → cancel_requested → {completed | failed | canceled}
//	         claimed → {failed | canceled}   (прямые переходы)
//	queued → canceled
//
// Терминальные статусы не имеют исходящих переходов.
type TaskStatus string

const (
	// TaskStatusQueued — task опубликован и ожидает claim от executor.
	TaskStatusQueued TaskStatus = "queued"

	// TaskStatusClaimed — task захвачен executor'ом, работа ещё не началась.
	TaskStatusClaimed TaskStatus = "claimed"

	// TaskStatusRunning — executor выполняет task и шлёт heartbeats.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusCancelRequested — запрошена отмена; статус advisory,
	// executor обязан сам довести task до терминального статуса.
	TaskStatusCancelRequested TaskStatus = "cancel_requested"

	// TaskStatusCompleted — task успешно завершён.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed — task завершился с ошибкой.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusCanceled — task отменён.
	TaskStatusCanceled TaskStatus = "canceled"
)

// taskTransitions — таблица разрешённых переходов.
// Запрос с переходом вне таблицы отклоняется как invalid transition,
// а не игнорируется молча.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusQueued:          {TaskStatusClaimed, TaskStatusCanceled},
	TaskStatusClaimed:         {TaskStatusRunning, TaskStatusFailed, TaskStatusCanceled},
	TaskStatusRunning:         {TaskStatusCancelRequested, TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled},
	TaskStatusCancelRequested: {TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled},
	TaskStatusCompleted:       {},
	TaskStatusFailed:          {},
	TaskStatusCanceled:        {},
}

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

// Valid возвращает true, если статус входит в закрытое множество.
func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// CanTransition проверяет переход from → to по таблице.
//
// Переход в тот же статус разрешён для нетерминальных статусов
// (heartbeat и повторные status-отчёты — self-loop) и запрещён
// для терминальных: терминальный task не мутирует никогда.
func CanTransition(from, to TaskStatus) bool {
	if from == to {
		return !from.IsTerminal()
	}
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RunStatus — статус ExecutionRun.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// IsTerminal возвращает true, если run завершён.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// CoerceRunStatus приводит статус task к статусу run.
// Терминальные статусы проходят как есть, всё остальное — running.
func CoerceRunStatus(s TaskStatus) RunStatus {
	switch s {
	case TaskStatusCompleted:
		return RunStatusCompleted
	case TaskStatusFailed:
		return RunStatusFailed
	case TaskStatusCanceled:
		return RunStatusCanceled
	default:
		return RunStatusRunning
	}
}

// FailureClass — классификация отказа, присланная executor'ом.
type FailureClass string

const (
	// FailureClassTransient — временный отказ, retry имеет смысл.
	FailureClassTransient FailureClass = "transient"

	// FailureClassTerminal — постоянный отказ, retry бесполезен.
	FailureClassTerminal FailureClass = "terminal"

	// FailureClassUnknown — executor не смог классифицировать отказ.
	FailureClassUnknown FailureClass = "unknown"
)
