// Package queue — execution task queue: ядро координации удалённого
// выполнения robot plans.
//
// # Обзор
//
// Queue владеет state machine ExecutionTask и протоколом, которым
// executors (sidecars) ведут task через жизненный цикл:
//
//	queued → claimed → running → cancel_requested → {completed | failed | canceled}
//
// Операции:
//   - CreateQueuedTask — создать пару run+task для robot plan
//   - ClaimTasks — выдать executor'у claimable tasks под time-bounded lease
//   - Heartbeat — продлить lease, обновить прогресс
//   - AppendLogs — принять batch логов одной неизменяемой записью
//   - UpdateStatus — применить переход статуса и зеркалировать run
//   - Complete — финальный статус + артефакты/измерения второй записью
//
// # Идемпотентность
//
// Каждая мутация несёт sequence — per-task монотонный счётчик от executor.
// Sequence ≤ lastSequence — не ошибка, а успешный no-op (Accepted:false):
// ровно этот update уже применён, executor может безопасно ретраить
// по at-least-once семантике. Любая принятая мутация строго увеличивает
// lastSequence.
//
// # Владение и lease
//
// Claim устанавливает executor id и lease; heartbeat продлевает его.
// После истечения lease task становится claimable для других executors;
// старый владелец при попытке мутации получает FORBIDDEN — так abandoned
// работа передаётся без участия умершего процесса.
//
// # Две записи без транзакции
//
// Операция, затрагивающая task и run, выполняет две независимые записи
// (store не даёт cross-document транзакций). Инвариант «run зеркалирует
// task» выражен чистой функцией MirrorTaskToRun, которую Poller
// идемпотентно переприменяет и тем закрывает окно дрейфа.
package queue
