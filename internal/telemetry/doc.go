// Package telemetry — structured logging через log/slog.
//
// Конфигурация через окружение: LOG_LEVEL (DEBUG/INFO/WARN/ERROR)
// и LOG_FORMAT (json/text). Хелперы With* добавляют стандартные
// атрибуты (task_id, execution_run_id, executor_id, worker_id),
// чтобы логи всех компонентов были однородны.
package telemetry
