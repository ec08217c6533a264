// Package domain содержит типы данных системы координации выполнения:
// ExecutionTask и его state machine, ExecutionRun с retry-линией,
// WorkerLease для singleton workers, Incident и записи логов.
//
// Пакет не имеет зависимостей от хранилища и транспорта — только
// структуры, статусы и таблица переходов. JSON-теги полей совпадают
// с wire-форматом sidecar-контракта (executorId, leaseDurationMs и т.д.),
// поэтому сохранённые документы читаются теми же именами, которыми
// оперируют executors.
package domain
