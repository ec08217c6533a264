// Package store реализует record store — durable key→document хранилище,
// которое ядро потребляет как внешний collaborator.
//
// Контракт минимален: get/create/update по id и list по kind. Никаких
// multi-document транзакций и серверных счётчиков store не предоставляет;
// всё ядро (две последовательные записи task+run, scan-max аллокация id)
// построено с учётом этого.
//
// Реализации:
//   - Postgres — одна таблица cl_records (id, kind, payload jsonb), pgx pool
//   - Memory — для тестов и dry-run CLI, с инъекцией отказов записи
package store
