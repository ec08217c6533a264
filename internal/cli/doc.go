// Package cli реализует инструмент командной строки cl-ctl.
//
// # Обзор
//
// CLI — операторская утилита координатора. Сетевого API у координатора
// нет: команды подключаются напрямую к record store и работают с теми же
// записями, что и фоновые workers.
//
// # Ключевые компоненты
//
// ## App
//
// Собранный набор сервисов (store, queue, incidents, leases, health,
// conformance). Создаётся лениво через AppFn после парсинга
// PersistentFlags; каждая команда закрывает App за собой.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr,
// поэтому вывод можно передавать в pipe: cl-ctl task list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - task: list, show, create, cancel
//   - run: list, show
//   - incident: list, show, ack, resolve, summary
//   - lease: list
//   - adapter: health
//   - runbook: list, show
//   - contract: validate, selftest, gate
//   - worker: reconcile, retry, incident-scan
package cli
