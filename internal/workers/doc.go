// Package workers содержит фоновые singleton-циклы системы:
//
//   - Poller — закрывает окна дрейфа task→run и освежает health адаптеров;
//   - RetryWorker — материализует рекомендованные retry провалившихся runs;
//   - IncidentWorker — поднимает дедуплицированные операторские инциденты.
//
// Каждый цикл запускается через lease.Registry и потому активен не более
// чем в одном instance на весь флот replicas. Расписания тиков задаются
// фиксированным интервалом или cron-выражением (ScheduleFromEnv).
//
// Все тики идемпотентны: повторный проход по тому же состоянию системы
// не создаёт дубликатов retry или инцидентов.
package workers
