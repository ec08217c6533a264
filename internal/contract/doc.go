// Package contract проверяет соответствие payload'ов sidecar-протокола
// версии контракта execution-task/v1.
//
// Схемы payload'ов встроены в бинарь (go:embed) и компилируются один раз
// при создании сервиса. SelfTest прогоняет канонические примеры протокола
// и сохраняет отчёт; Gate агрегирует отчёт и health адаптеров в единый
// вердикт готовности к ротации парка executor'ов.
package contract
