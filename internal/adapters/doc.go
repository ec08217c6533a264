// Package adapters отвечает за операторскую сторону парка адаптеров:
// health-проверки executor endpoints и встроенный runbook по известным
// failure codes.
//
// HealthService держит кэш last-known статусов: live probe выполняется
// только по явному запросу (probe=true), фоновые потребители читают кэш
// и никогда не блокируются на сетевых round-trip'ах.
package adapters
