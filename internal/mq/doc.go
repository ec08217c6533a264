// Package mq — событийная шина системы поверх RabbitMQ.
//
// Task queue публикует события task.queued и task.settled, incident worker —
// incident.raised. Coordinator потребляет tasks.settled, чтобы запускать
// внеочередной reconcile затронутого run, не дожидаясь тика poller'а.
//
// Шина опциональна: при недоступном брокере система работает в
// polling-only режиме, события просто не публикуются.
package mq
