// Package clock — абстракция над системным временем.
//
// Все проверки lease expiry и heartbeat staleness в системе проходят
// через Clock, чтобы тесты могли детерминированно симулировать истечение
// lease вместо ожидания реального времени.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// System возвращает Clock, использующий системное время.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Manual — управляемые часы для тестов.
//
// Время сдвигается только явными вызовами Set/Advance.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual создаёт Manual с указанным начальным временем.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now возвращает текущее установленное время.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set устанавливает время.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// Advance сдвигает время вперёд на d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
