package workers

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/lease"
)

// CronSchedule адаптирует cron-выражение к lease.Schedule.
//
// Interval оценивается как расстояние между двумя последовательными
// срабатываниями от момента парсинга; для нерегулярных выражений это
// приближение, которого достаточно для срока жизни lease.
type CronSchedule struct {
	spec     string
	schedule cron.Schedule
	interval time.Duration
}

// ParseCron разбирает стандартное пятипольное cron-выражение
// (поддерживаются и дескрипторы вида @every 30s, @hourly).
func ParseCron(spec string) (*CronSchedule, error) {
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}

	now := time.Now()
	first := schedule.Next(now)
	second := schedule.Next(first)
	interval := second.Sub(first)
	if interval <= 0 {
		interval = time.Minute
	}

	return &CronSchedule{spec: spec, schedule: schedule, interval: interval}, nil
}

// Spec возвращает исходное cron-выражение.
func (c *CronSchedule) Spec() string {
	return c.spec
}

func (c *CronSchedule) Next(from time.Time) time.Time {
	return c.schedule.Next(from)
}

func (c *CronSchedule) Interval() time.Duration {
	return c.interval
}

// ScheduleFromEnv собирает расписание worker'а из окружения.
//
// CL_<NAME>_CRON задаёт cron-выражение и имеет приоритет;
// иначе CL_<NAME>_INTERVAL_MS задаёт фиксированный интервал;
// иначе используется def.
func ScheduleFromEnv(name string, def time.Duration) (lease.Schedule, error) {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))

	if spec := os.Getenv("CL_" + name + "_CRON"); spec != "" {
		return ParseCron(spec)
	}
	if raw := os.Getenv("CL_" + name + "_INTERVAL_MS"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid CL_%s_INTERVAL_MS %q", name, raw)
		}
		return lease.FixedSchedule(time.Duration(ms) * time.Millisecond), nil
	}
	return lease.FixedSchedule(def), nil
}
