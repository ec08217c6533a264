package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/adapters"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/contract"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/lease"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/queue"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/workers"
)

// App — собранный набор сервисов для CLI-команд.
//
// CLI работает напрямую с record store: отдельного сетевого API
// у координатора нет, обе стороны видят одну и ту же базу.
type App struct {
	Store       store.Store
	Queue       *queue.Queue
	Incidents   *workers.IncidentService
	Leases      *lease.ViewService
	Health      *adapters.HealthService
	Status      *adapters.StatusClient
	Conformance *contract.ConformanceService

	pool *pgxpool.Pool
}

// NewApp подключается к store и собирает сервисы.
func NewApp(ctx context.Context, logger *slog.Logger) (*App, error) {
	pool, err := store.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	pg, err := store.NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	endpoints := adapters.EndpointsFromEnv()
	health := adapters.NewHealthService(adapters.HealthConfig{
		Endpoints: endpoints,
		Logger:    logger,
	})
	status := adapters.NewStatusClient(adapters.StatusConfig{
		Endpoints: endpoints,
		Logger:    logger,
	})

	conformance, err := contract.NewConformance(contract.ConformanceConfig{
		Store:  pg,
		Logger: logger,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init conformance: %w", err)
	}

	return &App{
		Store:       pg,
		Queue:       queue.New(queue.Config{Store: pg, Logger: logger}),
		Incidents:   workers.NewIncidentService(pg, nil),
		Leases:      lease.NewViewService(pg),
		Health:      health,
		Status:      status,
		Conformance: conformance,
		pool:        pool,
	}, nil
}

// Close освобождает подключение к store.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// healthGate адаптирует HealthService к contract.AdapterChecker.
type healthGate struct {
	h *adapters.HealthService
}

func (g healthGate) CheckAdapter(ctx context.Context, adapterID string, probe bool) (bool, string) {
	status := g.h.CheckAdapter(ctx, adapterID, probe)
	return status.Healthy, status.Detail
}
