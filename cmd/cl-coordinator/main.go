// Computable Lab Coordinator — ядро координации выполнения лабораторных
// протоколов на роботах.
//
// Coordinator:
//   - Держит очередь execution tasks для executor sidecar'ов
//   - Зеркалирует статусы tasks в run ledger
//   - Крутит singleton workers: poller, retry worker, incident worker
//   - Публикует события очереди и инцидентов в RabbitMQ
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/adapters"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/contract"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/lease"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/mq"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/queue"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/telemetry"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/workers"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cl-coordinator")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := store.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	recordStore, err := store.NewPostgres(ctx, pool)
	if err != nil {
		logger.Error("failed to init record store", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// RabbitMQ: при недоступности работаем в polling-only режиме
	var publisher *mq.Publisher
	var mqConn *mq.Connection

	mqConn, err = mq.NewConnection(mq.DefaultURL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Сервисы
	endpoints := adapters.EndpointsFromEnv()
	health := adapters.NewHealthService(adapters.HealthConfig{
		Endpoints: endpoints,
		Logger:    logger,
	})
	statusClient := adapters.NewStatusClient(adapters.StatusConfig{
		Endpoints: endpoints,
		Logger:    logger,
	})

	q := queue.New(queue.Config{
		Store:     recordStore,
		Publisher: publisher,
		Logger:    logger,
	})

	conformance, err := contract.NewConformance(contract.ConformanceConfig{
		Store:  recordStore,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to init contract conformance", "error", err)
		os.Exit(1)
	}
	// Self-test контракта на старте: провал не фатален, но виден
	// операторам через сохранённый отчёт и лог.
	if report, err := conformance.SelfTest(ctx, true); err != nil {
		logger.Warn("contract self-test did not run", "error", err)
	} else if !report.Passed {
		logger.Error("contract self-test failed", "contract_version", report.ContractVersion)
	}

	poller := workers.NewPoller(workers.PollerConfig{
		Store:  recordStore,
		Health: health,
		Status: statusClient,
		Logger: logger,
	})
	retryWorker := workers.NewRetryWorker(workers.RetryConfig{
		Store:  recordStore,
		Queue:  q,
		Logger: logger,
	})
	incidentWorker := workers.NewIncidentWorker(workers.IncidentConfig{
		Store:     recordStore,
		Health:    health,
		Publisher: publisher,
		Logger:    logger,
	})

	// Singleton workers через lease registry
	registry := lease.New(lease.Config{Store: recordStore, Logger: logger})
	forceTakeover := os.Getenv("CL_FORCE_TAKEOVER") == "true"

	startWorker := func(id domain.WorkerID, def time.Duration, tick lease.TickFunc) {
		sched, err := workers.ScheduleFromEnv(string(id), def)
		if err != nil {
			logger.Error("bad worker schedule", "worker_id", id, "error", err)
			os.Exit(1)
		}
		result, err := registry.Start(ctx, id, sched, tick, lease.StartOptions{ForceTakeover: forceTakeover})
		if err != nil {
			logger.Error("failed to start worker", "worker_id", id, "error", err)
			os.Exit(1)
		}
		if !result.Started {
			logger.Info("worker lease held elsewhere",
				"worker_id", id, "owner", result.Lease.OwnerInstance)
		}
	}

	startWorker(domain.WorkerPoller, 15*time.Second, poller.Tick)
	startWorker(domain.WorkerRetry, time.Minute, retryWorker.Tick)
	startWorker(domain.WorkerIncident, time.Minute, incidentWorker.Tick)

	// Settled events: немедленный reconcile вместо ожидания тика poller'а
	var settledConsumer *mq.Consumer
	if mqConn != nil {
		settledConsumer = mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue: mq.QueueTasksSettled,
			Handler: func(ctx context.Context, msg *mq.Message) error {
				payload, err := mq.ParsePayload[mq.TaskSettledPayload](msg)
				if err != nil {
					return err
				}
				if _, err := poller.Reconcile(ctx, 0); err != nil {
					logger.Warn("reconcile after settle failed",
						"task_id", payload.TaskID, "error", err)
				}
				return nil
			},
		})
		go func() {
			if err := settledConsumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("settled consumer stopped", "error", err)
			}
		}()
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8090"
	if v := os.Getenv("CL_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	if settledConsumer != nil {
		settledConsumer.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	registry.StopAll(shutdownCtx)
	shutdownCancel()
	logger.Info("cl-coordinator stopped")
}
