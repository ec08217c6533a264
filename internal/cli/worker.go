package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/workers"
)

// NewWorkerCmd создаёт группу команд ручного запуска фоновых проходов.
// Команды выполняют ровно один тик соответствующего worker'а и полезны
// для отладки и для немедленной реакции, не дожидаясь расписания.
func NewWorkerCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one-off background worker passes",
	}

	cmd.AddCommand(
		newWorkerReconcileCmd(appFn, outputFn),
		newWorkerRetryCmd(appFn, outputFn),
		newWorkerIncidentCmd(appFn, outputFn),
	)

	return cmd
}

func newWorkerReconcileCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-apply task-to-run mirroring once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			poller := workers.NewPoller(workers.PollerConfig{Store: app.Store, Status: app.Status})
			repaired, err := poller.Reconcile(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Repaired %d run records", repaired))
			out.Print(
				[]string{"REPAIRED"},
				[][]string{{strconv.Itoa(repaired)}},
				map[string]int{"repaired": repaired},
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum tasks to scan (0 for all)")

	return cmd
}

func newWorkerRetryCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Queue recommended retries once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			worker := workers.NewRetryWorker(workers.RetryConfig{
				Store:       app.Store,
				Queue:       app.Queue,
				MaxAttempts: maxAttempts,
			})
			queued, err := worker.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Queued %d retries", queued))
			out.Print(
				[]string{"QUEUED"},
				[][]string{{strconv.Itoa(queued)}},
				map[string]int{"queued": queued},
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Retry budget per plan (default 3)")

	return cmd
}

func newWorkerIncidentCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "incident-scan",
		Short: "Scan for incident conditions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			worker := workers.NewIncidentWorker(workers.IncidentConfig{
				Store:  app.Store,
				Health: app.Health,
			})
			raised, err := worker.Scan(cmd.Context())
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Raised %d incidents", raised))
			out.Print(
				[]string{"RAISED"},
				[][]string{{strconv.Itoa(raised)}},
				map[string]int{"raised": raised},
			)
			return nil
		},
	}
}

// NewAdapterCmd создаёт группу команд проверки адаптеров.
func NewAdapterCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapter",
		Short: "Inspect adapter health",
	}

	cmd.AddCommand(newAdapterHealthCmd(appFn, outputFn))

	return cmd
}

func newAdapterHealthCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show adapter health (cached, or live with --probe)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			statuses := app.Health.Check(cmd.Context(), probe)
			headers := []string{"ADAPTER", "HEALTHY", "PROBED", "DETAIL", "CHECKED"}
			rows := make([][]string, len(statuses))
			for i, s := range statuses {
				detail := s.Detail
				if detail == "" {
					detail = "-"
				}
				checked := s.CheckedAt
				rows[i] = []string{
					s.AdapterID,
					strconv.FormatBool(s.Healthy),
					strconv.FormatBool(s.Probed),
					detail,
					fmtTime(&checked),
				}
			}

			out.Print(headers, rows, statuses)
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Probe endpoints live instead of reading the cache")

	return cmd
}
