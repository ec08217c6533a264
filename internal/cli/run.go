package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// NewRunCmd создаёт группу команд для просмотра execution runs.
func NewRunCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect execution runs",
	}

	cmd.AddCommand(
		newRunListCmd(appFn, outputFn),
		newRunShowCmd(appFn, outputFn),
	)

	return cmd
}

func newRunListCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var status string
	var planID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List execution runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			runs, err := store.ListAs[domain.ExecutionRun](cmd.Context(), app.Store, domain.KindExecutionRun, 0)
			if err != nil {
				return err
			}
			filtered := runs[:0]
			for i := range runs {
				if status != "" && string(runs[i].Status) != status {
					continue
				}
				if planID != "" && runs[i].RobotPlanRef != planID {
					continue
				}
				filtered = append(filtered, runs[i])
			}
			runs = filtered
			sort.Slice(runs, func(i, j int) bool {
				return runs[i].CreatedAt.After(runs[j].CreatedAt)
			})

			headers := []string{"ID", "PLAN", "ATTEMPT", "STATUS", "FAILURE", "RETRY", "COMPLETED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				failure := r.FailureCode
				if failure == "" {
					failure = "-"
				}
				rows[i] = []string{
					r.ID, r.RobotPlanRef, strconv.Itoa(r.Attempt), string(r.Status),
					failure, strconv.FormatBool(r.RetryRecommended), fmtTime(r.CompletedAt),
				}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (running, completed, failed, canceled)")
	cmd.Flags().StringVar(&planID, "plan", "", "Filter by robot plan id")

	return cmd
}

func newRunShowCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			run, err := store.GetAs[domain.ExecutionRun](cmd.Context(), app.Store, args[0])
			if err != nil {
				return err
			}

			out.JSON(run)
			return nil
		},
	}
}
