package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/queue"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// AppFn лениво создаёт App после парсинга PersistentFlags.
type AppFn func(ctx context.Context) (*App, error)

// OutputFn лениво создаёт Output после парсинга PersistentFlags.
type OutputFn func() *Output

// NewTaskCmd создаёт группу команд для управления execution tasks.
func NewTaskCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage execution tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(appFn, outputFn),
		newTaskShowCmd(appFn, outputFn),
		newTaskCreateCmd(appFn, outputFn),
		newTaskCancelCmd(appFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List execution tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			tasks, err := store.ListAs[domain.ExecutionTask](cmd.Context(), app.Store, domain.KindExecutionTask, 0)
			if err != nil {
				return err
			}
			if status != "" {
				filtered := tasks[:0]
				for i := range tasks {
					if string(tasks[i].Status) == status {
						filtered = append(filtered, tasks[i])
					}
				}
				tasks = filtered
			}
			sort.Slice(tasks, func(i, j int) bool {
				return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
			})

			headers := []string{"ID", "STATUS", "ADAPTER", "EXECUTOR", "SEQ", "LEASE EXPIRES", "RUN"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				executor := t.ExecutorID
				if executor == "" {
					executor = "-"
				}
				rows[i] = []string{
					t.ID, string(t.Status), t.AdapterID, executor,
					strconv.FormatInt(t.LastSequence, 10),
					fmtTime(t.LeaseExpiresAt), t.ExecutionRunRef,
				}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (queued, claimed, running, ...)")

	return cmd
}

func newTaskShowCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			task, err := store.GetAs[domain.ExecutionTask](cmd.Context(), app.Store, args[0])
			if err != nil {
				return err
			}

			out.JSON(task)
			return nil
		},
	}
}

func newTaskCreateCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var planID string
	var paramsJSON string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a queued task for a robot plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			var params map[string]any
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("parse --params: %w", err)
				}
			}

			result, err := app.Queue.CreateQueuedTask(cmd.Context(), queue.CreateTaskInput{
				RobotPlanID:       planID,
				RuntimeParameters: params,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task created: %s (attempt %d)", result.TaskID, result.Attempt))
			out.Print(
				[]string{"TASK", "RUN", "ATTEMPT"},
				[][]string{{result.TaskID, result.ExecutionRunID, strconv.Itoa(result.Attempt)}},
				result,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&planID, "plan", "", "Robot plan id (required)")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "Runtime parameters as a JSON object")
	cmd.MarkFlagRequired("plan")

	return cmd
}

func newTaskCancelCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Request cancellation of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			result, err := app.Queue.RequestCancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task %s is now %s", args[0], result.Status))
			out.JSON(result)
			return nil
		},
	}
}
