package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewLeaseCmd создаёт группу команд для просмотра worker leases.
func NewLeaseCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Inspect worker leases",
	}

	cmd.AddCommand(newLeaseListCmd(appFn, outputFn))

	return cmd
}

func newLeaseListCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var workerID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List worker leases",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			leases, err := app.Leases.List(cmd.Context(), workerID)
			if err != nil {
				return err
			}

			now := time.Now()
			headers := []string{"WORKER", "OWNER", "RUNNING", "EXPIRED", "INTERVAL MS", "EXPIRES"}
			rows := make([][]string, len(leases))
			for i, l := range leases {
				owner := l.OwnerInstance
				if owner == "" {
					owner = "-"
				}
				rows[i] = []string{
					string(l.WorkerID), owner,
					strconv.FormatBool(l.Running),
					strconv.FormatBool(l.Expired(now)),
					strconv.FormatInt(l.IntervalMs, 10),
					fmtTime(l.ExpiresAt),
				}
			}

			out.Print(headers, rows, leases)
			return nil
		},
	}

	cmd.Flags().StringVar(&workerID, "worker", "", "Filter by worker id (poller, retry-worker, incident-worker)")

	return cmd
}
