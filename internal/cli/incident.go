package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// NewIncidentCmd создаёт группу команд для работы с инцидентами.
func NewIncidentCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incident",
		Short: "Manage operator incidents",
	}

	cmd.AddCommand(
		newIncidentListCmd(appFn, outputFn),
		newIncidentShowCmd(appFn, outputFn),
		newIncidentAckCmd(appFn, outputFn),
		newIncidentResolveCmd(appFn, outputFn),
		newIncidentSummaryCmd(appFn, outputFn),
	)

	return cmd
}

func newIncidentListCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			incidents, err := app.Incidents.List(cmd.Context(), domain.IncidentStatus(status))
			if err != nil {
				return err
			}

			headers := []string{"ID", "TYPE", "SEVERITY", "STATUS", "RELATED", "CREATED"}
			rows := make([][]string, len(incidents))
			for i, inc := range incidents {
				created := inc.CreatedAt
				rows[i] = []string{
					inc.ID, string(inc.Type), string(inc.Severity), string(inc.Status),
					inc.RelatedID, fmtTime(&created),
				}
			}

			out.Print(headers, rows, incidents)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (open, acked, resolved)")

	return cmd
}

func newIncidentShowCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show incident details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			incident, err := app.Incidents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.JSON(incident)
			return nil
		},
	}
}

func newIncidentAckCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "ack ID",
		Short: "Acknowledge an open incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			incident, err := app.Incidents.Acknowledge(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Incident acknowledged: %s", incident.ID))
			out.JSON(incident)
			return nil
		},
	}
}

func newIncidentResolveCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ID",
		Short: "Resolve an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			incident, err := app.Incidents.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Incident resolved: %s", incident.ID))
			out.JSON(incident)
			return nil
		},
	}
}

func newIncidentSummaryCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Aggregate incidents by status, severity and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			summary, err := app.Incidents.Summary(cmd.Context())
			if err != nil {
				return err
			}

			out.JSON(summary)
			return nil
		},
	}
}
