package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/contract"
)

// NewContractCmd создаёт группу команд проверки sidecar-контракта.
func NewContractCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Check sidecar protocol conformance",
	}

	cmd.AddCommand(
		newContractValidateCmd(appFn, outputFn),
		newContractSelfTestCmd(appFn, outputFn),
		newContractGateCmd(appFn, outputFn),
	)

	return cmd
}

func newContractValidateCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "validate KIND FILE...",
		Short: "Validate payload files against the contract schema for KIND",
		Long: "KIND is one of: claim-request, heartbeat, append-logs, update-status, complete.\n" +
			"Exit status is non-zero if any payload is invalid.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			kind := contract.PayloadKind(args[0])
			payloads := make([][]byte, 0, len(args)-1)
			for _, path := range args[1:] {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				payloads = append(payloads, raw)
			}

			results, err := app.Conformance.ValidateBatch(kind, payloads)
			if err != nil {
				return err
			}

			invalid := 0
			headers := []string{"FILE", "VALID", "ERRORS"}
			rows := make([][]string, len(results))
			for i, r := range results {
				if !r.Valid {
					invalid++
				}
				rows[i] = []string{
					args[1+i], strconv.FormatBool(r.Valid), strings.Join(r.Errors, "; "),
				}
			}
			out.Print(headers, rows, results)

			if invalid > 0 {
				return fmt.Errorf("%d of %d payloads invalid", invalid, len(results))
			}
			return nil
		},
	}
}

func newContractSelfTestCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the bundled contract self-test",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			report, err := app.Conformance.SelfTest(cmd.Context(), persist)
			if err != nil {
				return err
			}

			headers := []string{"KIND", "CHECK", "WANT", "GOT", "PASS"}
			rows := make([][]string, len(report.Checks))
			for i, c := range report.Checks {
				rows[i] = []string{
					string(c.Kind), c.Name,
					strconv.FormatBool(c.WantValid), strconv.FormatBool(c.GotValid),
					strconv.FormatBool(c.Pass),
				}
			}
			out.Print(headers, rows, report)

			if !report.Passed {
				return fmt.Errorf("self-test for %s failed", report.ContractVersion)
			}
			out.Success(fmt.Sprintf("Self-test passed for %s", report.ContractVersion))
			return nil
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", false, "Persist the report to the store")

	return cmd
}

func newContractGateCmd(appFn AppFn, outputFn OutputFn) *cobra.Command {
	var maxAge time.Duration
	var adapterIDs []string

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Check readiness to roll out a new sidecar version",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			result, err := app.Conformance.Gate(cmd.Context(), contract.GateRequirements{
				MaxReportAge: maxAge,
				Adapters:     adapterIDs,
			}, healthGate{h: app.Health})
			if err != nil {
				return err
			}

			out.JSON(result)
			if !result.Ready {
				return fmt.Errorf("gate closed: %s", strings.Join(result.Reasons, "; "))
			}
			out.Success("Gate open")
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-report-age", 0, "Maximum age of the persisted self-test report (0 to skip)")
	cmd.Flags().StringSliceVar(&adapterIDs, "adapter", nil, "Adapter that must be healthy (repeatable)")

	return cmd
}
