package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/adapters"
)

// NewRunbookCmd создаёт группу команд для встроенного runbook.
// Runbook не требует подключения к store.
func NewRunbookCmd(outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runbook",
		Short: "Browse the failure-code runbook",
	}

	cmd.AddCommand(
		newRunbookListCmd(outputFn),
		newRunbookShowCmd(outputFn),
	)

	return cmd
}

func newRunbookListCmd(outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known failure codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			codes := adapters.RunbookCodes()
			headers := []string{"CODE", "CLASS", "SEVERITY", "LIKELY CAUSE"}
			rows := make([][]string, 0, len(codes))
			entries := make([]adapters.RunbookEntry, 0, len(codes))
			for _, code := range codes {
				entry, _ := adapters.LookupRunbook(code)
				entries = append(entries, entry)
				rows = append(rows, []string{
					entry.Code, string(entry.Class), string(entry.Severity), entry.LikelyCause,
				})
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}
}

func newRunbookShowCmd(outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "show CODE",
		Short: "Show runbook guidance for a failure code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			code := strings.ToUpper(args[0])
			entry, ok := adapters.LookupRunbook(code)
			if !ok {
				return fmt.Errorf("unknown failure code %q (version %s)", code, adapters.RunbookVersion)
			}

			out.JSON(entry)
			return nil
		},
	}
}
