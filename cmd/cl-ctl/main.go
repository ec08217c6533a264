// cl-ctl — операторский инструмент командной строки координатора.
//
// Использование:
//
//	cl-ctl [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	task      Управление execution tasks
//	run       Просмотр execution runs
//	incident  Управление инцидентами
//	lease     Просмотр worker leases
//	adapter   Health адаптеров
//	runbook   Справочник failure codes
//	contract  Проверка sidecar-контракта
//	worker    Ручной запуск фоновых проходов
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/cli"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	logger := telemetry.SetupLogger()

	rootCmd := &cobra.Command{
		Use:           "cl-ctl",
		Short:         "Computable Lab coordinator control tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	appFn := func(ctx context.Context) (*cli.App, error) { return cli.NewApp(ctx, logger) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(appFn, outputFn),
		cli.NewRunCmd(appFn, outputFn),
		cli.NewIncidentCmd(appFn, outputFn),
		cli.NewLeaseCmd(appFn, outputFn),
		cli.NewAdapterCmd(appFn, outputFn),
		cli.NewRunbookCmd(outputFn),
		cli.NewContractCmd(appFn, outputFn),
		cli.NewWorkerCmd(appFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
