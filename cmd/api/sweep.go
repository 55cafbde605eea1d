package main

import (
	"encoding/json"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func sweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one refund sweep pass and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			svc := app.NewSweepService(postgres.NewSweepRepository(rt.pool), clock.NewSystem(), rt.logger)
			report, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
