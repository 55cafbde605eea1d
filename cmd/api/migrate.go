package main

import (
	"fmt"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd(configPath *string) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			rt, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			applied, err := migrations.Apply(cmd.Context(), rt.pool)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			rt.logger.Info("migrations applied", zap.Strings("applied", applied))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print embedded migrations without connecting")
	return cmd
}
