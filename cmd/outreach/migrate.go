package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/migration"
	"github.com/spf13/cobra"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or with --down, revert one) schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, s services) error {
			if !migrateDown {
				if err := migration.Apply(s.DB, s.Config.DBType); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}

			if s.Config.DBType != config.DBTypePostgres {
				return errors.New("--down is only supported on postgres")
			}
			sqlDB, err := s.DB.DB()
			if err != nil {
				return err
			}
			if err := migration.Rollback(sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
			return nil
		})
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "revert the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}
