package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/db"
	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/services"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "plpctl",
	Short: "plpctl runs maintenance tasks of the learning plan service",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// openStore loads the configuration and connects the record store.
func openStore() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Init(cfg.App.Env); err != nil {
		return nil, nil, err
	}
	gdb, err := db.InitPostgresORM(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gdb, nil
}

var ensureRolesCmd = &cobra.Command{
	Use:   "ensure-roles",
	Short: "Create the plan roles and grant their capabilities; safe to run again",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, gdb, err := openStore()
		if err != nil {
			return err
		}
		defer logging.Close()

		statuses, err := services.NewRoleProvisioningService(gdb).EnsureRoles(cmd.Context(), cfg.Roles)
		for _, s := range statuses {
			fmt.Fprintln(cmd.OutOrStdout(), s.String())
		}
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gdb, err := openStore()
		if err != nil {
			return err
		}
		defer logging.Close()

		if err := db.Migrate(gdb); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding config.yaml")
	rootCmd.AddCommand(ensureRolesCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
