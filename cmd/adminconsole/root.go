package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/adminconsole/internal/app"
	"github.com/patric-chuzhbe/adminconsole/internal/config"
	"github.com/patric-chuzhbe/adminconsole/internal/shell"
)

// NewRootCmd creates the root command. Flags left unset fall through to
// the environment, the JSON config file and the defaults.
func NewRootCmd() *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:   "adminconsole",
		Short: "Admin console for managing user accounts.",
		Long: `adminconsole signs in to the admin REST API and lets an administrator
list, create and delete user accounts.

The auth token is kept in the file given by --token-file so that the next
run can resume the session.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("admin-only") {
				adminOnly, err := cmd.Flags().GetBool("admin-only")
				if err != nil {
					return err
				}
				overrides.AdminOnly = strconv.FormatBool(adminOnly)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromOverrides(overrides)
			if err != nil {
				return err
			}

			application, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = application.Close()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return shell.New(application.Console(), cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&overrides.APIBaseURL, "api-url", "u", "", "base URL of the admin REST API")
	cmd.Flags().StringVarP(&overrides.TokenStoragePath, "token-file", "f", "", "JSON file keeping the auth token between runs")
	cmd.Flags().StringVarP(&overrides.LogLevel, "log-level", "l", "", `logger level ("debug", "info", "warn", "error")`)
	cmd.Flags().StringVarP(&overrides.ConfigFile, "config", "c", "", "JSON config file")
	cmd.Flags().Bool("admin-only", true, "allow only admin accounts to sign in")

	return cmd
}
