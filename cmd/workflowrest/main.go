package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest"
	"github.com/spf13/cobra"
)

var (
	envFile   string
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "workflowrest",
	Short:         "REST API over workflow definitions, instances and tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		logCloser = workflowrest.SetupLogger()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return workflowrest.Start(ctx, nil)
	},
}

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateDown {
			return workflowrest.RollbackMigrations()
		}
		return workflowrest.RunMigrations()
	},
}

var person struct {
	people.PersonDetails
	password string
}

var createPersonCmd = &cobra.Command{
	Use:   "create-person",
	Short: "Create a person and an API user able to log in",
	Example: `  workflowrest create-person --username alice --first-name Alice --password secret
  workflowrest --env-file prod.env create-person --username bob --password secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := workflowrest.RunMigrations(); err != nil {
			return err
		}
		db, err := workflowrest.OpenDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		services, err := workflowrest.NewServices(db)
		if err != nil {
			return err
		}
		defer services.Close()

		p, u, err := services.Bootstrap.EnsureAccount(cmd.Context(), person.PersonDetails, person.password)
		if err != nil {
			return err
		}
		slog.Info("Account ready", "userName", p.UserName, "nodeRef", p.NodeRef.String())
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.Username, u.ApiKey.String)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of KEY=VALUE settings loaded before the environment is read")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll back every migration instead")

	createPersonCmd.Flags().StringVar(&person.UserName, "username", "", "user name of the person")
	createPersonCmd.Flags().StringVar(&person.FirstName, "first-name", "", "first name")
	createPersonCmd.Flags().StringVar(&person.LastName, "last-name", "", "last name")
	createPersonCmd.Flags().StringVar(&person.Email, "email", "", "email address")
	createPersonCmd.Flags().StringVar(&person.password, "password", "", "password of the API user")
	_ = createPersonCmd.MarkFlagRequired("username")
	_ = createPersonCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, migrateCmd, createPersonCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("workflowrest exited with error", "error", err)
		os.Exit(1)
	}
}
